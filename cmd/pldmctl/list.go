package main

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/openpldm/pdrd/pdr"
)

var listTypeFilter string

// pdrTypeNames maps a handful of DSP0248 Table 14 PDR types to their
// names, so --type can glob-match on a readable name instead of a raw
// byte. Anything not in this table falls back to "type-<N>".
var pdrTypeNames = map[uint8]string{
	1:  "terminus-locator",
	2:  "numeric-sensor",
	3:  "numeric-sensor-init",
	4:  "state-sensor",
	5:  "state-sensor-init",
	9:  "numeric-effecter",
	11: "state-effecter",
	20: "fru-record-set",
	21: "entity-association",
}

func pdrTypeName(t uint8) string {
	if name, ok := pdrTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type-%d", t)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List consolidated PDR records, optionally filtered by --type",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.mgr.SyncAll(context.Background()); err != nil {
			return fmt.Errorf("sync all: %w", err)
		}

		var match glob.Glob
		if listTypeFilter != "" {
			match, err = glob.Compile(listTypeFilter)
			if err != nil {
				return fmt.Errorf("compile --type glob %q: %w", listTypeFilter, err)
			}
		}

		handle := uint32(0)
		for {
			data, _, _, nextHandle, err := a.mgr.GetPDR(handle, 0)
			if err != nil {
				if handle == 0 {
					break // empty repository
				}
				return fmt.Errorf("get pdr handle=%d: %w", handle, err)
			}

			hdr, err := pdr.DecodeHeader(data)
			if err != nil {
				return fmt.Errorf("decode header handle=%d: %w", handle, err)
			}

			name := pdrTypeName(hdr.PDRType)
			if match == nil || match.Match(name) {
				fmt.Printf("handle=%-6d type=%-20s size=%d\n", hdr.RecordHandle, name, hdr.DataLength)
			}

			if nextHandle == 0 {
				break
			}
			handle = nextHandle
		}

		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listTypeFilter, "type", "", "glob pattern matched against PDR type names (e.g. 'state-*')")
	rootCmd.AddCommand(listCmd)
}
