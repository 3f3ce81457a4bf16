package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var syncAll bool

var syncCmd = &cobra.Command{
	Use:   "sync [eid]",
	Short: "Force a full resync of one terminus, or every terminus with --all",
	Args: func(c *cobra.Command, args []string) error {
		if syncAll {
			return nil
		}
		return cobra.ExactArgs(1)(c, args)
	},
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()

		if syncAll {
			if err := a.mgr.SyncAll(ctx); err != nil {
				return fmt.Errorf("sync all: %w", err)
			}
			fmt.Println("synced all termini")
			return nil
		}

		eid, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fmt.Errorf("parse eid %q: %w", args[0], err)
		}

		if err := a.mgr.SyncTerminus(ctx, uint8(eid)); err != nil {
			return fmt.Errorf("sync terminus eid=%d: %w", eid, err)
		}

		fmt.Printf("synced terminus eid=%d\n", eid)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every registered terminus instead of a single eid")
	rootCmd.AddCommand(syncCmd)
}
