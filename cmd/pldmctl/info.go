package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print consolidated repository metadata",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.mgr.SyncAll(context.Background()); err != nil {
			return fmt.Errorf("sync all: %w", err)
		}

		info := a.mgr.GetInfo()
		fmt.Printf("state:               %d\n", info.State)
		fmt.Printf("record_count:        %d\n", info.RecordCount)
		fmt.Printf("repository_size:     %d\n", info.RepositorySize)
		fmt.Printf("largest_record_size: %d\n", info.LargestRecordSize)
		fmt.Printf("signature:           0x%08x\n", a.mgr.GetSignature())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
