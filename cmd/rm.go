package cmd

import (
	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/ops"
)

var rmCmd = &cobra.Command{
	Use:                   "rm <file>",
	Short:                 "Remove a file from a disk image",
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, fsys, err := openFS()
		if err != nil {
			return err
		}
		if err := ops.Rm(fsys, args[0]); err != nil {
			return err
		}
		return saveDevice(dev)
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
