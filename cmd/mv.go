package cmd

import (
	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/ops"
)

var mvForce bool

var mvCmd = &cobra.Command{
	Use:                   "mv <source-file> <dest-file>",
	Short:                 "Rename a file within a disk image",
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, fsys, err := openFS()
		if err != nil {
			return err
		}
		if err := ops.Mv(fsys, args[0], args[1], mvForce); err != nil {
			return err
		}
		return saveDevice(dev)
	},
}

func init() {
	mvCmd.Flags().BoolVarP(&mvForce, "force", "f", false, "overwrite dest-file if it already exists")
	rootCmd.AddCommand(mvCmd)
}
