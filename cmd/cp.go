package cmd

import (
	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/ops"
)

var cpCmd = &cobra.Command{
	Use:                   "cp <source-file> <dest-file>",
	Short:                 "Copy a file into or out of a disk image",
	Long: `Copy a file between the local filesystem and a disk image. The side
containing a '/' is the local path; the other names a file on the image. If
neither contains a '/', source-file is a local file copied into the image; if
both do, the copy fails.`,
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, fsys, err := openFS()
		if err != nil {
			return err
		}
		if err := ops.Cp(fsys, args[0], args[1]); err != nil {
			return err
		}
		return saveDevice(dev)
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
}
