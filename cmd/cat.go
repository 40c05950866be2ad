package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/ops"
)

var catCmd = &cobra.Command{
	Use:                   "cat <file>",
	Short:                 "Print a file's contents from a disk image to stdout",
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, fsys, err := openFS()
		if err != nil {
			return err
		}
		data, err := fsys.ReadFile(ops.PathToFilename(args[0]))
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
