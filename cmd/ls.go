package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/ops"
)

var lsLong, lsAll bool

var lsCmd = &cobra.Command{
	Use:                   "ls",
	Short:                 "List the files in a disk image",
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, fsys, err := openFS()
		if err != nil {
			return err
		}
		out, err := ops.Ls(fsys, lsLong, lsAll)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "show full decoded directory entries")
	lsCmd.Flags().BoolVarP(&lsAll, "all", "a", false, "include empty, tentative, and deleted slots")
	rootCmd.AddCommand(lsCmd)
}
