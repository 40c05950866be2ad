package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/ops"
)

var (
	dumpBySector bool
	dumpRange    string
)

var dumpCmd = &cobra.Command{
	Use:                   "dump [<file>]",
	Short:                 "Hex-dump a disk image, or a single file within it",
	Args:                  cobra.MaximumNArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			_, fsys, err := openFS()
			if err != nil {
				return err
			}
			out, err := ops.DumpFile(fsys, args[0])
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		}
		dev, err := openDevice()
		if err != nil {
			return err
		}
		out, err := ops.Dump(dev, dumpBySector, dumpRange)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpBySector, "sector", false, "dump physical sectors instead of logical blocks")
	dumpCmd.Flags().StringVar(&dumpRange, "range", "", "limit the dump to a block/sector or inclusive span (\"5\", \"3-7\")")
	rootCmd.AddCommand(dumpCmd)
}
