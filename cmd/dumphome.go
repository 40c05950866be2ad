package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/ops"
)

var dumpHomeCmd = &cobra.Command{
	Use:                   "dump-home",
	Short:                 "Decode and print an RT-11 image's home block",
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := openDevice()
		if err != nil {
			return err
		}
		out, err := ops.DumpHome(dev)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpHomeCmd)
}
