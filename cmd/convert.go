package cmd

import (
	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/ops"
)

var convertCmd = &cobra.Command{
	Use:                   "convert <image-type> <dest-file>",
	Short:                 "Convert a disk image to a different container format",
	Long:                  `image-type is one of "img" or "imd". The -i/--image file is read and dest-file is written in the new container format.`,
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := openDevice()
		if err != nil {
			return err
		}
		return ops.Convert(dev, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
