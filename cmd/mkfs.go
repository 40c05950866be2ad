package cmd

import (
	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/ops"
)

var mkfsCmd = &cobra.Command{
	Use:   "mkfs <device-type> <filesystem>",
	Short: "Create a fresh disk image",
	Long: `Create a fresh disk image at the -i/--image path. device-type is one of
"rx01", "rx02", or "flat(<bytes>)"; filesystem is one of "rt11" or "xxdp".
The image path's extension picks the container format (.img or .imd).`,
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireImageFile(); err != nil {
			return err
		}
		imageType, err := ops.ImageTypeFromExt(imageFile)
		if err != nil {
			return err
		}
		fsys, err := ops.CreateImage(args[0], imageType, args[1])
		if err != nil {
			return err
		}
		return saveDevice(fsys.BlockDevice())
	},
}

func init() {
	rootCmd.AddCommand(mkfsCmd)
}
