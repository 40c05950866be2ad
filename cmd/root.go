// Package cmd implements pdpfs's command-line surface: a cobra root command
// plus one subcommand per disk-image operation in ops, following retroio's
// cmd/ layout (one file per subcommand, wired up from init()).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/block"
	"github.com/caldwell/pdpfs/fs"
	"github.com/caldwell/pdpfs/ops"
)

// imageFile holds the persistent -i/--image flag shared by every subcommand
// that needs to open (and possibly rewrite) a disk image.
var imageFile string

var rootCmd = &cobra.Command{
	Use:   "pdpfs",
	Short: "Read and write PDP-11 RT-11 and XXDP disk images",
	Long: `pdpfs lists, copies, removes, and renames files inside RT-11 and XXDP
filesystem images, and converts between the IMG and IMD container formats.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&imageFile, "image", "i", "", "disk image file (required)")
}

// Execute runs the command tree, printing any error and exiting nonzero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pdpfs:", err)
		os.Exit(1)
	}
}

// requireImageFile fails fast with a clear message when -i wasn't given,
// rather than letting os.ReadFile("") produce a confusing error.
func requireImageFile() error {
	if imageFile == "" {
		return fmt.Errorf("no image file given (use -i/--image)")
	}
	return nil
}

// openDevice opens imageFile's container/logical block device.
func openDevice() (block.BlockDevice, error) {
	if err := requireImageFile(); err != nil {
		return nil, err
	}
	return ops.OpenDevice(imageFile)
}

// openFS opens imageFile's device and recognizes its volume layout.
func openFS() (block.BlockDevice, fs.FileSystem, error) {
	dev, err := openDevice()
	if err != nil {
		return nil, nil, err
	}
	fsys, err := ops.OpenFS(dev)
	if err != nil {
		return nil, nil, err
	}
	return dev, fsys, nil
}

// saveDevice writes dev back to imageFile, for subcommands that mutate the
// image in place.
func saveDevice(dev block.BlockDevice) error {
	return ops.SaveImage(dev.PhysicalDevice(), imageFile)
}
