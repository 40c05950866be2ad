//go:build linux

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caldwell/pdpfs/fs/fusefs"
)

var mountCmd = &cobra.Command{
	Use:                   "mount <mountpoint>",
	Short:                 "Mount a disk image read-only via FUSE",
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, fsys, err := openFS()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigc
			cancel()
		}()
		return fusefs.Mount(ctx, args[0], fsys)
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}
