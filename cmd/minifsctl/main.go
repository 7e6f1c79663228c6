// Command minifsctl is a smoke-test CLI over a minios/fs image file,
// exercising mkfs/mount/ls/create/delete/cat/write the way a developer
// would poke at the filesystem from a shell instead of writing a Go test.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minios/fs"
	"minios/fs/blockdev"
)

var rootCmd = &cobra.Command{
	Use:   "minifsctl",
	Short: "Inspect and manipulate a minios FAT-style disk image",
}

func main() {
	rootCmd.AddCommand(mkfsCmd, infoCmd, lsCmd, createCmd, deleteCmd, catCmd, writeCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var mkfsCmd = &cobra.Command{
	Use:   "mkfs <image> <blocks>",
	Short: "Create and format a new disk image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var blocks uint16
		if _, err := fmt.Sscan(args[1], &blocks); err != nil {
			return fmt.Errorf("minifsctl: bad block count %q: %w", args[1], err)
		}
		if err := blockdev.CreateImage(args[0], blocks); err != nil {
			return err
		}
		dev := &blockdev.File{}
		if err := dev.Open(args[0]); err != nil {
			return err
		}
		defer dev.Close()
		return fs.Format(dev, blocks)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <image>",
	Short: "Print superblock and usage statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, closeFn, err := openVolume(args[0])
		if err != nil {
			return err
		}
		defer closeFn()
		info, err := v.Info()
		if err != nil {
			return err
		}
		fmt.Print(info)
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls <image>",
	Short: "List files in the root directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, closeFn, err := openVolume(args[0])
		if err != nil {
			return err
		}
		defer closeFn()
		entries, err := v.Ls()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-16s %d\n", e.Name, e.Size)
		}
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <image> <name>",
	Short: "Create an empty file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, closeFn, err := openVolume(args[0])
		if err != nil {
			return err
		}
		defer closeFn()
		return v.Create(args[1])
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <image> <name>",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, closeFn, err := openVolume(args[0])
		if err != nil {
			return err
		}
		defer closeFn()
		return v.Delete(args[1])
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <image> <name>",
	Short: "Print a file's contents to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, closeFn, err := openVolume(args[0])
		if err != nil {
			return err
		}
		defer closeFn()
		fd, err := v.Open(args[1])
		if err != nil {
			return err
		}
		defer v.Close(fd)
		sz, err := v.Stat(fd)
		if err != nil {
			return err
		}
		buf := make([]byte, sz)
		if _, err := v.Read(fd, buf); err != nil {
			return err
		}
		_, err = os.Stdout.Write(buf)
		return err
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <image> <name> <text>",
	Short: "Overwrite a file with the given text, starting at offset 0",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, closeFn, err := openVolume(args[0])
		if err != nil {
			return err
		}
		defer closeFn()
		fd, err := v.Open(args[1])
		if err != nil {
			return err
		}
		defer v.Close(fd)
		n, err := v.Write(fd, []byte(args[2]))
		if err != nil {
			return err
		}
		if n != len(args[2]) {
			return fmt.Errorf("minifsctl: short write: wrote %d of %d bytes, FAT exhausted", n, len(args[2]))
		}
		return nil
	},
}

// openVolume mounts image and returns a close function that unmounts and
// persists it, so every subcommand leaves the image in a consistent
// on-disk state even on early RunE return via defer.
func openVolume(image string) (*fs.Volume, func() error, error) {
	dev := &blockdev.File{}
	v := fs.New(nil)
	if err := v.Mount(dev, image); err != nil {
		return nil, nil, err
	}
	return v, v.Unmount, nil
}
