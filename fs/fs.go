// Package fs defines the FileSystem façade: a polymorphic capability set
// implemented by both the RT-11 and XXDP volume layouts (see fs/rt11 and
// fs/xxdp), plus the DirEntry capability set each of their directory
// entries satisfies.
package fs

import (
	"time"

	"github.com/caldwell/pdpfs/block"
)

// DirEntry is the read-only directory entry capability set common to both
// filesystems.
type DirEntry interface {
	FileName() string
	IsDir() bool
	IsFile() bool
	IsSymlink() bool
	Len() uint64
	Blocks() uint64
	Readonly() bool
	Created() (time.Time, error)
	Modified() (time.Time, error)
	Accessed() (time.Time, error)
}

// FileSystem is the capability set a caller operates against, regardless of
// which on-disk volume layout backs it.
type FileSystem interface {
	FilesystemName() string

	// DirIter returns every directory slot, including empty/tentative/
	// deleted ones.
	DirIter(path string) ([]DirEntry, error)
	// ReadDir returns only the visible (occupied, permanent) entries.
	ReadDir(path string) ([]DirEntry, error)
	Stat(name string) (DirEntry, bool)

	FreeBlocks() int
	UsedBlocks() int

	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	Delete(name string) error
	Rename(src, dest string) error

	BlockDevice() block.BlockDevice
}

// Rename implements the base rename behavior shared by both filesystems:
// a no-op if src==dest, fail if src is missing,
// clobber dest if present, then defer to the filesystem-specific
// rename_unchecked.
func Rename(f FileSystem, renameUnchecked func(src, dest string) error, src, dest string) error {
	if src == dest {
		return nil
	}
	if _, ok := f.Stat(src); !ok {
		return errNotFound(src)
	}
	if _, ok := f.Stat(dest); ok {
		if err := f.Delete(dest); err != nil {
			return err
		}
	}
	return renameUnchecked(src, dest)
}
