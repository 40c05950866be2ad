//go:build linux

// Package fusefs exposes a pdpfs fs.FileSystem as a read-only FUSE mount: a
// Dir that lists entries and a File that serves one file's bytes, backed by
// ReadDir/ReadFile/Stat.
package fusefs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"bazil.org/fuse"
	fusefslib "bazil.org/fuse/fs"

	"github.com/caldwell/pdpfs/fs"
)

// Mount serves fsys read-only at mountpoint until ctx is canceled (it then
// unmounts) or the FUSE server stops.
func Mount(ctx context.Context, mountpoint string, fsys fs.FileSystem) error {
	c, err := fuse.Mount(mountpoint, fuse.ReadOnly(), fuse.FSName("pdpfs"), fuse.Subtype(fsys.FilesystemName()))
	if err != nil {
		return fmt.Errorf("mounting %s: %w", mountpoint, err)
	}
	defer c.Close()

	srv := fusefslib.New(c, nil)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(&root{fsys: fsys}) }()

	select {
	case <-ctx.Done():
		return fuse.Unmount(mountpoint)
	case err := <-serveErr:
		return err
	}
}

// root is the mount's single directory: pdpfs filesystems have no
// subdirectories, so Root and the one Dir node coincide.
type root struct {
	fsys fs.FileSystem
}

func (r *root) Root() (fusefslib.Node, error) {
	return &dir{fsys: r.fsys}, nil
}

type dir struct {
	fsys fs.FileSystem
}

func (d *dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *dir) Lookup(ctx context.Context, name string) (fusefslib.Node, error) {
	e, ok := d.fsys.Stat(name)
	if !ok {
		return nil, fuse.ENOENT
	}
	return &file{fsys: d.fsys, entry: e}, nil
}

func (d *dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	entries, err := d.fsys.ReadDir("/")
	if err != nil {
		return nil, err
	}
	out := make([]fuse.Dirent, len(entries))
	for i, e := range entries {
		out[i] = fuse.Dirent{Inode: uint64(i + 1), Name: e.FileName(), Type: fuse.DT_File}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// file reads its whole contents on every Read (nothing is cached) and
// serves the requested range out of them, matching the way every other
// pdpfs operation already treats files as materialized byte slices rather
// than streamed ranges.
type file struct {
	fsys  fs.FileSystem
	entry fs.DirEntry
}

func (f *file) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = f.entry.Len()
	if t, err := f.entry.Created(); err == nil {
		a.Mtime = t
	} else {
		a.Mtime = time.Time{}
	}
	return nil
}

func (f *file) ReadAll(ctx context.Context) ([]byte, error) {
	return f.fsys.ReadFile(f.entry.FileName())
}

func (f *file) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	data, err := f.fsys.ReadFile(f.entry.FileName())
	if err != nil {
		return err
	}
	r := io.NewSectionReader(bytes.NewReader(data), 0, int64(len(data)))
	buf := make([]byte, req.Size)
	n, err := r.ReadAt(buf, req.Offset)
	if err != nil && err != io.EOF {
		return err
	}
	resp.Data = buf[:n]
	return nil
}
