// Package ops implements the disk-image operations the CLI drives: listing,
// copying files in and out of an image, renaming/removing, creating a fresh
// image, dumping raw or decoded contents, and converting between container
// formats.
package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/block"
	"github.com/caldwell/pdpfs/fs"
	"github.com/caldwell/pdpfs/fs/rt11"
	"github.com/caldwell/pdpfs/fs/xxdp"
	"github.com/caldwell/pdpfs/storage"
)

// OpenDevice reads an image file from disk and assembles its logical
// BlockDevice from its magic number and length.
func OpenDevice(path string) (block.BlockDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	data, err := storage.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	dev, err := block.Open(data)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return dev, nil
}

// OpenFS tries each known volume layout against dev in turn and returns the
// first that recognizes it.
func OpenFS(dev block.BlockDevice) (fs.FileSystem, error) {
	if rt11.ImageIs(dev) {
		return rt11.New(dev)
	}
	if xxdp.ImageIs(dev) {
		return xxdp.New(dev)
	}
	return nil, errors.New("unrecognized filesystem")
}

// ImageTypeFromExt maps a save path's extension to its container format:
// ".img" -> "img", ".imd" -> "imd"; anything else fails.
func ImageTypeFromExt(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".img":
		return "img", nil
	case ".imd":
		return "imd", nil
	default:
		return "", errors.Errorf("unknown image type for %q", path)
	}
}

// CreateImage builds a fresh device of the requested type and container, in
// the requested filesystem.
// deviceType is one of "rx01", "rx02", or "flat(N)" (N bytes); imageType is
// "img" or "imd"; filesystem is "rt11" or "xxdp".
func CreateImage(deviceType, imageType, filesystem string) (fs.FileSystem, error) {
	dev, err := NewDevice(deviceType, imageType)
	if err != nil {
		return nil, err
	}
	switch filesystem {
	case "rt11":
		return rt11.Mkfs(dev)
	case "xxdp":
		return xxdp.Mkfs(dev)
	default:
		return nil, errors.Errorf("unknown filesystem type %q", filesystem)
	}
}

// NewDevice builds an empty, zero-filled BlockDevice of deviceType in the
// requested container format.
func NewDevice(deviceType, imageType string) (block.BlockDevice, error) {
	switch {
	case deviceType == "rx01":
		return newContainer(imageType, make([]byte, block.RX01Geometry.TotalBytes()), block.RX01Geometry, true)
	case deviceType == "rx02":
		return newContainer(imageType, make([]byte, block.RX02Geometry.TotalBytes()), block.RX02Geometry, true)
	case strings.HasPrefix(deviceType, "flat(") && strings.HasSuffix(deviceType, ")"):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(deviceType, "flat("), ")"))
		if err != nil {
			return nil, errors.Wrapf(err, "bad flat device size in %q", deviceType)
		}
		g := block.Geometry{Cylinders: 1, Heads: 1, Sectors: n / block.BlockSize, SectorSize: block.BlockSize}
		return newContainer(imageType, make([]byte, n), g, false)
	default:
		return nil, errors.Errorf("unknown device type %q", deviceType)
	}
}

func newContainer(imageType string, raw []byte, g block.Geometry, interleaved bool) (block.BlockDevice, error) {
	var phys block.PhysicalBlockDevice
	switch imageType {
	case "img":
		phys = block.NewIMG(raw, g)
	case "imd":
		phys = block.FromIMG(block.NewIMG(raw, g))
	default:
		return nil, errors.Errorf("unknown image type %q", imageType)
	}
	if interleaved {
		return block.NewRX(phys), nil
	}
	return block.NewFlat(phys), nil
}

// SaveImage serializes dev back to its container's own on-disk form and
// writes it to filename in three steps: write to "<filename>.new", rename
// any existing file to "<filename>.bak", then
// rename "<filename>.new" into place. This leaves a viable backup if the
// process dies mid-write.
func SaveImage(dev block.PhysicalBlockDevice, filename string) error {
	newImage, err := dev.AsVec()
	if err != nil {
		return errors.Wrap(err, "serializing image")
	}
	newName := filename + ".new"
	bakName := filename + ".bak"
	if err := os.WriteFile(newName, newImage, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", newName)
	}
	if _, err := os.Stat(filename); err == nil {
		if err := os.Rename(filename, bakName); err != nil {
			return errors.Wrapf(err, "backing up %s", filename)
		}
	}
	if err := os.Rename(newName, filename); err != nil {
		return errors.Wrapf(err, "finalizing %s", filename)
	}
	return nil
}

// Ls renders the filesystem's directory listing: one line (or one
// debug-dump block, if long) per entry, followed by used/free/total block
// accounting.
func Ls(fsys fs.FileSystem, long, all bool) (string, error) {
	var entries []fs.DirEntry
	var err error
	if all {
		entries, err = fsys.DirIter("/")
	} else {
		entries, err = fsys.ReadDir("/")
	}
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, e := range entries {
		if long {
			fmt.Fprintf(&sb, "%#v\n", e)
		} else {
			created := "no date"
			if t, err := e.Created(); err == nil {
				created = t.Format("2006-01-02")
			}
			fmt.Fprintf(&sb, "%-10s %6d %s\n", created, e.Blocks(), e.FileName())
		}
	}
	used, free := fsys.UsedBlocks(), fsys.FreeBlocks()
	total := used + free
	pct := func(n int) int {
		if total == 0 {
			return 0
		}
		return n * 100 / total
	}
	fmt.Fprintf(&sb, "\nUsed  %4d blocks %7d bytes %3d%%\n", used, used*block.BlockSize, pct(used))
	fmt.Fprintf(&sb, "Free  %4d blocks %7d bytes %3d%%\n", free, free*block.BlockSize, pct(free))
	fmt.Fprintf(&sb, "Total %4d blocks %7d bytes\n", total, total*block.BlockSize)
	return sb.String(), nil
}

// PathToFilename uppercases p to form the name used on the image. It does
// not strip directory components or check the 6.3 format.
func PathToFilename(p string) string {
	return strings.ToUpper(p)
}

// hasPathSeparator reports whether p names a local host path rather than a
// bare on-image filename.
func hasPathSeparator(p string) bool {
	return strings.ContainsRune(p, filepath.Separator) || strings.ContainsRune(p, '/')
}

// Cp dispatches a two-argument cp between CopyIntoImage and CopyFromImage by
// checking which side names a local host path: a path separator in src
// means "host -> image", one in dest means "image -> host".
// If neither side contains a separator, src is read as a local file and
// copied into the image; if both do, Cp fails.
func Cp(fsys fs.FileSystem, src, dest string) error {
	srcIsLocal := hasPathSeparator(src)
	destIsLocal := hasPathSeparator(dest)
	switch {
	case srcIsLocal && !destIsLocal:
		return CopyIntoImage(fsys, src, dest)
	case !srcIsLocal && destIsLocal:
		return CopyFromImage(fsys, src, dest)
	case !srcIsLocal && !destIsLocal:
		return CopyIntoImage(fsys, src, dest)
	default:
		return errors.New("cp: can't tell which side is the image file (both names contain a path separator)")
	}
}

// CopyFromImage copies src (an on-image file) to dest (a local path,
// possibly a directory) on the host filesystem.
func CopyFromImage(fsys fs.FileSystem, src, dest string) error {
	localDest := dest
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		localDest = filepath.Join(dest, filepath.Base(src))
	}
	name := PathToFilename(src)
	data, err := fsys.ReadFile(name)
	if err != nil {
		return errors.Wrapf(err, "file not found: %s", name)
	}
	if err := os.WriteFile(localDest, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", localDest)
	}
	return nil
}

// CopyIntoImage copies src (a local host path) into dest (an on-image
// filename; "." reuses src's base name) on the image.
func CopyIntoImage(fsys fs.FileSystem, src, dest string) error {
	if dest == "." {
		dest = filepath.Base(src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, "reading %s", src)
	}
	return fsys.WriteFile(PathToFilename(dest), data)
}

// Rm deletes file from the image.
func Rm(fsys fs.FileSystem, file string) error {
	return fsys.Delete(PathToFilename(file))
}

// Mv renames src to dest on the image. If dest already exists, force must be
// set or the rename is rejected.
func Mv(fsys fs.FileSystem, src, dest string, force bool) error {
	destName := PathToFilename(dest)
	if _, ok := fsys.Stat(destName); ok && !force {
		return errors.Errorf("%s already exists (use -f to overwrite)", destName)
	}
	return fsys.Rename(PathToFilename(src), destName)
}

// Convert re-serializes image's raw sector contents into a different
// container format and saves the result to dest.
func Convert(image block.BlockDevice, imageType, dest string) error {
	g, data, err := image.PhysicalDevice().ToRaw()
	if err != nil {
		return errors.Wrap(err, "reading raw image")
	}
	var phys block.PhysicalBlockDevice
	switch imageType {
	case "img":
		phys = block.NewIMGFromRaw(g, data)
	case "imd":
		phys = block.FromIMG(block.NewIMGFromRaw(g, data))
	default:
		return errors.Errorf("unknown image type %q", imageType)
	}
	return SaveImage(phys, dest)
}
