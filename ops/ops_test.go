package ops_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caldwell/pdpfs/ops"
)

func TestCreateImageAndSaveReload(t *testing.T) {
	// block.Open only recognizes a flat IMG at >=1MiB (anything smaller and
	// not RX01/RX02-sized is ambiguous), so the round trip needs a real size.
	fsys, err := ops.CreateImage("flat(1048576)", "img", "rt11")
	require.NoError(t, err)
	require.Equal(t, "RT-11", fsys.FilesystemName())

	require.NoError(t, fsys.WriteFile("HELLO.TXT", []byte("hi there")))

	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	require.NoError(t, ops.SaveImage(fsys.BlockDevice().PhysicalDevice(), path))

	dev, err := ops.OpenDevice(path)
	require.NoError(t, err)
	reopened, err := ops.OpenFS(dev)
	require.NoError(t, err)

	got, err := reopened.ReadFile("HELLO.TXT")
	require.NoError(t, err)
	require.Equal(t, "hi there", string(got[:len("hi there")]))
}

func TestSaveImageBacksUpExisting(t *testing.T) {
	fsys, err := ops.CreateImage("flat(51200)", "img", "xxdp")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	require.NoError(t, ops.SaveImage(fsys.BlockDevice().PhysicalDevice(), path))
	require.NoError(t, ops.SaveImage(fsys.BlockDevice().PhysicalDevice(), path))

	_, err = os.Stat(path + ".bak")
	require.NoError(t, err)
}

func TestCpIntoAndOutOfImage(t *testing.T) {
	fsys, err := ops.CreateImage("flat(102400)", "img", "rt11")
	require.NoError(t, err)

	dir := t.TempDir()
	src := filepath.Join(dir, "local.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

	require.NoError(t, ops.Cp(fsys, src, "DEST.TXT"))
	_, ok := fsys.Stat("DEST.TXT")
	require.True(t, ok)

	out := filepath.Join(dir, "out.txt")
	require.NoError(t, ops.Cp(fsys, "DEST.TXT", out))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got[:len("payload")]))
}

func TestMvRefusesOverwriteWithoutForce(t *testing.T) {
	fsys, err := ops.CreateImage("flat(102400)", "img", "rt11")
	require.NoError(t, err)

	require.NoError(t, fsys.WriteFile("A.TXT", []byte("a")))
	require.NoError(t, fsys.WriteFile("B.TXT", []byte("b")))

	err = ops.Mv(fsys, "A.TXT", "B.TXT", false)
	require.Error(t, err)

	require.NoError(t, ops.Mv(fsys, "A.TXT", "B.TXT", true))
	_, ok := fsys.Stat("A.TXT")
	require.False(t, ok)
}

func TestRmDeletesFile(t *testing.T) {
	fsys, err := ops.CreateImage("flat(102400)", "img", "rt11")
	require.NoError(t, err)
	require.NoError(t, fsys.WriteFile("A.TXT", []byte("a")))
	require.NoError(t, ops.Rm(fsys, "A.TXT"))
	_, ok := fsys.Stat("A.TXT")
	require.False(t, ok)
}

func TestLsReportsUsedAndFree(t *testing.T) {
	fsys, err := ops.CreateImage("flat(102400)", "img", "rt11")
	require.NoError(t, err)
	require.NoError(t, fsys.WriteFile("A.TXT", []byte("a")))

	out, err := ops.Ls(fsys, false, false)
	require.NoError(t, err)
	require.Contains(t, out, "A.TXT")
	require.Contains(t, out, "Used")
	require.Contains(t, out, "Free")
}

func TestImageTypeFromExt(t *testing.T) {
	it, err := ops.ImageTypeFromExt("/tmp/disk.img")
	require.NoError(t, err)
	require.Equal(t, "img", it)

	it, err = ops.ImageTypeFromExt("disk.IMD")
	require.NoError(t, err)
	require.Equal(t, "imd", it)

	_, err = ops.ImageTypeFromExt("disk.iso")
	require.Error(t, err)
}

func TestParseRange(t *testing.T) {
	first, last, err := ops.ParseRange("", 10)
	require.NoError(t, err)
	require.Equal(t, 0, first)
	require.Equal(t, 9, last)

	first, last, err = ops.ParseRange("5", 10)
	require.NoError(t, err)
	require.Equal(t, 5, first)
	require.Equal(t, 5, last)

	first, last, err = ops.ParseRange("3-7", 10)
	require.NoError(t, err)
	require.Equal(t, 3, first)
	require.Equal(t, 7, last)

	_, _, err = ops.ParseRange("7-3", 10)
	require.Error(t, err)
	_, _, err = ops.ParseRange("0-10", 10)
	require.Error(t, err)
}

func TestConvertToIMD(t *testing.T) {
	// Must be >=1MiB: block.Open's IMD detection wraps anything smaller with
	// the RX01/RX02 interleave mapping, which only suits
	// RX-shaped geometry. A >=1MiB flat device round-trips through the Flat
	// mapping instead, regardless of its actual cylinder/head/sector shape.
	fsys, err := ops.CreateImage("flat(1048576)", "img", "rt11")
	require.NoError(t, err)
	require.NoError(t, fsys.WriteFile("A.TXT", []byte("some data")))

	dir := t.TempDir()
	dest := filepath.Join(dir, "disk.imd")
	require.NoError(t, ops.Convert(fsys.BlockDevice(), "imd", dest))

	dev, err := ops.OpenDevice(dest)
	require.NoError(t, err)
	reopened, err := ops.OpenFS(dev)
	require.NoError(t, err)
	got, err := reopened.ReadFile("A.TXT")
	require.NoError(t, err)
	require.Equal(t, "some data", string(got[:len("some data")]))
}
