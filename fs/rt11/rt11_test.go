package rt11_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caldwell/pdpfs/block"
	"github.com/caldwell/pdpfs/fs"
	"github.com/caldwell/pdpfs/fs/rt11"
)

func newTestImage(t *testing.T, blocks int) block.BlockDevice {
	t.Helper()
	g := block.Geometry{Cylinders: 1, Heads: 1, Sectors: blocks, SectorSize: block.BlockSize}
	return block.NewFlat(block.NewIMG(make([]byte, g.TotalBytes()), g))
}

func TestMkfsThenOpen(t *testing.T) {
	image := newTestImage(t, 200)
	fsys, err := rt11.Mkfs(image)
	require.NoError(t, err)
	require.Equal(t, "RT-11", fsys.FilesystemName())
	require.True(t, rt11.ImageIs(image))

	entries, err := fsys.ReadDir("/")
	require.NoError(t, err)
	require.Empty(t, entries)
	require.True(t, fsys.Home.ChecksumOK)
}

func TestHomeBlockPreservesBupAndBadBlockTable(t *testing.T) {
	image := newTestImage(t, 20)
	fsys, err := rt11.Mkfs(image)
	require.NoError(t, err)

	home := fsys.Home
	home.BadBlockTable[0] = 0x42
	vol := uint8(3)
	home.BupVolume = &vol
	require.NoError(t, image.WriteBlocks(1, 1, home.Repr()))

	got, err := rt11.ReadHomeBlock(image)
	require.NoError(t, err)
	require.Equal(t, byte(0x42), got.BadBlockTable[0])
	require.NotNil(t, got.BupVolume)
	require.Equal(t, uint8(3), *got.BupVolume)
	require.True(t, got.ChecksumOK)
}

func TestWriteReadDeleteFile(t *testing.T) {
	image := newTestImage(t, 200)
	fsys, err := rt11.Mkfs(image)
	require.NoError(t, err)

	data := []byte("HELLO, WORLD! THIS IS A TEST FILE.")
	require.NoError(t, fsys.WriteFile("TEST.TXT", data))

	entry, ok := fsys.Stat("TEST.TXT")
	require.True(t, ok)
	require.Equal(t, "TEST.TXT", entry.FileName())
	require.True(t, entry.IsFile())

	got, err := fsys.ReadFile("TEST.TXT")
	require.NoError(t, err)
	require.Equal(t, data, got[:len(data)])

	require.NoError(t, fsys.Delete("TEST.TXT"))
	_, ok = fsys.Stat("TEST.TXT")
	require.False(t, ok)
}

func TestOverwriteFileReusesSlot(t *testing.T) {
	image := newTestImage(t, 200)
	fsys, err := rt11.Mkfs(image)
	require.NoError(t, err)

	require.NoError(t, fsys.WriteFile("A.TXT", []byte("first")))
	require.NoError(t, fsys.WriteFile("A.TXT", []byte("second version")))

	got, err := fsys.ReadFile("A.TXT")
	require.NoError(t, err)
	require.Equal(t, "second version", string(got[:len("second version")]))
}

func TestRenameFile(t *testing.T) {
	image := newTestImage(t, 200)
	fsys, err := rt11.Mkfs(image)
	require.NoError(t, err)

	require.NoError(t, fsys.WriteFile("OLD.TXT", []byte("data")))
	require.NoError(t, fsys.Rename("OLD.TXT", "NEW.TXT"))

	_, ok := fsys.Stat("OLD.TXT")
	require.False(t, ok)
	_, ok = fsys.Stat("NEW.TXT")
	require.True(t, ok)
}

func TestRenameMissingSourceFails(t *testing.T) {
	image := newTestImage(t, 200)
	fsys, err := rt11.Mkfs(image)
	require.NoError(t, err)
	err = fsys.Rename("NOPE.TXT", "NEW.TXT")
	require.Error(t, err)
}

func TestFreeSpaceAccounting(t *testing.T) {
	image := newTestImage(t, 200)
	fsys, err := rt11.Mkfs(image)
	require.NoError(t, err)

	freeBefore := fsys.FreeBlocks()
	require.NoError(t, fsys.WriteFile("A.TXT", make([]byte, block.BlockSize*3)))
	require.Equal(t, freeBefore-3, fsys.FreeBlocks())
	require.Equal(t, 3, fsys.UsedBlocks())
}

func TestDeleteCoalescesAdjacentEmpties(t *testing.T) {
	image := newTestImage(t, 200)
	fsys, err := rt11.Mkfs(image)
	require.NoError(t, err)

	require.NoError(t, fsys.WriteFile("A.DAT", make([]byte, block.BlockSize)))
	require.NoError(t, fsys.WriteFile("B.DAT", make([]byte, block.BlockSize)))
	require.NoError(t, fsys.WriteFile("C.DAT", make([]byte, block.BlockSize)))

	require.NoError(t, fsys.Delete("B.DAT"))
	require.NoError(t, fsys.Delete("A.DAT"))
	require.NoError(t, fsys.Delete("C.DAT"))

	// Everything coalesces back into a single Empty entry covering the whole
	// data region, and no two adjacent Empty entries survive.
	require.Equal(t, 0, fsys.UsedBlocks())
	require.Len(t, fsys.Dir, 1)
	require.Len(t, fsys.Dir[0].Entries, 1)
	require.Equal(t, rt11.Empty, fsys.Dir[0].Entries[0].Kind)
}

func TestSeventyFiveFilesSplitSegment(t *testing.T) {
	image := newTestImage(t, 200)
	fsys, err := rt11.Mkfs(image)
	require.NoError(t, err)

	for i := 0; i < 75; i++ {
		require.NoError(t, fsys.WriteFile(fmt.Sprintf("TEST%d.TXT", i), []byte("x")))
	}
	require.Len(t, fsys.Dir, 2)
	require.Equal(t, uint16(2), fsys.Dir[0].LastSegment)
	for _, seg := range fsys.Dir {
		for i := 1; i < len(seg.Entries); i++ {
			if seg.Entries[i-1].Kind == rt11.Empty {
				require.NotEqual(t, rt11.Empty, seg.Entries[i].Kind)
			}
		}
	}
}

func TestManyFilesTriggersSegmentSplit(t *testing.T) {
	image := newTestImage(t, 2000)
	fsys, err := rt11.Mkfs(image)
	require.NoError(t, err)

	for i := 0; i < 120; i++ {
		name := string(rune('A'+i%26)) + string(rune('A'+(i/26)%26)) + ".DAT"
		require.NoError(t, fsys.WriteFile(name, []byte("x")))
	}
	require.Greater(t, len(fsys.Dir), 1)
}

func TestEncodeDecodeDateRoundTrip(t *testing.T) {
	d := time.Date(1985, time.June, 15, 0, 0, 0, 0, time.UTC)
	raw, err := rt11.EncodeDate(d)
	require.NoError(t, err)
	got, ok, err := rt11.DecodeDate(raw)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, d, got)
}

func TestDecodeDateZeroMeansNoDate(t *testing.T) {
	_, ok, err := rt11.DecodeDate(0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEncodeFilenameValidation(t *testing.T) {
	_, err := rt11.EncodeFilename("NOEXTENSION")
	require.Error(t, err)
	_, err = rt11.EncodeFilename("TOOLONGNAME.TXT")
	require.Error(t, err)
	_, err = rt11.EncodeFilename("OK.TXT")
	require.NoError(t, err)
}

var _ fs.FileSystem = (*rt11.FS)(nil)
