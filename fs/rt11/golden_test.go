package rt11

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caldwell/pdpfs/block"
)

// goldenTestImage builds a flat, zero-filled 512-byte-block device for
// byte-exact fixtures.
func goldenTestImage(t *testing.T, blocks int) block.BlockDevice {
	t.Helper()
	g := block.Geometry{Cylinders: 1, Heads: 1, Sectors: blocks, SectorSize: block.BlockSize}
	return block.NewFlat(block.NewIMG(make([]byte, g.TotalBytes()), g))
}

// withTestUsername pins usernameFunc to a fixed fixture username for the
// duration of one test, restoring it on return.
func withTestUsername(t *testing.T) {
	t.Helper()
	prev := usernameFunc
	usernameFunc = func() string { return "test-user" }
	t.Cleanup(func() { usernameFunc = prev })
}

// withTestNow pins nowFunc to a fixed date so the packed date bytes in a
// golden vector come out byte-identical on any machine.
func withTestNow(t *testing.T) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return time.Date(2023, time.January, 19, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { nowFunc = prev })
}

// TestMkfsGoldenBytes checks mkfs's home block and first directory segment
// byte-for-byte on a 20-block device of zeros.
func TestMkfsGoldenBytes(t *testing.T) {
	withTestUsername(t)
	image := goldenTestImage(t, 20)
	_, err := Mkfs(image)
	require.NoError(t, err)

	block1, err := image.ReadBlocks(1, 1)
	require.NoError(t, err)
	wantTail := []byte{0x00, 0x00, 0x01, 0x00, 0x06, 0x00, 0xA9, 0x8E}
	wantTail = append(wantTail, []byte("RT11FS DC   ")...)
	wantTail = append(wantTail, []byte("test-user   ")...)
	wantTail = append(wantTail, []byte("DECRT11A    ")...)
	wantTail = append(wantTail, 0x00, 0x00, 0x61, 0x2B)
	require.Len(t, wantTail, 48)
	require.Equal(t, wantTail, block1[len(block1)-48:])

	block6, err := image.ReadBlocks(6, 2)
	require.NoError(t, err)
	wantHead := []byte{
		0x04, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x0E, 0x00, // header: segments=4, next=0, last_used=1, extra=0, data_block=14
		0x00, 0x02, // status: Empty (0o1000)
		0x58, 0x21, 0xEE, 0x80, 0x25, 0x3A, // RADIX-50 "EMPTYF.ILE"
		0x06, 0x00, // length: 6 blocks (20 - 14)
		0x00, 0x00, // job/channel
		0x00, 0x00, // no date
		0x00, 0x08, // next word: EOS sentinel (0o4000)
	}
	require.Equal(t, wantHead, block6[:len(wantHead)])
	require.Equal(t, make([]byte, 1024-len(wantHead)), block6[len(wantHead):])
}

// TestCreateFileGoldenBytes: after create("TEST.TXT", 512) (entry
// allocation only, no payload write), block 6's directory segment holds
// this exact 40-byte sequence and block 14 is still all zero.
func TestCreateFileGoldenBytes(t *testing.T) {
	withTestUsername(t)
	withTestNow(t)
	image := goldenTestImage(t, 20)
	fsys, err := Mkfs(image)
	require.NoError(t, err)

	_, err = fsys.create("TEST.TXT", 512)
	require.NoError(t, err)

	block6, err := image.ReadBlocks(6, 1)
	require.NoError(t, err)
	want := []byte{
		0x04, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x0E, 0x00, // header: segments=4, next=0, last_used=1, extra=0, data_block=14
		0x00, 0x04, // status: Permanent (0o2000)
		0xDB, 0x7D, 0x00, 0x7D, 0xD4, 0x80, // RADIX-50 "TEST.TXT"
		0x01, 0x00, // length: 1 block
		0x00, 0x00, // job/channel
		0x73, 0x46, // packed date: 2023-01-19
		0x00, 0x02, // status: Empty (0o1000)
		0x58, 0x21, 0xEE, 0x80, 0x25, 0x3A, // RADIX-50 "EMPTYF.ILE"
		0x05, 0x00, // length: 5 blocks (20 - 14 - 1)
		0x00, 0x00, // job/channel
		0x00, 0x00, // no date
		0x00, 0x08, // next word: EOS sentinel (0o4000)
	}
	require.Len(t, want, 40)
	require.Equal(t, want, block6[:len(want)])
	require.Equal(t, make([]byte, block.BlockSize-len(want)), block6[len(want):])

	block14, err := image.ReadBlocks(14, 1)
	require.NoError(t, err)
	require.Equal(t, make([]byte, block.BlockSize), block14)
}

// TestWriteFileGoldenBytes checks that writing "TEST.TXT" as 512 bytes of
// an incrementing 0..255 sequence leaves block 14 holding
// that exact sequence and splits the free extent into a 1-block Permanent
// entry followed by a 5-block Empty remainder.
func TestWriteFileGoldenBytes(t *testing.T) {
	withTestUsername(t)
	image := goldenTestImage(t, 20)
	fsys, err := Mkfs(image)
	require.NoError(t, err)

	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, fsys.WriteFile("TEST.TXT", data))

	block14, err := image.ReadBlocks(14, 1)
	require.NoError(t, err)
	require.Equal(t, data, block14)

	require.Len(t, fsys.Dir[0].Entries, 2)
	require.Equal(t, Permanent, fsys.Dir[0].Entries[0].Kind)
	require.Equal(t, 14, fsys.Dir[0].Entries[0].Block)
	require.Equal(t, 1, fsys.Dir[0].Entries[0].Length)
	require.Equal(t, Empty, fsys.Dir[0].Entries[1].Kind)
	require.Equal(t, 15, fsys.Dir[0].Entries[1].Block)
	require.Equal(t, 5, fsys.Dir[0].Entries[1].Length)
}

// TestOverwriteFileGoldenBytes checks that overwriting "TEST.TXT" with
// 1024 bytes of 0x55 leaves exactly 2 entries (Permanent
// length=2, Empty length=4) and blocks 14-15 entirely 0x55.
func TestOverwriteFileGoldenBytes(t *testing.T) {
	withTestUsername(t)
	image := goldenTestImage(t, 20)
	fsys, err := Mkfs(image)
	require.NoError(t, err)

	require.NoError(t, fsys.WriteFile("TEST.TXT", make([]byte, 512)))

	overwrite := make([]byte, 1024)
	for i := range overwrite {
		overwrite[i] = 0x55
	}
	require.NoError(t, fsys.WriteFile("TEST.TXT", overwrite))

	require.Len(t, fsys.Dir[0].Entries, 2)
	require.Equal(t, Permanent, fsys.Dir[0].Entries[0].Kind)
	require.Equal(t, 2, fsys.Dir[0].Entries[0].Length)
	require.Equal(t, Empty, fsys.Dir[0].Entries[1].Kind)
	require.Equal(t, 4, fsys.Dir[0].Entries[1].Length)

	block14, err := image.ReadBlocks(14, 2)
	require.NoError(t, err)
	require.Equal(t, overwrite, block14)
}
