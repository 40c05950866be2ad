package xxdp

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

// withTestNow pins nowFunc to a fixed date so a golden vector's packed
// date bytes come out byte-identical on any machine.
func withTestNow(t *testing.T) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return time.Date(2023, time.January, 19, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { nowFunc = prev })
}

// TestMkfsGoldenBytes checks mkfs's MFD and bitmap bytes byte-for-byte on
// a 20-block device.
func TestMkfsGoldenBytes(t *testing.T) {
	image := goldenTestImage(t, 20)
	_, err := Mkfs(image)
	require.NoError(t, err)

	block1, err := image.ReadBlocks(1, 1)
	require.NoError(t, err)
	want1 := []byte{0x02, 0x00, 0x01, 0x00, 0x04, 0x00, 0x04, 0x00, 0x00, 0x00} // mfd2=2, interleave=1, bitmap_start=4, bitmap_ptr[0]=4, terminator=0
	require.Equal(t, want1, block1[:len(want1)])
	require.Equal(t, make([]byte, block.BlockSize-len(want1)), block1[len(want1):])

	block2, err := image.ReadBlocks(2, 1)
	require.NoError(t, err)
	want2 := []byte{0x00, 0x00, 0x01, 0x01, 0x03, 0x00, 0x09, 0x00, 0x00, 0x00} // link=0, UIC=0o401, ufd_block=3, words/entry=9, terminator=0
	require.Equal(t, want2, block2[:len(want2)])
	require.Equal(t, make([]byte, block.BlockSize-len(want2)), block2[len(want2):])

	block4, err := image.ReadBlocks(4, 1)
	require.NoError(t, err)
	want4 := []byte{0x00, 0x00, 0x00, 0x00, 0x3C, 0x00, 0x04, 0x00, 0x1F, 0x00} // next=0, map_number=0, map_length=60, link=4, entries[0]=0x1F (blocks 0-4 reserved)
	require.Equal(t, want4, block4[:len(want4)])
	require.Equal(t, make([]byte, block.BlockSize-len(want4)), block4[len(want4):])
}

// TestWriteOverwriteGoldenBytes: writing then
// overwriting "TEST.TST" with 510 bytes leaves the UFD block (block 3)
// starting with this exact 18-byte sequence (the chain link, then the first
// 16 bytes of the entry) and zero after it, the bitmap's byte 8 as 0x3F (block 5 also in
// use), and block 5's body starting with a zero next-pointer followed by the
// 510-byte payload.
func TestWriteOverwriteGoldenBytes(t *testing.T) {
	withTestNow(t)
	image := goldenTestImage(t, 20)
	fsys, err := Mkfs(image)
	require.NoError(t, err)

	data := make([]byte, 510)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, fsys.WriteFile("TEST.TST", data))
	require.NoError(t, fsys.WriteFile("TEST.TST", data))

	block3, err := image.ReadBlocks(3, 1)
	require.NoError(t, err)
	wantUFD := []byte{
		0x00, 0x00, // UFD block chain link: no next block
		0xDB, 0x7D, 0x00, 0x7D, 0x0C, 0x80, // RADIX-50 "TEST.TST"
		0x1B, 0xCF, // packed date: 2023-01-19
		0x00, 0x00, // unused
		0x05, 0x00, // first block: 5
		0x01, 0x00, // length: 1 block
		0x05, 0x00, // last block: 5
	}
	require.Len(t, wantUFD, 18)
	require.Equal(t, wantUFD, block3[:len(wantUFD)])
	require.Equal(t, make([]byte, block.BlockSize-len(wantUFD)), block3[len(wantUFD):])

	block4, err := image.ReadBlocks(4, 1)
	require.NoError(t, err)
	require.Equal(t, byte(0x3F), block4[8])

	block5, err := image.ReadBlocks(5, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00}, block5[:2])
	require.Equal(t, data, block5[2:])
}
