package block_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caldwell/pdpfs/block"
)

func TestOpenDetectsRX01BySize(t *testing.T) {
	data := make([]byte, block.RX01Geometry.TotalBytes())
	dev, err := block.Open(data)
	require.NoError(t, err)
	require.Equal(t, (block.RX01Geometry.Cylinders-1)*block.RX01Geometry.Heads*block.RX01Geometry.Sectors, dev.Sectors())
}

func TestOpenDetectsIMD(t *testing.T) {
	g := block.Geometry{Cylinders: 2, Heads: 1, Sectors: 4, SectorSize: 512}
	imd := block.FromIMG(block.NewIMG(make([]byte, g.TotalBytes()), g))
	bytes, err := imd.Repr()
	require.NoError(t, err)

	dev, err := block.Open(bytes)
	require.NoError(t, err)
	require.Equal(t, (g.Cylinders-1)*g.Heads*g.Sectors, dev.Blocks())
}

func TestOpenRejectsUnknown(t *testing.T) {
	_, err := block.Open([]byte("not a disk image"))
	require.Error(t, err)
}
