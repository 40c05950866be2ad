package block_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caldwell/pdpfs/block"
)

func TestRXSkipsTrackZero(t *testing.T) {
	g := block.RX01Geometry
	dev := block.NewRX(block.NewIMG(make([]byte, g.TotalBytes()), g))
	require.Equal(t, (g.Cylinders-1)*g.Heads*g.Sectors, dev.Sectors())
}

func TestRXMappingInjective(t *testing.T) {
	g := block.RX01Geometry
	dev := block.NewRX(block.NewIMG(make([]byte, g.TotalBytes()), g))
	seen := make(map[[2]int]bool)
	for lin := 0; lin < dev.Sectors(); lin++ {
		c, h, s := dev.PhysicalFromLogical(lin)
		require.Equal(t, 0, h)
		require.GreaterOrEqual(t, c, 1)
		require.LessOrEqual(t, c, 76)
		require.GreaterOrEqual(t, s, 0)
		require.LessOrEqual(t, s, 25)
		key := [2]int{c, s}
		require.False(t, seen[key], "duplicate physical sector for logical %d", lin)
		seen[key] = true
	}
}

func TestRXInterleaveRoundTrip(t *testing.T) {
	g := block.RX01Geometry
	dev := block.NewRX(block.NewIMG(make([]byte, g.TotalBytes()), g))

	payload := make([]byte, block.BlockSize)
	for i := range payload {
		payload[i] = 0x5a
	}
	require.NoError(t, dev.WriteBlocks(0, 1, payload))
	got, err := dev.ReadBlocks(0, 1)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	c, h, s := dev.PhysicalFromLogical(0)
	require.Equal(t, 1, c)
	require.Equal(t, 0, h)
	require.Equal(t, 0, s)
}
