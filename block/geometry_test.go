package block_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caldwell/pdpfs/block"
)

func TestGeometryValidate(t *testing.T) {
	require.NoError(t, block.RX01Geometry.Validate())
	require.NoError(t, block.RX02Geometry.Validate())

	bad := block.Geometry{Cylinders: 0, Heads: 1, Sectors: 26, SectorSize: 128}
	require.Error(t, bad.Validate())

	bad = block.Geometry{Cylinders: 77, Heads: 1, Sectors: 26, SectorSize: 100}
	require.Error(t, bad.Validate())
}

func TestGeometryTotalBytes(t *testing.T) {
	require.Equal(t, 77*26*128, block.RX01Geometry.TotalBytes())
	require.Equal(t, 77*26, block.RX01Geometry.SectorCount())
}
