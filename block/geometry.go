// Package block implements the layered block-addressing pipeline: container
// codecs (IMG, IMD) speak in physical (cylinder, head, sector) coordinates;
// the logical mapping layer (Flat, RX) exposes those as a flat run of
// uniform 512-byte logical blocks for the filesystems above it.
package block

import "github.com/pkg/errors"

// BlockSize is the filesystem-level block size. It is independent of the
// physical sector size, which varies by medium.
const BlockSize = 512

// Geometry describes a physical medium: cylinders, heads, sectors per
// track, and the size of one sector in bytes.
type Geometry struct {
	Cylinders  int
	Heads      int
	Sectors    int
	SectorSize int
}

// SectorCount returns the total number of physical sectors on the medium.
func (g Geometry) SectorCount() int {
	return g.Cylinders * g.Heads * g.Sectors
}

// TotalBytes returns the total capacity of the medium in bytes.
func (g Geometry) TotalBytes() int {
	return g.SectorCount() * g.SectorSize
}

var validSectorSizes = map[int]bool{128: true, 256: true, 512: true, 1024: true, 2048: true, 4096: true, 8192: true}

// Validate checks that every dimension is positive and the sector size is
// one a real medium uses.
func (g Geometry) Validate() error {
	if g.Cylinders <= 0 || g.Heads <= 0 || g.Sectors <= 0 || g.SectorSize <= 0 {
		return errors.Errorf("geometry has a non-positive dimension: %+v", g)
	}
	if !validSectorSizes[g.SectorSize] {
		return errors.Errorf("geometry has invalid sector size %d", g.SectorSize)
	}
	return nil
}
