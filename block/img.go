package block

import "github.com/pkg/errors"

// IMG is a flat, raw-sector container: a single owned byte sequence plus
// the geometry that gives it meaning. Sectors are contiguous in C-major,
// H-next, S-innermost order.
type IMG struct {
	data     []byte
	geometry Geometry
}

// NewIMG wraps data (which is used directly, not copied) with geometry.
func NewIMG(data []byte, geometry Geometry) *IMG {
	return &IMG{data: data, geometry: geometry}
}

// NewIMGFromRaw builds an IMG from a ToRaw-style (Geometry, bytes) pair.
func NewIMGFromRaw(geometry Geometry, data []byte) *IMG {
	return &IMG{data: data, geometry: geometry}
}

func (i *IMG) Geometry() Geometry {
	return i.geometry
}

func (i *IMG) sectorOffset(cylinder, head, sector int) int {
	g := i.geometry
	start := (cylinder*g.Heads+head)*g.Sectors + sector
	return start * g.SectorSize
}

func (i *IMG) ReadSector(cylinder, head, sector int) ([]byte, error) {
	start := i.sectorOffset(cylinder, head, sector)
	end := start + i.geometry.SectorSize
	if start < 0 || end > len(i.data) {
		return nil, errors.Wrapf(ErrOutOfRange, "IMG: C=%d H=%d S=%d", cylinder, head, sector)
	}
	out := make([]byte, i.geometry.SectorSize)
	copy(out, i.data[start:end])
	return out, nil
}

func (i *IMG) WriteSector(cylinder, head, sector int, buf []byte) error {
	if len(buf) != i.geometry.SectorSize {
		return errors.Errorf("IMG: partial sector write (%d bytes, want %d)", len(buf), i.geometry.SectorSize)
	}
	start := i.sectorOffset(cylinder, head, sector)
	end := start + i.geometry.SectorSize
	if start < 0 || end > len(i.data) {
		return errors.Wrapf(ErrOutOfRange, "IMG: C=%d H=%d S=%d", cylinder, head, sector)
	}
	copy(i.data[start:end], buf)
	return nil
}

func (i *IMG) ToRaw() (Geometry, []byte, error) {
	return i.geometry, append([]byte(nil), i.data...), nil
}

// AsVec returns the IMG's own serialized form, which for a flat container is
// simply its raw bytes.
func (i *IMG) AsVec() ([]byte, error) {
	return append([]byte(nil), i.data...), nil
}
