package block

import "github.com/pkg/errors"

// ErrOutOfRange marks any attempt to address past the end of a device, at
// either the physical or the logical layer. Callers test for it with
// errors.Is.
var ErrOutOfRange = errors.New("addressing past end of device")

// PhysicalBlockDevice is the common contract over a container codec: CHS
// addressed sectors in and out, plus whole-device import/export.
type PhysicalBlockDevice interface {
	Geometry() Geometry
	ReadSector(cylinder, head, sector int) ([]byte, error)
	WriteSector(cylinder, head, sector int, buf []byte) error
	// ToRaw returns the geometry and a flat, C-major/H-next/S-innermost
	// byte dump of every sector on the device.
	ToRaw() (Geometry, []byte, error)
	// AsVec returns the device serialized back into its container's own
	// on-disk representation (not necessarily equal to ToRaw's bytes).
	AsVec() ([]byte, error)
}

// BlockDevice is the logical mapping layer's contract: uniform 512-byte
// logical blocks, addressed without regard to the underlying sector size or
// interleave.
type BlockDevice interface {
	ReadSector(lin int) ([]byte, error)
	WriteSector(lin int, buf []byte) error
	SectorSize() int
	Sectors() int
	PhysicalDevice() PhysicalBlockDevice

	ReadBlocks(block, count int) ([]byte, error)
	WriteBlocks(block, count int, buf []byte) error
	Blocks() int
}

// toRawFromSectors walks a PhysicalBlockDevice's full CHS space in C-major,
// H-next, S-innermost order and concatenates every sector, used by every
// container codec's ToRaw implementation.
func toRawFromSectors(dev PhysicalBlockDevice) (Geometry, []byte, error) {
	g := dev.Geometry()
	out := make([]byte, 0, g.TotalBytes())
	for c := 0; c < g.Cylinders; c++ {
		for h := 0; h < g.Heads; h++ {
			for s := 0; s < g.Sectors; s++ {
				sec, err := dev.ReadSector(c, h, s)
				if err != nil {
					return g, nil, errors.Wrapf(err, "reading C=%d H=%d S=%d", c, h, s)
				}
				out = append(out, sec...)
			}
		}
	}
	return g, out, nil
}

// readBlocks implements the default read_blocks behavior shared by every
// logical mapping: block b's bytes span sectors [b*512/sectorSize ..
// (b+count)*512/sectorSize) of the underlying device.
func readBlocks(dev BlockDevice, block, count int) ([]byte, error) {
	ss := dev.SectorSize()
	startSector := block * BlockSize / ss
	endSector := (block + count) * BlockSize / ss
	out := make([]byte, 0, (endSector-startSector)*ss)
	for s := startSector; s < endSector; s++ {
		sec, err := dev.ReadSector(s)
		if err != nil {
			return nil, errors.Wrapf(err, "reading block %d (sector %d)", block, s)
		}
		out = append(out, sec...)
	}
	return out, nil
}

func writeBlocks(dev BlockDevice, block, count int, buf []byte) error {
	ss := dev.SectorSize()
	if len(buf) != count*BlockSize {
		return errors.Errorf("writing %d blocks needs %d bytes, got %d", count, count*BlockSize, len(buf))
	}
	startSector := block * BlockSize / ss
	endSector := (block + count) * BlockSize / ss
	for s := startSector; s < endSector; s++ {
		off := (s - startSector) * ss
		if err := dev.WriteSector(s, buf[off:off+ss]); err != nil {
			return errors.Wrapf(err, "writing block %d (sector %d)", block, s)
		}
	}
	return nil
}

func blocksOf(dev BlockDevice) int {
	return dev.Sectors() * dev.SectorSize() / BlockSize
}
