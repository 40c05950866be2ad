package block

// RX01Geometry is the 8-inch single-density RX01 floppy: 77 tracks, 26
// sectors of 128 bytes, single-sided.
var RX01Geometry = Geometry{Cylinders: 77, Heads: 1, Sectors: 26, SectorSize: 128}

// RX02Geometry is the RX01's double-density sibling: same layout, 256-byte
// sectors.
var RX02Geometry = Geometry{Cylinders: 77, Heads: 1, Sectors: 26, SectorSize: 256}

// RX is the RT-11 interleaved-floppy logical mapping. It applies only to
// RX01/RX02 media: track 0 is skipped entirely (for IBM interchange
// compatibility) and the remaining tracks are 2:1 interleaved with a
// 6-sector skew per logical track. This mapping is a pure function of
// geometry; it holds no state of its own.
type RX struct {
	Physical PhysicalBlockDevice
}

func NewRX(dev PhysicalBlockDevice) *RX {
	return &RX{Physical: dev}
}

// PhysicalFromLogical converts a logical sector index into the (cylinder,
// head, sector) triple RT-11's RX01/RX02 driver would address.
func (r *RX) PhysicalFromLogical(lin int) (cylinder, head, sector int) {
	g := r.Physical.Geometry()
	cyl := lin / g.Sectors
	sec := lin % g.Sectors
	sec *= 2
	if sec >= g.Sectors {
		sec++
	}
	sec += cyl * 6
	sec %= g.Sectors
	return cyl + 1, 0, sec
}

func (r *RX) ReadSector(lin int) ([]byte, error) {
	c, h, s := r.PhysicalFromLogical(lin)
	return r.Physical.ReadSector(c, h, s)
}

func (r *RX) WriteSector(lin int, buf []byte) error {
	c, h, s := r.PhysicalFromLogical(lin)
	return r.Physical.WriteSector(c, h, s, buf)
}

func (r *RX) SectorSize() int { return r.Physical.Geometry().SectorSize }

// Sectors excludes track 0: RT-11 never addresses it as logical space.
func (r *RX) Sectors() int {
	g := r.Physical.Geometry()
	return (g.Cylinders - 1) * g.Heads * g.Sectors
}

func (r *RX) PhysicalDevice() PhysicalBlockDevice { return r.Physical }

func (r *RX) ReadBlocks(block, count int) ([]byte, error)    { return readBlocks(r, block, count) }
func (r *RX) WriteBlocks(block, count int, buf []byte) error { return writeBlocks(r, block, count, buf) }
func (r *RX) Blocks() int                                     { return blocksOf(r) }
