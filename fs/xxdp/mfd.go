package xxdp

import (
	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/block"
	"github.com/caldwell/pdpfs/fs"
)

// Mfd is XXDP's two-block Master File Directory, in either of its two
// on-disk shapes.
type Mfd interface {
	ufdBlock() uint16
	bitmapBlock() uint16
	mfd2Block() uint16
	repr() ([]byte, []byte, error)
}

// MfdVariantOne is the shape mkfs writes and the only one this package can
// write back out.
type MfdVariantOne struct {
	MFD2Block        uint16
	InterleaveFactor uint16
	BitmapBlock      uint16
	BitmapPointer    []uint16
	UFDBlock         uint16
}

func (m *MfdVariantOne) ufdBlock() uint16    { return m.UFDBlock }
func (m *MfdVariantOne) bitmapBlock() uint16 { return m.BitmapBlock }
func (m *MfdVariantOne) mfd2Block() uint16   { return m.MFD2Block }

func mfdVariantOneFromRepr(buf1, buf2 []byte) (*MfdVariantOne, error) {
	if len(buf1) < 6 || len(buf2) < 6 {
		return nil, errors.Wrap(fs.ErrFormat, "xxdp: short MFD block")
	}
	m := &MfdVariantOne{
		MFD2Block:        getU16(buf1[0:]),
		InterleaveFactor: getU16(buf1[2:]),
		BitmapBlock:      getU16(buf1[4:]),
	}
	for pos := 6; pos+2 <= len(buf1); pos += 2 {
		w := getU16(buf1[pos:])
		if w == 0 {
			break
		}
		m.BitmapPointer = append(m.BitmapPointer, w)
	}
	m.UFDBlock = getU16(buf2[4:]) // word 2 of MFD2: link(0), UIC(0o401), ufd_block
	return m, nil
}

func (m *MfdVariantOne) repr() ([]byte, []byte, error) {
	buf1 := make([]byte, block.BlockSize)
	putU16(buf1[0:], m.MFD2Block)
	putU16(buf1[2:], m.InterleaveFactor)
	putU16(buf1[4:], m.BitmapBlock)
	pos := 6
	for _, w := range m.BitmapPointer {
		if pos+2 > len(buf1) {
			return nil, nil, errors.New("xxdp: bitmap pointer list overflowed MFD1")
		}
		putU16(buf1[pos:], w)
		pos += 2
	}

	buf2 := make([]byte, block.BlockSize)
	putU16(buf2[0:], 0)      // link: no more MFDs
	putU16(buf2[2:], 0o401)  // DOS-11 UIC [1,1]
	putU16(buf2[4:], m.UFDBlock)
	putU16(buf2[6:], 9) // words per UFD entry
	putU16(buf2[8:], 0) // terminator

	return buf1, buf2, nil
}

// MfdVariantTwo is an alternate MFD shape this package can read but never
// writes: writes of this shape are rejected at write time rather than
// guessed at.
type MfdVariantTwo struct {
	UFDBlock              uint16
	UFDBlockCount         uint16
	BitmapBlock           uint16
	BitmapBlockCount      uint16
	OtherMFDBlock         uint16
	SupportBlocks         uint16
	PreallocatedBlocks    uint16
	InterleaveFactor      uint16
	MonitorCoreImageBlock uint16
	BadSectorFileTrack    uint8
	BadSectorFileSector   uint8
	BadSectorFileCylinder uint16
}

func (m *MfdVariantTwo) ufdBlock() uint16    { return m.UFDBlock }
func (m *MfdVariantTwo) bitmapBlock() uint16 { return m.BitmapBlock }
func (m *MfdVariantTwo) mfd2Block() uint16   { return m.OtherMFDBlock }

func mfdVariantTwoFromRepr(buf1 []byte) (*MfdVariantTwo, error) {
	if len(buf1) < 30 {
		return nil, errors.Wrap(fs.ErrFormat, "xxdp: short MFD block")
	}
	return &MfdVariantTwo{
		UFDBlock:              getU16(buf1[2:]),
		UFDBlockCount:         getU16(buf1[4:]),
		BitmapBlock:           getU16(buf1[6:]),
		BitmapBlockCount:      getU16(buf1[8:]),
		OtherMFDBlock:         getU16(buf1[10:]),
		SupportBlocks:         getU16(buf1[12:]),
		PreallocatedBlocks:    getU16(buf1[14:]),
		InterleaveFactor:      getU16(buf1[16:]),
		MonitorCoreImageBlock: getU16(buf1[22:]),
		BadSectorFileTrack:    buf1[26],
		BadSectorFileSector:   buf1[27],
		BadSectorFileCylinder: getU16(buf1[28:]),
	}, nil
}

func (m *MfdVariantTwo) repr() ([]byte, []byte, error) {
	return nil, nil, errors.Wrap(fs.ErrUnsupportedFeature, "xxdp: MFD variant 2 write path")
}

// readMasterFileDirectory reads the two-block MFD at block 1, disambiguated
// by the first word: variant 1's first word (the mfd2-block pointer) is
// always nonzero; variant 2's first word is 0 followed by a nonzero
// ufd_block.
func readMasterFileDirectory(dev block.BlockDevice) (Mfd, error) {
	buf1, err := dev.ReadBlocks(mfdBlock, 1)
	if err != nil {
		return nil, errors.Wrap(err, "xxdp: reading MFD1")
	}
	if len(buf1) < 2 {
		return nil, errors.Wrap(fs.ErrFormat, "xxdp: short MFD1")
	}
	if getU16(buf1[0:]) == 0 {
		v2, err := mfdVariantTwoFromRepr(buf1)
		if err != nil {
			return nil, err
		}
		return v2, nil
	}

	mfd2 := getU16(buf1[0:])
	buf2, err := dev.ReadBlocks(int(mfd2), 1)
	if err != nil {
		return nil, errors.Wrap(err, "xxdp: reading MFD2")
	}
	return mfdVariantOneFromRepr(buf1, buf2)
}
