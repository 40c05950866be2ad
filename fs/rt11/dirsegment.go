package rt11

import (
	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/block"
)

// segmentHeaderWords is the 5-word fixed header at the start of every
// directory segment: segments, next_segment, last_segment, extra_bytes,
// data_block.
const segmentHeaderWords = 5

// DirSegment is one 2-block (1024-byte) directory segment: a 5-word header
// followed by variable-length entries and an end-of-segment sentinel.
type DirSegment struct {
	Segments     uint16
	NextSegment  uint16
	LastSegment  uint16
	ExtraBytes   uint16
	DataBlock    uint16
	Entries      []DirEntry

	Block   uint16 // block number of this segment (not on-disk)
	Segment uint16 // 1-based logical segment number (not on-disk)
}

// segmentBlock returns the physical block number of logical segment
// `segment` (1-based) in a directory chain starting at dirStartBlock.
func segmentBlock(dirStartBlock, segment uint16) uint16 {
	return dirStartBlock + (segment-1)*2
}

// newSegment builds a fresh segment with a single Empty entry covering the
// full data range, as written by Mkfs and splitDirectory.
func newSegment(segment, dirStartBlock, lastSegment, totalSegments uint16, dataStart, dataEnd int) DirSegment {
	return DirSegment{
		Segment:     segment,
		Block:       segmentBlock(dirStartBlock, segment),
		NextSegment: 0,
		LastSegment: lastSegment,
		Segments:    totalSegments,
		ExtraBytes:  0,
		DataBlock:   uint16(dataStart),
		Entries:     []DirEntry{newEmptyEntry(dataStart, dataEnd-dataStart)},
	}
}

// maxEntries is the largest entry count this segment's 2 blocks can hold.
// The end-of-segment marker only needs one word rather than a full entry's
// worth of space, which is why the reserved-entry count here is one lower
// than the figure in the RT-11 Volume and File Formats Manual.
func (s DirSegment) maxEntries() int {
	const (
		segmentBytes     = 2 * block.BlockSize
		headerBytes      = segmentHeaderWords * 2
		entryBytes       = 7 * 2
		endMarkerBytes   = 2
		reservedEntries  = 2
	)
	return (segmentBytes-headerBytes-endMarkerBytes)/(entryBytes+int(s.ExtraBytes)) - reservedEntries
}

// blockRange returns the span of blocks this segment's entries occupy.
func (s DirSegment) blockRange() (start, end uint16) {
	blocks := 0
	for _, e := range s.Entries {
		blocks += e.Length
	}
	return s.DataBlock, s.DataBlock + uint16(blocks)
}

func (s DirSegment) repr() ([]byte, error) {
	buf := make([]byte, 2*block.BlockSize)
	putU16(buf[0:], s.Segments)
	putU16(buf[2:], s.NextSegment)
	putU16(buf[4:], s.LastSegment)
	putU16(buf[6:], s.ExtraBytes)
	putU16(buf[8:], s.DataBlock)
	pos := segmentHeaderWords * 2
	for _, e := range s.Entries {
		rep, err := e.repr()
		if err != nil {
			return nil, err
		}
		if pos+len(rep) > len(buf) {
			return nil, errors.New("rt11: directory segment overflowed its 2 blocks")
		}
		copy(buf[pos:], rep)
		pos += len(rep)
	}
	putU16(buf[pos:], statusEOS)
	return buf, nil
}

// segmentFromRepr parses a 2-block segment's bytes.
func segmentFromRepr(segment uint16, myBlock uint16, buf []byte) (*DirSegment, error) {
	if len(buf) < segmentHeaderWords*2 {
		return nil, errors.New("rt11: short directory segment")
	}
	s := &DirSegment{
		Segment:     segment,
		Block:       myBlock,
		Segments:    getU16(buf[0:]),
		NextSegment: getU16(buf[2:]),
		LastSegment: getU16(buf[4:]),
		ExtraBytes:  getU16(buf[6:]),
		DataBlock:   getU16(buf[8:]),
	}
	if s.ExtraBytes&1 == 1 {
		return nil, errors.Errorf("rt11: segment #%d has odd extra-bytes count: %d", segment, s.ExtraBytes)
	}
	pos := segmentHeaderWords * 2
	dataBlock := int(s.DataBlock)
	for {
		e, n, err := entryFromRepr(buf[pos:], dataBlock, s.ExtraBytes)
		if err != nil {
			return nil, errors.Wrapf(err, "rt11: segment #%d", segment)
		}
		pos += n
		if e == nil {
			break
		}
		dataBlock += e.Length
		s.Entries = append(s.Entries, *e)
	}
	if len(s.Entries) < 1 {
		return nil, errors.Errorf("rt11: segment #%d has no directory entries", segment)
	}
	return s, nil
}

// ReadDirectory chases the segment chain starting at logical segment 1,
// reading 2 blocks at dirStartBlock + (n-1)*2 each time. Exported so the
// dump-dir operation can walk it independently of a fully-opened FS. On
// error it also returns the segments read before the failing one.
func ReadDirectory(dev block.BlockDevice, dirStartBlock uint16) ([]DirSegment, error) {
	return readDirectory(dev, dirStartBlock)
}

func readDirectory(dev block.BlockDevice, dirStartBlock uint16) ([]DirSegment, error) {
	var segments []DirSegment
	next := uint16(1)
	for next != 0 {
		b := segmentBlock(dirStartBlock, next)
		raw, err := dev.ReadBlocks(int(b), 2)
		if err != nil {
			return segments, errors.Wrapf(err, "reading directory segment #%d (@ block %d)", next, b)
		}
		seg, err := segmentFromRepr(next, b, raw)
		if err != nil {
			return segments, errors.Wrapf(err, "bad directory segment #%d (@ block %d)", next, b)
		}
		segments = append(segments, *seg)
		next = seg.NextSegment
	}
	return segments, nil
}
