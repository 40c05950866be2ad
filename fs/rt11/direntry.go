package rt11

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/fs"
	"github.com/caldwell/pdpfs/radix50"
)

// EntryKind is one of the three non-sentinel directory entry kinds. The
// fourth on-disk status value, end-of-segment, never appears as an EntryKind;
// it terminates the entry list during parsing instead.
type EntryKind int

const (
	Tentative EntryKind = iota
	Empty
	Permanent
)

// Status bits. Exactly one of the kind bits is ever set in a
// real entry; the flag bits are independent of it.
const (
	statusTentative uint16 = 0o000400
	statusEmpty     uint16 = 0o001000
	statusPermanent uint16 = 0o002000
	statusEOS       uint16 = 0o004000
	statusReadOnly  uint16 = 0o040000
	statusProtected uint16 = 0o100000
	statusPrefix    uint16 = 0o000020
)

// DirEntry is one RT-11 directory slot: 7 fixed words plus extra-bytes/2
// extra words. Block is not stored on disk; it is the running total of the
// preceding entries' lengths added to the segment's data_block.
type DirEntry struct {
	Kind        EntryKind
	ReadOnly    bool
	Protected   bool
	PrefixBlock bool
	Name        string // "NAME.EXT", 6.3, or "" only for freshly-zeroed slots
	Length      int    // blocks
	Job         uint8
	Channel     uint8
	HasDate     bool
	Date        time.Time
	Extra       []uint16

	Block int
}

func newEmptyEntry(dataBlock, blocks int) DirEntry {
	return DirEntry{
		Kind:   Empty,
		Name:   "EMPTYF.ILE",
		Length: blocks,
		Block:  dataBlock,
	}
}

// EncodeFilename validates and RADIX-50 encodes a 6.3 filename ("NAME.EXT",
// 1..6 name chars, 1..3 ext chars, RADIX-50 character set only). Shared with
// the XXDP filesystem, which uses identical rules.
func EncodeFilename(name string) ([3]uint16, error) {
	base, ext, ok := strings.Cut(name, ".")
	if !ok {
		return [3]uint16{}, errors.Wrapf(fs.ErrNameInvalid, "rt11: filename %q missing extension", name)
	}
	if len(base) < 1 || len(base) > 6 {
		return [3]uint16{}, errors.Wrapf(fs.ErrNameInvalid, "rt11: filename %q: name part must be 1..6 characters", name)
	}
	if len(ext) < 1 || len(ext) > 3 {
		return [3]uint16{}, errors.Wrapf(fs.ErrNameInvalid, "rt11: filename %q: extension must be 1..3 characters", name)
	}
	nameWords, err := radix50.Encode(base + strings.Repeat(" ", 6-len(base)))
	if err != nil {
		return [3]uint16{}, errors.Wrapf(fs.ErrNameInvalid, "rt11: filename %q: %s", name, err)
	}
	extWord, err := radix50.Encode(ext + strings.Repeat(" ", 3-len(ext)))
	if err != nil {
		return [3]uint16{}, errors.Wrapf(fs.ErrNameInvalid, "rt11: filename %q: %s", name, err)
	}
	return [3]uint16{nameWords[0], nameWords[1], extWord[0]}, nil
}

// decodeFilename reconstructs "NAME.EXT" from 3 RADIX-50 words.
func decodeFilename(words [3]uint16) string {
	raw := radix50.Decode(words[:])
	name, ext := raw[:6], raw[6:9]
	return strings.TrimRight(name, " ") + "." + strings.TrimRight(ext, " ")
}

// EncodeDate packs a calendar date into RT-11's word format: top 2 bits
// age-decade, next 4 month, next 5 day, low 5 year-since-1972. Valid for
// 1972..1972+127 (2099).
func EncodeDate(t time.Time) (uint16, error) {
	year := t.Year()
	yoff := year - 1972
	if yoff < 0 || yoff/32 > 3 {
		return 0, errors.Wrapf(fs.ErrDateOutOfRange, "rt11: date %s outside 1972..2099", t.Format("2006-01-02"))
	}
	return uint16(yoff/32)<<14&0b11_0000_00000_00000 |
		uint16(t.Month())<<10&0b00_1111_00000_00000 |
		uint16(t.Day())<<5&0b00_0000_11111_00000 |
		uint16(yoff)<<0&0b00_0000_00000_11111, nil
}

// DecodeDate unpacks an RT-11 date word. Raw 0 means "no date" (ok=false).
func DecodeDate(raw uint16) (t time.Time, ok bool, err error) {
	if raw == 0 {
		return time.Time{}, false, nil
	}
	age := int((raw & 0b11_0000_00000_00000) >> 14)
	month := int((raw & 0b00_1111_00000_00000) >> 10)
	day := int((raw & 0b00_0000_11111_00000) >> 5)
	year := int(raw & 0b00_0000_00000_11111)
	d := time.Date(1972+year+age*32, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false, errors.Errorf("rt11: invalid date %#04x", raw)
	}
	return d, true, nil
}

func (e DirEntry) status() uint16 {
	s := uint16(0)
	switch e.Kind {
	case Tentative:
		s |= statusTentative
	case Empty:
		s |= statusEmpty
	case Permanent:
		s |= statusPermanent
	}
	if e.ReadOnly {
		s |= statusReadOnly
	}
	if e.Protected {
		s |= statusProtected
	}
	if e.PrefixBlock {
		s |= statusPrefix
	}
	return s
}

// repr serializes the entry to its on-disk bytes: 14 fixed bytes plus
// len(Extra)*2 extra bytes.
func (e DirEntry) repr() ([]byte, error) {
	words, err := EncodeFilename(e.Name)
	if err != nil {
		return nil, err
	}
	var date uint16
	if e.HasDate {
		date, err = EncodeDate(e.Date)
		if err != nil {
			return nil, err
		}
	}
	buf := make([]byte, 14+len(e.Extra)*2)
	putU16(buf[0:], e.status())
	putU16(buf[2:], words[0])
	putU16(buf[4:], words[1])
	putU16(buf[6:], words[2])
	putU16(buf[8:], uint16(e.Length))
	buf[10] = e.Job
	buf[11] = e.Channel
	putU16(buf[12:], date)
	for i, w := range e.Extra {
		putU16(buf[14+i*2:], w)
	}
	return buf, nil
}

// entryFromRepr parses one directory entry starting at buf[0]. It returns
// (nil, 2, nil) on an end-of-segment marker (the marker's one word). dataBlock is this entry's
// computed starting block (the caller tracks the running total).
func entryFromRepr(buf []byte, dataBlock int, extraBytes uint16) (*DirEntry, int, error) {
	need := 14 + int(extraBytes)
	if len(buf) < 2 {
		return nil, 0, errors.New("rt11: short directory entry")
	}
	status := getU16(buf[0:])
	if status&statusEOS != 0 {
		return nil, 2, nil
	}
	if len(buf) < need {
		return nil, 0, errors.New("rt11: short directory entry")
	}
	var kind EntryKind
	switch {
	case status&statusTentative != 0:
		kind = Tentative
	case status&statusEmpty != 0:
		kind = Empty
	case status&statusPermanent != 0:
		kind = Permanent
	default:
		return nil, 0, errors.Errorf("rt11: bad entry status %#06o", status)
	}
	words := [3]uint16{getU16(buf[2:]), getU16(buf[4:]), getU16(buf[6:])}
	length := int(getU16(buf[8:]))
	date, hasDate, err := DecodeDate(getU16(buf[12:]))
	if err != nil {
		return nil, 0, err
	}
	extra := make([]uint16, extraBytes/2)
	for i := range extra {
		extra[i] = getU16(buf[14+i*2:])
	}
	e := &DirEntry{
		Kind:        kind,
		ReadOnly:    status&statusReadOnly != 0,
		Protected:   status&statusProtected != 0,
		PrefixBlock: status&statusPrefix != 0,
		Name:        decodeFilename(words),
		Length:      length,
		Job:         buf[10],
		Channel:     buf[11],
		HasDate:     hasDate,
		Date:        date,
		Extra:       extra,
		Block:       dataBlock,
	}
	return e, need, nil
}

func putU16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func getU16(b []byte) uint16    { return uint16(b[0]) | uint16(b[1])<<8 }

// FileName, IsDir, IsFile, IsSymlink, Len, Blocks, Readonly, Created,
// Modified, Accessed implement fs.DirEntry.
func (e DirEntry) FileName() string { return e.Name }
func (e DirEntry) IsDir() bool      { return false }
func (e DirEntry) IsFile() bool     { return e.Kind == Permanent }
func (e DirEntry) IsSymlink() bool  { return false }
func (e DirEntry) Len() uint64      { return uint64(e.Length) * 512 }
func (e DirEntry) Blocks() uint64   { return uint64(e.Length) }
func (e DirEntry) Readonly() bool   { return e.ReadOnly }

func (e DirEntry) Created() (time.Time, error) {
	if !e.HasDate {
		return time.Time{}, errors.New("rt11: no date")
	}
	return e.Date, nil
}

func (e DirEntry) Modified() (time.Time, error) {
	return time.Time{}, errors.New("rt11: modification time not available")
}

func (e DirEntry) Accessed() (time.Time, error) {
	return time.Time{}, errors.New("rt11: access time not available")
}
