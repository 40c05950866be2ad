package xxdp

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/fs"
	"github.com/caldwell/pdpfs/fs/rt11"
	"github.com/caldwell/pdpfs/radix50"
)

// dirEntryWords is the fixed 9-word (18-byte) UFD entry size.
const dirEntryWords = 9

// DirEntry is one UFD slot: a 6.3 RADIX-50 filename (all-zero words mean the
// slot is deleted/free), a DOS-11 packed date, and the file's first/length/
// last block numbers.
type DirEntry struct {
	Name      string // "" means deleted/free
	HasDate   bool
	Date      time.Time
	FirstBlock int
	Length     int
	LastBlock  int
}

// EncodeFilename validates and RADIX-50 encodes a UFD filename, under the
// same 6.3 rules RT-11 uses.
func EncodeFilename(name string) ([3]uint16, error) {
	if name == "" {
		name = "      .   "
	}
	return rt11.EncodeFilename(name)
}

// EncodeDate packs a DOS-11 date word: raw = (year-1970)*1000 + day-of-year.
// Valid for 1970..1970+65 (raw must fit in 16 bits).
func EncodeDate(t time.Time, hasDate bool) (uint16, error) {
	if !hasDate {
		return 0, nil
	}
	yoff := t.Year() - 1970
	if yoff < 0 {
		return 0, errors.Wrapf(fs.ErrDateOutOfRange, "xxdp: date %s is before 1970", t.Format("2006-01-02"))
	}
	if yoff*1000 > 0xffff {
		return 0, errors.Wrapf(fs.ErrDateOutOfRange, "xxdp: date %s is after 2035", t.Format("2006-01-02"))
	}
	return uint16(yoff*1000 + t.YearDay()), nil
}

// DecodeDate unpacks a DOS-11 date word. Raw 0 means "no date".
func DecodeDate(raw uint16) (t time.Time, ok bool, err error) {
	if raw == 0 {
		return time.Time{}, false, nil
	}
	year := int(raw / 1000)
	doy := int(raw % 1000)
	d := time.Date(1970+year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
	if d.YearDay() != doy || d.Year() != 1970+year {
		return time.Time{}, false, errors.Errorf("xxdp: invalid date %04d+%d days [%#04x]", 1970+year, doy, raw)
	}
	return d, true, nil
}

// dirEntryFromRepr parses one 18-byte UFD entry. Returns (nil, nil) only
// when buf is too short to hold another entry (end of the block's usable
// area).
func dirEntryFromRepr(buf []byte) (*DirEntry, error) {
	if len(buf) < dirEntryWords*2 {
		return nil, nil
	}
	words := [3]uint16{getU16(buf[0:]), getU16(buf[2:]), getU16(buf[4:])}
	e := &DirEntry{}
	if words != ([3]uint16{0, 0, 0}) {
		e.Name = decodeFilename(words)
	}
	date, hasDate, err := DecodeDate(getU16(buf[6:]))
	if err != nil {
		return nil, err
	}
	e.HasDate = hasDate
	e.Date = date
	// buf[8:10] is unused (reserved)
	e.FirstBlock = int(getU16(buf[10:]))
	e.Length = int(getU16(buf[12:]))
	e.LastBlock = int(getU16(buf[14:]))
	// buf[16:18] is unused ("ACT-11 Logical 52")
	return e, nil
}

func decodeFilename(words [3]uint16) string {
	raw := radix50.Decode(words[:])
	name, ext := raw[:6], raw[6:9]
	return trimField(name) + "." + trimField(ext)
}

func (e DirEntry) repr() ([]byte, error) {
	var words [3]uint16
	var err error
	if e.Name != "" {
		words, err = EncodeFilename(e.Name)
		if err != nil {
			return nil, err
		}
	}
	date, err := EncodeDate(e.Date, e.HasDate)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, dirEntryWords*2)
	putU16(buf[0:], words[0])
	putU16(buf[2:], words[1])
	putU16(buf[4:], words[2])
	putU16(buf[6:], date)
	putU16(buf[8:], 0)
	putU16(buf[10:], uint16(e.FirstBlock))
	putU16(buf[12:], uint16(e.Length))
	putU16(buf[14:], uint16(e.LastBlock))
	putU16(buf[16:], 0)
	return buf, nil
}

// fs.DirEntry implementation.
func (e DirEntry) FileName() string { return e.Name }
func (e DirEntry) IsDir() bool      { return false }
func (e DirEntry) IsFile() bool     { return e.Name != "" }
func (e DirEntry) IsSymlink() bool  { return false }
func (e DirEntry) Len() uint64      { return uint64(e.Length) * usableBlockSize }
func (e DirEntry) Blocks() uint64   { return uint64(e.Length) }
func (e DirEntry) Readonly() bool   { return false }

func (e DirEntry) Created() (time.Time, error) {
	if !e.HasDate {
		return time.Time{}, errors.New("xxdp: no date")
	}
	return e.Date, nil
}

func (e DirEntry) Modified() (time.Time, error) {
	return time.Time{}, errors.New("xxdp: modification time not available")
}

func (e DirEntry) Accessed() (time.Time, error) {
	return time.Time{}, errors.New("xxdp: access time not available")
}

func putU16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func getU16(b []byte) uint16    { return uint16(b[0]) | uint16(b[1])<<8 }

// trimField strips the space padding off a fixed-width RADIX-50 name/ext
// field.
func trimField(s string) string { return strings.TrimRight(s, " ") }
