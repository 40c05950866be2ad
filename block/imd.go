package block

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Mode is the IMD recording mode: bit density crossed with modulation.
type Mode uint8

const (
	Mode500kbitsFM Mode = iota
	Mode300kbitsFM
	Mode250kbitsFM
	Mode500kbitsMFM
	Mode300kbitsMFM
	Mode250kbitsMFM
)

// SectorKind distinguishes the three payload shapes an IMD sector record
// can hold.
type SectorKind int

const (
	SectorUnavailable SectorKind = iota
	SectorNormal
	SectorCompressed
)

// Sector is one physical sector's record: its deleted/error flags plus one
// of the three payload shapes.
type Sector struct {
	Deleted bool
	Error   bool
	Kind    SectorKind
	Data    []byte // valid when Kind == SectorNormal
	Fill    byte   // valid when Kind == SectorCompressed
}

// typeCode encodes the IMD nine-way {deleted,error,kind} matrix into the
// on-disk sector type byte 0..8.
func (s Sector) typeCode() (byte, error) {
	switch {
	case !s.Deleted && !s.Error && s.Kind == SectorUnavailable:
		return 0, nil
	case !s.Deleted && !s.Error && s.Kind == SectorNormal:
		return 1, nil
	case !s.Deleted && !s.Error && s.Kind == SectorCompressed:
		return 2, nil
	case s.Deleted && !s.Error && s.Kind == SectorNormal:
		return 3, nil
	case s.Deleted && !s.Error && s.Kind == SectorCompressed:
		return 4, nil
	case !s.Deleted && s.Error && s.Kind == SectorNormal:
		return 5, nil
	case !s.Deleted && s.Error && s.Kind == SectorCompressed:
		return 6, nil
	case s.Deleted && s.Error && s.Kind == SectorNormal:
		return 7, nil
	case s.Deleted && s.Error && s.Kind == SectorCompressed:
		return 8, nil
	default:
		return 0, errors.Errorf("can't represent sector %+v", s)
	}
}

func sectorFromTypeCode(code byte) (deleted, errFlag bool, kind SectorKind, err error) {
	switch code {
	case 0:
		return false, false, SectorUnavailable, nil
	case 1:
		return false, false, SectorNormal, nil
	case 2:
		return false, false, SectorCompressed, nil
	case 3:
		return true, false, SectorNormal, nil
	case 4:
		return true, false, SectorCompressed, nil
	case 5:
		return false, true, SectorNormal, nil
	case 6:
		return false, true, SectorCompressed, nil
	case 7:
		return true, true, SectorNormal, nil
	case 8:
		return true, true, SectorCompressed, nil
	default:
		return false, false, 0, errors.Errorf("bad sector type: %#02x", code)
	}
}

// Bytes reconstructs the sector's payload for reading. Reading a deleted,
// error, or unavailable sector always fails.
func (s Sector) Bytes() ([]byte, error) {
	if s.Deleted {
		return nil, errors.New("reading deleted sector")
	}
	if s.Error {
		return nil, errors.New("reading sector with data error")
	}
	switch s.Kind {
	case SectorUnavailable:
		return nil, errors.New("reading unavailable sector")
	case SectorNormal:
		return append([]byte(nil), s.Data...), nil
	case SectorCompressed:
		out := make([]byte, len(s.Data))
		if len(out) == 0 {
			return out, nil
		}
		for i := range out {
			out[i] = s.Fill
		}
		return out, nil
	default:
		return nil, errors.New("unknown sector kind")
	}
}

// Track is one IMD track header plus its sector map and records.
type Track struct {
	Mode         Mode
	Cylinder     uint8
	Head         uint8
	SectorCount  uint8
	SectorSize   int
	SectorMap    []uint8
	SectorRecord []Sector
}

func sectorSizeCode(size int) (byte, error) {
	switch size {
	case 128:
		return 0, nil
	case 256:
		return 1, nil
	case 512:
		return 2, nil
	case 1024:
		return 3, nil
	case 2048:
		return 4, nil
	case 4096:
		return 5, nil
	case 8192:
		return 6, nil
	default:
		return 0, errors.Errorf("bad sector size: %d", size)
	}
}

func sectorSizeFromCode(code byte) (int, error) {
	switch code {
	case 0:
		return 128, nil
	case 1:
		return 256, nil
	case 2:
		return 512, nil
	case 3:
		return 1024, nil
	case 4:
		return 2048, nil
	case 5:
		return 4096, nil
	case 6:
		return 8192, nil
	default:
		return 0, errors.Errorf("bad sector size code: %#02x", code)
	}
}

// IMD is the ImageDisk archival container: a free-text comment terminated
// by 0x1A, followed by a list of tracks.
type IMD struct {
	Comment  string
	Tracks   []Track
	geometry Geometry
}

// FromBytes parses a complete IMD file image.
func FromBytes(data []byte) (*IMD, error) {
	term := -1
	for i, b := range data {
		if b == 0x1a {
			term = i
			break
		}
	}
	if term < 0 {
		return nil, errors.New("IMD: couldn't find comment terminator (0x1A)")
	}
	comment := string(data[:term])
	pos := term + 1

	var tracks []Track
	for pos < len(data) {
		t, n, err := trackFromRepr(data[pos:])
		if err != nil {
			return nil, errors.Wrapf(err, "track %d", len(tracks))
		}
		tracks = append(tracks, t)
		pos += n
	}
	if len(tracks) == 0 {
		return nil, errors.New("IMD: no tracks")
	}

	heads := 1
	for _, t := range tracks {
		if t.Head == 1 {
			heads = 2
			break
		}
	}
	geometry := Geometry{
		Cylinders:  len(tracks) / heads,
		Heads:      heads,
		Sectors:    int(tracks[0].SectorCount),
		SectorSize: tracks[0].SectorSize,
	}
	return &IMD{Comment: comment, Tracks: tracks, geometry: geometry}, nil
}

func trackFromRepr(buf []byte) (Track, int, error) {
	if len(buf) < 5 {
		return Track{}, 0, errors.New("short track header")
	}
	modeByte := buf[0]
	if modeByte > 5 {
		return Track{}, 0, errors.Errorf("bad mode: %#02x", modeByte)
	}
	cylinder := buf[1]
	headByte := buf[2]
	var head uint8
	switch {
	case headByte == 0:
		head = 0
	case headByte == 1:
		head = 1
	case headByte&0x80 != 0:
		return Track{}, 0, errors.New("sector cylinder map not supported")
	case headByte&0x40 != 0:
		return Track{}, 0, errors.New("sector head map not supported")
	default:
		return Track{}, 0, errors.Errorf("bad head: %#02x", headByte)
	}
	sectorCount := buf[3]
	sectorSize, err := sectorSizeFromCode(buf[4])
	if err != nil {
		return Track{}, 0, err
	}
	pos := 5
	if len(buf) < pos+int(sectorCount) {
		return Track{}, 0, errors.New("short sector map")
	}
	sectorMap := append([]byte(nil), buf[pos:pos+int(sectorCount)]...)
	pos += int(sectorCount)

	records := make([]Sector, 0, sectorCount)
	for i := 0; i < int(sectorCount); i++ {
		if pos >= len(buf) {
			return Track{}, 0, errors.New("short sector record")
		}
		code := buf[pos]
		pos++
		deleted, errFlag, kind, err := sectorFromTypeCode(code)
		if err != nil {
			return Track{}, 0, err
		}
		sec := Sector{Deleted: deleted, Error: errFlag, Kind: kind}
		switch kind {
		case SectorNormal:
			if len(buf) < pos+sectorSize {
				return Track{}, 0, errors.New("short normal sector payload")
			}
			sec.Data = append([]byte(nil), buf[pos:pos+sectorSize]...)
			pos += sectorSize
		case SectorCompressed:
			if len(buf) < pos+1 {
				return Track{}, 0, errors.New("short compressed sector payload")
			}
			sec.Fill = buf[pos]
			sec.Data = make([]byte, sectorSize)
			pos++
		}
		records = append(records, sec)
	}

	return Track{
		Mode:         Mode(modeByte),
		Cylinder:     cylinder,
		Head:         head,
		SectorCount:  sectorCount,
		SectorSize:   sectorSize,
		SectorMap:    sectorMap,
		SectorRecord: records,
	}, pos, nil
}

func (t Track) repr() ([]byte, error) {
	sizeCode, err := sectorSizeCode(t.SectorSize)
	if err != nil {
		return nil, err
	}
	out := []byte{byte(t.Mode), t.Cylinder, t.Head, t.SectorCount, sizeCode}
	out = append(out, t.SectorMap...)
	for _, s := range t.SectorRecord {
		code, err := s.typeCode()
		if err != nil {
			return nil, err
		}
		out = append(out, code)
		switch s.Kind {
		case SectorNormal:
			out = append(out, s.Data...)
		case SectorCompressed:
			out = append(out, s.Fill)
		}
	}
	return out, nil
}

// Repr serializes the IMD back to its on-disk byte form.
func (i *IMD) Repr() ([]byte, error) {
	out := append([]byte(nil), []byte(i.Comment)...)
	out = append(out, 0x1a)
	for _, t := range i.Tracks {
		b, err := t.repr()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// FromIMG converts a flat IMG container into an IMD, using 250 kbit/s FM
// as the synthesized recording mode.
// Each sector's actual contents are carried over, compressed to a single
// fill byte when uniform (matching WriteSector's own convention).
func FromIMG(img *IMG) *IMD {
	g := img.Geometry()
	tracks := make([]Track, 0, g.Cylinders*g.Heads)
	for c := 0; c < g.Cylinders; c++ {
		for h := 0; h < g.Heads; h++ {
			sectorMap := make([]uint8, g.Sectors)
			records := make([]Sector, g.Sectors)
			for s := 0; s < g.Sectors; s++ {
				sectorMap[s] = uint8(s + 1)
				data, _ := img.ReadSector(c, h, s)
				uniform := len(data) > 0
				for _, b := range data {
					if b != data[0] {
						uniform = false
						break
					}
				}
				if uniform {
					var fill byte
					if len(data) > 0 {
						fill = data[0]
					}
					records[s] = Sector{Kind: SectorCompressed, Data: data, Fill: fill}
				} else {
					records[s] = Sector{Kind: SectorNormal, Data: data}
				}
			}
			tracks = append(tracks, Track{
				Mode:         Mode250kbitsFM,
				Cylinder:     uint8(c),
				Head:         uint8(h),
				SectorCount:  uint8(g.Sectors),
				SectorSize:   g.SectorSize,
				SectorMap:    sectorMap,
				SectorRecord: records,
			})
		}
	}
	comment := strings.Join([]string{
		"IMD 1.18: " + time.Now().Format("01/02/2006 15:04:05"),
		"Converted from IMG by pdpfs",
		"",
	}, "\n")
	return &IMD{Comment: comment, Tracks: tracks, geometry: g}
}

func (i *IMD) Geometry() Geometry {
	return i.geometry
}

// trackIndex resolves a (cylinder, head) pair to an index into i.Tracks.
// Dual-head IMD files store head-0/head-1 tracks as alternating entries
// (cylinder-major, head-next), so a disk with Heads==2 indexes as
// c*Heads+h; single-head disks index directly by cylinder.
func (i *IMD) trackIndex(cylinder, head int) int {
	if i.geometry.Heads <= 1 {
		return cylinder
	}
	return cylinder*i.geometry.Heads + head
}

func (i *IMD) ReadSector(cylinder, head, sector int) ([]byte, error) {
	idx := i.trackIndex(cylinder, head)
	if idx < 0 || idx >= len(i.Tracks) {
		return nil, errors.Wrapf(ErrOutOfRange, "IMD: C=%d H=%d", cylinder, head)
	}
	t := i.Tracks[idx]
	if sector < 0 || sector >= len(t.SectorMap) {
		return nil, errors.Errorf("IMD: sector %d past end of track", sector)
	}
	raw := int(t.SectorMap[sector]) - 1
	if raw < 0 || raw >= len(t.SectorRecord) {
		return nil, errors.Errorf("IMD: sector map entry %d out of range", raw)
	}
	return t.SectorRecord[raw].Bytes()
}

func (i *IMD) WriteSector(cylinder, head, sector int, buf []byte) error {
	idx := i.trackIndex(cylinder, head)
	if idx < 0 || idx >= len(i.Tracks) {
		return errors.Wrapf(ErrOutOfRange, "IMD: C=%d H=%d", cylinder, head)
	}
	t := &i.Tracks[idx]
	if sector < 0 || sector >= len(t.SectorMap) {
		return errors.Errorf("IMD: sector %d past end of track", sector)
	}
	raw := int(t.SectorMap[sector]) - 1
	if raw < 0 || raw >= len(t.SectorRecord) {
		return errors.Errorf("IMD: sector map entry %d out of range", raw)
	}

	uniform := len(buf) > 0
	for _, b := range buf {
		if b != buf[0] {
			uniform = false
			break
		}
	}
	if uniform && len(buf) > 0 {
		t.SectorRecord[raw] = Sector{Kind: SectorCompressed, Data: append([]byte(nil), buf...), Fill: buf[0]}
	} else {
		t.SectorRecord[raw] = Sector{Kind: SectorNormal, Data: append([]byte(nil), buf...)}
	}
	return nil
}

func (i *IMD) ToRaw() (Geometry, []byte, error) {
	return toRawFromSectors(i)
}

func (i *IMD) AsVec() ([]byte, error) {
	return i.Repr()
}
