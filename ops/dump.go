package ops

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/block"
	"github.com/caldwell/pdpfs/fs"
	"github.com/caldwell/pdpfs/fs/rt11"
)

// hexDump renders buf 16 bytes per line: offset, hex columns, ASCII gutter.
func hexDump(buf []byte) string {
	var sb strings.Builder
	for off := 0; off < len(buf); off += 16 {
		end := off + 16
		if end > len(buf) {
			end = len(buf)
		}
		line := buf[off:end]
		fmt.Fprintf(&sb, "%08x  ", off)
		for i := 0; i < 16; i++ {
			if i < len(line) {
				fmt.Fprintf(&sb, "%02x ", line[i])
			} else {
				sb.WriteString("   ")
			}
			if i == 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(" |")
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}
	return sb.String()
}

// ParseRange parses a dump --range argument: either a single number ("5") or
// an inclusive span ("3-7"). An empty string means the whole device.
func ParseRange(r string, max int) (first, last int, err error) {
	if r == "" {
		return 0, max - 1, nil
	}
	lo, hi, dashed := strings.Cut(r, "-")
	first, err = strconv.Atoi(lo)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "bad range %q", r)
	}
	last = first
	if dashed {
		last, err = strconv.Atoi(hi)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "bad range %q", r)
		}
	}
	if first < 0 || last >= max || first > last {
		return 0, 0, errors.Errorf("range %q outside 0..%d", r, max-1)
	}
	return first, last, nil
}

// Dump hex-dumps every block (or, if bySector, every physical sector) of
// image. rangeStr optionally limits the dump to a single unit or an
// inclusive span ("5", "3-7").
func Dump(image block.BlockDevice, bySector bool, rangeStr string) (string, error) {
	var sb strings.Builder
	if bySector {
		first, last, err := ParseRange(rangeStr, image.Sectors())
		if err != nil {
			return "", err
		}
		for s := first; s <= last; s++ {
			buf, err := image.ReadSector(s)
			if err != nil {
				return "", errors.Wrapf(err, "reading sector %d", s)
			}
			fmt.Fprintf(&sb, "Sector %d\n%s", s, hexDump(buf))
		}
		return sb.String(), nil
	}
	first, last, err := ParseRange(rangeStr, image.Blocks())
	if err != nil {
		return "", err
	}
	for b := first; b <= last; b++ {
		buf, err := image.ReadBlocks(b, 1)
		if err != nil {
			return "", errors.Wrapf(err, "reading block %d", b)
		}
		fmt.Fprintf(&sb, "Block %d\n%s", b, hexDump(buf))
	}
	return sb.String(), nil
}

// DumpFile hex-dumps a single file's contents instead of the whole image.
func DumpFile(fsys fs.FileSystem, name string) (string, error) {
	data, err := fsys.ReadFile(PathToFilename(name))
	if err != nil {
		return "", err
	}
	return hexDump(data), nil
}

// DumpHome decodes and prints the RT-11 home block.
func DumpHome(image block.BlockDevice) (string, error) {
	home, err := rt11.ReadHomeBlock(image)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%+v\n", *home), nil
}

// DumpDir decodes and prints the RT-11 directory segment chain. It dumps as
// much as it can: a single unreadable segment ends the walk (the chain can't
// be chased past it without its next-segment pointer), but everything parsed
// before the error is still printed.
func DumpDir(image block.BlockDevice) (string, error) {
	dirStart := uint16(6)
	if home, err := rt11.ReadHomeBlock(image); err == nil {
		dirStart = home.DirectoryStartBlock
	}
	segments, err := rt11.ReadDirectory(image, dirStart)
	var sb strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&sb, "Segment %d: %+v\n", i, seg)
	}
	if err != nil {
		fmt.Fprintf(&sb, "Error reading directory: %s\n", err)
	}
	return sb.String(), nil
}
