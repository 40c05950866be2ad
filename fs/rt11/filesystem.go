package rt11

import (
	"time"

	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/block"
	"github.com/caldwell/pdpfs/fs"
)

// nowFunc resolves the creation date stamped on a newly written file. Tests
// override it so golden byte fixtures don't depend on the machine's clock.
var nowFunc = time.Now

// defaultSegments is the directory segment table size a fresh volume gets,
// matching what RT-11's own INIT writes by default.
const defaultSegments = 4

// FS is the RT-11 volume layout: a home block plus a chain of directory
// segments, sitting on top of a logical BlockDevice.
type FS struct {
	Image block.BlockDevice
	Home  *HomeBlock
	Dir   []DirSegment
}

var _ fs.FileSystem = (*FS)(nil)

// New opens an existing RT-11 filesystem on image.
func New(image block.BlockDevice) (*FS, error) {
	home, err := ReadHomeBlock(image)
	if err != nil {
		return nil, errors.Wrap(err, "reading RT-11 home block")
	}
	dir, err := readDirectory(image, home.DirectoryStartBlock)
	if err != nil {
		return nil, errors.Wrap(err, "reading RT-11 directory")
	}
	return &FS{Image: image, Home: home, Dir: dir}, nil
}

// ImageIs probes image for a plausible RT-11 filesystem: read the home
// block and directory chain, then sanity-check that every entry's block and
// length lie within the device.
func ImageIs(image block.BlockDevice) bool {
	fs, err := New(image)
	if err != nil {
		return false
	}
	blocks := uint16(image.Blocks())
	for _, seg := range fs.Dir {
		for _, e := range seg.Entries {
			if uint16(e.Length) >= blocks || uint16(e.Block) >= blocks {
				return false
			}
		}
	}
	return true
}

// Mkfs initializes a fresh RT-11 filesystem on image.
func Mkfs(image block.BlockDevice) (*FS, error) {
	home := NewHomeBlock()
	if err := image.WriteBlocks(1, 1, home.Repr()); err != nil {
		return nil, errors.Wrap(err, "writing RT-11 home block")
	}
	firstDataBlock := int(segmentBlock(home.DirectoryStartBlock, defaultSegments+1))
	seg := newSegment(1, home.DirectoryStartBlock, 1, defaultSegments, firstDataBlock, image.Blocks())
	rep, err := seg.repr()
	if err != nil {
		return nil, err
	}
	if err := image.WriteBlocks(int(home.DirectoryStartBlock), 2, rep); err != nil {
		return nil, errors.Wrap(err, "writing RT-11 directory segment #1")
	}
	return New(image)
}

func (f *FS) FilesystemName() string { return "RT-11" }

func (f *FS) find(pred func(DirEntry) bool) (segment, entry int, ok bool) {
	for s, seg := range f.Dir {
		for e, d := range seg.Entries {
			if pred(d) {
				return s, e, true
			}
		}
	}
	return 0, 0, false
}

func (f *FS) findEmptySpace(blocks int) (segment, entry int, ok bool) {
	return f.find(func(e DirEntry) bool { return e.Kind == Empty && e.Length >= blocks })
}

func (f *FS) findFileNamed(name string) (segment, entry int, ok bool) {
	return f.find(func(e DirEntry) bool { return e.Kind == Permanent && e.Name == name })
}

func (f *FS) writeDirectorySegment(segment int) error {
	rep, err := f.Dir[segment].repr()
	if err != nil {
		return err
	}
	return f.Image.WriteBlocks(int(f.Dir[segment].Block), 2, rep)
}

func (f *FS) coalesceEmpty(segment, entry int) {
	entries := f.Dir[segment].Entries
	if entry+1 >= len(entries) || entries[entry].Kind != Empty || entries[entry+1].Kind != Empty {
		return
	}
	entries[entry].Length += entries[entry+1].Length
	f.Dir[segment].Entries = append(entries[:entry+1], entries[entry+2:]...)
}

// DirIter returns every directory slot, including Empty/Tentative ones.
func (f *FS) DirIter(path string) ([]fs.DirEntry, error) {
	if path != "" && path != "/" {
		return nil, errors.Errorf("rt11: bad path %q", path)
	}
	out := make([]fs.DirEntry, 0)
	for _, seg := range f.Dir {
		for _, e := range seg.Entries {
			out = append(out, e)
		}
	}
	return out, nil
}

// ReadDir returns only Permanent (visible) entries.
func (f *FS) ReadDir(path string) ([]fs.DirEntry, error) {
	all, err := f.DirIter(path)
	if err != nil {
		return nil, err
	}
	out := make([]fs.DirEntry, 0, len(all))
	for _, e := range all {
		if e.(DirEntry).Kind == Permanent {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *FS) Stat(name string) (fs.DirEntry, bool) {
	s, e, ok := f.findFileNamed(name)
	if !ok {
		return nil, false
	}
	return f.Dir[s].Entries[e], true
}

func (f *FS) FreeBlocks() int {
	total := 0
	for _, seg := range f.Dir {
		for _, e := range seg.Entries {
			if e.Kind == Empty {
				total += e.Length
			}
		}
	}
	return total
}

func (f *FS) UsedBlocks() int {
	total := 0
	for _, seg := range f.Dir {
		for _, e := range seg.Entries {
			if e.Kind != Empty {
				total += e.Length
			}
		}
	}
	return total
}

func (f *FS) ReadFile(name string) ([]byte, error) {
	s, e, ok := f.findFileNamed(name)
	if !ok {
		return nil, errors.Wrapf(fs.ErrNotFound, "%s", name)
	}
	entry := f.Dir[s].Entries[e]
	return f.Image.ReadBlocks(entry.Block, entry.Length)
}

func (f *FS) WriteFile(name string, data []byte) error {
	w, err := f.create(name, len(data))
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}

// create allocates space for a new (or overwritten) file and returns a
// Writer that streams its contents into the allocated blocks.
func (f *FS) create(name string, byteSize int) (*Writer, error) {
	if _, err := EncodeFilename(name); err != nil {
		return nil, err
	}
	_ = f.Delete(name) // only fails with not-found, which is a no-op here

	blocks := (byteSize + block.BlockSize - 1) / block.BlockSize
	segment, entry, ok := f.findEmptySpace(blocks)
	if !ok {
		return nil, errors.Wrapf(fs.ErrNoSpace, "no empty extent of %d blocks", blocks)
	}
	if len(f.Dir[segment].Entries)+1 > f.Dir[segment].maxEntries() {
		if err := f.splitDirectory(segment); err != nil {
			return nil, err
		}
		segment, entry, ok = f.findEmptySpace(blocks)
		if !ok {
			return nil, errors.Wrapf(fs.ErrNoSpace, "no empty extent of %d blocks", blocks)
		}
	}

	newFree := f.Dir[segment].Entries[entry]
	cur := &f.Dir[segment].Entries[entry]
	cur.Name = name
	cur.Length = blocks
	cur.Kind = Permanent
	cur.ReadOnly = false
	cur.Protected = false
	cur.Job = 0
	cur.Channel = 0
	cur.HasDate = true
	cur.Date = nowFunc()

	newFree.Block += blocks
	newFree.Length -= blocks
	entries := f.Dir[segment].Entries
	entries = append(entries, DirEntry{})
	copy(entries[entry+2:], entries[entry+1:])
	entries[entry+1] = newFree
	f.Dir[segment].Entries = entries

	if err := f.writeDirectorySegment(segment); err != nil {
		return nil, err
	}
	return &Writer{image: f.Image, entry: f.Dir[segment].Entries[entry]}, nil
}

// splitDirectory allocates a new segment and moves the tail half of
// segment's entries into it, as described in the RT-11 Volume and File
// Formats Manual §1.1.5. The new segment's data_block is pulled back by the
// moved entries' total length so their implicit block positions stay
// consistent with their order.
func (f *FS) splitDirectory(segment int) error {
	_, end := f.Dir[segment].blockRange()
	newSeg, err := f.allocSegment(end, end)
	if err != nil {
		return err
	}
	newSeg.NextSegment = f.Dir[segment].NextSegment
	f.Dir[segment].NextSegment = newSeg.Segment

	half := len(f.Dir[segment].Entries) / 2
	newSeg.Entries = append([]DirEntry(nil), f.Dir[segment].Entries[half:]...)
	f.Dir[segment].Entries = f.Dir[segment].Entries[:half]

	moved := 0
	for _, e := range newSeg.Entries {
		moved += e.Length
	}
	newSeg.DataBlock -= uint16(moved)

	segments := append(f.Dir[:segment+1:segment+1], newSeg)
	f.Dir = append(segments, f.Dir[segment+1:]...)

	if err := f.writeDirectorySegment(segment); err != nil {
		return err
	}
	return f.writeDirectorySegment(segment + 1)
}

func (f *FS) allocSegment(dataStart, dataEnd uint16) (DirSegment, error) {
	if f.Dir[0].LastSegment == f.Dir[0].Segments {
		return DirSegment{}, errors.Wrap(fs.ErrNoSpace, "out of directory segments")
	}
	f.Dir[0].LastSegment++
	return newSegment(f.Dir[0].LastSegment, f.Home.DirectoryStartBlock, f.Dir[0].LastSegment, f.Dir[0].Segments, int(dataStart), int(dataEnd)), nil
}

func (f *FS) Delete(name string) error {
	segment, entry, ok := f.findFileNamed(name)
	if !ok {
		return errors.Wrapf(fs.ErrNotFound, "%s", name)
	}
	f.Dir[segment].Entries[entry].Kind = Empty
	f.coalesceEmpty(segment, entry)
	if entry > 0 {
		f.coalesceEmpty(segment, entry-1)
	}
	return f.writeDirectorySegment(segment)
}

func (f *FS) renameUnchecked(src, dest string) error {
	if _, err := EncodeFilename(dest); err != nil {
		return err
	}
	segment, entry, _ := f.findFileNamed(src)
	f.Dir[segment].Entries[entry].Name = dest
	return f.writeDirectorySegment(segment)
}

func (f *FS) Rename(src, dest string) error {
	return fs.Rename(f, f.renameUnchecked, src, dest)
}

func (f *FS) BlockDevice() block.BlockDevice { return f.Image }
