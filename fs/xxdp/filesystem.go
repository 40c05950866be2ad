// Package xxdp implements the XXDP/DOS-11 volume layout: a two-block
// Master File Directory, a linked chain of User File Directory blocks, a
// linked chain of bitmap blocks, and chained-block file bodies.
package xxdp

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/block"
	"github.com/caldwell/pdpfs/fs"
)

// entriesPerUFDBlock is the fixed number of 18-byte entries per UFD block.
const entriesPerUFDBlock = 28

// averageFileBlocks is the rule-of-thumb ratio mkfs uses to size the UFD:
// one entry per ~4 blocks of device capacity, matching DEC's RX01 default.
const averageFileBlocks = 4

// nowFunc resolves the creation date stamped on a newly written file. Tests
// override it so golden byte fixtures don't depend on the machine's clock.
var nowFunc = time.Now

// FS is an open XXDP volume: its MFD, the full (in-memory) UFD entry list
// and the blocks that back it, and the unpacked allocation bitmap and the
// blocks that back it.
type FS struct {
	Image           block.BlockDevice
	Mfd             Mfd
	Ufd             []DirEntry
	UfdBlockList    []uint16
	Bitmap          []bool
	BitmapBlockList []uint16
}

var _ fs.FileSystem = (*FS)(nil)

func roundUp(total, step int) int { return (total + step - 1) / step * step }

// New opens an existing XXDP filesystem on image.
func New(image block.BlockDevice) (*FS, error) {
	mfd, err := readMasterFileDirectory(image)
	if err != nil {
		return nil, errors.Wrap(err, "xxdp: reading MFD")
	}
	ufd, ufdBlockList, err := readUserFileDirectory(image, mfd.ufdBlock())
	if err != nil {
		return nil, errors.Wrap(err, "xxdp: reading UFD")
	}
	bitmap, bitmapBlockList, err := readBitmap(image, mfd.bitmapBlock())
	if err != nil {
		return nil, errors.Wrap(err, "xxdp: reading bitmap")
	}
	if len(bitmap) > image.Blocks() {
		bitmap = bitmap[:image.Blocks()]
	}
	if image.Blocks() > len(bitmap) {
		return nil, errors.Errorf("xxdp: bitmap is too short %d < %d", len(bitmap), image.Blocks())
	}
	return &FS{
		Image:           image,
		Mfd:             mfd,
		Ufd:             ufd,
		UfdBlockList:    ufdBlockList,
		Bitmap:          bitmap,
		BitmapBlockList: bitmapBlockList,
	}, nil
}

// ImageIs probes image for a plausible XXDP filesystem.
func ImageIs(image block.BlockDevice) bool {
	_, err := New(image)
	return err == nil
}

func readUserFileDirectory(dev block.BlockDevice, startBlock uint16) ([]DirEntry, []uint16, error) {
	blockList, bufs, err := readChainRaw(dev, startBlock)
	if err != nil {
		return nil, nil, err
	}
	var entries []DirEntry
	for _, buf := range bufs {
		pos := 2
		for {
			e, err := dirEntryFromRepr(buf[pos:])
			if err != nil {
				return nil, nil, err
			}
			if e == nil {
				break
			}
			entries = append(entries, *e)
			pos += dirEntryWords * 2
		}
	}
	return entries, blockList, nil
}

// Mkfs initializes a fresh XXDP filesystem on image, writing MFD variant 1.
func Mkfs(image block.BlockDevice) (*FS, error) {
	bitmapEntries := roundUp(image.Blocks(), 16*bitmapWordsPerMapBlock)
	bitmapBlocks := bitmapEntries / (16 * bitmapWordsPerMapBlock)
	ufdEntries := roundUp(image.Blocks()/averageFileBlocks, entriesPerUFDBlock)
	ufdBlocks := ufdEntries / entriesPerUFDBlock

	next := 1
	alloc := func(count int) int {
		b := next
		next += count
		return b
	}
	_ = alloc(1) // MFD1
	mfd := &MfdVariantOne{
		InterleaveFactor: 1,
		MFD2Block:        uint16(alloc(1)),
		UFDBlock:         uint16(alloc(ufdBlocks)),
		BitmapBlock:      uint16(alloc(bitmapBlocks)),
	}
	bitmapEnd := alloc(0)
	bitmapStart := bitmapEnd - bitmapBlocks
	for b := bitmapStart; b < bitmapEnd; b++ {
		mfd.BitmapPointer = append(mfd.BitmapPointer, uint16(b))
	}

	entries := make([]DirEntry, ufdEntries)
	bitmap := make([]bool, image.Blocks())
	for b := 0; b < bitmapEnd; b++ {
		bitmap[b] = true
	}

	ufdBlockList := make([]uint16, 0, ufdBlocks)
	for b := int(mfd.UFDBlock); b < int(mfd.BitmapBlock); b++ {
		ufdBlockList = append(ufdBlockList, uint16(b))
	}

	f := &FS{
		Image:           image,
		Mfd:             mfd,
		Ufd:             entries,
		UfdBlockList:    ufdBlockList,
		Bitmap:          bitmap,
		BitmapBlockList: append([]uint16(nil), mfd.BitmapPointer...),
	}
	if err := f.writeUFD(); err != nil {
		return nil, err
	}
	if err := f.writeBitmap(); err != nil {
		return nil, err
	}
	if err := f.writeMFD(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FS) FilesystemName() string { return "XXDP" }

func (f *FS) rawStat(name string) (int, bool) {
	for i, e := range f.Ufd {
		if e.Name == name {
			return i, true
		}
	}
	return 0, false
}

// calculateBitmapFreeSpans returns the maximal runs of free (unset) blocks.
func (f *FS) calculateBitmapFreeSpans() [][2]int {
	var spans [][2]int
	start := -1
	for i, used := range f.Bitmap {
		switch {
		case !used && start < 0:
			start = i
		case used && start >= 0:
			spans = append(spans, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(f.Bitmap)})
	}
	return spans
}

func spanLen(s [2]int) int { return s[1] - s[0] }

// allocateBlocks picks block numbers for `count` blocks from the bitmap's
// free spans, preferring a perfectly-sized span, otherwise the longest span
// first.
func (f *FS) allocateBlocks(count int) ([]uint16, error) {
	spans := f.calculateBitmapFreeSpans()
	key := func(s [2]int) int {
		if spanLen(s) == count {
			return 1 << 30
		}
		return spanLen(s)
	}
	sort.Slice(spans, func(i, j int) bool { return key(spans[i]) < key(spans[j]) })

	var list []uint16
	remaining := count
	for remaining > 0 {
		if len(spans) == 0 {
			return nil, errors.Wrapf(fs.ErrNoSpace, "no space for %d blocks", count)
		}
		s := spans[len(spans)-1]
		spans = spans[:len(spans)-1]
		end := s[1]
		if end > s[0]+remaining {
			end = s[0] + remaining
		}
		for b := s[0]; b < end; b++ {
			list = append(list, uint16(b))
			f.Bitmap[b] = true
			remaining--
		}
	}
	return list, nil
}

// allocateDirEntry returns the index of a free UFD slot, growing the UFD
// chain by one block (28 more entries) if none is free.
func (f *FS) allocateDirEntry() (int, error) {
	for i, e := range f.Ufd {
		if e.Name == "" {
			return i, nil
		}
	}
	blocks, err := f.allocateBlocks(1)
	if err != nil {
		return 0, err
	}
	f.UfdBlockList = append(f.UfdBlockList, blocks[0])
	newIndex := len(f.Ufd)
	f.Ufd = append(f.Ufd, make([]DirEntry, entriesPerUFDBlock)...)
	if err := f.writeBitmap(); err != nil {
		return 0, err
	}
	if err := f.writeUFD(); err != nil {
		return 0, err
	}
	return newIndex, nil
}

func (f *FS) writeUFD() error {
	var buf []byte
	for start := 0; start < len(f.Ufd); start += entriesPerUFDBlock {
		end := start + entriesPerUFDBlock
		if end > len(f.Ufd) {
			end = len(f.Ufd)
		}
		var chunk []byte
		for _, e := range f.Ufd[start:end] {
			rep, err := e.repr()
			if err != nil {
				return err
			}
			chunk = append(chunk, rep...)
		}
		if pad := usableBlockSize - len(chunk)%usableBlockSize; pad != usableBlockSize {
			chunk = append(chunk, make([]byte, pad)...)
		}
		buf = append(buf, chunk...)
	}
	return writeBlockChain(f.Image, f.UfdBlockList, buf)
}

func (f *FS) writeMFD() error {
	v1, ok := f.Mfd.(*MfdVariantOne)
	if !ok {
		return errors.Wrap(fs.ErrUnsupportedFeature, "xxdp: MFD variant 2 write path")
	}
	buf1, buf2, err := v1.repr()
	if err != nil {
		return err
	}
	if err := f.Image.WriteBlocks(mfdBlock, 1, buf1); err != nil {
		return errors.Wrap(err, "xxdp: writing MFD1")
	}
	if err := f.Image.WriteBlocks(int(v1.MFD2Block), 1, buf2); err != nil {
		return errors.Wrap(err, "xxdp: writing MFD2")
	}
	return nil
}

func (f *FS) DirIter(path string) ([]fs.DirEntry, error) {
	if path != "" && path != "/" {
		return nil, errors.Errorf("xxdp: bad path %q", path)
	}
	out := make([]fs.DirEntry, 0, len(f.Ufd))
	for _, e := range f.Ufd {
		out = append(out, e)
	}
	return out, nil
}

func (f *FS) ReadDir(path string) ([]fs.DirEntry, error) {
	all, err := f.DirIter(path)
	if err != nil {
		return nil, err
	}
	out := make([]fs.DirEntry, 0, len(all))
	for _, e := range all {
		if e.(DirEntry).Name != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *FS) Stat(name string) (fs.DirEntry, bool) {
	i, ok := f.rawStat(name)
	if !ok {
		return nil, false
	}
	return f.Ufd[i], true
}

func (f *FS) FreeBlocks() int {
	n := 0
	for _, used := range f.Bitmap[:f.Image.Blocks()] {
		if !used {
			n++
		}
	}
	return n
}

func (f *FS) UsedBlocks() int { return f.Image.Blocks() - f.FreeBlocks() }

func (f *FS) ReadFile(name string) ([]byte, error) {
	i, ok := f.rawStat(name)
	if !ok {
		return nil, errors.Wrapf(fs.ErrNotFound, "%s", name)
	}
	_, bufs, err := readChainRaw(f.Image, uint16(f.Ufd[i].FirstBlock))
	if err != nil {
		return nil, err
	}
	contents := make([]byte, 0, f.Ufd[i].Length*usableBlockSize)
	for _, buf := range bufs {
		contents = append(contents, buf[2:]...)
	}
	return contents, nil
}

func (f *FS) WriteFile(name string, data []byte) error {
	if _, err := EncodeFilename(name); err != nil {
		return err
	}
	_ = f.Delete(name) // only fails with not-found, which is a no-op here

	entryNum, err := f.allocateDirEntry()
	if err != nil {
		return err
	}
	blocks := (len(data) + usableBlockSize - 1) / usableBlockSize
	if blocks == 0 {
		blocks = 1
	}
	blockList, err := f.allocateBlocks(blocks)
	if err != nil {
		return err
	}

	f.Ufd[entryNum] = DirEntry{
		Name:       name,
		HasDate:    true,
		Date:       nowFunc(),
		FirstBlock: int(blockList[0]),
		Length:     blocks,
		LastBlock:  int(blockList[len(blockList)-1]),
	}

	if err := f.writeUFD(); err != nil {
		return err
	}
	if err := f.writeBitmap(); err != nil {
		return err
	}
	return writeBlockChain(f.Image, blockList, data)
}

func (f *FS) Delete(name string) error {
	i, ok := f.rawStat(name)
	if !ok {
		return errors.Wrapf(fs.ErrNotFound, "%s", name)
	}
	blockList, _, err := readChainRaw(f.Image, uint16(f.Ufd[i].FirstBlock))
	if err != nil {
		return err
	}
	for _, b := range blockList {
		f.Bitmap[b] = false
	}
	f.Ufd[i].Name = ""
	f.Ufd[i].HasDate = false
	if err := f.writeUFD(); err != nil {
		return err
	}
	return f.writeBitmap()
}

func (f *FS) renameUnchecked(src, dest string) error {
	if _, err := EncodeFilename(dest); err != nil {
		return err
	}
	i, _ := f.rawStat(src)
	f.Ufd[i].Name = dest
	if err := f.writeUFD(); err != nil {
		return err
	}
	return f.writeBitmap() // might have deleted something
}

func (f *FS) Rename(src, dest string) error {
	return fs.Rename(f, f.renameUnchecked, src, dest)
}

func (f *FS) BlockDevice() block.BlockDevice { return f.Image }
