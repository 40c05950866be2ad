package xxdp

import (
	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/block"
	"github.com/caldwell/pdpfs/fs"
)

// bitmapWordsPerMapBlock is the number of 16-bit allocation words per
// bitmap block (960 bits).
const bitmapWordsPerMapBlock = 60

// bitmapBlock is one bitmap chain block's payload (the chain's next-pointer
// is handled separately by chain.go).
type bitmapBlock struct {
	MapNumber   uint16
	FirstBitmap uint16
	Entries     []uint16
}

func bitmapBlockFromRepr(buf []byte) (*bitmapBlock, error) {
	if len(buf) < 6+bitmapWordsPerMapBlock*2 {
		return nil, errors.Wrap(fs.ErrFormat, "xxdp: short bitmap block")
	}
	mapLength := getU16(buf[2:])
	if mapLength != bitmapWordsPerMapBlock {
		return nil, errors.Errorf("xxdp: bitmap map length was %d, not %d", mapLength, bitmapWordsPerMapBlock)
	}
	b := &bitmapBlock{
		MapNumber:   getU16(buf[0:]),
		FirstBitmap: getU16(buf[4:]),
	}
	b.Entries = make([]uint16, bitmapWordsPerMapBlock)
	for i := range b.Entries {
		b.Entries[i] = getU16(buf[6+i*2:])
	}
	return b, nil
}

func (b bitmapBlock) repr() []byte {
	buf := make([]byte, usableBlockSize)
	putU16(buf[0:], b.MapNumber)
	putU16(buf[2:], bitmapWordsPerMapBlock)
	putU16(buf[4:], b.FirstBitmap)
	for i, w := range b.Entries {
		putU16(buf[6+i*2:], w)
	}
	return buf
}

// readBitmap chases the bitmap chain starting at startBlock and unpacks it
// into one bool per logical block.
func readBitmap(dev block.BlockDevice, startBlock uint16) ([]bool, []uint16, error) {
	blockList, bufs, err := readChainRaw(dev, startBlock)
	if err != nil {
		return nil, nil, err
	}
	var bitmap []bool
	for _, buf := range bufs {
		bb, err := bitmapBlockFromRepr(buf[2:])
		if err != nil {
			return nil, nil, err
		}
		for _, w := range bb.Entries {
			for bit := 0; bit < 16; bit++ {
				bitmap = append(bitmap, w&(1<<uint(bit)) != 0)
			}
		}
	}
	return bitmap, blockList, nil
}

// writeBitmap re-packs f.bitmap into its chain blocks and flushes them.
func (f *FS) writeBitmap() error {
	bitsPerBlock := bitmapWordsPerMapBlock * 16
	var buf []byte
	for i := 0; i*bitsPerBlock < len(f.Bitmap); i++ {
		start := i * bitsPerBlock
		end := start + bitsPerBlock
		if end > len(f.Bitmap) {
			end = len(f.Bitmap)
		}
		bits := f.Bitmap[start:end]
		bb := bitmapBlock{
			MapNumber:   uint16(i),
			FirstBitmap: f.BitmapBlockList[0],
			Entries:     make([]uint16, bitmapWordsPerMapBlock),
		}
		for w := 0; w*16 < len(bits); w++ {
			var word uint16
			for n := 0; n < 16 && w*16+n < len(bits); n++ {
				if bits[w*16+n] {
					word |= 1 << uint(n)
				}
			}
			bb.Entries[w] = word
		}
		buf = append(buf, bb.repr()...)
	}
	return writeBlockChain(f.Image, f.BitmapBlockList, buf)
}
