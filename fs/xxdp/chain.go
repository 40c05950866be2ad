package xxdp

import (
	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/block"
)

// usableBlockSize is the payload each chained block carries once its 2-byte
// next-pointer is subtracted.
const usableBlockSize = block.BlockSize - 2

const mfdBlock = 1

// readChainRaw walks a linked block chain starting at startBlock, returning
// each block's number and its full 512 bytes (next-pointer included). A
// block visited twice means the chain loops, which fails rather than
// spinning forever.
func readChainRaw(dev block.BlockDevice, startBlock uint16) ([]uint16, [][]byte, error) {
	seen := make(map[uint16]bool)
	var blocks []uint16
	var bufs [][]byte
	b := startBlock
	for b != 0 {
		if seen[b] {
			return nil, nil, errors.Errorf("xxdp: duplicate block in chain: %d", b)
		}
		buf, err := dev.ReadBlocks(int(b), 1)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "xxdp: reading chain block %d", b)
		}
		if len(buf) < 2 {
			return nil, nil, errors.Errorf("xxdp: short chain block %d", b)
		}
		next := getU16(buf[0:])
		blocks = append(blocks, b)
		bufs = append(bufs, buf)
		seen[b] = true
		b = next
	}
	return blocks, bufs, nil
}

// writeBlockChain lays data out across blockList, chaining each block to the
// next via its leading 2-byte pointer and zero-padding the final block.
func writeBlockChain(dev block.BlockDevice, blockList []uint16, data []byte) error {
	remaining := data
	for i, b := range blockList {
		buf := make([]byte, block.BlockSize)
		var next uint16
		if i+1 < len(blockList) {
			next = blockList[i+1]
		}
		putU16(buf[0:], next)
		n := usableBlockSize
		if n > len(remaining) {
			n = len(remaining)
		}
		copy(buf[2:], remaining[:n])
		remaining = remaining[n:]
		if err := dev.WriteBlocks(int(b), 1, buf); err != nil {
			return errors.Wrapf(err, "xxdp: writing chain block %d", b)
		}
	}
	return nil
}
