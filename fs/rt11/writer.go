package rt11

import (
	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/block"
	"github.com/caldwell/pdpfs/fs"
)

// Writer streams bytes into the blocks a create() call allocated: it
// batches full blocks, holds a residue buffer for a trailing partial block,
// and pads-and-flushes on Close.
type Writer struct {
	image   block.BlockDevice
	entry   DirEntry
	residue []byte
	pos     int
}

// Write implements io.Writer. It truncates buf so the total written never
// exceeds the entry's block budget; writing past that budget fails.
func (w *Writer) Write(buf []byte) (int, error) {
	if w.pos == w.entry.Length {
		return 0, errors.Wrap(fs.ErrNoSpace, "rt11: file writer is full")
	}
	room := (w.entry.Length-w.pos)*block.BlockSize - len(w.residue)
	if len(buf) > room {
		buf = buf[:room]
	}
	written := len(buf)

	if len(w.residue) > 0 {
		n := block.BlockSize - len(w.residue)
		if n > len(buf) {
			n = len(buf)
		}
		w.residue = append(w.residue, buf[:n]...)
		buf = buf[n:]
		if len(w.residue) == block.BlockSize {
			if err := w.image.WriteBlocks(w.entry.Block+w.pos, 1, w.residue); err != nil {
				return 0, errors.Wrap(err, "rt11: writing file block")
			}
			w.pos++
			w.residue = w.residue[:0]
		}
	}

	blocks := len(buf) / block.BlockSize
	if blocks > 0 {
		chunk := buf[:blocks*block.BlockSize]
		if err := w.image.WriteBlocks(w.entry.Block+w.pos, blocks, chunk); err != nil {
			return 0, errors.Wrap(err, "rt11: writing file blocks")
		}
		w.pos += blocks
		buf = buf[blocks*block.BlockSize:]
	}
	w.residue = append(w.residue, buf...)

	return written, nil
}

// Close flushes any trailing partial block, zero-padded to 512 bytes.
func (w *Writer) Close() error {
	if len(w.residue) == 0 {
		return nil
	}
	if w.pos == w.entry.Length {
		return errors.Wrap(fs.ErrNoSpace, "rt11: file writer is full")
	}
	padded := make([]byte, block.BlockSize)
	copy(padded, w.residue)
	if err := w.image.WriteBlocks(w.entry.Block+w.pos, 1, padded); err != nil {
		return errors.Wrap(err, "rt11: flushing file block")
	}
	w.pos++
	w.residue = w.residue[:0]
	return nil
}
