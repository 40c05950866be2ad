// Package storage provides small helpers for reading whole disk image files
// into memory, mirroring the way retroio's storage package wraps an
// *os.File for its container parsers.
package storage

import (
	"io"

	"github.com/pkg/errors"
)

// Reader wraps a source file (or any io.Reader) and reads its entire
// contents up front. The container codecs in block/ operate on the whole
// byte slice rather than streaming, since IMD's track list can only be
// parsed sequentially from the start and IMG is addressed by offset anyway.
type Reader struct {
	source io.Reader
	data   []byte
}

// NewReader wraps source. Call ReadAll to materialize the bytes.
func NewReader(source io.Reader) *Reader {
	return &Reader{source: source}
}

// ReadAll reads the entire source into memory and returns it. The result is
// cached; subsequent calls return the same slice.
func (r *Reader) ReadAll() ([]byte, error) {
	if r.data != nil {
		return r.data, nil
	}
	data, err := io.ReadAll(r.source)
	if err != nil {
		return nil, errors.Wrap(err, "reading image")
	}
	r.data = data
	return data, nil
}

// Bytes returns the cached bytes (the same slice ReadAll returned), or nil
// if ReadAll has not run yet.
func (r *Reader) Bytes() []byte {
	return r.data
}
