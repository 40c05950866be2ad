package fs

import (
	"github.com/pkg/errors"

	"github.com/caldwell/pdpfs/block"
)

// Sentinel error kinds shared by both filesystems. Callers distinguish them with
// errors.Is after unwrapping any context added by intermediate layers.
// Out-of-range addressing is detected below the filesystem layer, so its
// sentinel lives in block and is re-exported here.
var (
	ErrFormat             = errors.New("malformed filesystem structure")
	ErrOutOfRange         = block.ErrOutOfRange
	ErrNotFound           = errors.New("no such file")
	ErrNoSpace            = errors.New("no space")
	ErrNameInvalid        = errors.New("invalid filename")
	ErrDateOutOfRange     = errors.New("date out of range")
	ErrUnsupportedFeature = errors.New("unsupported feature")
)

func errNotFound(name string) error {
	return errors.Wrapf(ErrNotFound, "%s", name)
}
