package block

import "github.com/pkg/errors"

const oneMiB = 1024 * 1024

// Open inspects a container file's bytes and returns the fully-assembled
// logical BlockDevice: the container codec wrapped in the right physical/
// logical mapping, keyed on the file's magic number and length.
func Open(data []byte) (BlockDevice, error) {
	if len(data) >= 3 && string(data[:3]) == "IMD" {
		imd, err := FromBytes(data)
		if err != nil {
			return nil, errors.Wrap(err, "parsing IMD")
		}
		if imd.Geometry().TotalBytes() < oneMiB {
			return NewRX(imd), nil
		}
		return NewFlat(imd), nil
	}

	switch {
	case len(data) == RX01Geometry.TotalBytes():
		return NewRX(NewIMG(data, RX01Geometry)), nil
	case len(data) == RX02Geometry.TotalBytes():
		return NewRX(NewIMG(data, RX02Geometry)), nil
	case len(data) >= oneMiB:
		g := Geometry{Cylinders: 1, Heads: 1, Sectors: len(data) / 512, SectorSize: 512}
		return NewFlat(NewIMG(data, g)), nil
	default:
		return nil, errors.New("Unknown image type")
	}
}
