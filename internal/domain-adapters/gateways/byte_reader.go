package gateways

import (
	"encoding/binary"

	"golang.org/x/exp/constraints"
)

// readUint decodes a little-endian unsigned field at off. It returns false
// instead of panicking when the field runs past the end of data.
func readUint[T constraints.Unsigned](data []byte, off int) (T, bool) {
	var v T
	size := binary.Size(v)
	if size <= 0 || off < 0 || off > len(data)-size {
		return v, false
	}
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | T(data[off+i])
	}
	return v, true
}

// slice returns data[off:off+n] or false when out of bounds
func slice(data []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(data) || n > len(data)-off {
		return nil, false
	}
	return data[off : off+n], true
}
