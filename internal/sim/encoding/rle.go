// Package encoding packs the terrain layer for the observer bootstrap.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrCellCount = errors.New("encoding: decoded cell count mismatch")

// EncodeTerrain run-length encodes row-major terrain codes. The output is
// base64 over uvarint (code, run) pairs.
func EncodeTerrain(codes []uint8) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	put := func(v uint64) {
		n := binary.PutUvarint(tmp[:], v)
		buf.Write(tmp[:n])
	}

	for i := 0; i < len(codes); {
		j := i + 1
		for j < len(codes) && codes[j] == codes[i] {
			j++
		}
		put(uint64(codes[i]))
		put(uint64(j - i))
		i = j
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeTerrain reverses EncodeTerrain. cells is the expected cell count
// (width*height); a stream that expands to any other length is rejected.
func DecodeTerrain(s string, cells int) ([]uint8, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("terrain: %w", err)
	}
	out := make([]uint8, 0, cells)
	for i := 0; i < len(raw); {
		code, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("terrain: bad code at byte %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("terrain: bad run at byte %d", i)
		}
		i += n
		if code > 0xFF {
			return nil, fmt.Errorf("terrain: code %d out of range", code)
		}
		if run > uint64(cells-len(out)) {
			return nil, ErrCellCount
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint8(code))
		}
	}
	if len(out) != cells {
		return nil, ErrCellCount
	}
	return out, nil
}
