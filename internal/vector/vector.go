// Package vector converts embeddings to and from the little-endian float32
// blobs stored in the tweets.embedding column.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode packs v as consecutive little-endian float32 values.
func Encode(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v[i]))
	}

	return b
}

// Decode unpacks a blob produced by Encode.
func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("in internal/vector/vector.go/Decode(): blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}

	return v, nil
}

// ToFloat64 widens v for numeric code working in float64.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}

	return out
}
