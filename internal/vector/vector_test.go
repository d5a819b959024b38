package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}

	blob := Encode(in)
	assert.Len(t, blob, 16)

	out, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeRejectsTruncatedBlob(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeEmpty(t *testing.T) {
	out, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestToFloat64(t *testing.T) {
	assert.Equal(t, []float64{1, -0.5}, ToFloat64([]float32{1, -0.5}))
}
