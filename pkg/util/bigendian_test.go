package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutReadBE(t *testing.T) {
	for _, tc := range []struct {
		width int
		value uint32
		want  []byte
	}{
		{1, 0xAB, []byte{0xAB}},
		{2, 0x0102, []byte{0x01, 0x02}},
		{3, 0x010203, []byte{0x01, 0x02, 0x03}},
		{4, 0xDEADBEEF, []byte{0xDE, 0xAD, 0xBE, 0xEF}},
	} {
		buf := PutBE(make([]byte, tc.width), tc.value)
		assert.Equal(t, tc.want, buf)
		assert.Equal(t, tc.value, ReadBE[uint32](buf))
	}
	assert.Equal(t, uint64(1)<<40, ReadBE[uint64](PutBE(make([]byte, 8), uint64(1)<<40)))
}

func TestFitsBE(t *testing.T) {
	assert.True(t, FitsBE(0, 1))
	assert.True(t, FitsBE(255, 1))
	assert.False(t, FitsBE(256, 1))
	assert.True(t, FitsBE(1<<24-1, 3))
	assert.False(t, FitsBE(1<<24, 3))
	assert.False(t, FitsBE(1<<32, 4))
	assert.True(t, FitsBE(^uint64(0), 8))
}
