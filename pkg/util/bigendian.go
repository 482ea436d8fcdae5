package util

import "math/bits"

type Integer interface {
	~int | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// PutBE 按 len(b) 的字节宽度以大端序写入 num
func PutBE[T Integer](b []byte, num T) []byte {
	for i, n := 0, len(b); i < n; i++ {
		b[i] = byte(num >> ((n - i - 1) << 3))
	}
	return b
}

// ReadBE 按 len(b) 的字节宽度读取大端序整数，高位补零
func ReadBE[T Integer](b []byte) (num T) {
	for i, n := 0, len(b); i < n; i++ {
		num += T(b[i]) << ((n - i - 1) << 3)
	}
	return
}

// FitsBE reports whether num can be stored in width bytes without truncation.
func FitsBE(num uint64, width int) bool {
	if width >= 8 {
		return true
	}
	return bits.Len64(num) <= width*8
}

func Conditional[T any](cond bool, t, f T) T {
	if cond {
		return t
	}
	return f
}
