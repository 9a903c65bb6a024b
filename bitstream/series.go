package bitstream

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Width returns the number of bits in the representation of T. Left
// shifts discard high bits, so walking a single set bit off the top
// counts the width for signed and unsigned types alike.
func Width[T constraints.Integer]() int {
	n := 0
	for v := T(1); v != 0; v <<= 1 {
		n++
	}
	return n
}

// IsSigned reports whether T is a signed integer type.
func IsSigned[T constraints.Integer]() bool {
	return ^T(0) < T(0)
}

// AppendSeries writes each value as an n-bit field, in order. Signed values
// are stored as two's complement truncated to n bits, so a value only
// survives the round trip if it is representable in n bits; the encoder
// guarantees that by choosing n per block.
func AppendSeries[T constraints.Integer](c *Cursor, vals []T, n int) {
	for _, v := range vals {
		c.Write(uint64(v), n)
	}
}

// ExtractSeries reads len(dst) n-bit fields into dst, sign extending each
// field when signed. If T is narrower than n bits, values outside T's range
// are clamped to the nearest representable value instead of wrapping.
func ExtractSeries[T constraints.Integer](c *Cursor, dst []T, n int, signed bool) {
	w := Width[T]()
	if n <= w {
		// Every field fits; a plain conversion preserves the value. The one
		// deliberate exception is an unsigned field of exactly w bits read
		// into a signed T, which keeps the source's wrap-to-negative
		// behavior (an overflowed unsigned pixel reads back as -1).
		for i := range dst {
			dst[i] = T(c.Read(n, signed))
		}
		return
	}
	if signed {
		lo := int64(-1) << uint(w-1)
		hi := int64(1)<<uint(w-1) - 1
		for i := range dst {
			v := c.Read(n, true)
			if v < lo {
				v = lo
			} else if v > hi {
				v = hi
			}
			dst[i] = T(v)
		}
		return
	}
	hi := uint64(math.MaxUint64)
	if IsSigned[T]() {
		hi = uint64(1)<<uint(w-1) - 1
	} else if w < WordBits {
		hi = uint64(1)<<uint(w) - 1
	}
	for i := range dst {
		v := c.ReadUint(n)
		if v > hi {
			v = hi
		}
		dst[i] = T(v)
	}
}
