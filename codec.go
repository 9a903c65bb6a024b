package trpx

import (
	"math/bits"

	"golang.org/x/exp/constraints"

	"github.com/emdiffract/trpx/bitstream"
)

const (
	// DefaultBlock is the block size used when the caller does not choose
	// one. Twelve values per block is the sweet spot for diffraction
	// frames: short enough that a single hot pixel only widens twelve
	// fields, long enough that header bits stay negligible.
	DefaultBlock = 12

	// MaxBlock bounds the number of values sharing one block header.
	MaxBlock = 64

	maxFieldBits = 64
)

// significantBits returns the field width needed to store every value of
// one block: the position of the highest bit set across the block for
// unsigned data, one more than the highest magnitude bit for signed data
// (the extra bit is the sign). Zero means the whole block is zero.
//
// The most negative value of a signed type has no positive counterpart, so
// it contributes exactly the full type width rather than overflowing.
func significantBits[T constraints.Integer](vals []T, signed bool, width int) int {
	var set uint64
	if !signed {
		for _, v := range vals {
			set |= uint64(v)
		}
		return bits.Len64(set)
	}

	minVal := int64(-1) << uint(width-1)
	for _, v := range vals {
		x := int64(v)
		switch {
		case x == minVal:
			set |= uint64(1)<<uint(width-1) - 1
		case x < 0:
			set |= uint64(-x)
		default:
			set |= uint64(x)
		}
	}
	if set == 0 {
		return 0
	}
	return bits.Len64(set) + 1
}

// writeBlockHeader emits the escape-coded width declaration for one block.
// The header costs 1 bit when the width repeats the previous block, and 4,
// 6 or 12 bits otherwise depending on how large the width is.
func writeBlockHeader(cur *bitstream.Cursor, s, prev int) {
	switch {
	case s == prev:
		cur.WriteBit(true)
	case s < 7:
		cur.Write(uint64(s)<<1, 4)
	case s < 10:
		cur.Write(uint64(0x07|(s-7)<<3)<<1, 6)
	default:
		cur.Write(uint64(0x1F|(s-10)<<5)<<1, 12)
	}
}

// encodeFrame packs vals into the cursor as a sequence of width-headed
// blocks. The caller byte-aligns the cursor afterwards; frame boundaries
// are always byte boundaries.
func encodeFrame[T constraints.Integer](cur *bitstream.Cursor, vals []T, block int) {
	signed := bitstream.IsSigned[T]()
	width := bitstream.Width[T]()

	prev := 0
	for from := 0; from < len(vals); from += block {
		to := from + block
		if to > len(vals) {
			to = len(vals)
		}
		s := significantBits(vals[from:to], signed, width)
		writeBlockHeader(cur, s, prev)
		prev = s
		if s != 0 {
			bitstream.AppendSeries(cur, vals[from:to], s)
		}
	}
}

// readBlockHeader decodes one block header, updating the running width s.
// Every read is bounded against limit so a truncated payload surfaces as
// ErrCorruptPayload instead of running off the buffer.
func readBlockHeader(cur *bitstream.Cursor, s int, limit int64) (int, error) {
	if cur.Pos() >= limit {
		return 0, ErrCorruptPayload.WithMessage("payload ends before block header")
	}
	if cur.ReadBit() {
		return s, nil
	}
	if cur.Pos()+3 > limit {
		return 0, ErrCorruptPayload.WithMessage("payload ends inside block header")
	}
	s = int(cur.ReadUint(3))
	if s == 7 {
		if cur.Pos()+2 > limit {
			return 0, ErrCorruptPayload.WithMessage("payload ends inside block header")
		}
		s += int(cur.ReadUint(2))
		if s == 10 {
			if cur.Pos()+6 > limit {
				return 0, ErrCorruptPayload.WithMessage("payload ends inside block header")
			}
			s += int(cur.ReadUint(6))
		}
	}
	if s > maxFieldBits {
		return 0, ErrCorruptPayload.WithMessage("block header declares a width above 64 bits")
	}
	return s, nil
}

// decodeFrame unpacks one frame of len(dst) values starting at the cursor,
// leaving the cursor byte-aligned at the start of the next frame.
func decodeFrame[T constraints.Integer](cur *bitstream.Cursor, dst []T, block int, signed bool, limit int64) error {
	s := 0
	for from := 0; from < len(dst); from += block {
		to := from + block
		if to > len(dst) {
			to = len(dst)
		}

		var err error
		if s, err = readBlockHeader(cur, s, limit); err != nil {
			return err
		}

		if s == 0 {
			for i := from; i < to; i++ {
				dst[i] = 0
			}
			continue
		}
		need := int64(to-from) * int64(s)
		if cur.Pos()+need > limit {
			return ErrCorruptPayload.WithMessage("payload ends inside block body")
		}
		bitstream.ExtractSeries(cur, dst[from:to], s, signed)
	}
	cur.AlignToByte()
	return nil
}

// skipFrame walks one frame's headers and bodies without producing values.
// It is how frame byte offsets are discovered on a parsed container, where
// the descriptor records only the payload size.
func skipFrame(cur *bitstream.Cursor, count, block int, limit int64) error {
	s := 0
	for from := 0; from < count; from += block {
		to := from + block
		if to > count {
			to = count
		}

		var err error
		if s, err = readBlockHeader(cur, s, limit); err != nil {
			return err
		}
		if s == 0 {
			continue
		}
		need := int64(to-from) * int64(s)
		if cur.Pos()+need > limit {
			return ErrCorruptPayload.WithMessage("payload ends inside block body")
		}
		cur.Advance(need)
	}
	cur.AlignToByte()
	return nil
}
