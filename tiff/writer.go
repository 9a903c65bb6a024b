package tiff

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ifdEntryCount is the fixed number of tags each written directory
// carries; ifdSize is its byte length: entry count word, the entries, and
// the next-directory pointer.
const (
	ifdEntryCount = 10
	ifdSize       = 2 + ifdEntryCount*12 + 4
)

// WriteTo serializes the stack as a little-endian classic TIFF with one
// uncompressed single-strip image per frame. WriteTo implements
// io.WriterTo.
func (s *Stack) WriteTo(w io.Writer) (int64, error) {
	if len(s.Frames) == 0 {
		return 0, fmt.Errorf("%w: empty stack", ErrUnsupported)
	}
	for _, f := range s.Frames {
		if err := f.validate(); err != nil {
			return 0, err
		}
	}

	le := binary.LittleEndian

	// Each frame is laid out as pixel data followed by its directory, so
	// every offset is known before a byte is written.
	offset := int64(8)
	dataAt := make([]int64, len(s.Frames))
	ifdAt := make([]int64, len(s.Frames))
	for i, f := range s.Frames {
		dataAt[i] = offset
		offset += int64(len(f.Samples)) * int64(f.Bits/8)
		ifdAt[i] = offset
		offset += ifdSize
	}

	buf := make([]byte, offset)
	buf[0], buf[1] = 'I', 'I'
	le.PutUint16(buf[2:], 42)
	le.PutUint32(buf[4:], uint32(ifdAt[0]))

	for i, f := range s.Frames {
		narrowSamples(buf[dataAt[i]:], f)
		next := int64(0)
		if i+1 < len(s.Frames) {
			next = ifdAt[i+1]
		}
		writeIFD(buf[ifdAt[i]:], f, dataAt[i], next)
	}

	n, err := w.Write(buf)
	return int64(n), err
}

// writeIFD renders one directory into dst.
func writeIFD(dst []byte, f *Frame, dataOffset, next int64) {
	le := binary.LittleEndian
	le.PutUint16(dst, ifdEntryCount)

	byteCount := uint32(len(f.Samples) * (f.Bits / 8))
	entries := [ifdEntryCount][3]uint32{
		// tag, field type, value
		{tagImageWidth, typeShort, uint32(f.Dx)},
		{tagImageLength, typeShort, uint32(f.Dy)},
		{tagBitsPerSample, typeShort, uint32(f.Bits)},
		{tagCompression, typeShort, 1},
		{tagPhotometric, typeShort, 1},
		{tagStripOffsets, typeLong, uint32(dataOffset)},
		{tagSamplesPerPixel, typeShort, 1},
		{tagRowsPerStrip, typeShort, uint32(f.Dy)},
		{tagStripByteCounts, typeLong, byteCount},
		{tagSampleFormat, typeShort, uint32(f.Format)},
	}

	at := 2
	for _, e := range entries {
		le.PutUint16(dst[at:], uint16(e[0]))
		le.PutUint16(dst[at+2:], uint16(e[1]))
		le.PutUint32(dst[at+4:], 1)
		if e[1] == typeShort {
			le.PutUint16(dst[at+8:], uint16(e[2]))
		} else {
			le.PutUint32(dst[at+8:], e[2])
		}
		at += 12
	}
	le.PutUint32(dst[at:], uint32(next))
}

// narrowSamples converts the promoted samples back to their on-disk width.
// Values are truncated, not clamped; frames decoded from a container are
// guaranteed to fit their declared width.
func narrowSamples(dst []byte, f *Frame) {
	le := binary.LittleEndian
	switch {
	case f.Bits == 8:
		for i, v := range f.Samples {
			dst[i] = byte(v)
		}
	case f.Bits == 16:
		for i, v := range f.Samples {
			le.PutUint16(dst[2*i:], uint16(v))
		}
	case f.Bits == 32 && f.Format == Float:
		for i, v := range f.Samples {
			le.PutUint32(dst[4*i:], math.Float32bits(float32(v)))
		}
	case f.Bits == 32:
		for i, v := range f.Samples {
			le.PutUint32(dst[4*i:], uint32(v))
		}
	}
}
