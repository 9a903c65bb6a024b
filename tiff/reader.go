package tiff

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// TIFF tags the baseline grayscale subset cares about.
const (
	tagImageWidth      = 0x0100
	tagImageLength     = 0x0101
	tagBitsPerSample   = 0x0102
	tagCompression     = 0x0103
	tagPhotometric     = 0x0106
	tagStripOffsets    = 0x0111
	tagSamplesPerPixel = 0x0115
	tagRowsPerStrip    = 0x0116
	tagStripByteCounts = 0x0117
	tagSampleFormat    = 0x0153
)

// IFD entry field types.
const (
	typeByte  = 1
	typeShort = 3
	typeLong  = 4
)

// ReadStack parses a grayscale TIFF, following the IFD chain so that a
// multi-image file yields one frame per image. The whole stream is read
// into memory first; detector frames are small compared to the machines
// that process them.
func ReadStack(r io.Reader) (*Stack, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tiff: reading stream: %w", err)
	}
	if len(data) < 8 {
		return nil, ErrNotTIFF
	}

	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, ErrNotTIFF
	}
	if order.Uint16(data[2:]) != 42 {
		return nil, ErrNotTIFF
	}

	stack := &Stack{}
	next := int64(order.Uint32(data[4:]))
	for next != 0 {
		frame, nextIFD, err := readIFD(data, order, next)
		if err != nil {
			return nil, err
		}
		if err := stack.Append(frame); err != nil {
			return nil, err
		}
		next = nextIFD
	}
	if len(stack.Frames) == 0 {
		return nil, fmt.Errorf("%w: no image directory", ErrCorrupt)
	}
	return stack, nil
}

// ifdEntry is one 12-byte directory entry.
type ifdEntry struct {
	tag       uint16
	fieldType uint16
	count     uint32
	raw       []byte // the 4 value/offset bytes
}

// values expands the entry into its integer values, following the offset
// indirection when they do not fit inline.
func (e *ifdEntry) values(data []byte, order binary.ByteOrder) ([]uint32, error) {
	var size int
	switch e.fieldType {
	case typeByte:
		size = 1
	case typeShort:
		size = 2
	case typeLong:
		size = 4
	default:
		// Rational and other exotic types never carry the fields this
		// reader needs; return no values so callers skip the tag.
		return nil, nil
	}

	total := size * int(e.count)
	src := e.raw
	if total > 4 {
		offset := int64(order.Uint32(e.raw))
		if offset < 0 || offset+int64(total) > int64(len(data)) {
			return nil, fmt.Errorf("%w: tag 0x%04x values outside file", ErrCorrupt, e.tag)
		}
		src = data[offset:]
	}

	out := make([]uint32, e.count)
	for i := range out {
		switch size {
		case 1:
			out[i] = uint32(src[i])
		case 2:
			out[i] = uint32(order.Uint16(src[2*i:]))
		case 4:
			out[i] = order.Uint32(src[4*i:])
		}
	}
	return out, nil
}

// readIFD parses one image directory and its pixel data.
func readIFD(data []byte, order binary.ByteOrder, offset int64) (*Frame, int64, error) {
	if offset < 0 || offset+2 > int64(len(data)) {
		return nil, 0, fmt.Errorf("%w: directory offset outside file", ErrCorrupt)
	}
	entryCount := int(order.Uint16(data[offset:]))
	end := offset + 2 + int64(entryCount)*12
	if end+4 > int64(len(data)) {
		return nil, 0, fmt.Errorf("%w: directory overruns file", ErrCorrupt)
	}

	frame := &Frame{Bits: 8, Format: Unsigned} // TIFF defaults
	var stripOffsets, stripCounts []uint32

	for i := 0; i < entryCount; i++ {
		at := offset + 2 + int64(i)*12
		entry := ifdEntry{
			tag:       order.Uint16(data[at:]),
			fieldType: order.Uint16(data[at+2:]),
			count:     order.Uint32(data[at+4:]),
			raw:       data[at+8 : at+12],
		}

		switch entry.tag {
		case tagImageWidth, tagImageLength, tagBitsPerSample, tagCompression,
			tagPhotometric, tagSamplesPerPixel, tagSampleFormat,
			tagStripOffsets, tagStripByteCounts:
		default:
			continue
		}

		vals, err := entry.values(data, order)
		if err != nil {
			return nil, 0, err
		}
		if len(vals) == 0 {
			continue
		}
		v := vals[0]

		switch entry.tag {
		case tagImageWidth:
			frame.Dx = int(v)
		case tagImageLength:
			frame.Dy = int(v)
		case tagBitsPerSample:
			frame.Bits = int(v)
		case tagCompression:
			if v != 1 {
				return nil, 0, fmt.Errorf("%w: compression scheme %d", ErrUnsupported, v)
			}
		case tagPhotometric:
			if v > 1 {
				return nil, 0, fmt.Errorf("%w: photometric interpretation %d", ErrUnsupported, v)
			}
		case tagSamplesPerPixel:
			if v != 1 {
				return nil, 0, fmt.Errorf("%w: %d samples per pixel", ErrUnsupported, v)
			}
		case tagSampleFormat:
			frame.Format = SampleFormat(v)
		case tagStripOffsets:
			stripOffsets = vals
		case tagStripByteCounts:
			stripCounts = vals
		}
	}

	if frame.Dx <= 0 || frame.Dy <= 0 || len(stripOffsets) == 0 {
		return nil, 0, fmt.Errorf("%w: directory lacks geometry or strip data", ErrCorrupt)
	}
	if len(stripCounts) != len(stripOffsets) {
		return nil, 0, fmt.Errorf("%w: %d strip offsets but %d byte counts",
			ErrCorrupt, len(stripOffsets), len(stripCounts))
	}
	// Multiple strips are fine as long as they are consecutive, in which
	// case they are equivalent to the single strip the writer produces.
	for i := 0; i < len(stripOffsets)-1; i++ {
		if stripOffsets[i]+stripCounts[i] != stripOffsets[i+1] {
			return nil, 0, fmt.Errorf("%w: non-consecutive strips", ErrUnsupported)
		}
	}

	pixelStart := int64(stripOffsets[0])
	var pixelLen int64
	for _, c := range stripCounts {
		pixelLen += int64(c)
	}
	if pixelStart < 0 || pixelStart+pixelLen > int64(len(data)) {
		return nil, 0, fmt.Errorf("%w: pixel data outside file", ErrCorrupt)
	}
	if want := int64(frame.Dx) * int64(frame.Dy) * int64(frame.Bits/8); pixelLen < want {
		return nil, 0, fmt.Errorf("%w: %d pixel bytes for a %dx%d %d-bit image",
			ErrCorrupt, pixelLen, frame.Dx, frame.Dy, frame.Bits)
	}

	if err := promoteSamples(frame, data[pixelStart:pixelStart+pixelLen], order); err != nil {
		return nil, 0, err
	}
	return frame, int64(order.Uint32(data[end:])), nil
}

// promoteSamples decodes the raw strip bytes into the frame's int64
// samples according to width, signedness and byte order.
func promoteSamples(frame *Frame, raw []byte, order binary.ByteOrder) error {
	if err := checkLayout(frame); err != nil {
		return err
	}
	n := frame.Dx * frame.Dy
	frame.Samples = make([]int64, n)

	switch {
	case frame.Bits == 8 && frame.Format == Unsigned:
		for i := 0; i < n; i++ {
			frame.Samples[i] = int64(raw[i])
		}
	case frame.Bits == 8 && frame.Format == Signed:
		for i := 0; i < n; i++ {
			frame.Samples[i] = int64(int8(raw[i]))
		}
	case frame.Bits == 16 && frame.Format == Unsigned:
		for i := 0; i < n; i++ {
			frame.Samples[i] = int64(order.Uint16(raw[2*i:]))
		}
	case frame.Bits == 16 && frame.Format == Signed:
		for i := 0; i < n; i++ {
			frame.Samples[i] = int64(int16(order.Uint16(raw[2*i:])))
		}
	case frame.Bits == 32 && frame.Format == Unsigned:
		for i := 0; i < n; i++ {
			frame.Samples[i] = int64(order.Uint32(raw[4*i:]))
		}
	case frame.Bits == 32 && frame.Format == Signed:
		for i := 0; i < n; i++ {
			frame.Samples[i] = int64(int32(order.Uint32(raw[4*i:])))
		}
	case frame.Bits == 32 && frame.Format == Float:
		for i := 0; i < n; i++ {
			frame.Samples[i] = int64(math.Float32frombits(order.Uint32(raw[4*i:])))
		}
	}
	return nil
}

func checkLayout(frame *Frame) error {
	switch frame.Bits {
	case 8, 16, 32:
	default:
		return fmt.Errorf("%w: %d bits per sample", ErrUnsupported, frame.Bits)
	}
	switch frame.Format {
	case Unsigned, Signed:
	case Float:
		if frame.Bits != 32 {
			return fmt.Errorf("%w: %d-bit float samples", ErrUnsupported, frame.Bits)
		}
	default:
		return fmt.Errorf("%w: sample format %d", ErrUnsupported, frame.Format)
	}
	return nil
}
