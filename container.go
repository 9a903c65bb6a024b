package trpx

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/emdiffract/trpx/bitstream"
	"github.com/emdiffract/trpx/xmlel"
)

// descriptorTag is the element name that prefixes every container.
const descriptorTag = "Terse"

// Container is a single compressed artifact: the encoded parameters plus a
// payload of one or more bit-packed frames. It is created either by packing
// integer data (Pack, AppendFrame) or by parsing a byte stream (Parse), and
// is immutable afterwards except for appending further frames to a
// container built by Pack.
//
// A Container is not safe for concurrent use; independent containers may be
// used from different goroutines freely.
type Container struct {
	prolixBits int
	signed     bool
	block      int
	values     int // per frame
	frames     int
	dims       []int

	words []uint64
	bits  int64 // payload length in bits, byte-aligned after every frame

	// Byte offsets of the frames discovered so far. Offsets are cached as
	// they are found: eagerly while encoding, lazily while decoding.
	offsets []int64
}

// Pack compresses vals into a new single-frame container. The element type
// fixes prolix_bits and signedness of the container. A non-positive block
// selects DefaultBlock.
func Pack[T constraints.Integer](vals []T, block int) (*Container, error) {
	if block <= 0 {
		block = DefaultBlock
	}
	if block > MaxBlock {
		return nil, ErrParameterMismatch.WithMessage(
			fmt.Sprintf("block size %d exceeds the maximum of %d", block, MaxBlock))
	}
	c := &Container{
		prolixBits: bitstream.Width[T](),
		signed:     bitstream.IsSigned[T](),
		block:      block,
		values:     len(vals),
	}
	if err := AppendFrame(c, vals); err != nil {
		return nil, err
	}
	return c, nil
}

// AppendFrame compresses one more frame into the container. The element
// type and value count must match the frames already present.
func AppendFrame[T constraints.Integer](c *Container, vals []T) error {
	if bitstream.Width[T]() != c.prolixBits || bitstream.IsSigned[T]() != c.signed {
		return ErrParameterMismatch.WithMessage(fmt.Sprintf(
			"frame element type is %d-bit signed=%v, container holds %d-bit signed=%v",
			bitstream.Width[T](), bitstream.IsSigned[T](), c.prolixBits, c.signed))
	}
	if c.frames > 0 && len(vals) != c.values {
		return ErrParameterMismatch.WithMessage(fmt.Sprintf(
			"frame has %d values, container frames have %d", len(vals), c.values))
	}

	c.grow(frameBitUpperBound(len(vals), c.prolixBits, c.block))
	cur := bitstream.New(c.words, c.bits)
	encodeFrame(cur, vals, c.block)
	cur.AlignToByte()

	c.offsets = append(c.offsets, c.bits/8)
	c.bits = cur.Pos()
	c.frames++
	return nil
}

// grow makes room for extra bits past the current payload end.
func (c *Container) grow(extra int64) {
	need := int((c.bits+extra)/bitstream.WordBits) + 2
	if need <= len(c.words) {
		return
	}
	words := make([]uint64, need)
	copy(words, c.words)
	c.words = words
}

// frameBitUpperBound bounds the encoded size of one frame: every value at
// full width plus a worst-case 12-bit header per block, plus the trailing
// byte alignment.
func frameBitUpperBound(count, prolixBits, block int) int64 {
	blocks := int64((count + block - 1) / block)
	return int64(count)*int64(prolixBits) + 12*blocks + 8
}

// Unpack decompresses the frame-th frame into dst. The destination element
// type must be at least prolix_bits wide, and signed data cannot be
// unpacked into an unsigned destination; either mismatch returns
// ErrParameterMismatch before anything is written. Unsigned data may be
// unpacked into a signed type of the same width, with the documented
// wrap-to-negative behavior for overflowed values.
func Unpack[T constraints.Integer](c *Container, dst []T, frame int) error {
	if bitstream.Width[T]() < c.prolixBits {
		return ErrParameterMismatch.WithMessage(fmt.Sprintf(
			"%d-bit destination narrower than prolix_bits=%d (use UnpackClamped)",
			bitstream.Width[T](), c.prolixBits))
	}
	return unpack(c, dst, frame)
}

// UnpackClamped is Unpack without the width check: values that do not fit
// the destination type are saturated to its range instead of rejected.
func UnpackClamped[T constraints.Integer](c *Container, dst []T, frame int) error {
	return unpack(c, dst, frame)
}

func unpack[T constraints.Integer](c *Container, dst []T, frame int) error {
	if c.signed && !bitstream.IsSigned[T]() {
		return ErrParameterMismatch.WithMessage(
			"signed data cannot be unpacked into an unsigned destination")
	}
	if frame < 0 || frame >= c.frames {
		return ErrParameterMismatch.WithMessage(fmt.Sprintf(
			"frame index %d outside 0..%d", frame, c.frames-1))
	}
	if len(dst) < c.values {
		return ErrParameterMismatch.WithMessage(fmt.Sprintf(
			"destination holds %d values, frame has %d", len(dst), c.values))
	}
	offset, err := c.frameOffset(frame)
	if err != nil {
		return err
	}
	cur := bitstream.New(c.words, offset*8)
	return decodeFrame(cur, dst[:c.values], c.block, c.signed, c.bits)
}

// frameOffset returns the byte offset of the frame-th frame, extending the
// cached offsets by skip-decoding any frames not yet located.
func (c *Container) frameOffset(frame int) (int64, error) {
	for len(c.offsets) <= frame {
		cur := bitstream.New(c.words, c.offsets[len(c.offsets)-1]*8)
		if err := skipFrame(cur, c.values, c.block, c.bits); err != nil {
			return 0, err
		}
		c.offsets = append(c.offsets, cur.Pos()/8)
	}
	return c.offsets[frame], nil
}

// NumberOfValues returns the number of values in each frame.
func (c *Container) NumberOfValues() int { return c.values }

// NumberOfFrames returns the number of frames in the payload.
func (c *Container) NumberOfFrames() int { return c.frames }

// ProlixBits returns the bit width of the original values.
func (c *Container) ProlixBits() int { return c.prolixBits }

// Signed reports whether the encoded values are signed.
func (c *Container) Signed() bool { return c.signed }

// Block returns the block size the payload was encoded with.
func (c *Container) Block() int { return c.block }

// PayloadSize returns the payload length in bytes (the descriptor's
// memory_size attribute).
func (c *Container) PayloadSize() int64 { return c.bits / 8 }

// SetDimensions records the frame dimensions written to the descriptor.
// One to three dimensions are allowed and their product must equal the
// number of values per frame.
func (c *Container) SetDimensions(dims ...int) error {
	if len(dims) < 1 || len(dims) > 3 {
		return ErrParameterMismatch.WithMessage("dimensions must list 1 to 3 extents")
	}
	product := 1
	for _, d := range dims {
		if d <= 0 {
			return ErrParameterMismatch.WithMessage("dimensions must be positive")
		}
		product *= d
	}
	if product != c.values {
		return ErrParameterMismatch.WithMessage(fmt.Sprintf(
			"dimensions %v describe %d values, frame has %d", dims, product, c.values))
	}
	c.dims = append([]int(nil), dims...)
	return nil
}

// Dimensions returns the declared frame dimensions. When none were
// declared and the value count is a perfect square, a square 2-D shape is
// assumed; otherwise nil is returned.
func (c *Container) Dimensions() []int {
	if c.dims != nil {
		return append([]int(nil), c.dims...)
	}
	for r := 1; r*r <= c.values; r++ {
		if r*r == c.values {
			return []int{r, r}
		}
	}
	return nil
}

// descriptor renders the XML element that prefixes the payload.
func (c *Container) descriptor() *xmlel.Element {
	elem := &xmlel.Element{
		Name: descriptorTag,
		Attrs: []xmlel.Attr{
			{Name: "prolix_bits", Value: strconv.Itoa(c.prolixBits)},
			{Name: "signed", Value: boolAttr(c.signed)},
			{Name: "block", Value: strconv.Itoa(c.block)},
			{Name: "memory_size", Value: strconv.FormatInt(c.bits/8, 10)},
			{Name: "number_of_values", Value: strconv.Itoa(c.values)},
		},
	}
	if c.frames != 1 {
		elem.Attrs = append(elem.Attrs,
			xmlel.Attr{Name: "number_of_frames", Value: strconv.Itoa(c.frames)})
	}
	if c.dims != nil {
		parts := make([]string, len(c.dims))
		for i, d := range c.dims {
			parts[i] = strconv.Itoa(d)
		}
		elem.Attrs = append(elem.Attrs,
			xmlel.Attr{Name: "dimensions", Value: strings.Join(parts, " ")})
	}
	return elem
}

// WriteTo serializes the container: the ASCII descriptor immediately
// followed by the payload octets. The output is identical on every host
// regardless of its byte order. WriteTo implements io.WriterTo.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	header, err := io.WriteString(w, c.descriptor().String())
	if err != nil {
		return int64(header), ErrIOFailed.Wrap(err)
	}
	payload, err := w.Write(bitstream.WordsToBytes(c.words, int(c.bits/8)))
	if err != nil {
		return int64(header + payload), ErrIOFailed.Wrap(err)
	}
	return int64(header + payload), nil
}

// Parse reads a serialized container from r: it scans for the <Terse/>
// descriptor, then reads exactly memory_size payload octets, leaving r
// positioned immediately after the payload.
func Parse(r io.Reader) (*Container, error) {
	elem, err := xmlel.Find(r, descriptorTag)
	if err != nil {
		return nil, ErrMalformedDescriptor.Wrap(err)
	}

	c := &Container{}
	if c.prolixBits, err = intAttr(elem, "prolix_bits", 1, 64); err != nil {
		return nil, err
	}
	signed, err := intAttr(elem, "signed", 0, 1)
	if err != nil {
		return nil, err
	}
	c.signed = signed != 0
	if c.block, err = intAttr(elem, "block", 1, MaxBlock); err != nil {
		return nil, err
	}
	memorySize, err := intAttr(elem, "memory_size", 0, 1<<47)
	if err != nil {
		return nil, err
	}
	if c.values, err = intAttr(elem, "number_of_values", 0, 1<<47); err != nil {
		return nil, err
	}

	// Optional; when the attribute is absent a single frame is implied.
	c.frames = 1
	if _, ok := elem.Lookup("number_of_frames"); ok {
		if c.frames, err = intAttr(elem, "number_of_frames", 1, 1<<47); err != nil {
			return nil, err
		}
	}
	if dims, ok := elem.Lookup("dimensions"); ok {
		if c.dims, err = parseDims(dims); err != nil {
			return nil, err
		}
	}

	payload := make([]byte, memorySize)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorruptPayload.WithMessage(fmt.Sprintf(
				"stream ends before %d payload bytes", memorySize))
		}
		return nil, ErrIOFailed.Wrap(err)
	}
	c.words = bitstream.WordsFromBytes(payload)
	c.bits = int64(memorySize) * 8
	c.offsets = []int64{0}
	return c, nil
}

func boolAttr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// intAttr fetches a mandatory decimal attribute and range-checks it.
func intAttr(elem *xmlel.Element, name string, lo, hi int64) (int, error) {
	raw, ok := elem.Lookup(name)
	if !ok {
		return 0, ErrMalformedDescriptor.WithMessage("missing attribute " + name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrMalformedDescriptor.WithMessage(fmt.Sprintf(
			"attribute %s=%q is not an integer", name, raw))
	}
	if v < lo || v > hi {
		return 0, ErrMalformedDescriptor.WithMessage(fmt.Sprintf(
			"attribute %s=%d outside %d..%d", name, v, lo, hi))
	}
	return int(v), nil
}

func parseDims(raw string) ([]int, error) {
	fields := strings.Fields(raw)
	if len(fields) < 1 || len(fields) > 3 {
		return nil, ErrMalformedDescriptor.WithMessage(
			fmt.Sprintf("dimensions %q must list 1 to 3 extents", raw))
	}
	dims := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil || v <= 0 {
			return nil, ErrMalformedDescriptor.WithMessage(
				fmt.Sprintf("dimensions %q contain a non-positive extent", raw))
		}
		dims[i] = int(v)
	}
	return dims, nil
}
