package trpx_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	trpx "github.com/emdiffract/trpx"
)

func TestSerializedFormIsExact(t *testing.T) {
	vals := []int16{-1, -1, -1, -1, -1, -1, -1, -1}
	c, err := trpx.Pack(vals, 8)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, buf.Len(), n)

	want := `<Terse prolix_bits="16" signed="1" block="8" memory_size="3" number_of_values="8"/>` +
		string([]byte{0xF4, 0xFF, 0x0F})
	assert.Equal(t, want, buf.String())
}

func TestWriteToReportsSinkErrors(t *testing.T) {
	vals := make([]uint16, 64)
	for i := range vals {
		vals[i] = uint16(i * 3)
	}
	c, err := trpx.Pack(vals, 8)
	require.NoError(t, err)

	// A sink with room for only part of the output must surface an
	// ErrIOFailed, not a silent truncation.
	small := make([]byte, 10)
	_, err = c.WriteTo(bytewriter.New(small))
	assert.ErrorIs(t, err, trpx.ErrIOFailed)

	// A sink of exactly the right size succeeds.
	var sized bytes.Buffer
	n, err := c.WriteTo(&sized)
	require.NoError(t, err)
	exact := make([]byte, n)
	m, err := c.WriteTo(bytewriter.New(exact))
	require.NoError(t, err)
	assert.Equal(t, n, m)
	assert.Equal(t, sized.Bytes(), exact)
}

func TestParseAcceptsAnyAttributeOrder(t *testing.T) {
	payload := string([]byte{0xF4, 0xFF, 0x0F})
	doc := `
	<Terse number_of_values="8" memory_size="3"
	       block="8" signed="1" prolix_bits="16"/>` + payload

	c, err := trpx.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	got := make([]int16, 8)
	require.NoError(t, trpx.Unpack(c, got, 0))
	assert.Equal(t, []int16{-1, -1, -1, -1, -1, -1, -1, -1}, got)
}

func TestParseLegacySingleFrame(t *testing.T) {
	// Legacy .trs descriptors carry no number_of_frames; one frame is
	// implied.
	vals := make([]uint16, 64)
	vals[0] = 9
	c, err := trpx.Pack(vals, 8)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = c.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "number_of_frames")

	parsed, err := trpx.Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, parsed.NumberOfFrames())
}

func TestTwoFrameContainer(t *testing.T) {
	frame0 := make([]uint16, 16)
	frame1 := make([]uint16, 16)
	for i := range frame0 {
		frame0[i] = uint16(i)
		frame1[i] = uint16(1000 + i*i)
	}

	c, err := trpx.Pack(frame0, 8)
	require.NoError(t, err)
	require.NoError(t, trpx.AppendFrame(c, frame1))
	require.NoError(t, c.SetDimensions(4, 4))

	var buf bytes.Buffer
	_, err = c.WriteTo(&buf)
	require.NoError(t, err)
	header := buf.String()[:bytes.Index(buf.Bytes(), []byte("/>"))+2]
	assert.Contains(t, header, `number_of_frames="2"`)
	assert.Contains(t, header, `dimensions="4 4"`)

	parsed, err := trpx.Parse(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, parsed.NumberOfFrames())
	assert.Equal(t, []int{4, 4}, parsed.Dimensions())

	// Frame 1 first: the decoder locates it by skipping frame 0 to its
	// byte-aligned boundary.
	got := make([]uint16, 16)
	require.NoError(t, trpx.Unpack(parsed, got, 1))
	assert.Equal(t, frame1, got)
	require.NoError(t, trpx.Unpack(parsed, got, 0))
	assert.Equal(t, frame0, got)
}

func TestManyFramesRoundTrip(t *testing.T) {
	const frames = 5
	c, err := trpx.Pack(frameData(0), trpx.DefaultBlock)
	require.NoError(t, err)
	for i := 1; i < frames; i++ {
		require.NoError(t, trpx.AppendFrame(c, frameData(i)))
	}
	require.Equal(t, frames, c.NumberOfFrames())

	var buf bytes.Buffer
	_, err = c.WriteTo(&buf)
	require.NoError(t, err)
	parsed, err := trpx.Parse(&buf)
	require.NoError(t, err)

	for i := frames - 1; i >= 0; i-- {
		got := make([]uint32, 100)
		require.NoError(t, trpx.Unpack(parsed, got, i))
		assert.Equal(t, frameData(i), got, "frame %d", i)
	}
}

func frameData(seed int) []uint32 {
	vals := make([]uint32, 100)
	for i := range vals {
		vals[i] = uint32(seed*seed*1000 + i*seed)
	}
	return vals
}

func TestFrameBoundariesAreByteAligned(t *testing.T) {
	// Frame sizes must advance by whole bytes even when the packed bits
	// of a frame end mid-byte.
	vals := []uint8{1, 1, 1} // 4-bit header + 3 bits: 7 bits, ending mid-byte
	c, err := trpx.Pack(vals, 8)
	require.NoError(t, err)
	require.EqualValues(t, 1, c.PayloadSize())

	require.NoError(t, trpx.AppendFrame(c, vals))
	assert.EqualValues(t, 2, c.PayloadSize())
}

func TestAppendFrameMismatches(t *testing.T) {
	c, err := trpx.Pack([]uint16{1, 2, 3, 4}, 4)
	require.NoError(t, err)

	assert.ErrorIs(t, trpx.AppendFrame(c, []uint16{1, 2}), trpx.ErrParameterMismatch)
	assert.ErrorIs(t, trpx.AppendFrame(c, []uint32{1, 2, 3, 4}), trpx.ErrParameterMismatch)
	assert.ErrorIs(t, trpx.AppendFrame(c, []int16{1, 2, 3, 4}), trpx.ErrParameterMismatch)
}

func TestUnpackContractChecks(t *testing.T) {
	signed, err := trpx.Pack([]int16{-3, 7, 0, 2}, 4)
	require.NoError(t, err)
	unsigned, err := trpx.Pack([]uint16{3, 7, 0, 2}, 4)
	require.NoError(t, err)

	t.Run("signed into unsigned is rejected", func(t *testing.T) {
		dst := []uint16{99, 99, 99, 99}
		err := trpx.Unpack(signed, dst, 0)
		assert.ErrorIs(t, err, trpx.ErrParameterMismatch)
		assert.Equal(t, []uint16{99, 99, 99, 99}, dst, "destination must be untouched")
	})
	t.Run("signed into unsigned clamped is still rejected", func(t *testing.T) {
		dst := make([]uint16, 4)
		assert.ErrorIs(t, trpx.UnpackClamped(signed, dst, 0), trpx.ErrParameterMismatch)
	})
	t.Run("narrow destination is rejected", func(t *testing.T) {
		dst := make([]uint8, 4)
		assert.ErrorIs(t, trpx.Unpack(unsigned, dst, 0), trpx.ErrParameterMismatch)
	})
	t.Run("unsigned into wider signed is allowed", func(t *testing.T) {
		dst := make([]int32, 4)
		require.NoError(t, trpx.Unpack(unsigned, dst, 0))
		assert.Equal(t, []int32{3, 7, 0, 2}, dst)
	})
	t.Run("short destination is rejected", func(t *testing.T) {
		dst := make([]uint16, 2)
		assert.ErrorIs(t, trpx.Unpack(unsigned, dst, 0), trpx.ErrParameterMismatch)
	})
	t.Run("frame index out of range", func(t *testing.T) {
		dst := make([]uint16, 4)
		assert.ErrorIs(t, trpx.Unpack(unsigned, dst, 1), trpx.ErrParameterMismatch)
		assert.ErrorIs(t, trpx.Unpack(unsigned, dst, -1), trpx.ErrParameterMismatch)
	})
}

func TestUnpackClampedSaturates(t *testing.T) {
	c, err := trpx.Pack([]uint16{1, 255, 256, 40000}, 4)
	require.NoError(t, err)

	dst := make([]uint8, 4)
	require.NoError(t, trpx.UnpackClamped(c, dst, 0))
	assert.Equal(t, []uint8{1, 255, 255, 255}, dst)
}

func TestSetDimensionsValidation(t *testing.T) {
	c, err := trpx.Pack(make([]uint16, 12), 8)
	require.NoError(t, err)

	assert.ErrorIs(t, c.SetDimensions(), trpx.ErrParameterMismatch)
	assert.ErrorIs(t, c.SetDimensions(1, 2, 3, 4), trpx.ErrParameterMismatch)
	assert.ErrorIs(t, c.SetDimensions(5, 5), trpx.ErrParameterMismatch)
	assert.ErrorIs(t, c.SetDimensions(-3, -4), trpx.ErrParameterMismatch)
	assert.NoError(t, c.SetDimensions(3, 4))
	assert.Equal(t, []int{3, 4}, c.Dimensions())

	assert.NoError(t, c.SetDimensions(2, 3, 2))
	assert.Equal(t, []int{2, 3, 2}, c.Dimensions())
}

func TestDimensionsSquareInference(t *testing.T) {
	square, err := trpx.Pack(make([]uint16, 16), 8)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, square.Dimensions())

	oblong, err := trpx.Pack(make([]uint16, 12), 8)
	require.NoError(t, err)
	assert.Nil(t, oblong.Dimensions())
}

func TestParseMalformedDescriptors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no element", `plain text, no tags`},
		{"wrong element", `<NotTerse prolix_bits="16"/>`},
		{"missing prolix_bits", `<Terse signed="0" block="8" memory_size="0" number_of_values="0"/>`},
		{"missing memory_size", `<Terse prolix_bits="16" signed="0" block="8" number_of_values="0"/>`},
		{"non-integer attribute", `<Terse prolix_bits="many" signed="0" block="8" memory_size="0" number_of_values="0"/>`},
		{"prolix_bits out of range", `<Terse prolix_bits="65" signed="0" block="8" memory_size="0" number_of_values="0"/>`},
		{"block out of range", `<Terse prolix_bits="16" signed="0" block="65" memory_size="0" number_of_values="0"/>`},
		{"signed out of range", `<Terse prolix_bits="16" signed="2" block="8" memory_size="0" number_of_values="0"/>`},
		{"too many dimensions", `<Terse prolix_bits="16" signed="0" block="8" memory_size="0" number_of_values="0" dimensions="1 2 3 4"/>`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := trpx.Parse(strings.NewReader(test.doc))
			assert.ErrorIs(t, err, trpx.ErrMalformedDescriptor)
		})
	}
}

func TestParseTruncatedPayload(t *testing.T) {
	doc := `<Terse prolix_bits="16" signed="0" block="8" memory_size="10" number_of_values="8"/>` +
		"abc"
	_, err := trpx.Parse(strings.NewReader(doc))
	assert.ErrorIs(t, err, trpx.ErrCorruptPayload)
}

func TestParseSkipsLeadingWhitespace(t *testing.T) {
	doc := "\n\n   \t " +
		`<Terse prolix_bits="8" signed="0" block="8" memory_size="0" number_of_values="0"/>`
	_, err := trpx.Parse(strings.NewReader(doc))
	assert.NoError(t, err)
}

func TestFloatRoundTrip(t *testing.T) {
	vals := []float64{0, 1, -1, 1000.7, -1000.7, 4.9e6}
	c, err := trpx.PackFloats(vals, 4)
	require.NoError(t, err)
	assert.Equal(t, 64, c.ProlixBits())
	assert.True(t, c.Signed())

	got := make([]float64, len(vals))
	require.NoError(t, trpx.UnpackFloats(c, got, 0))
	assert.Equal(t, []float64{0, 1, -1, 1000, -1000, 4.9e6}, got)
}

func TestUnpackFloatsFromUnsigned(t *testing.T) {
	c, err := trpx.Pack([]uint16{0, 40000, 65535}, 4)
	require.NoError(t, err)

	got := make([]float64, 3)
	require.NoError(t, trpx.UnpackFloats(c, got, 0))
	assert.Equal(t, []float64{0, 40000, 65535}, got)
}
