// Package testing provides helpers for tests that need realistic detector
// frames and serialized stacks.
package testing

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/emdiffract/trpx/tiff"
)

// SyntheticFrame builds a detector-like 16-bit frame: overwhelmingly
// small counts with a scattering of bright reflections. The content is
// deterministic per seed so tests can assert on exact round trips.
func SyntheticFrame(dx, dy int, seed uint64) *tiff.Frame {
	frame := tiff.NewFrame(dx, dy, 16, tiff.Unsigned)
	state := seed*2654435761 + 0x9E3779B97F4A7C15
	next := func() uint64 {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		return state
	}
	for i := range frame.Samples {
		r := next()
		switch {
		case r%100 < 93:
			frame.Samples[i] = int64(r % 3)
		case r%100 < 99:
			frame.Samples[i] = int64(r % 512)
		default:
			frame.Samples[i] = int64(r % 65536)
		}
	}
	return frame
}

// SerializeStack writes the stack to memory and returns a fixed-size
// read/write seeker over the bytes, which is how the command line tools
// see a file on disk.
func SerializeStack(t *testing.T, s *tiff.Stack) io.ReadWriteSeeker {
	t.Helper()

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	require.Greater(t, buf.Len(), 8, "serialized stack is implausibly small")

	raw := make([]byte, buf.Len())
	copy(raw, buf.Bytes())
	return bytesextra.NewReadWriteSeeker(raw)
}
