// Package tiff reads and writes baseline grayscale TIFF files, including
// multi-image stacks, as produced by electron detectors. It is the
// uncompressed side of the terse/prolix tools: a deliberately small
// subset of TIFF, not a general imaging library.
//
// Supported images are single-plane grayscale with 8, 16 or 32 bits per
// sample, unsigned, signed or 32-bit float, stored uncompressed in one or
// more consecutive strips. Both byte orders are accepted on read; written
// files are always little-endian classic TIFF.
package tiff

import (
	"errors"
	"fmt"
)

var (
	// ErrNotTIFF is returned when the stream does not start with a TIFF
	// header.
	ErrNotTIFF = errors.New("tiff: not a TIFF file")

	// ErrUnsupported is returned for TIFF features outside the grayscale
	// baseline subset (compression, color, multiple samples, bit depths
	// and sample formats other than those listed above). Tiled files carry
	// no strip offsets and are reported as ErrCorrupt.
	ErrUnsupported = errors.New("tiff: unsupported feature")

	// ErrCorrupt is returned when offsets or sizes point outside the file.
	ErrCorrupt = errors.New("tiff: corrupt file")
)

// SampleFormat is the TIFF SampleFormat tag value.
type SampleFormat uint16

const (
	Unsigned SampleFormat = 1
	Signed   SampleFormat = 2
	Float    SampleFormat = 3
)

// Frame is one grayscale image. Samples are promoted to int64 regardless
// of the on-disk width: unsigned samples zero-extend, signed samples sign
// extend, and float samples are cast (truncated toward zero) so that any
// frame can be handed to an integer codec.
type Frame struct {
	Dx, Dy  int
	Bits    int // bits per sample on disk: 8, 16 or 32
	Format  SampleFormat
	Samples []int64
}

// NewFrame allocates a frame of the given geometry with zeroed samples.
func NewFrame(dx, dy, bits int, format SampleFormat) *Frame {
	return &Frame{
		Dx:      dx,
		Dy:      dy,
		Bits:    bits,
		Format:  format,
		Samples: make([]int64, dx*dy),
	}
}

func (f *Frame) validate() error {
	if f.Dx <= 0 || f.Dy <= 0 {
		return fmt.Errorf("%w: image is %dx%d", ErrUnsupported, f.Dx, f.Dy)
	}
	switch f.Bits {
	case 8, 16, 32:
	default:
		return fmt.Errorf("%w: %d bits per sample", ErrUnsupported, f.Bits)
	}
	switch f.Format {
	case Unsigned, Signed:
	case Float:
		if f.Bits != 32 {
			return fmt.Errorf("%w: %d-bit float samples", ErrUnsupported, f.Bits)
		}
	default:
		return fmt.Errorf("%w: sample format %d", ErrUnsupported, f.Format)
	}
	if len(f.Samples) != f.Dx*f.Dy {
		return fmt.Errorf("%w: %d samples for a %dx%d image",
			ErrCorrupt, len(f.Samples), f.Dx, f.Dy)
	}
	return nil
}

// Stack is an ordered list of frames sharing one geometry, mirroring a
// multi-image TIFF.
type Stack struct {
	Frames []*Frame
}

// Append adds a frame to the stack. All frames of a stack must share
// dimensions and sample layout.
func (s *Stack) Append(f *Frame) error {
	if err := f.validate(); err != nil {
		return err
	}
	if len(s.Frames) > 0 {
		first := s.Frames[0]
		if f.Dx != first.Dx || f.Dy != first.Dy {
			return fmt.Errorf("%w: frame is %dx%d, stack is %dx%d",
				ErrUnsupported, f.Dx, f.Dy, first.Dx, first.Dy)
		}
		if f.Bits != first.Bits || f.Format != first.Format {
			return fmt.Errorf("%w: mixed sample layouts in one stack", ErrUnsupported)
		}
	}
	s.Frames = append(s.Frames, f)
	return nil
}
