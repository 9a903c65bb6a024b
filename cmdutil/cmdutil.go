// Package cmdutil carries the file-level plumbing shared by the terse and
// prolix command line tools: recognizing inputs, converting between TIFF
// stacks and TRPX containers, and producing compression reports.
package cmdutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/constraints"

	trpx "github.com/emdiffract/trpx"
	"github.com/emdiffract/trpx/tiff"
)

// Options controls how files are processed.
type Options struct {
	// Block is the codec block size; zero selects trpx.DefaultBlock.
	Block int

	// KeepSource suppresses the removal of the input file on success.
	KeepSource bool
}

// IsTIFFPath reports whether path has a TIFF extension the terse tool
// recognizes.
func IsTIFFPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return true
	}
	return false
}

// IsTersePath reports whether path has a container extension the prolix
// tool recognizes. The extension is advisory; the descriptor inside the
// file is authoritative.
func IsTersePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".trpx", ".trs":
		return true
	}
	return false
}

// CompressFile compresses one TIFF file to a .trpx container next to it,
// removing the source on success. Files that are not regular files with a
// TIFF extension are skipped with a nil Report and nil error.
func CompressFile(path string, opts Options) (*Report, error) {
	if !IsTIFFPath(path) || !isRegularFile(path) {
		return nil, nil
	}

	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stack, err := tiff.ReadStack(in)
	in.Close()
	if err != nil {
		return nil, err
	}

	container, err := ContainerFromStack(stack, opts.Block)
	if err != nil {
		return nil, err
	}

	outPath := replaceExt(path, ".trpx")
	out, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	if _, err := container.WriteTo(out); err != nil {
		out.Close()
		os.Remove(outPath)
		return nil, err
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return nil, err
	}

	if !opts.KeepSource {
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}

	first := stack.Frames[0]
	raw := int64(len(stack.Frames)) * int64(len(first.Samples)) * int64(first.Bits/8)
	return newReport(path, outPath, container, raw), nil
}

// ExpandFile expands one .trpx (or legacy .trs) container to a TIFF file
// next to it, removing the source on success. Files that are not regular
// files with a container extension are skipped with a nil Report and nil
// error.
func ExpandFile(path string, opts Options) (*Report, error) {
	if !IsTersePath(path) || !isRegularFile(path) {
		return nil, nil
	}

	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	container, err := trpx.Parse(in)
	in.Close()
	if err != nil {
		return nil, err
	}

	stack, err := StackFromContainer(container)
	if err != nil {
		return nil, err
	}

	outPath := replaceExt(path, ".tif")
	out, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	if _, err := stack.WriteTo(out); err != nil {
		out.Close()
		os.Remove(outPath)
		return nil, err
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return nil, err
	}

	if !opts.KeepSource {
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}

	first := stack.Frames[0]
	raw := int64(len(stack.Frames)) * int64(len(first.Samples)) * int64(first.Bits/8)
	return newReport(path, outPath, container, raw), nil
}

// ContainerFromStack compresses every frame of a TIFF stack into one
// container, choosing the encoded element type from the stack's sample
// layout so that prolix_bits and signedness mirror the source pixels.
// Float frames are encoded as 64-bit integers, per the promotion the tiff
// package applies on read.
func ContainerFromStack(s *tiff.Stack, block int) (*trpx.Container, error) {
	if len(s.Frames) == 0 {
		return nil, fmt.Errorf("tiff stack holds no images")
	}
	first := s.Frames[0]

	var container *trpx.Container
	var err error
	switch {
	case first.Format == tiff.Float:
		container, err = packFrames[int64](s, block)
	case first.Bits == 8 && first.Format == tiff.Unsigned:
		container, err = packFrames[uint8](s, block)
	case first.Bits == 8 && first.Format == tiff.Signed:
		container, err = packFrames[int8](s, block)
	case first.Bits == 16 && first.Format == tiff.Unsigned:
		container, err = packFrames[uint16](s, block)
	case first.Bits == 16 && first.Format == tiff.Signed:
		container, err = packFrames[int16](s, block)
	case first.Bits == 32 && first.Format == tiff.Unsigned:
		container, err = packFrames[uint32](s, block)
	case first.Bits == 32 && first.Format == tiff.Signed:
		container, err = packFrames[int32](s, block)
	default:
		return nil, fmt.Errorf("no encoding for %d-bit sample format %d", first.Bits, first.Format)
	}
	if err != nil {
		return nil, err
	}
	if err := container.SetDimensions(first.Dx, first.Dy); err != nil {
		return nil, err
	}
	return container, nil
}

func packFrames[T constraints.Integer](s *tiff.Stack, block int) (*trpx.Container, error) {
	narrow := func(f *tiff.Frame) []T {
		out := make([]T, len(f.Samples))
		for i, v := range f.Samples {
			out[i] = T(v)
		}
		return out
	}

	container, err := trpx.Pack(narrow(s.Frames[0]), block)
	if err != nil {
		return nil, err
	}
	for _, f := range s.Frames[1:] {
		if err := trpx.AppendFrame(container, narrow(f)); err != nil {
			return nil, err
		}
	}
	return container, nil
}

// StackFromContainer decompresses every frame of a container into a TIFF
// stack. The container must describe 8-, 16- or 32-bit data with one or
// two dimensions (or a square value count) to be expressible as TIFF; a
// single dimension becomes an image one row high.
func StackFromContainer(c *trpx.Container) (*tiff.Stack, error) {
	dims := c.Dimensions()
	var dx, dy int
	switch len(dims) {
	case 1:
		dx, dy = dims[0], 1
	case 2:
		dx, dy = dims[0], dims[1]
	default:
		return nil, fmt.Errorf(
			"container of %d values has no 2-D shape; cannot write TIFF", c.NumberOfValues())
	}

	format := tiff.Unsigned
	if c.Signed() {
		format = tiff.Signed
	}
	switch c.ProlixBits() {
	case 8, 16, 32:
	default:
		return nil, fmt.Errorf("%d-bit values cannot be written as TIFF", c.ProlixBits())
	}

	stack := &tiff.Stack{}
	for i := 0; i < c.NumberOfFrames(); i++ {
		frame := tiff.NewFrame(dx, dy, c.ProlixBits(), format)
		if err := trpx.Unpack(c, frame.Samples, i); err != nil {
			return nil, err
		}
		if err := stack.Append(frame); err != nil {
			return nil, err
		}
	}
	return stack, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
