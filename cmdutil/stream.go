package cmdutil

import (
	"io"

	trpx "github.com/emdiffract/trpx"
	"github.com/emdiffract/trpx/tiff"
)

// CompressStream reads a grayscale TIFF stack from the input and writes a
// serialized TRPX container to the output. The returned int64 gives the
// number of bytes written; if an error occurred, the value is undefined
// and should not be used.
func CompressStream(input io.Reader, output io.Writer, block int) (int64, error) {
	stack, err := tiff.ReadStack(input)
	if err != nil {
		return 0, err
	}
	container, err := ContainerFromStack(stack, block)
	if err != nil {
		return 0, err
	}
	return container.WriteTo(output)
}

// ExpandStream reads a serialized TRPX container from the input and writes
// the decompressed frames to the output as a grayscale TIFF stack. The
// returned int64 gives the number of bytes written; if an error occurred,
// the value is undefined and should not be used.
func ExpandStream(input io.Reader, output io.Writer) (int64, error) {
	container, err := trpx.Parse(input)
	if err != nil {
		return 0, err
	}
	stack, err := StackFromContainer(container)
	if err != nil {
		return 0, err
	}
	return stack.WriteTo(output)
}
