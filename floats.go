package trpx

import "fmt"

// Floating-point data is not compressed as such: values are cast to 64-bit
// integers before encoding, and integer payloads can be expanded back into
// floats. The cast truncates toward zero, exactly like the source cast in
// detector pipelines that store float frames in integer containers.

// PackFloats casts vals to int64 and compresses them into a new
// single-frame container with prolix_bits=64, signed.
func PackFloats(vals []float64, block int) (*Container, error) {
	ints := make([]int64, len(vals))
	for i, v := range vals {
		ints[i] = int64(v)
	}
	return Pack(ints, block)
}

// AppendFloatFrame casts vals to int64 and appends them as a frame. The
// container must hold 64-bit signed data.
func AppendFloatFrame(c *Container, vals []float64) error {
	ints := make([]int64, len(vals))
	for i, v := range vals {
		ints[i] = int64(v)
	}
	return AppendFrame(c, ints)
}

// UnpackFloats decompresses the frame-th frame into dst, converting each
// value to float64. Any container can be expanded into floats; signs are
// preserved.
func UnpackFloats(c *Container, dst []float64, frame int) error {
	if len(dst) < c.values {
		return ErrParameterMismatch.WithMessage(fmt.Sprintf(
			"destination holds %d values, frame has %d", len(dst), c.values))
	}
	if c.signed {
		ints := make([]int64, c.values)
		if err := Unpack(c, ints, frame); err != nil {
			return err
		}
		for i, v := range ints {
			dst[i] = float64(v)
		}
		return nil
	}
	uints := make([]uint64, c.values)
	if err := Unpack(c, uints, frame); err != nil {
		return err
	}
	for i, v := range uints {
		dst[i] = float64(v)
	}
	return nil
}
