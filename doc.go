// Package trpx compresses and decompresses integer-valued grayscale
// images, principally electron diffraction frames, where most pixels are
// zero or small and a minority are large.
//
// The encoding pass is called TERSE and the decoding pass PROLIX. Values
// are consumed in fixed-size blocks; each block is stored as an
// escape-coded header declaring how many bits every value in the block
// needs, followed by the values stripped to that width. Blocks of zeros
// carry no body, and any block needing the same width as the block before
// it (zero blocks in a run of zeros included) reuses the previous
// declaration for a single header bit. If the data are
// known to be non-negative, compressing an unsigned type saves one bit per
// value over the signed equivalent.
//
// A Container wraps one or more compressed frames behind a self-describing
// ASCII descriptor, so a file carries everything needed to expand it:
//
//	vals := make([]uint16, 512*512)
//	// ... fill with detector counts ...
//	c, err := trpx.Pack(vals, trpx.DefaultBlock)
//	if err != nil { ... }
//	var buf bytes.Buffer
//	if _, err := c.WriteTo(&buf); err != nil { ... }
//
//	parsed, err := trpx.Parse(&buf)
//	if err != nil { ... }
//	back := make([]uint16, parsed.NumberOfValues())
//	if err := trpx.Unpack(parsed, back, 0); err != nil { ... }
//
// Serialized containers are byte streams, not native word dumps: a little-
// and a big-endian host produce identical files for identical input.
package trpx
