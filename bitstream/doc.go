// Package bitstream implements a read/write cursor over a bitstream stored
// in a buffer of 64-bit words.
//
// The payload of a TRPX container is a sequence of integer fields whose
// widths vary from block to block and are almost never a multiple of eight.
// Packing those fields tightly is what buys the compression, so the cursor
// has to address individual bits and assemble fields that straddle word
// boundaries.
//
// The bit order is fixed by the file format: bit 0 is the least significant
// bit of word 0, and multi-bit fields are stored least significant bit
// first. Because the on-disk format is an octet stream, WordsToBytes and
// WordsFromBytes convert between the word buffer and its canonical octet
// form (least significant byte of each word first). The resulting files are
// identical regardless of host byte order.
//
// The cursor does no bounds checking beyond what the runtime provides.
// Running a cursor off the end of its buffer is a bug in the caller; layers
// above size the buffer before writing and bound every read against the
// declared payload length.
package bitstream
