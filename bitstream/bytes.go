package bitstream

import "encoding/binary"

// WordsToBytes serializes the first byteLen octets of the word buffer,
// least significant byte of each word first. The result is the canonical
// on-disk form of the bitstream and does not depend on host byte order.
func WordsToBytes(words []uint64, byteLen int) []byte {
	out := make([]byte, byteLen)
	full := byteLen / 8
	for i := 0; i < full; i++ {
		binary.LittleEndian.PutUint64(out[i*8:], words[i])
	}
	for i := full * 8; i < byteLen; i++ {
		out[i] = byte(words[i>>3] >> uint((i&7)*8))
	}
	return out
}

// WordsFromBytes reassembles a word buffer from its canonical octet form.
// Trailing bits of the last word beyond len(b) octets are zero.
func WordsFromBytes(b []byte) []uint64 {
	words := make([]uint64, (len(b)+7)/8)
	full := len(b) / 8
	for i := 0; i < full; i++ {
		words[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	for i := full * 8; i < len(b); i++ {
		words[i>>3] |= uint64(b[i]) << uint((i&7)*8)
	}
	return words
}
