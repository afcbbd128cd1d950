// Package varint decodes and encodes SQLite's 1..=9 byte big-endian
// huffman-coded 64-bit signed integers (see fileformat2.html §4).
package varint

// MaxLen is the longest a SQLite varint can ever be.
const MaxLen = 9

// max56 is the largest value representable in the first 8 encoding bytes
// (7 bits each). Values above it need the 9-byte form.
const max56 = uint64(1)<<56 - 1

// Decode reads a varint from the front of data and returns its value together
// with the number of bytes consumed (1..=9). The high bit of each of the
// first 8 bytes signals continuation; an 8th continuation forces a 9th byte
// that contributes all 8 of its bits.
//
// If data is exhausted before the varint terminates, Decode returns whatever
// it accumulated and consumed == len(data); it does not itself error, since
// the caller's own bounds checks on the fields that follow are what catch a
// truncated input (see DecodeError / ErrTruncatedInput in the sqlitefmt
// package).
func Decode(data []byte) (value int64, consumed int) {
	var result uint64
	n := len(data)
	if n > MaxLen {
		n = MaxLen
	}
	for i := 0; i < n; i++ {
		b := data[i]
		if i == 8 {
			result = (result << 8) | uint64(b)
			return int64(result), i + 1
		}
		result = (result << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			return int64(result), i + 1
		}
	}
	return int64(result), n
}

// Encode produces the canonical (minimal-length) byte run for value. For any
// value produced by Decode on a well-formed (non-truncated) input,
// Encode(value) reproduces the exact bytes Decode consumed.
func Encode(value int64) []byte {
	uv := uint64(value)
	if uv <= max56 {
		var groups [MaxLen]byte
		n := 0
		v := uv
		for {
			groups[n] = byte(v & 0x7f)
			n++
			v >>= 7
			if v == 0 {
				break
			}
		}
		buf := make([]byte, n)
		for i := 0; i < n; i++ {
			b := groups[n-1-i]
			if i != n-1 {
				b |= 0x80
			}
			buf[i] = b
		}
		return buf
	}

	// 9-byte form: the last byte carries the low 8 bits of uv verbatim: the
	// first 8 bytes carry the remaining 56 bits, 7 per byte, high bit always
	// set (decode never checks the continuation bit on byte 9).
	buf := make([]byte, 9)
	rem := uv >> 8
	for i := 7; i >= 0; i-- {
		buf[i] = byte(rem&0x7f) | 0x80
		rem >>= 7
	}
	buf[8] = byte(uv)
	return buf
}
