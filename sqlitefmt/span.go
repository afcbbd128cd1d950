package sqlitefmt

// Span records the exact byte run a decoded field occupied, addressed as an
// absolute offset into the database image. The viewer uses this to
// highlight/navigate to the bytes behind any decoded value; page 1's fields
// carry their true absolute offset (0..99 for the database header, 100+ for
// its b-tree page), so no special-casing is needed downstream of Reader.
type Span struct {
	Offset int    // absolute offset into the image
	Bytes  []byte // the bytes themselves, copied out of the image
}

func (s Span) End() int { return s.Offset + len(s.Bytes) }

func span(image []byte, offset, length int) Span {
	buf := make([]byte, length)
	copy(buf, image[offset:offset+length])
	return Span{Offset: offset, Bytes: buf}
}
