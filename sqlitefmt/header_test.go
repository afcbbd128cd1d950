package sqlitefmt

import (
	"encoding/binary"
	"testing"
)

// minimalHeader builds a syntactically valid 100-byte database header with
// the given page size (raw on-disk form) and text encoding, leaving every
// other field at SQLite's standard defaults.
func minimalHeader(pageSizeRaw uint16, textEncoding uint32) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:16], magicString)
	binary.BigEndian.PutUint16(buf[16:18], pageSizeRaw)
	buf[18] = 1 // file format write
	buf[19] = 1 // file format read
	buf[20] = 0 // reserved space
	buf[21] = 64
	buf[22] = 32
	buf[23] = 32
	binary.BigEndian.PutUint32(buf[24:28], 1) // change counter
	binary.BigEndian.PutUint32(buf[28:32], 1) // size in pages
	binary.BigEndian.PutUint32(buf[44:48], 4) // schema format
	binary.BigEndian.PutUint32(buf[56:60], textEncoding)
	binary.BigEndian.PutUint32(buf[92:96], 1) // version-valid-for
	return buf
}

func TestParseHeaderBasic(t *testing.T) {
	raw := minimalHeader(4096, 1)
	h, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.PageSize != 4096 {
		t.Fatalf("page size = %d, want 4096", h.PageSize)
	}
	if h.TextEncoding != EncodingUTF8 {
		t.Fatalf("text encoding = %v, want UTF-8", h.TextEncoding)
	}
	if h.SchemaFormatWarning {
		t.Fatalf("unexpected schema format warning")
	}
}

func TestParseHeaderPageSizeSentinel(t *testing.T) {
	raw := minimalHeader(1, 1)
	h, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.PageSize != 65536 {
		t.Fatalf("page size = %d, want 65536 (0x0001 sentinel)", h.PageSize)
	}
}

func TestParseHeaderTruncated(t *testing.T) {
	if _, err := ParseHeader(make([]byte, 50)); err == nil {
		t.Fatalf("expected error for truncated header")
	}
}

func TestParseHeaderBadMagic(t *testing.T) {
	raw := minimalHeader(4096, 1)
	raw[0] = 'X'
	if _, err := ParseHeader(raw); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

func TestParseHeaderInvalidTextEncoding(t *testing.T) {
	raw := minimalHeader(4096, 9)
	if _, err := ParseHeader(raw); err == nil {
		t.Fatalf("expected error for invalid text encoding")
	}
}

func TestParseHeaderSchemaFormatWarning(t *testing.T) {
	raw := minimalHeader(4096, 1)
	binary.BigEndian.PutUint32(raw[44:48], 7) // schema format out of 1..4
	h, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if !h.SchemaFormatWarning {
		t.Fatalf("expected SchemaFormatWarning for out-of-range schema format")
	}
}

func TestDeclaredPageCountAuthoritative(t *testing.T) {
	h := &Header{PageSize: 4096, SizeInPages: 10, ChangeCounter: 3, VersionValidFor: 3}
	if got := h.DeclaredPageCount(4096 * 20); got != 10 {
		t.Fatalf("DeclaredPageCount = %d, want 10", got)
	}
}

func TestDeclaredPageCountFallsBackToImageLength(t *testing.T) {
	h := &Header{PageSize: 4096, SizeInPages: 10, ChangeCounter: 3, VersionValidFor: 4}
	if got := h.DeclaredPageCount(4096 * 20); got != 20 {
		t.Fatalf("DeclaredPageCount = %d, want 20 (derived from image length)", got)
	}
}

func TestUsableSize(t *testing.T) {
	h := &Header{PageSize: 4096, ReservedSpace: 20}
	if got := h.UsableSize(); got != 4076 {
		t.Fatalf("UsableSize = %d, want 4076", got)
	}
}
