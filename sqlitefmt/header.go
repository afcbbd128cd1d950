package sqlitefmt

import (
	"bytes"
	"encoding/binary"
)

// HeaderSize is the fixed size, in bytes, of the database header at the
// start of page 1.
const HeaderSize = 100

var magicString = []byte("SQLite format 3\x00")

// TextEncoding identifies how TEXT column bytes are interpreted.
type TextEncoding uint8

const (
	EncodingUTF8    TextEncoding = 1
	EncodingUTF16LE TextEncoding = 2
	EncodingUTF16BE TextEncoding = 3
)

func (e TextEncoding) String() string {
	switch e {
	case EncodingUTF8:
		return "UTF-8"
	case EncodingUTF16LE:
		return "UTF-16LE"
	case EncodingUTF16BE:
		return "UTF-16BE"
	default:
		return "invalid"
	}
}

// rawHeader mirrors the 100-byte on-disk layout field for field, so
// binary.Read can decode it in one shot the way the teacher's
// DatabaseHeader does for SQLiteDB.parseHeader.
type rawHeader struct {
	Magic                [16]byte
	PageSizeRaw          uint16
	FileFormatWrite      uint8
	FileFormatRead       uint8
	ReservedSpace        uint8
	MaxPayloadFraction   uint8
	MinPayloadFraction   uint8
	LeafPayloadFraction  uint8
	ChangeCounter        uint32
	SizeInPagesRaw       uint32
	FirstFreelistTrunk   uint32
	FreelistPageCount    uint32
	SchemaCookie         uint32
	SchemaFormat         uint32
	DefaultPageCacheSize uint32
	LargestRootPage      uint32
	TextEncodingRaw      uint32
	UserVersion          uint32
	IncrementalVacuum    uint32
	ApplicationID        uint32
	Reserved             [20]byte
	VersionValidFor      uint32
	SQLiteVersionRaw     uint32
}

// Header is the parsed, 100-byte SQLite database header (fileformat2.html
// §1.3). It is kept alongside every Page so the text encoding and page size
// are always available; it is immutable after ParseHeader returns. The
// Reader holds the single parsed *Header and every Page carries its own
// copy of it by value (spec §9 "shared ownership of the database header").
type Header struct {
	raw rawHeader

	PageSize             int
	FileFormatWrite      uint8
	FileFormatRead       uint8
	ReservedSpace        uint8
	MaxPayloadFraction   uint8
	MinPayloadFraction   uint8
	LeafPayloadFraction  uint8
	ChangeCounter        uint32
	SizeInPages          uint32
	FirstFreelistTrunk   uint32
	FreelistPageCount    uint32
	SchemaCookie         uint32
	SchemaFormat         uint32
	DefaultPageCacheSize uint32
	LargestRootPage      uint32
	TextEncoding         TextEncoding
	UserVersion          uint32
	IncrementalVacuumOn  bool
	ApplicationID        uint32
	VersionValidFor      uint32
	SQLiteVersion        uint32 // X*1_000_000 + Y*1_000 + Z

	// SchemaFormatWarning is set when SchemaFormat falls outside 1..=4; spec
	// §9 says such values should be accepted, not rejected, so this is
	// informational only (see SPEC_FULL.md §12).
	SchemaFormatWarning bool
}

// ParseHeader decodes the first 100 bytes of image as a database header.
func ParseHeader(image []byte) (*Header, error) {
	if len(image) < HeaderSize {
		return nil, newError("parse_header", ErrTruncatedInput, map[string]any{
			"have": len(image), "need": HeaderSize,
		})
	}

	var raw rawHeader
	if err := binary.Read(bytes.NewReader(image[:HeaderSize]), binary.BigEndian, &raw); err != nil {
		return nil, newError("parse_header", err, nil)
	}
	if !bytes.Equal(raw.Magic[:], magicString) {
		return nil, newError("parse_header", ErrTruncatedInput, map[string]any{
			"reason": "bad magic number", "got": string(raw.Magic[:]),
		})
	}

	h := &Header{
		raw:                  raw,
		FileFormatWrite:      raw.FileFormatWrite,
		FileFormatRead:       raw.FileFormatRead,
		ReservedSpace:        raw.ReservedSpace,
		MaxPayloadFraction:   raw.MaxPayloadFraction,
		MinPayloadFraction:   raw.MinPayloadFraction,
		LeafPayloadFraction:  raw.LeafPayloadFraction,
		ChangeCounter:        raw.ChangeCounter,
		SizeInPages:          raw.SizeInPagesRaw,
		FirstFreelistTrunk:   raw.FirstFreelistTrunk,
		FreelistPageCount:    raw.FreelistPageCount,
		SchemaCookie:         raw.SchemaCookie,
		SchemaFormat:         raw.SchemaFormat,
		DefaultPageCacheSize: raw.DefaultPageCacheSize,
		LargestRootPage:      raw.LargestRootPage,
		UserVersion:          raw.UserVersion,
		IncrementalVacuumOn:  raw.IncrementalVacuum != 0,
		ApplicationID:        raw.ApplicationID,
		VersionValidFor:      raw.VersionValidFor,
		SQLiteVersion:        raw.SQLiteVersionRaw,
	}

	if raw.PageSizeRaw == 1 {
		h.PageSize = 65536
	} else {
		h.PageSize = int(raw.PageSizeRaw)
	}

	switch TextEncoding(raw.TextEncodingRaw) {
	case EncodingUTF8, EncodingUTF16LE, EncodingUTF16BE:
		h.TextEncoding = TextEncoding(raw.TextEncodingRaw)
	default:
		return nil, newError("parse_header", ErrInvalidTextEncoding, map[string]any{
			"value": raw.TextEncodingRaw,
		})
	}

	if raw.SchemaFormat < 1 || raw.SchemaFormat > 4 {
		h.SchemaFormatWarning = true
	}

	return h, nil
}

// UsableSize is the per-page size available to the b-tree layer once the
// reserved-per-page extension space is subtracted (spec §4.3's "u").
func (h *Header) UsableSize() int {
	return h.PageSize - int(h.ReservedSpace)
}

// DeclaredPageCount resolves spec §3's invariant: the header's SizeInPages
// is authoritative only when non-zero and the change counter matches
// version-valid-for; otherwise the page count is derived from the image
// length.
func (h *Header) DeclaredPageCount(imageLen int) int {
	if h.SizeInPages != 0 && h.ChangeCounter == h.VersionValidFor {
		return int(h.SizeInPages)
	}
	return imageLen / h.PageSize
}
