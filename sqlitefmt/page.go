package sqlitefmt

import "encoding/binary"

// PageKind identifies a b-tree page's role, taken from its first byte
// (spec §3 "Page", fileformat2.html §1.5).
type PageKind uint8

const (
	PageKindIndexInterior PageKind = 2
	PageKindTableInterior PageKind = 5
	PageKindIndexLeaf     PageKind = 10
	PageKindTableLeaf     PageKind = 13
)

// PageHeader is the 8- or 12-byte b-tree page header that precedes the
// cell-pointer array (interior pages carry the extra 4-byte right-most
// pointer).
type PageHeader struct {
	Kind             PageKind
	FirstFreeblock   int
	CellCount        int
	CellContentStart int // 0 means 65536, per fileformat2.html
	FragmentedBytes  uint8
	RightMostPointer int // interior pages only
}

// Page is one decoded b-tree page: its header, the cell-pointer array, and
// every cell it points to, already parsed by kind. DBHeader is the shared
// database header every page is decoded against (text encoding, page
// size); it is copied by value from the Reader's single parsed *Header,
// matching the teacher's own *DatabaseHeader embedding (SPEC_FULL.md §12).
type Page struct {
	Number   int
	DBHeader Header
	Header   PageHeader
	Cells    []Cell
}

func (h PageHeader) isInterior() bool {
	return h.Kind == PageKindIndexInterior || h.Kind == PageKindTableInterior
}

func (h PageHeader) headerSize() int {
	if h.isInterior() {
		return 12
	}
	return 8
}

func cellKindFor(k PageKind) (CellKind, bool) {
	switch k {
	case PageKindTableLeaf:
		return CellTableLeaf, true
	case PageKindTableInterior:
		return CellTableInterior, true
	case PageKindIndexLeaf:
		return CellIndexLeaf, true
	case PageKindIndexInterior:
		return CellIndexInterior, true
	default:
		return 0, false
	}
}

// pageBounds returns the absolute [start, end) byte range of page number in
// image, with end clipped to the image length. Where the page's b-tree
// header begins is btreeStartFor's job: page 1 is unusual in that the first
// 100 bytes belong to the database header, so its b-tree content starts at
// byte 100 rather than page start.
func pageBounds(header *Header, image []byte, number int) (start, end int, err error) {
	if number < 1 {
		return 0, 0, newError("page_bounds", ErrPageOutOfRange, map[string]any{"page": number})
	}
	start = (number - 1) * header.PageSize
	if start >= len(image) {
		return 0, 0, newError("page_bounds", ErrPageOutOfRange, map[string]any{"page": number})
	}
	end = start + header.PageSize
	if end > len(image) {
		end = len(image)
	}
	return start, end, nil
}

func btreeStartFor(number, pageStart int) int {
	if number == 1 {
		return pageStart + HeaderSize
	}
	return pageStart
}

// decodePage parses one b-tree page out of image. Cell-pointer-array
// entries and therefore cell offsets are always relative to the page's
// own start (byte 0 of the page), even for page 1 — only the b-tree
// page header and cell-pointer array themselves are shifted 100 bytes in
// to make room for the database header (spec §4.4).
func decodePage(header *Header, image []byte, number int) (*Page, error) {
	pageStart, pageEnd, err := pageBounds(header, image, number)
	if err != nil {
		return nil, err
	}
	full := image[pageStart:pageEnd]
	btreeStart := btreeStartFor(number, pageStart)
	headerRel := btreeStart - pageStart
	hdr := full[headerRel:]
	if len(hdr) < 8 {
		return nil, newError("decode_page", ErrTruncatedInput, map[string]any{"page": number})
	}

	kind := PageKind(hdr[0])
	cellKind, ok := cellKindFor(kind)
	if !ok {
		return nil, newError("decode_page", ErrUnknownPageType, map[string]any{"page": number, "byte": hdr[0]})
	}

	ph := PageHeader{Kind: kind}
	ph.FirstFreeblock = int(binary.BigEndian.Uint16(hdr[1:3]))
	ph.CellCount = int(binary.BigEndian.Uint16(hdr[3:5]))
	contentStart := binary.BigEndian.Uint16(hdr[5:7])
	if contentStart == 0 {
		ph.CellContentStart = 65536
	} else {
		ph.CellContentStart = int(contentStart)
	}
	ph.FragmentedBytes = hdr[7]

	hsz := ph.headerSize()
	if ph.isInterior() {
		if len(hdr) < 12 {
			return nil, newError("decode_page", ErrTruncatedInput, map[string]any{"page": number})
		}
		ph.RightMostPointer = int(binary.BigEndian.Uint32(hdr[8:12]))
	}
	if hsz+2*ph.CellCount > len(hdr) {
		return nil, newError("decode_page", ErrTruncatedInput, map[string]any{"page": number, "cell_count": ph.CellCount})
	}

	page := &Page{Number: number, DBHeader: *header, Header: ph}

	pointerArray := hdr[hsz : hsz+2*ph.CellCount]
	cells := make([]Cell, ph.CellCount)
	for i := 0; i < ph.CellCount; i++ {
		cellOffset := int(binary.BigEndian.Uint16(pointerArray[2*i : 2*i+2]))
		if cellOffset == 0 {
			cellOffset = 65536
		}
		if cellOffset >= len(full) {
			return nil, newError("decode_page", ErrTruncatedInput, map[string]any{
				"page": number, "cell": i, "offset": cellOffset,
			})
		}
		cell, err := decodeCell(cellKind, header, full[cellOffset:], pageStart+cellOffset)
		if err != nil {
			return nil, err
		}
		cells[i] = cell
	}
	page.Cells = cells

	return page, nil
}
