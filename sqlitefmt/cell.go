package sqlitefmt

import (
	"encoding/binary"

	"github.com/torymur/sqlitefmt-go/varint"
)

// CellKind is the tagged-union discriminant for the four cell variants
// (spec §3 "Cell"). Deliberately modeled as a sum type with per-variant
// fields rather than one struct with a grab-bag of optional members, per
// spec §9 "Sum types for cells" — this keeps "TableInterior never
// overflows" structurally true instead of merely conventional.
type CellKind uint8

const (
	CellTableLeaf CellKind = iota
	CellTableInterior
	CellIndexLeaf
	CellIndexInterior
)

// Overflow describes a cell whose payload exceeds its on-page capacity
// (spec §3 "Overflow descriptor").
type Overflow struct {
	FirstPage int
	Units     []OverflowUnit
}

// Cell is one parsed b-tree cell.
type Cell struct {
	Kind   CellKind
	Offset int // absolute offset of the cell's first byte

	LeftChild int // TableInterior, IndexInterior
	Rowid     int64 // TableLeaf, TableInterior

	PayloadSize int64    // declared total payload length, pre-overflow (Leaf/IndexInterior)
	Record      *Record  // on-page record prefix (nil for TableInterior)
	Overflow    *Overflow // nil when the payload fit entirely on-page

	// PayloadOffset is the absolute image offset of this cell's on-page
	// payload bytes (after the header fields decodeCell consumes first).
	PayloadOffset int

	// HeaderSpillsOverflow is set when the record header itself extends past
	// the on-page bytes available to this cell (spec §9, §11.1). Record is
	// nil in this case; OnPageHeaderBytes carries what was captured on-page
	// so the materializer can fetch the rest via StitchRecordHeader before
	// the body can be parsed at all.
	HeaderSpillsOverflow bool
	OnPageHeaderBytes    []byte
}

// Valid reports whether this cell's payload size and rowid are
// non-negative. SQLite varints are signed 64-bit twos-complement, so a
// corrupt or adversarial file can produce a negative payload size or
// rowid; spec §9 says such values "may be accepted but should be
// flagged" rather than rejected outright.
func (c Cell) Valid() bool {
	return c.PayloadSize >= 0 && c.Rowid >= 0
}

// maxLocal returns spec §4.3's "x": the largest payload size a cell of the
// given kind can store entirely on-page.
func maxLocal(u int, leafTable bool) int {
	if leafTable {
		return u - 35
	}
	return ((u-12)*64)/255 - 23
}

// spillSizes implements spec §4.3's overflow-spill formula exactly: given
// the usable page size u and declared payload p, it returns how many bytes
// live on the page (local) versus in the overflow chain (overflow).
func spillSizes(u int, p int, leafTable bool) (local, overflow int) {
	x := maxLocal(u, leafTable)
	if p <= x {
		return p, 0
	}
	m := ((u-12)*32)/255 - 23
	k := m + (p-m)%(u-4)
	if k <= x {
		local = k
	} else {
		local = m
	}
	return local, p - local
}

// decodeCell parses one cell of the given kind at data[0] (data is the
// page's bytes starting at the cell's offset, running to the end of the
// page). header supplies the usable page size and text encoding.
// absOffset is the cell's absolute offset in the image, for Span bookkeeping.
func decodeCell(kind CellKind, header *Header, data []byte, absOffset int) (Cell, error) {
	cell := Cell{Kind: kind, Offset: absOffset}
	offset := 0

	if kind == CellTableInterior {
		if len(data) < 4 {
			return cell, newError("decode_cell", ErrTruncatedInput, map[string]any{"kind": "table_interior"})
		}
		cell.LeftChild = int(binary.BigEndian.Uint32(data[:4]))
		offset += 4
		rowid, n := varint.Decode(data[offset:])
		cell.Rowid = rowid
		offset += n
		return cell, nil
	}

	if kind == CellIndexInterior {
		if len(data) < 4 {
			return cell, newError("decode_cell", ErrTruncatedInput, map[string]any{"kind": "index_interior"})
		}
		cell.LeftChild = int(binary.BigEndian.Uint32(data[:4]))
		offset += 4
	}

	payloadSize, n := varint.Decode(data[offset:])
	cell.PayloadSize = payloadSize
	offset += n

	if kind == CellTableLeaf {
		rowid, rn := varint.Decode(data[offset:])
		cell.Rowid = rowid
		offset += rn
	}

	u := header.UsableSize()
	p := int(payloadSize)
	if p < 0 {
		p = 0
	}
	local, overflow := spillSizes(u, p, kind == CellTableLeaf)

	if offset+local > len(data) {
		return cell, newError("decode_cell", ErrTruncatedInput, map[string]any{
			"need": offset + local, "have": len(data),
		})
	}
	onPage := data[offset : offset+local]
	cell.PayloadOffset = absOffset + offset

	rec, units, headerSpills, err := decodeRecordPrefix(header.TextEncoding, onPage, cell.PayloadOffset)
	if err != nil {
		return cell, err
	}
	if headerSpills {
		cell.HeaderSpillsOverflow = true
		cell.OnPageHeaderBytes = onPage
	} else {
		cell.Record = &rec
	}

	if overflow > 0 {
		firstOverflowOffset := offset + local
		if firstOverflowOffset+4 > len(data) {
			return cell, newError("decode_cell", ErrTruncatedInput, map[string]any{
				"reason": "missing first-overflow-page pointer",
			})
		}
		firstPage := int(binary.BigEndian.Uint32(data[firstOverflowOffset : firstOverflowOffset+4]))
		cell.Overflow = &Overflow{FirstPage: firstPage, Units: units}
	}

	return cell, nil
}
