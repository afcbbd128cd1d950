package sqlitefmt

import (
	"encoding/binary"

	"github.com/torymur/sqlitefmt-go/varint"
)

// OverflowPage is one link in an overflow chain: a 4-byte next-page pointer
// (0 when this is the chain's last page) followed by raw payload bytes
// filling the rest of the usable page (fileformat2.html §1.5's "overflow
// page format").
type OverflowPage struct {
	Number  int
	Next    int
	Payload []byte
}

func decodeOverflowPage(header *Header, image []byte, number int) (*OverflowPage, error) {
	start, end, err := pageBounds(header, image, number)
	if err != nil {
		return nil, err
	}
	data := image[start:end]
	if len(data) < 4 {
		return nil, newError("decode_overflow_page", ErrTruncatedInput, map[string]any{"page": number})
	}
	next := int(binary.BigEndian.Uint32(data[:4]))
	usable := header.UsableSize()
	payloadEnd := usable
	if payloadEnd > len(data) {
		payloadEnd = len(data)
	}
	return &OverflowPage{
		Number:  number,
		Next:    next,
		Payload: data[4:payloadEnd],
	}, nil
}

// overflowSegment records where one overflow page's payload bytes sit in
// the image, so a stitched value's Span can still point back at real bytes
// (spec §4.9). A value that straddles a page boundary gets a Span anchored
// at its first byte; Bytes carries every byte regardless of how many pages
// contributed them — Offset+len(Bytes) is only exact when a value didn't
// cross a page boundary.
type overflowSegment struct {
	pageOffset int // absolute offset of Payload[0] in the image
	length     int
}

// collectOverflowBytes walks an overflow chain starting at firstPage,
// gathering payload bytes until every pending unit's BytesLeft is
// satisfied (or the chain ends). It guards against cycles by bounding
// traversal at pagesTotal distinct pages (spec §4.10, §9).
func (r *Reader) collectOverflowBytes(firstPage int, totalNeeded int) ([]byte, []overflowSegment, error) {
	var data []byte
	var segments []overflowSegment
	visited := make(map[int]bool)

	page := firstPage
	for page != 0 && len(data) < totalNeeded {
		if visited[page] {
			return nil, nil, newError("collect_overflow", ErrOverflowCycle, map[string]any{"page": page})
		}
		if len(visited) >= r.pagesTotal() {
			return nil, nil, newError("collect_overflow", ErrOverflowCycle, map[string]any{"page": page})
		}
		visited[page] = true

		op, err := r.GetOverflowPage(page)
		if err != nil {
			return nil, nil, err
		}
		start, _, err := pageBounds(r.header, r.image, page)
		if err != nil {
			return nil, nil, err
		}
		segments = append(segments, overflowSegment{pageOffset: start + 4, length: len(op.Payload)})
		data = append(data, op.Payload...)
		page = op.Next
	}

	return data, segments, nil
}

func spanFromSegments(segments []overflowSegment, cursor, length int) Span {
	pos := 0
	for _, seg := range segments {
		if cursor < pos+seg.length {
			return Span{Offset: seg.pageOffset + (cursor - pos), Bytes: nil}
		}
		pos += seg.length
	}
	if len(segments) > 0 {
		last := segments[len(segments)-1]
		return Span{Offset: last.pageOffset + last.length, Bytes: nil}
	}
	return Span{}
}

// stitchOverflowValues decodes every column recorded in units from the
// concatenated overflow-chain bytes, merging each with whatever partial
// bytes were already captured on the page (spec §4.9 "payload stitching").
// Units must be in the order decodeRecordPrefix produced them, i.e. the
// order their bytes actually appear in the payload stream.
func stitchOverflowValues(enc TextEncoding, units []OverflowUnit, overflowData []byte, segments []overflowSegment) ([]Value, error) {
	values := make([]Value, len(units))
	cursor := 0
	for i, u := range units {
		need := u.BytesLeft
		if cursor+need > len(overflowData) {
			return nil, newError("stitch_overflow", ErrTruncatedInput, map[string]any{
				"column": u.ColumnIndex, "need": need, "have": len(overflowData) - cursor,
			})
		}
		tail := overflowData[cursor : cursor+need]
		cursor += need

		full := append(append([]byte(nil), u.Partial...), tail...)

		var sp Span
		if len(u.Partial) > 0 {
			sp = Span{Offset: u.PartialSpn.Offset, Bytes: full}
		} else {
			tailSpan := spanFromSegments(segments, cursor-need, need)
			sp = Span{Offset: tailSpan.Offset, Bytes: full}
		}

		val, err := decodeValue(enc, u.SerialType, full, sp)
		if err != nil {
			return nil, err
		}
		values[i] = val
	}
	return values, nil
}

// ResolveOverflow materializes every value a Cell's Overflow descriptor
// still owes, stitching on-page partial bytes together with the chain's
// payload bytes.
func (r *Reader) ResolveOverflow(ov *Overflow) ([]Value, error) {
	total := 0
	for _, u := range ov.Units {
		total += u.BytesLeft
	}
	data, segments, err := r.collectOverflowBytes(ov.FirstPage, total)
	if err != nil {
		return nil, err
	}
	enc := r.header.TextEncoding
	return stitchOverflowValues(enc, ov.Units, data, segments)
}

// remapOverflowSpans rewrites any Span in rec that starts within the bytes
// fetched from the overflow chain rather than onPageBytes. decodeRecordPrefix knows only the flat baseOffset it was
// given, so every Span it builds is stamped baseOffset+position-in-full —
// correct for the onPageLen bytes that really start at baseOffset, but
// wrong once position crosses onPageLen, since those bytes physically live
// on a different page (spec §11.1, span.go's always-absolute-offset
// contract). A Span that starts on-page and straddles the boundary keeps
// its on-page start, the same first-byte anchoring stitchOverflowValues
// uses for a value with on-page Partial bytes.
func remapOverflowSpans(rec *Record, units []OverflowUnit, baseOffset, onPageLen int, segments []overflowSegment) {
	remap := func(sp *Span) {
		pos := sp.Offset - baseOffset
		if pos < onPageLen {
			return
		}
		fixed := spanFromSegments(segments, pos-onPageLen, len(sp.Bytes))
		sp.Offset = fixed.Offset
	}
	remap(&rec.Header.Span)
	for i := range rec.Values {
		remap(&rec.Values[i].Span)
	}
	for i := range units {
		if len(units[i].Partial) > 0 {
			remap(&units[i].PartialSpn)
		}
	}
}

// StitchRecordHeader handles the case where a record's header itself
// extends past the bytes available on the cell's own page (spec §9,
// SPEC_FULL.md §11.1): it fetches enough overflow-chain bytes to complete
// the header and re-parses the full record with them appended. Columns that
// run past those bytes are fetched from the same chain before a final parse.
func (r *Reader) StitchRecordHeader(onPageBytes []byte, firstOverflowPage int, baseOffset int) (Record, *Overflow, error) {
	headerSize, _ := varint.Decode(onPageBytes)
	need := int(headerSize) - len(onPageBytes)
	if need <= 0 {
		need = 1
	}
	// Fetch generously: the missing header bytes plus a full page, since
	// we don't yet know the body's own column sizes until the header is
	// complete.
	fetch := need + r.header.UsableSize()
	data, segments, err := r.collectOverflowBytes(firstOverflowPage, fetch)
	if err != nil {
		return Record{}, nil, err
	}
	full := append(append([]byte(nil), onPageBytes...), data...)

	rec, units, spills, err := decodeRecordPrefix(r.header.TextEncoding, full, baseOffset)
	if err != nil {
		return Record{}, nil, err
	}
	if spills {
		return Record{}, nil, newError("stitch_record_header", ErrTruncatedInput, map[string]any{
			"reason": "header exceeds fetched overflow bytes",
		})
	}
	if len(units) > 0 {
		// The owed bytes sit in the chain right after those already fetched.
		owed := 0
		for _, u := range units {
			owed += u.BytesLeft
		}
		if data, segments, err = r.collectOverflowBytes(firstOverflowPage, len(data)+owed); err != nil {
			return Record{}, nil, err
		}
		full = append(append([]byte(nil), onPageBytes...), data...)
		if rec, units, _, err = decodeRecordPrefix(r.header.TextEncoding, full, baseOffset); err != nil {
			return Record{}, nil, err
		}
	}
	remapOverflowSpans(&rec, units, baseOffset, len(onPageBytes), segments)
	if len(units) == 0 {
		return rec, nil, nil
	}
	return rec, &Overflow{FirstPage: firstOverflowPage, Units: units}, nil
}
