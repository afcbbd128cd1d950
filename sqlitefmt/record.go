package sqlitefmt

import "github.com/torymur/sqlitefmt-go/varint"

// RecordHeader is the size-prefixed run of serial-type varints at the
// front of a record (spec §3 "Record").
type RecordHeader struct {
	HeaderSize  int64
	SerialTypes []int64
	Span        Span // the header bytes themselves, including HeaderSize's own varint
}

// Record is a decoded row/index-key: its header plus one typed Value per
// serial type.
type Record struct {
	Header RecordHeader
	Values []Value
}

// OverflowUnit is an outstanding overflow obligation for one column: the
// unit list synthesized while parsing the on-page record prefix (spec §3
// "Overflow descriptor", "Overflow unit").
type OverflowUnit struct {
	ColumnIndex int
	SerialType  int64
	BytesLeft   int
	// Partial accumulates any bytes of this column already captured on the
	// page, so the eventual overflow-stitched value can be merged with them
	// (spec §4.9).
	Partial    []byte
	PartialSpn Span
}

// decodeRecordPrefix parses a record starting at data[0] (data is the
// on-page slice available to this cell — it may be shorter than the
// record's declared payload when the cell spills to overflow). baseOffset
// is the absolute image offset data[0] corresponds to, used to build Spans.
//
// It returns the decoded header, every column value fully captured on the
// page (the zero Value for a column that spilled), and the list of units
// still owed by an overflow chain. headerSpills is true when the header itself
// (HeaderSize bytes) extends past len(data); in that case the caller (the
// b-tree materializer, which has overflow-chain access) must fetch the
// missing header bytes and re-invoke decodeRecordPrefix before the body can
// be parsed at all (spec §9, §11.1 "StitchRecordHeader").
func decodeRecordPrefix(enc TextEncoding, data []byte, baseOffset int) (rec Record, units []OverflowUnit, headerSpills bool, err error) {
	headerSize, n := varint.Decode(data)
	if headerSize < 0 {
		return rec, nil, false, newError("decode_record_header", ErrInvalidSerialType, map[string]any{"header_size": headerSize})
	}
	if int(headerSize) > len(data) {
		return rec, nil, true, nil
	}

	header := RecordHeader{HeaderSize: headerSize}
	offset := n
	for offset < int(headerSize) {
		st, consumed := varint.Decode(data[offset:])
		header.SerialTypes = append(header.SerialTypes, st)
		offset += consumed
		if consumed == 0 {
			break // malformed: varint couldn't make progress
		}
	}
	header.Span = span(data, 0, int(headerSize))
	header.Span.Offset += baseOffset

	values := make([]Value, len(header.SerialTypes))
	var pending []OverflowUnit
	body := data[int(headerSize):]
	bodyBase := baseOffset + int(headerSize)
	cursor := 0
	spilled := false

	for i, st := range header.SerialTypes {
		size, ok := serialTypeSize(st)
		if !ok {
			return rec, nil, false, newError("decode_record_body", ErrInvalidSerialType, map[string]any{
				"column": i, "serial_type": st,
			})
		}
		if spilled {
			pending = append(pending, OverflowUnit{ColumnIndex: i, SerialType: st, BytesLeft: size})
			continue
		}
		available := len(body) - cursor
		if available < 0 {
			available = 0
		}
		captured := size
		if captured > available {
			captured = available
		}
		raw := body[cursor : cursor+captured]
		sp := span(body, cursor, captured)
		sp.Offset += bodyBase

		if captured < size {
			spilled = true
			pending = append(pending, OverflowUnit{
				ColumnIndex: i, SerialType: st,
				BytesLeft:  size - captured,
				Partial:    append([]byte(nil), raw...),
				PartialSpn: sp,
			})
			cursor += captured
			continue
		}

		val, verr := decodeValue(enc, st, raw, sp)
		if verr != nil {
			return rec, nil, false, verr
		}
		values[i] = val
		cursor += captured
	}

	rec = Record{Header: header, Values: values}
	return rec, pending, false, nil
}
