package sqlitefmt

import (
	"context"
	"encoding/binary"
	"testing"
)

// encodeIntColumn returns the single-byte serial type and body for a small
// (fits in int8) integer column.
func encodeIntColumn(v int8) (byte, []byte) {
	return 1, []byte{byte(v)}
}

// encodeTextColumn returns the single-byte serial type and body for a short
// text column (length small enough that 13+2*len(s) < 128).
func encodeTextColumn(s string) (byte, []byte) {
	return byte(13 + 2*len(s)), []byte(s)
}

func buildSchemaRowRecord(typ, name, tblName string, rootPage int8, sql string) []byte {
	t1, b1 := encodeTextColumn(typ)
	t2, b2 := encodeTextColumn(name)
	t3, b3 := encodeTextColumn(tblName)
	t4, b4 := encodeIntColumn(rootPage)
	t5, b5 := encodeTextColumn(sql)

	serialTypes := []byte{t1, t2, t3, t4, t5}
	var body []byte
	body = append(body, b1...)
	body = append(body, b2...)
	body = append(body, b3...)
	body = append(body, b4...)
	body = append(body, b5...)
	return buildRecord(serialTypes, body)
}

func buildSingleIntRowRecord(v int8) []byte {
	t, b := encodeIntColumn(v)
	return buildRecord([]byte{t}, b)
}

func wrapTableLeafCell(rowid byte, record []byte) []byte {
	return append([]byte{byte(len(record)), rowid}, record...)
}

func TestMaterializeMinimalDatabase(t *testing.T) {
	pageSize := 512

	schemaRecord := buildSchemaRowRecord("table", "simple", "simple", 2, "CREATE TABLE simple(int)")
	schemaCell := wrapTableLeafCell(1, schemaRecord)
	page1 := buildLeafPageAt(pageSize, HeaderSize, [][]byte{schemaCell})

	var tableCells [][]byte
	for rowid := int8(1); rowid <= 4; rowid++ {
		tableCells = append(tableCells, wrapTableLeafCell(byte(rowid), buildSingleIntRowRecord(rowid)))
	}
	page2 := buildLeafPage(pageSize, tableCells)

	image := make([]byte, pageSize*2)
	copy(image[:pageSize], page1)
	copy(image[:HeaderSize], minimalHeader(uint16(pageSize), 1))
	binary.BigEndian.PutUint32(image[28:32], 2) // size in pages
	copy(image[pageSize:], page2)

	r, err := NewReader(image)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	db, err := r.MaterializeAll(context.Background())
	if err != nil {
		t.Fatalf("MaterializeAll: %v", err)
	}

	if len(db.BTrees) != 2 {
		t.Fatalf("btrees = %d, want 2 (master schema + simple)", len(db.BTrees))
	}

	var master, simple *BTree
	for _, tree := range db.BTrees {
		if tree.Schema == nil {
			master = tree
		} else if tree.Schema.Name == "simple" {
			simple = tree
		}
	}
	if master == nil {
		t.Fatalf("missing synthetic master schema btree")
	}
	if master.Root.Page.Number != 1 {
		t.Fatalf("master schema root page = %d, want 1", master.Root.Page.Number)
	}
	if simple == nil {
		t.Fatalf("missing \"simple\" table btree")
	}
	if simple.Schema.Type != SchemaTable {
		t.Fatalf("simple.Type = %v, want table", simple.Schema.Type)
	}
	if simple.Schema.RootPage != 2 {
		t.Fatalf("simple.RootPage = %d, want 2", simple.Schema.RootPage)
	}

	cells := simple.Root.Page.Cells
	if len(cells) != 4 {
		t.Fatalf("simple table cells = %d, want 4", len(cells))
	}
	for i, cell := range cells {
		wantRowid := int64(i + 1)
		if cell.Rowid != wantRowid {
			t.Fatalf("cell %d rowid = %d, want %d", i, cell.Rowid, wantRowid)
		}
		if cell.Record.Values[0].Int != wantRowid {
			t.Fatalf("cell %d column 0 = %d, want %d", i, cell.Record.Values[0].Int, wantRowid)
		}
	}
}

func TestMaterializeNodeDepthGuard(t *testing.T) {
	pageSize := 512
	page1 := buildLeafPageAt(pageSize, HeaderSize, nil)
	image := make([]byte, pageSize)
	copy(image[:pageSize], page1)
	copy(image[:HeaderSize], minimalHeader(uint16(pageSize), 1))

	r, err := NewReader(image, WithMaxTraversalDepth(-1))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.materializeNode(1, 0); err == nil {
		t.Fatalf("expected depth-guard error with maxTraversalDepth = -1")
	}
}

// TestFullRecordStitchesHeaderSpillingOverflow exercises the path where a
// record's header itself extends past the on-page bytes: fullRecord must
// complete it via StitchRecordHeader rather than erroring, and every Span
// landing in the fetched overflow bytes must carry that page's real
// absolute offset, not baseOffset plus its position in the stitched buffer.
func TestFullRecordStitchesHeaderSpillingOverflow(t *testing.T) {
	pageSize := 512

	serialTypes := make([]byte, 40)
	for i := range serialTypes[:39] {
		serialTypes[i] = 13 // empty text column
	}
	serialTypes[39] = 17 // text column, length 2 ("ab")
	full := buildRecord(serialTypes, []byte("ab"))

	const onPageLen = 39
	onPageHeaderBytes := append([]byte(nil), full[:onPageLen]...)
	remainder := full[onPageLen:]

	overflowPage := buildOverflowPage(pageSize, 0, remainder)
	image := buildImage(pageSize, [][]byte{nil, overflowPage})

	r, err := NewReader(image)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	const baseOffset = 1000
	cell := Cell{
		Kind:                 CellTableLeaf,
		HeaderSpillsOverflow: true,
		OnPageHeaderBytes:    onPageHeaderBytes,
		PayloadOffset:        baseOffset,
		Overflow:             &Overflow{FirstPage: 2},
	}

	rec, err := r.fullRecord(&cell)
	if err != nil {
		t.Fatalf("fullRecord: %v", err)
	}
	if len(rec.Values) != 40 {
		t.Fatalf("values = %d, want 40", len(rec.Values))
	}
	if rec.Header.Span.Offset != baseOffset {
		t.Fatalf("header span offset = %d, want %d (entirely on-page)", rec.Header.Span.Offset, baseOffset)
	}
	last := rec.Values[39]
	if last.Kind != KindText || last.Text != "ab" {
		t.Fatalf("last column = %+v, want text \"ab\"", last)
	}
	wantOffset := pageSize + 4 + 2 // page 2's start + next-pointer + 2-byte lead-in
	if last.Span.Offset != wantOffset {
		t.Fatalf("last column span offset = %d, want %d (remapped into overflow page 2)", last.Span.Offset, wantOffset)
	}
}
