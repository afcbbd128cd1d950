package sqlitefmt

// SchemaObjectKind is the "type" column of a sqlite_schema row.
type SchemaObjectKind string

const (
	SchemaTable   SchemaObjectKind = "table"
	SchemaIndex   SchemaObjectKind = "index"
	SchemaView    SchemaObjectKind = "view"
	SchemaTrigger SchemaObjectKind = "trigger"
)

// SchemaRow is one decoded row of the sqlite_schema (sqlite_master) table:
// type, name, tbl_name, rootpage, sql (spec §3 "Schema row").
type SchemaRow struct {
	Type     SchemaObjectKind
	Name     string
	TblName  string
	RootPage int
	SQL      string
}

// BTreeNode is one page's worth of a materialized b-tree: its decoded Page
// plus, for interior pages, the already-materialized children in cell
// order, with the right-most child last.
type BTreeNode struct {
	Page     *Page
	Children []*BTreeNode
}

// BTree is a fully materialized table or index b-tree: the schema row that
// named it (nil for the synthetic schema b-tree itself, which has no
// schema row of its own) and its root node.
type BTree struct {
	Schema *SchemaRow
	Root   *BTreeNode
}

const schemaBTreeRootPage = 1

func rowToSchemaRow(rec *Record) (SchemaRow, bool) {
	if len(rec.Values) < 5 {
		return SchemaRow{}, false
	}
	row := SchemaRow{
		Type:     SchemaObjectKind(rec.Values[0].Text),
		Name:     rec.Values[1].Text,
		TblName:  rec.Values[2].Text,
		RootPage: int(rec.Values[3].Int),
		SQL:      rec.Values[4].Text,
	}
	return row, true
}

// schemaRows walks the schema b-tree (always rooted at page 1) and returns
// every row it contains, stitching overflowed cells along the way.
func (r *Reader) schemaRows() ([]SchemaRow, error) {
	node, err := r.materializeNode(schemaBTreeRootPage, 0)
	if err != nil {
		return nil, err
	}
	var rows []SchemaRow
	var walk func(n *BTreeNode) error
	walk = func(n *BTreeNode) error {
		for _, cell := range n.Page.Cells {
			if cell.Kind != CellTableLeaf {
				continue
			}
			rec, err := r.fullRecord(&cell)
			if err != nil {
				return err
			}
			if row, ok := rowToSchemaRow(rec); ok {
				rows = append(rows, row)
			}
		}
		for _, child := range n.Children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(node); err != nil {
		return nil, err
	}
	return rows, nil
}

// fullRecord returns a cell's Record, resolving overflow if needed and
// merging the overflow-stitched values back into the on-page ones. A cell
// whose record header itself spills onto the overflow chain is completed
// first via StitchRecordHeader (spec §9, §11.1) before any remaining column
// overflow is resolved.
func (r *Reader) fullRecord(cell *Cell) (*Record, error) {
	if cell.HeaderSpillsOverflow {
		if cell.Overflow == nil {
			return nil, newError("full_record", ErrTruncatedInput, map[string]any{
				"reason": "record header spills overflow but cell has no overflow chain",
			})
		}
		rec, ov, err := r.StitchRecordHeader(cell.OnPageHeaderBytes, cell.Overflow.FirstPage, cell.PayloadOffset)
		if err != nil {
			return nil, err
		}
		if ov == nil {
			return &rec, nil
		}
		stitched, err := r.ResolveOverflow(ov)
		if err != nil {
			return nil, err
		}
		for i, u := range ov.Units {
			rec.Values[u.ColumnIndex] = stitched[i]
		}
		return &rec, nil
	}
	if cell.Record == nil {
		return nil, newError("full_record", ErrTruncatedInput, map[string]any{
			"reason": "cell has no on-page record",
		})
	}
	if cell.Overflow == nil {
		return cell.Record, nil
	}
	stitched, err := r.ResolveOverflow(cell.Overflow)
	if err != nil {
		return nil, err
	}
	rec := *cell.Record
	for i, u := range cell.Overflow.Units {
		rec.Values[u.ColumnIndex] = stitched[i]
	}
	return &rec, nil
}

// materializeNode decodes page number and, if it's an interior page,
// recursively materializes every child. depth guards against a cyclic
// page graph (spec §4.10, §9) via Config.maxTraversalDepth.
func (r *Reader) materializeNode(number int, depth int) (*BTreeNode, error) {
	if depth > r.config.maxTraversalDepth {
		return nil, newError("materialize_node", ErrOverflowCycle, map[string]any{
			"page": number, "depth": depth,
		})
	}
	page, err := r.GetBTreePage(number)
	if err != nil {
		return nil, err
	}
	node := &BTreeNode{Page: page}

	if page.Header.isInterior() {
		children := make([]*BTreeNode, 0, len(page.Cells)+1)
		for _, cell := range page.Cells {
			child, err := r.materializeNode(cell.LeftChild, depth+1)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		rightmost, err := r.materializeNode(page.Header.RightMostPointer, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, rightmost)
		node.Children = children
	}

	return node, nil
}

// materializeAll discovers the schema and materializes every b-tree it
// names, plus the synthetic schema b-tree rooted at page 1 itself.
func (r *Reader) materializeAll() ([]*BTree, error) {
	rows, err := r.schemaRows()
	if err != nil {
		return nil, err
	}

	schemaRoot, err := r.materializeNode(schemaBTreeRootPage, 0)
	if err != nil {
		return nil, err
	}
	trees := []*BTree{{Schema: nil, Root: schemaRoot}}

	for i := range rows {
		row := rows[i]
		if row.Type != SchemaTable && row.Type != SchemaIndex {
			continue
		}
		if row.RootPage < 1 {
			continue
		}
		root, err := r.materializeNode(row.RootPage, 0)
		if err != nil {
			return nil, err
		}
		trees = append(trees, &BTree{Schema: &row, Root: root})
	}

	return trees, nil
}
