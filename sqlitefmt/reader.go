package sqlitefmt

import (
	"context"
	"fmt"
	"os"
)

// Reader is the read-only entry point onto a decoded database image: the
// parsed header plus on-demand page decoding (spec §6). It holds the whole
// file in memory, mirroring the teacher's DatabaseRawImpl but dropping its
// concurrency primitives — page decoding here is synchronous throughout
// (SPEC_FULL.md §11).
type Reader struct {
	image  []byte
	header *Header
	config Config
}

// Open reads filePath fully into memory and parses its database header.
func Open(filePath string, options ...Option) (*Reader, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open database file: %w", err)
	}
	return NewReader(data, options...)
}

// NewReader parses an already-loaded database image.
func NewReader(image []byte, options ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range options {
		opt(&cfg)
	}

	header, err := ParseHeader(image)
	if err != nil {
		return nil, err
	}
	if cfg.strictSchema && header.SchemaFormatWarning {
		return nil, newError("new_reader", ErrSchemaMismatch, map[string]any{
			"schema_format": header.SchemaFormat,
		})
	}

	return &Reader{image: image, header: header, config: cfg}, nil
}

// Header returns the parsed database header.
func (r *Reader) Header() *Header { return r.header }

// PageSize returns the database's page size in bytes.
func (r *Reader) PageSize() int { return r.header.PageSize }

// PagesTotal returns the number of pages the image declares (spec §3's
// size-authoritative invariant, Header.DeclaredPageCount).
func (r *Reader) PagesTotal() int { return r.pagesTotal() }

func (r *Reader) pagesTotal() int { return r.header.DeclaredPageCount(len(r.image)) }

func (r *Reader) checkPageNumber(number int) error {
	if number < 1 || number > r.pagesTotal() {
		return newError("check_page_number", ErrPageOutOfRange, map[string]any{
			"page": number, "pages_total": r.pagesTotal(),
		})
	}
	return nil
}

// GetBTreePage decodes page number as a b-tree page (table or index,
// interior or leaf).
func (r *Reader) GetBTreePage(number int) (*Page, error) {
	if err := r.checkPageNumber(number); err != nil {
		return nil, err
	}
	return decodePage(r.header, r.image, number)
}

// GetOverflowPage decodes page number as an overflow-chain link.
func (r *Reader) GetOverflowPage(number int) (*OverflowPage, error) {
	if err := r.checkPageNumber(number); err != nil {
		return nil, err
	}
	return decodeOverflowPage(r.header, r.image, number)
}

// GetTrunkFreelistPage decodes page number as a freelist trunk page.
func (r *Reader) GetTrunkFreelistPage(number int) (*TrunkFreelist, error) {
	if err := r.checkPageNumber(number); err != nil {
		return nil, err
	}
	return decodeTrunkFreelist(r.header, r.image, number, r.pagesTotal())
}

// GetLeafFreelistPage decodes page number as a freelist leaf page.
func (r *Reader) GetLeafFreelistPage(number int) (*LeafFreelist, error) {
	if err := r.checkPageNumber(number); err != nil {
		return nil, err
	}
	return decodeLeafFreelist(r.header, r.image, number)
}

// GetBTrees discovers every table and index b-tree registered in the
// schema (sqlite_schema / sqlite_master on page 1) and materializes each
// one, including the synthetic schema b-tree itself (spec §6).
func (r *Reader) GetBTrees(ctx context.Context) ([]*BTree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get btrees: %w", err)
	}
	return r.materializeAll()
}

// MaterializeAll fully decodes the schema and every b-tree it names.
// Overflowing schema rows are stitched together from their overflow chains;
// the cells of the materialized b-trees keep only their on-page record and
// Overflow descriptor, and their overflow chains are not walked. ctx allows external
// cancellation of what can be a large, recursive traversal; the
// traversal itself is single-threaded (SPEC_FULL.md §11).
func (r *Reader) MaterializeAll(ctx context.Context) (*Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("materialize all: %w", err)
	}
	trees, err := r.materializeAll()
	if err != nil {
		return nil, err
	}
	return &Database{Header: r.header, BTrees: trees}, nil
}

// Database is the fully materialized decode result: the database header
// plus every b-tree discovered from the schema.
type Database struct {
	Header *Header
	BTrees []*BTree
}
