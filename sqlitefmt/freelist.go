package sqlitefmt

import "encoding/binary"

// TrunkFreelist is a freelist trunk page: a pointer to the next trunk, a
// count of leaf-page numbers it carries, and the leaf-page numbers
// themselves (fileformat2.html §1.6).
type TrunkFreelist struct {
	Number        int
	NextTrunk     int
	LeafCount     int
	LeafPages     []int
	// Suspect lists leaf-page numbers that fall outside the database's own
	// page count — a corrupt-but-decodable freelist (SPEC_FULL.md §11.1):
	// rather than fail the whole page, those entries are flagged here and
	// excluded from LeafPages.
	Suspect []int
}

func decodeTrunkFreelist(header *Header, image []byte, number int, pagesTotal int) (*TrunkFreelist, error) {
	start, end, err := pageBounds(header, image, number)
	if err != nil {
		return nil, err
	}
	data := image[start:end]
	if len(data) < 8 {
		return nil, newError("decode_trunk_freelist", ErrTruncatedInput, map[string]any{"page": number})
	}

	tf := &TrunkFreelist{Number: number}
	tf.NextTrunk = int(binary.BigEndian.Uint32(data[0:4]))
	tf.LeafCount = int(binary.BigEndian.Uint32(data[4:8]))

	need := 8 + 4*tf.LeafCount
	if need > len(data) {
		return nil, newError("decode_trunk_freelist", ErrTruncatedInput, map[string]any{
			"page": number, "need": need, "have": len(data),
		})
	}
	for i := 0; i < tf.LeafCount; i++ {
		off := 8 + 4*i
		page := int(binary.BigEndian.Uint32(data[off : off+4]))
		if page < 1 || page > pagesTotal {
			tf.Suspect = append(tf.Suspect, page)
			continue
		}
		tf.LeafPages = append(tf.LeafPages, page)
	}

	return tf, nil
}

// LeafFreelist is a freelist leaf page: entirely unallocated space, opaque
// beyond being reachable from a trunk (fileformat2.html §1.6).
type LeafFreelist struct {
	Number int
	Bytes  []byte
}

func decodeLeafFreelist(header *Header, image []byte, number int) (*LeafFreelist, error) {
	start, end, err := pageBounds(header, image, number)
	if err != nil {
		return nil, err
	}
	return &LeafFreelist{Number: number, Bytes: image[start:end]}, nil
}
