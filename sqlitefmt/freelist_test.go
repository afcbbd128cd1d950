package sqlitefmt

import (
	"encoding/binary"
	"testing"
)

func buildTrunkPage(pageSize int, nextTrunk int, leafPages []int) []byte {
	page := make([]byte, pageSize)
	binary.BigEndian.PutUint32(page[0:4], uint32(nextTrunk))
	binary.BigEndian.PutUint32(page[4:8], uint32(len(leafPages)))
	for i, lp := range leafPages {
		binary.BigEndian.PutUint32(page[8+4*i:12+4*i], uint32(lp))
	}
	return page
}

func TestDecodeTrunkFreelist(t *testing.T) {
	pageSize := 512
	page2 := buildTrunkPage(pageSize, 0, []int{3, 4})
	image := buildImage(pageSize, [][]byte{nil, page2, nil, nil})

	r, err := NewReader(image)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	tf, err := r.GetTrunkFreelistPage(2)
	if err != nil {
		t.Fatalf("GetTrunkFreelistPage: %v", err)
	}
	if tf.NextTrunk != 0 {
		t.Fatalf("next trunk = %d, want 0", tf.NextTrunk)
	}
	if len(tf.LeafPages) != 2 || tf.LeafPages[0] != 3 || tf.LeafPages[1] != 4 {
		t.Fatalf("leaf pages = %v, want [3 4]", tf.LeafPages)
	}
	if len(tf.Suspect) != 0 {
		t.Fatalf("unexpected suspect entries: %v", tf.Suspect)
	}
}

func TestDecodeTrunkFreelistSuspectEntries(t *testing.T) {
	pageSize := 512
	page2 := buildTrunkPage(pageSize, 0, []int{3, 9999})
	image := buildImage(pageSize, [][]byte{nil, page2, nil, nil})

	r, err := NewReader(image)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	tf, err := r.GetTrunkFreelistPage(2)
	if err != nil {
		t.Fatalf("GetTrunkFreelistPage: %v", err)
	}
	if len(tf.LeafPages) != 1 || tf.LeafPages[0] != 3 {
		t.Fatalf("leaf pages = %v, want [3]", tf.LeafPages)
	}
	if len(tf.Suspect) != 1 || tf.Suspect[0] != 9999 {
		t.Fatalf("suspect = %v, want [9999]", tf.Suspect)
	}
}

func TestDecodeLeafFreelist(t *testing.T) {
	pageSize := 512
	image := buildImage(pageSize, [][]byte{nil, nil})
	r, err := NewReader(image)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	lf, err := r.GetLeafFreelistPage(2)
	if err != nil {
		t.Fatalf("GetLeafFreelistPage: %v", err)
	}
	if len(lf.Bytes) != pageSize {
		t.Fatalf("leaf bytes = %d, want %d", len(lf.Bytes), pageSize)
	}
}
