package sqlitefmt

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// ValueKind is the decoded shape of a record column, derived from its
// serial type (spec §3).
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindText
	KindBlob
)

// Value is one decoded, typed column. Span carries the exact bytes the
// value was built from (possibly assembled across a page boundary by
// payload stitching, §4.9), so the viewer can still address it.
type Value struct {
	Kind       ValueKind
	SerialType int64
	Span       Span

	Int   int64
	Float float64
	Text  string
	Blob  []byte
}

// serialTypeSize returns the number of bytes a serial type occupies on
// disk, per the canonical SQLite mapping in spec §3. A negative serialType
// or 10/11 (reserved) is reported via ok=false.
func serialTypeSize(serialType int64) (size int, ok bool) {
	switch {
	case serialType < 0:
		return 0, false
	case serialType <= 11:
		switch serialType {
		case 0, 8, 9:
			return 0, true
		case 1:
			return 1, true
		case 2:
			return 2, true
		case 3:
			return 3, true
		case 4:
			return 4, true
		case 5:
			return 6, true
		case 6, 7:
			return 8, true
		default: // 10, 11: reserved
			return 0, false
		}
	case serialType%2 == 0:
		return int((serialType - 12) / 2), true
	default:
		return int((serialType - 13) / 2), true
	}
}

// decodeValue interprets raw (exactly serialTypeSize(serialType) bytes, or
// fewer for a value truncated by a page boundary — see §4.2) as a typed
// Value. sp is the Span the caller has already computed for these bytes.
func decodeValue(enc TextEncoding, serialType int64, raw []byte, sp Span) (Value, error) {
	v := Value{SerialType: serialType, Span: sp}

	switch {
	case serialType == 0:
		v.Kind = KindNull
	case serialType == 8:
		v.Kind = KindInt
		v.Int = 0
	case serialType == 9:
		v.Kind = KindInt
		v.Int = 1
	case serialType >= 1 && serialType <= 6:
		v.Kind = KindInt
		v.Int = decodeSignedInt(raw)
	case serialType == 7:
		v.Kind = KindFloat
		if len(raw) == 8 {
			v.Float = math.Float64frombits(binary.BigEndian.Uint64(raw))
		}
	case serialType == 10 || serialType == 11:
		return v, newError("decode_value", ErrInvalidSerialType, map[string]any{"serial_type": serialType})
	case serialType%2 == 0:
		v.Kind = KindBlob
		v.Blob = append([]byte(nil), raw...)
	default:
		v.Kind = KindText
		text, err := decodeText(enc, raw)
		if err != nil {
			return v, err
		}
		v.Text = text
	}
	return v, nil
}

// decodeSignedInt sign-extends a big-endian two's-complement integer of
// 1, 2, 3, 4, 6, or 8 bytes (serial types 1..6) to int64.
func decodeSignedInt(raw []byte) int64 {
	var v int64
	for _, b := range raw {
		v = (v << 8) | int64(b)
	}
	bits := uint(len(raw)) * 8
	if bits < 64 && raw[0]&0x80 != 0 {
		v -= int64(1) << bits
	}
	return v
}

func decodeText(enc TextEncoding, raw []byte) (string, error) {
	switch enc {
	case EncodingUTF8, 0:
		return string(raw), nil
	case EncodingUTF16LE:
		return decodeUTF16(raw, unicode.LittleEndian)
	case EncodingUTF16BE:
		return decodeUTF16(raw, unicode.BigEndian)
	default:
		return "", newError("decode_text", ErrInvalidTextEncoding, map[string]any{"encoding": enc})
	}
}

func decodeUTF16(raw []byte, order unicode.Endianness) (string, error) {
	decoder := unicode.UTF16(order, unicode.IgnoreBOM).NewDecoder()
	out, err := decoder.Bytes(raw)
	if err != nil {
		return "", newError("decode_text", fmt.Errorf("%w: %v", ErrTextDecodeFailure, err), nil)
	}
	return string(out), nil
}
