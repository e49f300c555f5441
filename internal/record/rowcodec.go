package record

import (
	"errors"
	"math"

	"github.com/petreldb/petrel/pkg/bx"
)

var (
	ErrSchemaMismatch = errors.New("record: schema/values mismatch")
	ErrCorruptData    = errors.New("record: corrupt row bytes")
)

// Row wire format:
// [nullmap: ceil(N/8) bytes, bit=1 => NULL] | [field0 data?] [field1 data?] ...
//
// Field encodings:
//
//	Integer  4-byte LE two's-complement
//	Float    8-byte LE IEEE-754
//	Bool     1 byte, 0 or 1
//	Text     u32 LE length + raw bytes (UTF-8 assumed, not validated)
//	VarChar  same as Text, length checked against Column.MaxLen on encode
func EncodeRow(s Schema, values []any) ([]byte, error) {
	nc := s.NumCols()
	if len(values) != nc {
		return nil, ErrSchemaMismatch
	}

	nbBytes := (nc + 7) / 8
	out := make([]byte, nbBytes) // nullmap reserved up front

	for i, col := range s.Cols {
		v := values[i]
		if v == nil {
			if !col.Nullable {
				return nil, ErrSchemaMismatch
			}
			out[i/8] |= 1 << (uint(i) & 7)
			continue
		}

		switch col.Type {
		case ColInteger:
			x, ok := asInt32(v)
			if !ok {
				return nil, ErrSchemaMismatch
			}
			var b [4]byte
			bx.PutU32(b[:], uint32(x))
			out = append(out, b[:]...)

		case ColFloat:
			x, ok := asFloat64(v)
			if !ok {
				return nil, ErrSchemaMismatch
			}
			var b [8]byte
			bx.PutU64(b[:], math.Float64bits(x))
			out = append(out, b[:]...)

		case ColBool:
			x, ok := v.(bool)
			if !ok {
				return nil, ErrSchemaMismatch
			}
			if x {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}

		case ColText, ColVarChar:
			str, ok := v.(string)
			if !ok {
				return nil, ErrSchemaMismatch
			}
			bs := []byte(str)
			if col.Type == ColVarChar && col.MaxLen > 0 && len(bs) > col.MaxLen {
				return nil, ErrSchemaMismatch
			}
			if uint64(len(bs)) > math.MaxUint32 {
				return nil, ErrSchemaMismatch
			}
			var l [4]byte
			bx.PutU32(l[:], uint32(len(bs)))
			out = append(out, l[:]...)
			out = append(out, bs...)

		default:
			return nil, ErrSchemaMismatch
		}
	}
	return out, nil
}

func DecodeRow(s Schema, buf []byte) ([]any, error) {
	nc := s.NumCols()
	nbBytes := (nc + 7) / 8
	if len(buf) < nbBytes {
		return nil, ErrCorruptData
	}
	nullmap := buf[:nbBytes]
	i := nbBytes

	out := make([]any, nc)
	for colIdx, col := range s.Cols {
		isNull := (nullmap[colIdx/8]>>(uint(colIdx)&7))&1 == 1
		if isNull {
			if !col.Nullable {
				return nil, ErrCorruptData
			}
			out[colIdx] = nil
			continue
		}

		switch col.Type {
		case ColInteger:
			if i+4 > len(buf) {
				return nil, ErrCorruptData
			}
			out[colIdx] = bx.I32(buf[i : i+4])
			i += 4

		case ColFloat:
			if i+8 > len(buf) {
				return nil, ErrCorruptData
			}
			out[colIdx] = math.Float64frombits(bx.U64(buf[i : i+8]))
			i += 8

		case ColBool:
			if i+1 > len(buf) {
				return nil, ErrCorruptData
			}
			switch buf[i] {
			case 0:
				out[colIdx] = false
			case 1:
				out[colIdx] = true
			default:
				return nil, ErrCorruptData
			}
			i += 1

		case ColText, ColVarChar:
			if i+4 > len(buf) {
				return nil, ErrCorruptData
			}
			l := int(bx.U32(buf[i : i+4]))
			i += 4
			if l < 0 || i+l > len(buf) {
				return nil, ErrCorruptData
			}
			out[colIdx] = string(buf[i : i+l])
			i += l

		default:
			return nil, ErrCorruptData
		}
	}

	if i != len(buf) {
		return nil, ErrCorruptData
	}
	return out, nil
}

// ---- small helpers to accept multiple numeric types on encode ----

func asInt32(v any) (int32, bool) {
	switch x := v.(type) {
	case int32:
		return x, true
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x), true
		}
	case int64:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x), true
		}
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}
