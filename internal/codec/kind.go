package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind is the scalar type stored in a cell. It decides both the byte encoding and the type a
// column is declared with in filter expressions.
type Kind string

const (
	KindString  Kind = "string"
	KindInt64   Kind = "int64"
	KindFloat64 Kind = "float64"
	KindBool    Kind = "bool"
	KindBytes   Kind = "bytes"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInt64, KindFloat64, KindBool, KindBytes:
		return true
	}
	return false
}

// Value is a typed, encoded scalar. It is how filter parameters travel to a remote store.
type Value struct {
	Kind Kind   `json:"kind"`
	Raw  []byte `json:"raw"`
}

// Interface decodes the value back into its Go form.
func (v Value) Interface() (any, error) {
	return Decode(v.Kind, v.Raw)
}

// ValueOf infers the kind of a Go value and encodes it. Integer types widen to int64 and
// floating point types to float64.
func ValueOf(v any) (Value, error) {
	var (
		kind Kind
		norm any
	)
	switch x := v.(type) {
	case string:
		kind, norm = KindString, x
	case []byte:
		kind, norm = KindBytes, x
	case bool:
		kind, norm = KindBool, x
	case int:
		kind, norm = KindInt64, int64(x)
	case int8:
		kind, norm = KindInt64, int64(x)
	case int16:
		kind, norm = KindInt64, int64(x)
	case int32:
		kind, norm = KindInt64, int64(x)
	case int64:
		kind, norm = KindInt64, x
	case uint8:
		kind, norm = KindInt64, int64(x)
	case uint16:
		kind, norm = KindInt64, int64(x)
	case uint32:
		kind, norm = KindInt64, int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, newError(ErrCodec, "uint64 value %d overflows int64", x)
		}
		kind, norm = KindInt64, int64(x)
	case float32:
		kind, norm = KindFloat64, float64(x)
	case float64:
		kind, norm = KindFloat64, x
	default:
		return Value{}, newError(ErrCodec, "unsupported value type %T", v)
	}

	raw, err := Encode(kind, norm)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: kind, Raw: raw}, nil
}

// Encode converts v into the byte form of kind. v must already be the Go type of the kind:
// string, int64, float64, bool or []byte.
func Encode(kind Kind, v any) ([]byte, error) {
	switch kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			break
		}
		return []byte(s), nil
	case KindInt64:
		n, ok := v.(int64)
		if !ok {
			break
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(n))
		return b, nil
	case KindFloat64:
		f, ok := v.(float64)
		if !ok {
			break
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(f))
		return b, nil
	case KindBool:
		flag, ok := v.(bool)
		if !ok {
			break
		}
		if flag {
			return []byte{0xff}, nil
		}
		return []byte{0x00}, nil
	case KindBytes:
		b, ok := v.([]byte)
		if !ok {
			break
		}
		if b == nil {
			return nil, nil
		}
		return append([]byte{}, b...), nil
	default:
		return nil, newError(ErrCodec, "unknown kind %q", kind)
	}
	return nil, newError(ErrCodec, "cannot encode %T as %s", v, kind)
}

// Decode converts raw bytes of kind back into string, int64, float64, bool or []byte. raw is
// the value of a present cell.
func Decode(kind Kind, raw []byte) (any, error) {
	switch kind {
	case KindString:
		return string(raw), nil
	case KindInt64:
		if len(raw) != 8 {
			return nil, newError(ErrCodec, "int64 cell must be 8 bytes, got %d", len(raw))
		}
		return int64(binary.BigEndian.Uint64(raw)), nil
	case KindFloat64:
		if len(raw) != 8 {
			return nil, newError(ErrCodec, "float64 cell must be 8 bytes, got %d", len(raw))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(raw)), nil
	case KindBool:
		if len(raw) != 1 {
			return nil, newError(ErrCodec, "bool cell must be 1 byte, got %d", len(raw))
		}
		return raw[0] != 0, nil
	case KindBytes:
		// a stored cell is present even when empty, so it never decodes to nil
		return append([]byte{}, raw...), nil
	}
	return nil, newError(ErrCodec, "unknown kind %q", kind)
}

// MustEncode is Encode for values known to match their kind, such as constants in tests.
func MustEncode(kind Kind, v any) []byte {
	b, err := Encode(kind, v)
	if err != nil {
		panic(fmt.Sprintf("codec: %v", err))
	}
	return b
}
