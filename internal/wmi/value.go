package wmi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies which case of Value is populated.
type Kind int

const (
	KindString Kind = iota
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindBool
	KindNull
	KindRendered
	KindUnknown
)

const (
	nullLiteral    = "null"
	unknownLiteral = "unknown"
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindUint32:
		return "uint32"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindRendered:
		return "rendered"
	case KindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a normalized property value. Build it with one of the
// constructors below; the zero Value is an empty string.
type Value struct {
	kind Kind
	str  string
	i64  int64
	u64  uint64
	b    bool
}

func StringValue(s string) Value   { return Value{kind: KindString, str: s} }
func Int32Value(n int32) Value     { return Value{kind: KindInt32, i64: int64(n)} }
func Uint32Value(n uint32) Value   { return Value{kind: KindUint32, u64: uint64(n)} }
func Int64Value(n int64) Value     { return Value{kind: KindInt64, i64: n} }
func Uint64Value(n uint64) Value   { return Value{kind: KindUint64, u64: n} }
func BoolValue(b bool) Value       { return Value{kind: KindBool, b: b} }
func NullValue() Value             { return Value{kind: KindNull, str: nullLiteral} }
func RenderedValue(s string) Value { return Value{kind: KindRendered, str: s} }
func UnknownValue() Value          { return Value{kind: KindUnknown, str: unknownLiteral} }

func (v Value) Kind() Kind { return v.kind }

// Interface returns the Go value that is written to JSON.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt32:
		return int32(v.i64)
	case KindUint32:
		return uint32(v.u64)
	case KindInt64:
		return v.i64
	case KindUint64:
		return v.u64
	case KindBool:
		return v.b
	default:
		return v.str
	}
}

func (v Value) String() string {
	return fmt.Sprint(v.Interface())
}

func (v Value) MarshalJSON() ([]byte, error) {
	return marshalJSON(v.Interface())
}

// marshalJSON is json.Marshal without HTML escaping, so property text reaches
// the caller unchanged.
func marshalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
