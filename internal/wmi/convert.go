package wmi

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// VarType is an automation VARIANT type tag.
type VarType uint16

const (
	VTEmpty    VarType = 0
	VTNull     VarType = 1
	VTI2       VarType = 2
	VTI4       VarType = 3
	VTR4       VarType = 4
	VTR8       VarType = 5
	VTDate     VarType = 7
	VTBSTR     VarType = 8
	VTDispatch VarType = 9
	VTBool     VarType = 11
	VTVariant  VarType = 12
	VTUnknown  VarType = 13
	VTI1       VarType = 16
	VTUI1      VarType = 17
	VTUI2      VarType = 18
	VTUI4      VarType = 19
	VTI8       VarType = 20
	VTUI8      VarType = 21
	VTArray    VarType = 0x2000
)

// maxRenderedLen is the longest rendering, in UTF-16 code units, that fits a
// 512 character buffer with its terminator.
const maxRenderedLen = 511

var errNotRenderable = errors.New("value has no string rendering")

// Variant is a typed property value as read from the subsystem, already
// detached from any live handle. Val holds the Go form of the payload:
// string, the sized integer and float types, bool, time.Time, or
// []interface{} for arrays. It is nil when the payload is absent or is an
// object reference.
type Variant struct {
	Type VarType
	Val  interface{}
}

// Convert tags a variant. The checks run in a fixed order: string, int32,
// uint32, int64, uint64, bool, null, string rendering, unknown.
func Convert(v Variant) Value {
	switch {
	case v.Type == VTBSTR && isString(v.Val):
		return StringValue(v.Val.(string))
	case v.Type == VTI4:
		if n, ok := v.Val.(int32); ok {
			return Int32Value(n)
		}
	case v.Type == VTUI4:
		if n, ok := v.Val.(uint32); ok {
			return Uint32Value(n)
		}
	case v.Type == VTI8:
		if n, ok := v.Val.(int64); ok {
			return Int64Value(n)
		}
	case v.Type == VTUI8:
		if n, ok := v.Val.(uint64); ok {
			return Uint64Value(n)
		}
	case v.Type == VTBool:
		if b, ok := v.Val.(bool); ok {
			return BoolValue(b)
		}
	case v.Type == VTNull:
		return NullValue()
	}

	s, err := Render(v)
	if err != nil {
		return UnknownValue()
	}
	return RenderedValue(s)
}

func isString(val interface{}) bool {
	_, ok := val.(string)
	return ok
}

// Render produces the best-effort string form of any variant.
func Render(v Variant) (string, error) {
	if v.Type == VTEmpty {
		return "", nil
	}
	s, err := renderValue(v.Val)
	if err != nil {
		return "", err
	}
	if utf16Len(s) > maxRenderedLen {
		return "", fmt.Errorf("rendering of %d code units exceeds %d", utf16Len(s), maxRenderedLen)
	}
	return s, nil
}

func renderValue(val interface{}) (string, error) {
	switch x := val.(type) {
	case string:
		return x, nil
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case float32:
		return renderFloat(float64(x), 32)
	case float64:
		return renderFloat(x, 64)
	case time.Time:
		return x.Format(time.RFC3339), nil
	case []interface{}:
		parts := make([]string, 0, len(x))
		for _, elem := range x {
			s, err := renderValue(elem)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, "; "), nil
	default:
		return "", errNotRenderable
	}
}

func renderFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errNotRenderable
	}
	return strconv.FormatFloat(f, 'g', -1, bits), nil
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
