package wmi

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_Tags(t *testing.T) {
	tests := []struct {
		name     string
		in       Variant
		wantKind Kind
		wantJSON string
	}{
		{"string", Variant{Type: VTBSTR, Val: "TestOS"}, KindString, `"TestOS"`},
		{"int32", Variant{Type: VTI4, Val: int32(-42)}, KindInt32, `-42`},
		{"uint32", Variant{Type: VTUI4, Val: uint32(4000000000)}, KindUint32, `4000000000`},
		{"int64", Variant{Type: VTI8, Val: int64(-9000000000)}, KindInt64, `-9000000000`},
		{"uint64", Variant{Type: VTUI8, Val: uint64(18446744073709551615)}, KindUint64, `18446744073709551615`},
		{"bool true", Variant{Type: VTBool, Val: true}, KindBool, `true`},
		{"bool false", Variant{Type: VTBool, Val: false}, KindBool, `false`},
		{"null", Variant{Type: VTNull}, KindNull, `"null"`},
		{"int16 rendered", Variant{Type: VTI2, Val: int16(7)}, KindRendered, `"7"`},
		{"uint8 rendered", Variant{Type: VTUI1, Val: uint8(255)}, KindRendered, `"255"`},
		{"double rendered", Variant{Type: VTR8, Val: 1.5}, KindRendered, `"1.5"`},
		{"empty rendered", Variant{Type: VTEmpty}, KindRendered, `""`},
		{"string array rendered", Variant{Type: VTArray | VTBSTR, Val: []interface{}{"a", "b", "c"}}, KindRendered, `"a; b; c"`},
		{"null bstr falls through", Variant{Type: VTBSTR}, KindUnknown, `"unknown"`},
		{"object reference", Variant{Type: VTDispatch}, KindUnknown, `"unknown"`},
		{"NaN", Variant{Type: VTR8, Val: nanValue()}, KindUnknown, `"unknown"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.in)
			assert.Equal(t, tt.wantKind, got.Kind())

			data, err := json.Marshal(got)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(data))
		})
	}
}

func TestConvert_MismatchedPayloadFallsBackToRendering(t *testing.T) {
	// A VT_I4 tag carrying an int64 payload is not an int32.
	got := Convert(Variant{Type: VTI4, Val: int64(12)})
	assert.Equal(t, KindRendered, got.Kind())
	assert.Equal(t, "12", got.String())
}

func TestConvert_NullIsStringNotJSONNull(t *testing.T) {
	data, err := json.Marshal(Convert(Variant{Type: VTNull}))
	require.NoError(t, err)
	assert.Equal(t, `"null"`, string(data))
}

func TestRender_LengthLimit(t *testing.T) {
	fits := strings.Repeat("x", maxRenderedLen)
	got := Convert(Variant{Type: VTArray | VTBSTR, Val: []interface{}{fits}})
	assert.Equal(t, KindRendered, got.Kind())

	tooLong := strings.Repeat("x", maxRenderedLen+1)
	got = Convert(Variant{Type: VTArray | VTBSTR, Val: []interface{}{tooLong}})
	assert.Equal(t, KindUnknown, got.Kind())

	// Plain strings are never subject to the rendering limit.
	got = Convert(Variant{Type: VTBSTR, Val: tooLong})
	assert.Equal(t, KindString, got.Kind())
}

func TestRender_SurrogatePairsCountTwice(t *testing.T) {
	s := strings.Repeat("😀", maxRenderedLen/2+1)
	_, err := Render(Variant{Type: VTArray | VTBSTR, Val: []interface{}{s}})
	assert.Error(t, err)
}

func TestRender_ArrayWithBadElementFails(t *testing.T) {
	_, err := Render(Variant{Type: VTArray | VTVariant, Val: []interface{}{"a", struct{}{}}})
	assert.Error(t, err)
}

func TestRender_Time(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	s, err := Render(Variant{Type: VTDate, Val: ts})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T12:30:00Z", s)
}

func TestRender_Bool(t *testing.T) {
	s, err := Render(Variant{Type: VTArray | VTBool, Val: []interface{}{true, false}})
	require.NoError(t, err)
	assert.Equal(t, "True; False", s)
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}
