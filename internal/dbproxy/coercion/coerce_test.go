package coercion

import (
	"math/big"
	"testing"

	"github.com/buger/jsonparser"
	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/inf.v0"

	"github.com/yaw/dbproxy/internal/dbproxy/apierror"
)

// params extracts query_data the way the request validator does.
func params(t *testing.T, queryData string) []Param {
	t.Helper()
	var out []Param
	_, err := jsonparser.ArrayEach([]byte(queryData), func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		out = append(out, Param{Raw: value, Type: dataType})
	})
	require.NoError(t, err)
	return out
}

func param(t *testing.T, scalar string) Param {
	t.Helper()
	ps := params(t, "["+scalar+"]")
	require.Len(t, ps, 1)
	return ps[0]
}

func TestCoerce_Success(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		tag      TypeTag
		expected interface{}
	}{
		{"boolean true", `true`, Boolean, true},
		{"boolean false", `false`, Boolean, false},
		{"int max", `2147483647`, Int, int32(2147483647)},
		{"int min", `-2147483648`, Int, int32(-2147483648)},
		{"bigint", `9223372036854775807`, BigInt, int64(9223372036854775807)},
		{"smallint", `-32768`, SmallInt, int16(-32768)},
		{"tinyint", `127`, TinyInt, int8(127)},
		{"double", `3.25`, Double, 3.25},
		{"double from integer", `42`, Double, float64(42)},
		{"float narrows", `0.5`, Float, float32(0.5)},
		{"text", `"alpha"`, Text, "alpha"},
		{"text unescapes", `"line\nbreak é"`, Text, "line\nbreak é"},
		{"map object sorted", `{"b":1,"a":[true,null]}`, Map, `{"a":[true,null],"b":1}`},
		{"map keeps number text", `{"n":1.50}`, Map, `{"n":1.50}`},
		{"map of string", `"x"`, Map, `"x"`},
		{"map of number", `12`, Map, `12`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Coerce(param(t, tt.json), tt.tag, Context{StatementID: "s", Index: 0})
			require.NoError(t, err)
			assert.Equal(t, tt.tag, v.Kind())
			assert.Equal(t, tt.expected, v.Interface())
		})
	}
}

func TestCoerce_Decimal(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		unscaled int64
		scale    inf.Scale
	}{
		{"number", `12.345`, 12345, 3},
		{"integer", `7`, 7, 0},
		{"negative", `-0.01`, -1, 2},
		{"string contents", `"99.5"`, 995, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Coerce(param(t, tt.json), Decimal, Context{StatementID: "s"})
			require.NoError(t, err)
			dec, ok := v.Interface().(*inf.Dec)
			require.True(t, ok)
			assert.Zero(t, dec.Cmp(inf.NewDecBig(big.NewInt(tt.unscaled), tt.scale)))
		})
	}
}

func TestCoerce_Empty(t *testing.T) {
	v, err := Coerce(param(t, `null`), Empty, Context{})
	require.NoError(t, err)
	assert.Equal(t, Empty, v.Kind())

	data, err := v.MarshalCQL(gocql.NewNativeType(4, gocql.TypeInt, ""))
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Len(t, data, 0)
}

func TestCoerce_Failures(t *testing.T) {
	tests := []struct {
		name string
		json string
		tag  TypeTag
		kind string
	}{
		{"bool from string", `"true"`, Boolean, "value_is_not_bool"},
		{"bool from number", `1`, Boolean, "value_is_not_bool"},
		{"int overflow", `2147483648`, Int, "conversion_error_i64_i32"},
		{"int underflow", `-2147483649`, Int, "conversion_error_i64_i32"},
		{"int from string", `"3"`, Int, "value_is_not_i64"},
		{"int from fraction", `3.5`, Int, "value_is_not_i64"},
		{"int from exponent", `1e3`, Int, "value_is_not_i64"},
		{"bigint beyond 64 bits", `99999999999999999999`, BigInt, "int_is_none"},
		{"smallint overflow", `32768`, SmallInt, "conversion_error_i64_i16"},
		{"tinyint overflow", `128`, TinyInt, "conversion_error_i64_i8"},
		{"tinyint underflow", `-129`, TinyInt, "conversion_error_i64_i8"},
		{"double from string", `"1.5"`, Double, "value_is_not_f64"},
		{"float from bool", `true`, Float, "value_is_not_f64"},
		{"double out of range", `1e400`, Double, "double_is_none"},
		{"decimal from bool", `false`, Decimal, "value_is_not_decimal"},
		{"decimal from bad string", `"12,5"`, Decimal, "value_is_not_decimal"},
		{"text from number", `5`, Text, "value_is_not_string"},
		{"text from null", `null`, Text, "value_is_not_string"},
		{"empty from value", `0`, Empty, "value_is_not_null"},
		{"uuid not implemented", `"0b6b0a3e-5c4f-4d0e-9a53-2c8f9d0c6a11"`, Uuid, "conversion_for_type_Uuid_not_implemented"},
		{"timestamp not implemented", `1700000000`, Timestamp, "conversion_for_type_Timestamp_not_implemented"},
		{"list not implemented", `[1,2]`, List, "conversion_for_type_List_not_implemented"},
		{"varint not implemented", `1`, Varint, "conversion_for_type_Varint_not_implemented"},
		{"unknown tag", `1`, TypeTag("Jsonb"), "conversion_for_type_Jsonb_not_implemented"},
		{"empty tag", `null`, TypeTag(""), "conversion_for_type__not_implemented"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Coerce(param(t, tt.json), tt.tag, Context{StatementID: "get_user", Index: 2})
			require.Error(t, err)

			apiErr, ok := apierror.As(err)
			require.True(t, ok)
			assert.Equal(t, uint16(500), apiErr.StatusCode)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Contains(t, apiErr.Message, "statement: get_user - index: 2")
			assert.Contains(t, apiErr.Message, "casting: "+string(tt.tag))
		})
	}
}

func TestCoerce_ErrorMessageRendersValue(t *testing.T) {
	_, err := Coerce(param(t, `"true"`), Boolean, Context{StatementID: "flags", Index: 0})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, `statement: flags - index: 0 - value: "true" - casting: Boolean`, apiErr.Message)
}

func TestCoerce_Deterministic(t *testing.T) {
	p := param(t, `3000000000`)
	for i := 0; i < 3; i++ {
		_, err := Coerce(p, Int, Context{StatementID: "s"})
		apiErr, ok := apierror.As(err)
		require.True(t, ok)
		assert.Equal(t, "conversion_error_i64_i32", apiErr.Kind)

		v, err := Coerce(p, BigInt, Context{StatementID: "s"})
		require.NoError(t, err)
		assert.Equal(t, int64(3000000000), v.Interface())
	}
}

func TestCoerceAll(t *testing.T) {
	values, err := CoerceAll("insert_item", params(t, `["alpha", 42]`), []TypeTag{Text, BigInt})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "alpha", values[0].Interface())
	assert.Equal(t, int64(42), values[1].Interface())

	_, err = CoerceAll("insert_item", params(t, `["alpha"]`), []TypeTag{Text, BigInt})
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, uint16(400), apiErr.StatusCode)
	assert.Equal(t, apierror.KindQueryDataLengthMismatch, apiErr.Kind)

	_, err = CoerceAll("insert_item", params(t, `["alpha", "42"]`), []TypeTag{Text, BigInt})
	apiErr, ok = apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, "value_is_not_i64", apiErr.Kind)
	assert.Contains(t, apiErr.Message, "index: 1")
}

func TestValue_MarshalCQL(t *testing.T) {
	v, err := Coerce(param(t, `42`), Int, Context{})
	require.NoError(t, err)

	data, err := v.MarshalCQL(gocql.NewNativeType(4, gocql.TypeInt, ""))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 42}, data)

	text, err := Coerce(param(t, `"hi"`), Text, Context{})
	require.NoError(t, err)
	data, err = gocql.Marshal(gocql.NewNativeType(4, gocql.TypeVarchar, ""), text)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)

	_, err = Value{}.MarshalCQL(gocql.NewNativeType(4, gocql.TypeInt, ""))
	assert.Error(t, err)
}

func TestParseTypeTag(t *testing.T) {
	tag, err := ParseTypeTag("BigInt")
	require.NoError(t, err)
	assert.Equal(t, BigInt, tag)
	assert.True(t, tag.Supported())

	tag, err = ParseTypeTag("UDT")
	require.NoError(t, err)
	assert.Equal(t, UserDefinedType, tag)
	assert.False(t, tag.Supported())

	_, err = ParseTypeTag("bigint")
	assert.Error(t, err)
	_, err = ParseTypeTag("Jsonb")
	assert.Error(t, err)
}
