// Package coercion turns JSON parameters into typed CQL bind values.
package coercion

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/buger/jsonparser"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"gopkg.in/inf.v0"

	"github.com/yaw/dbproxy/internal/dbproxy/apierror"
)

// Param is one element of a request's query_data array as jsonparser reports it.
// String values hold the escaped contents without the surrounding quotes.
type Param struct {
	Raw  []byte
	Type jsonparser.ValueType
}

// Context identifies the parameter being coerced in error messages.
type Context struct {
	StatementID string
	Index       int
}

var canonicalJSON = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// CoerceAll coerces params positionally against tags. The first failure is returned.
func CoerceAll(statementID string, params []Param, tags []TypeTag) ([]Value, error) {
	if len(params) != len(tags) {
		return nil, apierror.BadRequest(apierror.KindQueryDataLengthMismatch,
			fmt.Sprintf("statement: %s - expected %d parameters, got %d", statementID, len(tags), len(params)))
	}
	values := make([]Value, len(params))
	for i, p := range params {
		v, err := Coerce(p, tags[i], Context{StatementID: statementID, Index: i})
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// Coerce converts one JSON parameter to the declared tag.
func Coerce(p Param, tag TypeTag, ctx Context) (Value, error) {
	if !tag.Supported() {
		return Value{}, failure(p, tag, ctx, fmt.Sprintf("conversion_for_type_%s_not_implemented", tag), "")
	}

	switch tag {
	case Boolean:
		return toBool(p, ctx)
	case TinyInt:
		return toInt(p, tag, math.MinInt8, math.MaxInt8, "conversion_error_i64_i8", ctx)
	case SmallInt:
		return toInt(p, tag, math.MinInt16, math.MaxInt16, "conversion_error_i64_i16", ctx)
	case Int:
		return toInt(p, tag, math.MinInt32, math.MaxInt32, "conversion_error_i64_i32", ctx)
	case BigInt:
		return toInt(p, tag, math.MinInt64, math.MaxInt64, "", ctx)
	case Float:
		return toFloat(p, tag, "float_is_none", ctx)
	case Double:
		return toFloat(p, tag, "double_is_none", ctx)
	case Decimal:
		return toDecimal(p, ctx)
	case Text:
		return toText(p, ctx)
	case Map:
		return toMapText(p, ctx)
	}

	// Empty is the remaining supported tag.
	if p.Type != jsonparser.Null {
		return Value{}, failure(p, tag, ctx, "value_is_not_null", "")
	}
	return emptyValue(), nil
}

func toBool(p Param, ctx Context) (Value, error) {
	if p.Type != jsonparser.Boolean {
		return Value{}, failure(p, Boolean, ctx, "value_is_not_bool", "")
	}
	b, err := jsonparser.ParseBoolean(p.Raw)
	if err != nil {
		return Value{}, failure(p, Boolean, ctx, "boolean_is_none", err.Error())
	}
	return boolValue(b), nil
}

func toInt(p Param, tag TypeTag, min, max int64, rangeKind string, ctx Context) (Value, error) {
	if p.Type != jsonparser.Number || !isIntegerToken(p.Raw) {
		return Value{}, failure(p, tag, ctx, "value_is_not_i64", "")
	}
	i, err := strconv.ParseInt(string(p.Raw), 10, 64)
	if err != nil {
		return Value{}, failure(p, tag, ctx, "int_is_none", err.Error())
	}
	if i < min || i > max {
		return Value{}, failure(p, tag, ctx, rangeKind, "out of range integral type conversion attempted")
	}
	return intValue(tag, i), nil
}

func toFloat(p Param, tag TypeTag, noneKind string, ctx Context) (Value, error) {
	if p.Type != jsonparser.Number {
		return Value{}, failure(p, tag, ctx, "value_is_not_f64", "")
	}
	f, err := strconv.ParseFloat(string(p.Raw), 64)
	if err != nil {
		return Value{}, failure(p, tag, ctx, noneKind, err.Error())
	}
	return floatValue(tag, f), nil
}

func toDecimal(p Param, ctx Context) (Value, error) {
	var text string
	switch p.Type {
	case jsonparser.Number:
		text = string(p.Raw)
	case jsonparser.String:
		s, err := jsonparser.ParseString(p.Raw)
		if err != nil {
			return Value{}, failure(p, Decimal, ctx, "value_is_not_decimal", err.Error())
		}
		text = s
	default:
		return Value{}, failure(p, Decimal, ctx, "value_is_not_decimal", "")
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Value{}, failure(p, Decimal, ctx, "value_is_not_decimal", err.Error())
	}
	return decimalValue(inf.NewDecBig(d.Coefficient(), inf.Scale(-d.Exponent()))), nil
}

func toText(p Param, ctx Context) (Value, error) {
	if p.Type != jsonparser.String {
		return Value{}, failure(p, Text, ctx, "value_is_not_string", "")
	}
	s, err := jsonparser.ParseString(p.Raw)
	if err != nil {
		return Value{}, failure(p, Text, ctx, "string_is_none", err.Error())
	}
	return textValue(Text, s), nil
}

// toMapText stores the whole JSON value as canonical JSON text.
func toMapText(p Param, ctx Context) (Value, error) {
	text, err := render(p)
	if err != nil {
		return Value{}, failure(p, Map, ctx, "map_is_none", err.Error())
	}
	return textValue(Map, text), nil
}

// render re-serialises a parameter as JSON with sorted object keys.
func render(p Param) (string, error) {
	switch p.Type {
	case jsonparser.String:
		s, err := jsonparser.ParseString(p.Raw)
		if err != nil {
			return "", err
		}
		return canonicalJSON.MarshalToString(s)
	case jsonparser.Null:
		return "null", nil
	case jsonparser.NotExist, jsonparser.Unknown:
		return "", errors.New("missing value")
	}
	var v interface{}
	if err := canonicalJSON.Unmarshal(p.Raw, &v); err != nil {
		return "", err
	}
	return canonicalJSON.MarshalToString(v)
}

func isIntegerToken(raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	for i, c := range raw {
		if c == '-' && i == 0 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return raw[len(raw)-1] != '-'
}

func failure(p Param, tag TypeTag, ctx Context, kind, detail string) *apierror.Error {
	value, err := render(p)
	if err != nil {
		value = string(p.Raw)
	}
	if detail == "" {
		detail = kind
	}
	return &apierror.Error{
		StatusCode: 500,
		Message:    fmt.Sprintf("statement: %s - index: %d - value: %s - casting: %s", ctx.StatementID, ctx.Index, value, tag),
		Kind:       kind,
		Detail:     detail,
	}
}
