package coercion

import (
	"fmt"

	"github.com/gocql/gocql"
	"gopkg.in/inf.v0"
)

// Value is a coerced statement parameter. The zero Value is not bindable.
type Value struct {
	kind TypeTag
	b    bool
	i    int64
	f    float64
	dec  *inf.Dec
	s    string
}

var _ gocql.Marshaler = Value{}

func (v Value) Kind() TypeTag {
	return v.kind
}

// Interface returns the native Go value bound for this parameter.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Boolean:
		return v.b
	case TinyInt:
		return int8(v.i)
	case SmallInt:
		return int16(v.i)
	case Int:
		return int32(v.i)
	case BigInt:
		return v.i
	case Float:
		return float32(v.f)
	case Double:
		return v.f
	case Decimal:
		return v.dec
	case Text, Map:
		return v.s
	}
	return nil
}

// MarshalCQL encodes the value for the column type the server reported.
// Empty encodes as a zero-length value, which is distinct from null.
func (v Value) MarshalCQL(info gocql.TypeInfo) ([]byte, error) {
	switch v.kind {
	case Empty:
		return []byte{}, nil
	case "":
		return nil, fmt.Errorf("coercion: cannot marshal an uninitialised value into %s", info)
	}
	return gocql.Marshal(info, v.Interface())
}

func (v Value) String() string {
	if v.kind == Empty {
		return "Empty"
	}
	return fmt.Sprintf("%s(%v)", v.kind, v.Interface())
}

func boolValue(b bool) Value { return Value{kind: Boolean, b: b} }
func intValue(tag TypeTag, i int64) Value { return Value{kind: tag, i: i} }
func floatValue(tag TypeTag, f float64) Value { return Value{kind: tag, f: f} }
func decimalValue(d *inf.Dec) Value { return Value{kind: Decimal, dec: d} }
func textValue(tag TypeTag, s string) Value { return Value{kind: tag, s: s} }
func emptyValue() Value { return Value{kind: Empty} }
