package coercion

import "fmt"

// TypeTag names a CQL type declared for a statement parameter.
type TypeTag string

const (
	Ascii           TypeTag = "Ascii"
	Boolean         TypeTag = "Boolean"
	Blob            TypeTag = "Blob"
	Counter         TypeTag = "Counter"
	Decimal         TypeTag = "Decimal"
	Date            TypeTag = "Date"
	Double          TypeTag = "Double"
	Duration        TypeTag = "Duration"
	Empty           TypeTag = "Empty"
	Float           TypeTag = "Float"
	Int             TypeTag = "Int"
	BigInt          TypeTag = "BigInt"
	Text            TypeTag = "Text"
	Timestamp       TypeTag = "Timestamp"
	Inet            TypeTag = "Inet"
	List            TypeTag = "List"
	Map             TypeTag = "Map"
	Set             TypeTag = "Set"
	UserDefinedType TypeTag = "UserDefinedType"
	SmallInt        TypeTag = "SmallInt"
	TinyInt         TypeTag = "TinyInt"
	Time            TypeTag = "Time"
	Timeuuid        TypeTag = "Timeuuid"
	Tuple           TypeTag = "Tuple"
	Uuid            TypeTag = "Uuid"
	Varint          TypeTag = "Varint"
)

var knownTags = map[TypeTag]bool{
	Ascii: false, Boolean: true, Blob: false, Counter: false, Decimal: true, Date: false,
	Double: true, Duration: false, Empty: true, Float: true, Int: true, BigInt: true,
	Text: true, Timestamp: false, Inet: false, List: false, Map: true, Set: false,
	UserDefinedType: false, SmallInt: true, TinyInt: true, Time: false, Timeuuid: false,
	Tuple: false, Uuid: false, Varint: false,
}

// ParseTypeTag accepts the exact tag names above; "UDT" is an alias of UserDefinedType.
func ParseTypeTag(name string) (TypeTag, error) {
	if name == "UDT" {
		return UserDefinedType, nil
	}
	tag := TypeTag(name)
	if _, ok := knownTags[tag]; !ok {
		return "", fmt.Errorf("unknown CQL type tag %q", name)
	}
	return tag, nil
}

// Supported reports whether values of this tag can be coerced.
func (t TypeTag) Supported() bool {
	return knownTags[t]
}

func (t TypeTag) String() string {
	return string(t)
}
