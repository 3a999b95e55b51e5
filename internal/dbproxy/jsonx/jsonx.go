// Package jsonx holds the JSON configuration shared by the gateway.
package jsonx

import (
	"errors"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// API encodes responses. HTML escaping is off so rows are returned byte for byte.
var API = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Valid reports whether data holds exactly one JSON value, surrounding whitespace allowed.
func Valid(data []byte) bool {
	iter := API.BorrowIterator(data)
	defer API.ReturnIterator(iter)
	return single(iter)
}

// ValidObject is Valid restricted to a single JSON object.
func ValidObject(data []byte) bool {
	iter := API.BorrowIterator(data)
	defer API.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return false
	}
	return single(iter)
}

func single(iter *jsoniter.Iterator) bool {
	iter.Skip()
	if iter.Error != nil {
		return false
	}
	if iter.WhatIsNext() != jsoniter.InvalidValue {
		return false
	}
	return errors.Is(iter.Error, io.EOF)
}
