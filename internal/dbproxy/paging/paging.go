// Package paging converts the database's opaque paging state to and from JSON-safe text.
package paging

import "encoding/base64"

var encoding = base64.RawStdEncoding

// Encode returns the unpadded base64 form of state, or "" when there is no continuation.
func Encode(state []byte) string {
	if len(state) == 0 {
		return ""
	}
	return encoding.EncodeToString(state)
}

// Decode returns the raw paging state. Empty or malformed tokens yield nil, which
// the driver treats as the first page.
func Decode(token string) []byte {
	if token == "" {
		return nil
	}
	state, err := encoding.DecodeString(token)
	if err != nil || len(state) == 0 {
		return nil
	}
	return state
}
