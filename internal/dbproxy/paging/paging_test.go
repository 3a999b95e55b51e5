package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		state []byte
	}{
		{"single byte", []byte{0x01}},
		{"needs padding", []byte{0x00, 0x10}},
		{"binary state", []byte{0x00, 0x1f, 0xff, 0xfe, 0x80, 0x7f, 0x00}},
		{"ascii", []byte("partition-key:clustering")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := Encode(tt.state)
			assert.NotContains(t, token, "=")
			assert.Equal(t, tt.state, Decode(token))
		})
	}
}

func TestEncode_Empty(t *testing.T) {
	assert.Equal(t, "", Encode(nil))
	assert.Equal(t, "", Encode([]byte{}))
}

func TestDecode_NoContinuation(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"padded input", "AQ=="},
		{"invalid alphabet", "not*base64"},
		{"truncated", "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Decode(tt.token))
		})
	}
}

func TestEncode_KnownValue(t *testing.T) {
	assert.Equal(t, "AAECAw", Encode([]byte{0, 1, 2, 3}))
	assert.Equal(t, []byte{0, 1, 2, 3}, Decode("AAECAw"))
}
