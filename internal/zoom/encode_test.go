package zoom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeMeetingUUID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain identifier", "abc123", "abc123"},
		{"numeric id", "987654321", "987654321"},
		{
			"base64 characters encode once",
			"aZ3+xY9/Qw==",
			"aZ3%2BxY9%2FQw%3D%3D",
		},
		{
			"leading slash encodes twice",
			"/aZ3+xY9Qw==",
			"%252FaZ3%252BxY9Qw%253D%253D",
		},
		{
			"embedded double slash encodes twice",
			"aZ3//xY9Qw==",
			"aZ3%252F%252FxY9Qw%253D%253D",
		},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeMeetingUUID(tt.in))
		})
	}
}

func TestEncodeSegment(t *testing.T) {
	// Unreserved characters pass through untouched.
	assert.Equal(t, "AZaz09-._~", encodeSegment("AZaz09-._~"))

	// Everything else escapes, including characters url.PathEscape leaves
	// alone.
	assert.Equal(t, "a%20b", encodeSegment("a b"))
	assert.Equal(t, "%2B%3D%2F%3F%23%26", encodeSegment("+=/?#&"))
}

func TestNeedsDoubleEncoding(t *testing.T) {
	assert.False(t, needsDoubleEncoding("abc"))
	assert.False(t, needsDoubleEncoding("a/b"))
	assert.True(t, needsDoubleEncoding("/abc"))
	assert.True(t, needsDoubleEncoding("a//b"))
}
