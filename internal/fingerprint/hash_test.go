package fingerprint_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/punktepass/punktepass/internal/fingerprint"
)

func TestHash(t *testing.T) {
	// sha256("abc")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		fingerprint.Hash("abc"))

	assert.Equal(t, fingerprint.Hash("device-1234567890"), fingerprint.Hash("device-1234567890"))
	assert.NotEqual(t, fingerprint.Hash("device-1234567890"), fingerprint.Hash("device-1234567891"))
	assert.Len(t, fingerprint.Hash(""), 64)
}

func TestIsReliable(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", false},
		{"short", false},
		{strings.Repeat("a", 15), false},
		{strings.Repeat("a", 16), true},
		{strings.Repeat("a", 64), true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, fingerprint.IsReliable(tt.raw), "len=%d", len(tt.raw))
	}
}
