package scan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punktepass/punktepass/internal/scan"
)

func TestDecodeUserQR(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"prefix with token", "PPU42abc", 42, false},
		{"prefix digits only", "PPU7", 7, false},
		{"prefix with numeric-looking suffix after letters", "PPU15x99", 15, false},
		{"surrounding whitespace", "  PPU42abc\n", 42, false},
		{"legacy format", "PPUSER-42-xyz", 42, false},
		{"legacy without suffix", "PPUSER-42", 42, false},
		{"legacy non numeric id", "PPUSER-abc-1", 0, true},
		{"legacy empty id", "PPUSER--1", 0, true},
		{"prefix without digits", "PPUabc", 0, true},
		{"zero id", "PPU0abc", 0, true},
		{"garbage", "garbage", 0, true},
		{"empty", "", 0, true},
		{"lowercase prefix", "ppu42", 0, true},
		{"overflow", "PPU99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scan.DecodeUserQR(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, scan.ErrInvalidQR)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeUserQR_RoundTrip(t *testing.T) {
	payload, err := scan.EncodeUserQR(42, "abcDEF")
	require.NoError(t, err)
	assert.Equal(t, "PPU42abcDEF", payload)

	id, err := scan.DecodeUserQR(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestEncodeUserQR_Rejects(t *testing.T) {
	_, err := scan.EncodeUserQR(42, "9abc")
	assert.ErrorIs(t, err, scan.ErrInvalidQR)

	_, err = scan.EncodeUserQR(0, "abc")
	assert.ErrorIs(t, err, scan.ErrInvalidQR)
}
