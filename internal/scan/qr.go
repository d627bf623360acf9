package scan

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidQR is returned when a QR payload does not identify a user.
var ErrInvalidQR = errors.New("invalid QR code")

// QR payload prefixes. PPUSER- is the older dash-delimited card format.
const (
	qrPrefix       = "PPU"
	qrLegacyPrefix = "PPUSER-"
)

var leadingDigits = regexp.MustCompile(`^(\d+)`)

// DecodeUserQR extracts the user id from a customer QR payload.
//
// Accepted formats:
//
//	PPU<digits><anything>    the first run of digits is the user id
//	PPUSER-<id>-<anything>   dash-delimited, field 1 is the user id
func DecodeUserQR(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(raw, qrLegacyPrefix):
		fields := strings.Split(raw, "-")
		if len(fields) < 2 {
			return 0, ErrInvalidQR
		}
		return parseUserID(fields[1])

	case strings.HasPrefix(raw, qrPrefix):
		m := leadingDigits.FindStringSubmatch(raw[len(qrPrefix):])
		if m == nil {
			return 0, ErrInvalidQR
		}
		return parseUserID(m[1])
	}

	return 0, ErrInvalidQR
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidQR
	}
	return id, nil
}

// EncodeUserQR builds the payload printed on a customer's QR card. The token
// must not start with a digit, otherwise it would be read as part of the id.
func EncodeUserQR(userID int64, token string) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("%w: user id must be positive", ErrInvalidQR)
	}
	if token != "" && unicode.IsDigit(rune(token[0])) {
		return "", fmt.Errorf("%w: token must not start with a digit", ErrInvalidQR)
	}
	return qrPrefix + strconv.FormatInt(userID, 10) + token, nil
}
