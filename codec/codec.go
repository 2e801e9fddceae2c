// Package codec handles the text-safe transport encoding of file bytes.
// Chunks arrive as standard base64, sometimes with the trailing padding
// lost in transit and sometimes wrapped in a browser data URL. Every chunk
// is decoded on its own; callers concatenate the resulting byte segments,
// never the encoded text (encoded text rarely splits on a 3-byte boundary,
// so text concatenation corrupts the payload).
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"

	lanterrors "lantalk/errors"
)

// Encode maps bytes to standard base64 text.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode trims surrounding whitespace, restores the minimum padding needed
// to reach a multiple of four characters, and decodes. A chunk cut short of
// its padding is valid input here.
func Decode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if pad := (4 - len(s)%4) % 4; pad > 0 {
		s += strings.Repeat("=", pad)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lanterrors.ErrDecode, err)
	}
	return b, nil
}

// StripDataURL removes a "data:<mime>;base64," prefix when present.
// The declared mime type on the transfer is authoritative; the header
// is discarded.
func StripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}
