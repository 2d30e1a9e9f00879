package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractPlain decodes a text file. A leading byte order mark is dropped, invalid
// sequences become U+FFFD and the result is NFC-composed, so accents typed as combining
// marks still tokenize as single letters.
func extractPlain(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return norm.NFC.String(text), nil
}
