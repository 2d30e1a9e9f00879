package extract

import (
	"bytes"
	"fmt"
	"strings"

	"code.sajari.com/docconv/v2"
)

// extractHTML strips markup and returns the visible text of an HTML page.
func extractHTML(content []byte) (string, error) {
	text, _, err := docconv.ConvertHTML(bytes.NewReader(content), false)
	if err != nil {
		return "", fmt.Errorf("extract HTML: %w", err)
	}
	return strings.TrimSpace(text), nil
}
