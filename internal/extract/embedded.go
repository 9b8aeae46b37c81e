package extract

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// ArrayAfterMarker locates a retailer-specific marker substring and returns
// the JSON array that follows it. The second return is false when the
// marker is absent or the array cannot be isolated.
func ArrayAfterMarker(html, marker string) (string, bool) {
	idx := strings.Index(html, marker)
	if idx == -1 {
		return "", false
	}

	start := strings.Index(html[idx:], "[")
	if start == -1 {
		return "", false
	}
	return SliceJSONArray(html, idx+start)
}

// SliceJSONArray returns the balanced JSON array substring beginning at
// start. Bracket depth is tracked with a small state machine (not-in-string,
// in-string, escape-pending) so that brackets inside quoted values and
// escaped characters do not terminate the scan early. Returns false when
// start does not point at "[" or depth never returns to zero.
func SliceJSONArray(text string, start int) (string, bool) {
	if start < 0 || start >= len(text) || text[start] != '[' {
		return "", false
	}

	depth := 0
	inString := false
	escape := false
	for pos := start; pos < len(text); pos++ {
		c := text[pos]

		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if inString {
			if c == '"' {
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : pos+1], true
			}
		}
	}

	zap.L().Debug("extract: embedded array scan ended before closing bracket")
	return "", false
}

// DecodeArray unmarshals a JSON array of objects. Non-object entries are
// dropped.
func DecodeArray(payload string) ([]map[string]any, error) {
	var raw []any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if rec, ok := entry.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// DecodeEscapedArray unmarshals a JSON array that was itself embedded as an
// escaped string inside page markup (quotes appear as \", unicode as
// \uXXXX). The payload is unescaped first, then opportunistically repaired:
// markup served with a mismatched charset mangles multi-byte characters,
// which a Latin-1 round-trip back into UTF-8 undoes. If the repair fails
// the first decoded form is kept rather than failing.
func DecodeEscapedArray(payload string) ([]map[string]any, error) {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+payload+`"`), &decoded); err != nil {
		return nil, err
	}

	decoded = repairMojibake(decoded)
	return DecodeArray(decoded)
}

// repairMojibake re-encodes the string as Latin-1 bytes and decodes those
// bytes as UTF-8. When the input was double-decoded ("ü" rendered "Ã¼"),
// this restores the original text; otherwise the input is returned as-is.
func repairMojibake(s string) string {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return s
	}
	if !utf8.ValidString(encoded) {
		return s
	}
	return encoded
}
