// Package priceparse normalizes Turkish-locale price text to numeric values.
package priceparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// priceRe matches the first numeric token, optionally followed by a
// Turkish Lira marker. Thousands-grouped tokens ("1.234,56") are consumed
// whole, including the decimal part. The marker is not required: bare
// numbers parse too.
var priceRe = regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d{3})+(?:,\d+)?|\d+(?:[.,]\d+)?)\s*(?:TL|₺|TRY|Lira)?`)

// ParsePrice extracts a price from Turkish-formatted text, where "." is a
// thousands separator and "," the decimal separator ("1.234,56 TL" ->
// 1234.56). The second return is false when no numeric token is found or
// conversion fails; callers treat that as "no price", never as an error.
func ParsePrice(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}

	m := priceRe.FindStringSubmatch(strings.ReplaceAll(text, " ", " "))
	if m == nil {
		return 0, false
	}

	numeric := strings.ReplaceAll(m[1], ".", "")
	numeric = strings.ReplaceAll(numeric, ",", ".")
	v, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatPrice renders a value as Turkish Lira text ("1234.5" -> "1.234,50 TL").
func FormatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)

	intPart, fracPart, _ := strings.Cut(s, ".")
	var neg bool
	if strings.HasPrefix(intPart, "-") {
		neg = true
		intPart = intPart[1:]
	}

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := strings.Join(groups, ".") + "," + fracPart
	if neg {
		out = "-" + out
	}
	return fmt.Sprintf("%s TL", out)
}
