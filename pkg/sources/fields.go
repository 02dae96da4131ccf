package sources

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/agentstation/catalogsync/pkg/constants"
)

var (
	priceNoise       = regexp.MustCompile(`[^0-9.,]`)
	trailingDecimals = regexp.MustCompile(`,(\d{1,2})$`)
)

// ParsePrice reads a human-entered price such as "€ 1.299,50" or "$19.99".
//
// Everything except digits and the separators "." and "," is stripped, a
// trailing decimal comma becomes a decimal point, and any other separators
// are treated as digit grouping. Empty or unparsable input yields 0; the
// function never fails.
func ParsePrice(raw string) float64 {
	s := priceNoise.ReplaceAllString(raw, "")
	if s == "" {
		return 0
	}

	s = trailingDecimals.ReplaceAllString(s, ".$1")
	s = strings.ReplaceAll(s, ",", "")

	// "1.234.50" came from "1.234,50": only the last dot is decimal.
	if n := strings.Count(s, "."); n > 1 {
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseCategoryPath splits a "Parent>Child" category path. The first
// segment is the category and the second, when present, the subcategory.
// Empty input, or an empty first segment, yields the fallback category.
func ParseCategoryPath(raw string) (category, subcategory string) {
	parts := strings.Split(raw, constants.CategorySeparator)

	category = strings.TrimSpace(parts[0])
	if category == "" {
		category = constants.FallbackCategory
	}
	if len(parts) > 1 {
		subcategory = strings.TrimSpace(parts[1])
	}
	return category, subcategory
}
