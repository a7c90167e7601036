package scrapeutil

import (
	"regexp"
	"strconv"
	"strings"
)

// ToString safely converts an interface value to string.
func ToString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// ToFloat converts common JSON number shapes (float64, string) to float64.
func ToFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		return ParsePrice(n)
	default:
		return 0
	}
}

var priceRe = regexp.MustCompile(`[0-9][0-9.,]*`)

// ParsePrice extracts a numeric amount from a storefront price string such
// as "$1,299.99", "US $12.50" or "1.299,99 EUR". Returns 0 when no number
// is present.
func ParsePrice(s string) float64 {
	match := priceRe.FindString(s)
	if match == "" {
		return 0
	}

	// Decide which separator is the decimal point: the right-most of "." or
	// "," wins, the other is treated as a thousands separator.
	lastDot := strings.LastIndex(match, ".")
	lastComma := strings.LastIndex(match, ",")
	switch {
	case lastComma > lastDot:
		match = strings.ReplaceAll(match, ".", "")
		match = strings.Replace(match, ",", ".", 1)
	default:
		match = strings.ReplaceAll(match, ",", "")
	}

	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return f
}

var countRe = regexp.MustCompile(`[0-9][0-9,]*`)

// ParseCount extracts an integer from strings like "1,234 ratings".
func ParseCount(s string) int {
	match := countRe.FindString(s)
	if match == "" {
		return 0
	}
	match = strings.ReplaceAll(match, ",", "")
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

// NormalizeAvailability maps the many spellings storefronts use
// (schema.org URLs, OpenGraph values, free text) onto the three values the
// catalog understands: in_stock, out_of_stock, unknown.
func NormalizeAvailability(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return "unknown"
	}
	// schema.org availability values arrive as full URLs.
	if idx := strings.LastIndex(v, "/"); idx >= 0 {
		v = v[idx+1:]
	}
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, "_", "")

	switch {
	case strings.Contains(v, "outofstock"), strings.Contains(v, "soldout"), strings.Contains(v, "unavailable"), strings.Contains(v, "discontinued"):
		return "out_of_stock"
	case strings.Contains(v, "instock"), strings.Contains(v, "available"), strings.Contains(v, "limitedavailability"), strings.Contains(v, "preorder"), strings.Contains(v, "backorder"):
		return "in_stock"
	default:
		return "unknown"
	}
}

// CapImages deduplicates image URLs preserving order and applies the
// max_images job setting when max > 0.
func CapImages(images []string, max int) []string {
	if len(images) == 0 {
		return images
	}

	seen := make(map[string]struct{}, len(images))
	out := make([]string, 0, len(images))
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		if _, ok := seen[img]; ok {
			continue
		}
		seen[img] = struct{}{}
		out = append(out, img)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
