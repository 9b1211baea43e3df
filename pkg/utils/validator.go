package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var unsafeFileChr = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// currencyPrefixes are stripped before parsing, longest first
var currencyPrefixes = []string{"INR", "Rs.", "Rs", "₹"}

// ParseAmount parses a free-text amount such as "1,250.50", "₹ 500",
// "INR 500" or "500/-". It returns false when no finite number can be read.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, p := range currencyPrefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	s = strings.TrimSuffix(s, "/-")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// SanitizeFileName returns a filesystem-safe version of name. Path
// separators and parent references are removed, spaces become underscores.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	name = strings.ReplaceAll(name, " ", "_")
	return unsafeFileChr.ReplaceAllString(name, "")
}
