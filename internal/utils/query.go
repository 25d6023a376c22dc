// Package utils holds small helpers with no domain knowledge.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int and returns def when s is empty or
// not a number.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Limit parses a "limit" style query value. Missing, malformed or
// non-positive input yields def; results above max are capped at max.
// max <= 0 disables the cap.
func Limit(raw string, def, max int) int {
	n := AtoiDefault(strings.TrimSpace(raw), def)
	if n <= 0 {
		n = def
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}
