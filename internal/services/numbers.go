package services

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// numberWidth is the minimum number of digits of a formatted number.
	// Wider values are printed in full.
	numberWidth = 4

	// maxNumberDigits bounds the significant digits of a number the
	// allocator reads; highest+1 always fits in an int64.
	maxNumberDigits = 18

	// maxNumber is the highest number the allocator hands out.
	maxNumber int64 = 999_999_999_999_999_999

	// maxAdHocDigits bounds all-digit numbers supplied at registration, far
	// below maxNumber, so a caller cannot exhaust the sequence.
	maxAdHocDigits = 9

	// maxNumberLen matches the varchar(32) number columns.
	maxNumberLen = 32
)

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseNumber reads a stored number as an integer. Anything that is not a
// plain run of at most maxNumberDigits digits counts as 0.
func parseNumber(s string) int64 {
	s = strings.TrimSpace(s)
	if !isDigits(s) || len(strings.TrimLeft(s, "0")) > maxNumberDigits {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// formatNumber zero-pads n to numberWidth digits.
func formatNumber(n int64) string {
	return fmt.Sprintf("%0*d", numberWidth, n)
}

// successor returns the number following the highest one in numbers. It
// fails with ErrNumberExhausted once maxNumber is in use.
func successor(numbers []string) (string, error) {
	var highest int64
	for _, s := range numbers {
		if n := parseNumber(s); n > highest {
			highest = n
		}
	}
	if highest >= maxNumber {
		return "", ErrNumberExhausted
	}
	return formatNumber(highest + 1), nil
}

// validateNumber checks a caller-supplied document number. Free-form numbers
// are accepted; all-digit ones may have at most maxAdHocDigits significant
// digits.
func validateNumber(s string) error {
	switch {
	case s == "":
		return fmt.Errorf("%w: number is required", ErrValidation)
	case !utf8.ValidString(s):
		return fmt.Errorf("%w: number must be valid UTF-8", ErrValidation)
	case len(s) > maxNumberLen:
		return fmt.Errorf("%w: number must be at most %d bytes", ErrValidation, maxNumberLen)
	case isDigits(s) && len(strings.TrimLeft(s, "0")) > maxAdHocDigits:
		return fmt.Errorf("%w: numeric numbers are limited to %d digits", ErrValidation, maxAdHocDigits)
	}
	return nil
}
