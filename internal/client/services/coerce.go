package services

import (
	"math"
	"strconv"
	"strings"
)

// ValueCoercer turns user input into the integer that gets encrypted.
type ValueCoercer func(raw string) int64

// CoerceValue reads an optional sign and the leading decimal digits of raw,
// ignoring surrounding whitespace and anything after the digits ("42abc" is
// 42, "12.7" is 12). Input without leading digits, or out of int64 range,
// becomes 0. It never fails.
func CoerceValue(raw string) int64 {
	s := strings.TrimSpace(raw)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// coerceNumeric reads a numeric field returned by the store, 0 when it is
// not a finite number. Fractions are truncated.
func coerceNumeric(raw string) int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int64(f)
}
