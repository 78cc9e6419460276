package parse

import (
	"math"
	"strconv"
	"strings"
)

// IntOr parses raw as an integer, returning def when it is blank or malformed.
// Decimal input such as "3.0" is truncated.
func IntOr(raw string, def int) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return def
}

// Quantity parses a stock quantity. Negative and malformed values become 0.
func Quantity(raw string) int {
	n := IntOr(raw, 0)
	if n < 0 {
		return 0
	}
	return n
}

// Floor parses a building floor. Floors start at 1.
func Floor(raw string) int {
	n := IntOr(raw, 1)
	if n < 1 {
		return 1
	}
	return n
}

// Coordinate parses a latitude or longitude. Blank, malformed, and
// non-finite input yield nil.
func Coordinate(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
