package core

// convert.go turns raw CSV cells into typed product fields.
//
// Import is lenient: a malformed stock value never rejects a row, it becomes 0.
// Decimal and scientific notation are accepted and truncated toward zero.
// Text cells are stored exactly as exported so a re-import matches the
// original records; only the name is trimmed.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// CoerceStock parses a stock cell. Empty or non-numeric input yields 0.
func CoerceStock(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if !numericRegex.MatchString(s) {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(math.Trunc(f))
}

// optionalCell returns nil for an empty cell and the cell unchanged otherwise.
func optionalCell(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
