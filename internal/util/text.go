package util

import (
	"strconv"
	"strings"
)

// CountWords returns the number of whitespace-separated words in the trimmed
// text. An empty or all-whitespace answer counts zero words.
func CountWords(text string) int {
	return len(strings.Fields(strings.TrimSpace(text)))
}

// MustParseUint converts a string to an unsigned integer, returning 0 on failure.
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}
