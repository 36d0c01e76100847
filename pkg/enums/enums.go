// Package enums holds the string-backed types that mirror Postgres enums.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func known[T ~string](set []T, v T) bool {
	return slices.Contains(set, v)
}

// parse matches value against set after trimming surrounding whitespace.
// Matching is case-sensitive because the database enums are.
func parse[T ~string](set []T, value, label string) (T, error) {
	v := T(strings.TrimSpace(value))
	if known(set, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", label, value)
}
