package crud

import (
	"fmt"
	"strings"
)

// The List View aggregates: pure, order-independent reductions recomputed on every call.

func Count[T any](items []T) int {
	return len(items)
}

func Sum[T any](items []T, field func(T) int) int {
	var total int
	for _, it := range items {
		total += field(it)
	}
	return total
}

// Distinct is the cardinality of the set of non-empty field values.
func Distinct[T any](items []T, field func(T) string) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if v := field(it); v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func CountWhere[T any](items []T, pred func(T) bool) int {
	var n int
	for _, it := range items {
		if pred(it) {
			n++
		}
	}
	return n
}

// GroupCount counts items per key.
func GroupCount[T any](items []T, key func(T) string) map[string]int {
	out := make(map[string]int)
	for _, it := range items {
		out[key(it)]++
	}
	return out
}

// Truncate returns the first n values and how many were left out.
func Truncate(values []string, n int) ([]string, int) {
	if n < 0 {
		n = 0
	}
	if len(values) <= n {
		return CopyStrings(values), 0
	}
	return CopyStrings(values[:n]), len(values) - n
}

// MoreLabel is the "+N more" badge; empty when nothing was left out.
func MoreLabel(more int) string {
	if more <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d more", more)
}

// Search keeps the items for which any of the fields contains term, case-insensitively.
// A blank term keeps everything.
func Search[T any](items []T, term string, fields func(T) []string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if term == "" {
			out = append(out, it)
			continue
		}
		for _, f := range fields(it) {
			if strings.Contains(strings.ToLower(f), term) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
