package parser

import (
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
)

// intersect merges two ascending ID lists.
func intersect(a, b []entry.ID) []entry.ID {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make([]entry.ID, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// union merges two ascending ID lists without duplicates.
func union(a, b []entry.ID) []entry.ID {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]entry.ID, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
