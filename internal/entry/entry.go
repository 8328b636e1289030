// Package entry defines the documentation entries produced by the external
// documentation generator, the closed category enumeration used as a
// ranking signal, and the immutable Store the index is built over.
package entry

import (
	"sort"
	"strings"
)

// Entry is one indexable unit of documentation: a page, a section or a
// symbol docstring.
type Entry struct {
	Location string   `json:"location"`
	Page     string   `json:"page"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Category Category `json:"category"`
}

// ID is an arena ordinal into a Store.
type ID uint32

// Category is the entry kind reported by the generator.
type Category string

const (
	CategoryPage     Category = "page"
	CategorySection  Category = "section"
	CategoryModule   Category = "module"
	CategoryType     Category = "type"
	CategoryFunction Category = "function"
	CategoryMethod   Category = "method"
	CategoryMacro    Category = "macro"
	CategoryConstant Category = "constant"
	CategoryOther    Category = "other"
)

type categoryInfo struct {
	priority int
	weight   float64
}

// Lower priority sorts first on score ties. New kinds are added here.
var categoryTable = map[Category]categoryInfo{
	CategoryPage:     {priority: 0, weight: 1.3},
	CategorySection:  {priority: 1, weight: 1.2},
	CategoryModule:   {priority: 2, weight: 1.1},
	CategoryType:     {priority: 3, weight: 1.0},
	CategoryFunction: {priority: 3, weight: 1.0},
	CategoryMethod:   {priority: 3, weight: 1.0},
	CategoryMacro:    {priority: 3, weight: 1.0},
	CategoryConstant: {priority: 3, weight: 1.0},
	CategoryOther:    {priority: 4, weight: 0.9},
}

// ParseCategory normalizes a raw category string. Empty and unknown values
// become CategoryOther.
func ParseCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := categoryTable[c]; ok {
		return c
	}
	return CategoryOther
}

// Known reports whether c is part of the enumeration.
func (c Category) Known() bool {
	_, ok := categoryTable[c]
	return ok
}

// Priority is the tie-break rank of c; lower ranks first.
func (c Category) Priority() int {
	if info, ok := categoryTable[c]; ok {
		return info.priority
	}
	return categoryTable[CategoryOther].priority
}

// Weight is the score multiplier applied to every hit on an entry of
// category c.
func (c Category) Weight() float64 {
	if info, ok := categoryTable[c]; ok {
		return info.weight
	}
	return categoryTable[CategoryOther].weight
}

func (c Category) String() string {
	return string(c)
}

// Categories returns every known category ordered by priority, then name.
func Categories() []Category {
	out := make([]Category, 0, len(categoryTable))
	for c := range categoryTable {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() < out[j].Priority()
		}
		return out[i] < out[j]
	})
	return out
}
