// Package router classifies free-text queries into the document collection
// that should answer them.
package router

import (
	"strings"

	"ciq-assistant/internal/document"
)

// Category is the routing label for a query: one of the five collections or General.
type Category string

const (
	CategoryCIQ            Category = "ciq"
	CategoryStandardCIQ    Category = "standard_ciq"
	CategoryTemplate       Category = "template"
	CategoryMasterTemplate Category = "master_template"
	CategoryLog            Category = "log"
	CategoryGeneral        Category = "general"
)

// Categories lists every category, General last.
var Categories = []Category{
	CategoryCIQ,
	CategoryStandardCIQ,
	CategoryTemplate,
	CategoryMasterTemplate,
	CategoryLog,
	CategoryGeneral,
}

// ParseCategory normalizes raw model output. Anything that is not exactly one
// of the five collection labels after trimming and lower-casing is General.
func ParseCategory(raw string) Category {
	switch c := Category(strings.ToLower(strings.TrimSpace(raw))); c {
	case CategoryCIQ, CategoryStandardCIQ, CategoryTemplate, CategoryMasterTemplate, CategoryLog:
		return c
	default:
		return CategoryGeneral
	}
}

// Collection returns the collection backing c. ok is false for General.
func (c Category) Collection() (document.Collection, bool) {
	if c == CategoryGeneral {
		return "", false
	}
	coll, err := document.ParseCollection(string(c))
	if err != nil {
		return "", false
	}
	return coll, true
}

func (c Category) String() string {
	return string(c)
}
