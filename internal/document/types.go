package document

import (
	"fmt"
	"strings"
)

// Collection names an independently indexed bucket of documents.
type Collection string

const (
	CollectionCIQ            Collection = "ciq"
	CollectionStandardCIQ    Collection = "standard_ciq"
	CollectionTemplate       Collection = "template"
	CollectionMasterTemplate Collection = "master_template"
	CollectionLog            Collection = "log"
)

// Collections lists every collection in build order.
var Collections = []Collection{
	CollectionCIQ,
	CollectionStandardCIQ,
	CollectionTemplate,
	CollectionMasterTemplate,
	CollectionLog,
}

// ParseCollection validates a collection id.
func ParseCollection(s string) (Collection, error) {
	c := Collection(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Collections {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

// Spreadsheet reports whether the collection is built from .xlsx workbooks.
func (c Collection) Spreadsheet() bool {
	return c == CollectionCIQ || c == CollectionStandardCIQ
}

func (c Collection) String() string {
	return string(c)
}

// Document is one retrievable unit of text. Documents are immutable once built.
type Document struct {
	Content    string     `json:"content"`
	Collection Collection `json:"collection"`
	SourcePath string     `json:"source_path"`
}

// LoadError records a file that was skipped while loading a collection.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error {
	return e.Err
}
