package indexer

import (
	"time"

	"ciq-assistant/internal/document"
)

// CollectionStats describes one collection build.
type CollectionStats struct {
	// Collection is the collection that was built.
	Collection document.Collection `json:"collection"`
	// Folder is the source folder that was scanned.
	Folder string `json:"folder"`
	// Documents is the number of documents indexed.
	Documents int `json:"documents"`
	// Skipped lists files that could not be loaded.
	Skipped []document.LoadError `json:"-"`
	// Dimension is the embedding dimension, zero for an empty collection.
	Dimension int `json:"dimension"`
	// Duration is the wall time of the build.
	Duration time.Duration `json:"duration"`
}

// SkippedPaths returns the paths of skipped files.
func (s *CollectionStats) SkippedPaths() []string {
	out := make([]string, len(s.Skipped))
	for i, e := range s.Skipped {
		out[i] = e.Path
	}
	return out
}
