// Package schema reconciles uploaded spreadsheet columns against the
// canonical CIQ column set by embedding similarity.
package schema

import (
	"context"
	"fmt"
	"math"
)

// DefaultThreshold is the minimum cosine similarity for a column to map.
const DefaultThreshold float32 = 0.7

// minNorm keeps zero vectors from dividing by zero during normalization.
const minNorm = 1e-10

// Embedder turns texts into vectors, one row per input.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Mapping records, per source column, the canonical column it maps to (nil
// when unmatched) and the best similarity seen.
type Mapping struct {
	Targets map[string]*string `json:"mapping"`
	Scores  map[string]float32 `json:"scores"`
}

// Target returns the canonical column for source and whether it matched.
func (m Mapping) Target(source string) (string, bool) {
	t := m.Targets[source]
	if t == nil {
		return "", false
	}
	return *t, true
}

// MapColumns maps each source column to its most similar canonical column.
// A column maps only when the best cosine similarity is >= threshold. When
// several canonical columns share the best score, the one listed first wins.
func MapColumns(ctx context.Context, embedder Embedder, source, canonical []string, threshold float32) (Mapping, error) {
	m := Mapping{
		Targets: make(map[string]*string, len(source)),
		Scores:  make(map[string]float32, len(source)),
	}
	if len(source) == 0 {
		return m, nil
	}
	if len(canonical) == 0 {
		for _, s := range source {
			m.Targets[s] = nil
		}
		return m, nil
	}

	texts := make([]string, 0, len(source)+len(canonical))
	texts = append(texts, source...)
	texts = append(texts, canonical...)

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return Mapping{}, fmt.Errorf("failed to embed column names: %w", err)
	}
	if len(vectors) != len(texts) {
		return Mapping{}, fmt.Errorf("embedder returned %d vectors for %d column names", len(vectors), len(texts))
	}

	for i := range vectors {
		vectors[i] = normalize(vectors[i])
	}
	srcVecs, canVecs := vectors[:len(source)], vectors[len(source):]

	for i, name := range source {
		best, bestScore := -1, float32(math.Inf(-1))
		for j, cv := range canVecs {
			score, err := dot(srcVecs[i], cv)
			if err != nil {
				return Mapping{}, fmt.Errorf("column %q: %w", name, err)
			}
			if score > bestScore {
				best, bestScore = j, score
			}
		}

		m.Scores[name] = bestScore
		if bestScore >= threshold {
			target := canonical[best]
			m.Targets[name] = &target
		} else {
			m.Targets[name] = nil
		}
	}
	return m, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Max(math.Sqrt(sum), minNorm)

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum), nil
}
