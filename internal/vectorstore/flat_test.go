package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciq-assistant/internal/document"
)

func docs(n int) []document.Document {
	out := make([]document.Document, n)
	for i := range out {
		out[i] = document.Document{
			Content:    string(rune('a' + i)),
			Collection: document.CollectionLog,
			SourcePath: "logs/" + string(rune('a'+i)),
		}
	}
	return out
}

func TestFlatIndex_Search(t *testing.T) {
	vectors := [][]float32{
		{0, 0},
		{3, 4},
		{1, 0},
		{0, 1}, // ties with position 2 for the origin query
	}
	idx, err := NewFlatIndex(2, vectors, docs(4))
	require.NoError(t, err)

	tests := []struct {
		name          string
		query         []float32
		k             int
		wantPositions []int
		wantDistances []float32
	}{
		{
			name:          "nearest first, ties by position",
			query:         []float32{0, 0},
			k:             3,
			wantPositions: []int{0, 2, 3},
			wantDistances: []float32{0, 1, 1},
		},
		{
			name:          "k larger than index returns everything",
			query:         []float32{3, 4},
			k:             10,
			wantPositions: []int{1, 3, 2, 0},
			wantDistances: []float32{0, 18, 20, 25},
		},
		{
			name:          "top one",
			query:         []float32{0.9, 0.1},
			k:             1,
			wantPositions: []int{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Search(context.Background(), tt.query, tt.k)
			require.NoError(t, err)

			positions := make([]int, len(got))
			for i, m := range got {
				positions[i] = m.Position
				assert.Equal(t, docs(4)[m.Position], m.Document)
			}
			assert.Equal(t, tt.wantPositions, positions)
			for i, d := range tt.wantDistances {
				assert.InDelta(t, d, got[i].Distance, 1e-6)
			}
		})
	}
}

func TestFlatIndex_SearchErrors(t *testing.T) {
	idx, err := NewFlatIndex(2, [][]float32{{1, 1}}, docs(1))
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), []float32{1, 1}, 0)
	assert.Error(t, err, "k=0")

	_, err = idx.Search(context.Background(), []float32{1, 1, 1}, 1)
	assert.Error(t, err, "dimension mismatch")
}

func TestFlatIndex_Empty(t *testing.T) {
	idx, err := NewFlatIndex(2, nil, nil)
	require.NoError(t, err)

	got, err := idx.Search(context.Background(), []float32{1, 1}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFlatIndex_SingleDocument(t *testing.T) {
	idx, err := NewFlatIndex(3, [][]float32{{1, 2, 3}}, docs(1))
	require.NoError(t, err)

	got, err := idx.Search(context.Background(), []float32{0, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 14, got[0].Distance, 1e-6)
}

func TestNewFlatIndex_Corrupt(t *testing.T) {
	_, err := NewFlatIndex(2, [][]float32{{1, 1}, {2, 2}}, docs(1))
	assert.True(t, errors.Is(err, ErrIndexCorrupt))

	_, err = NewFlatIndex(2, [][]float32{{1, 1, 1}}, docs(1))
	assert.True(t, errors.Is(err, ErrIndexCorrupt))
}
