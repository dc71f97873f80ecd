package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/domain"
)

var _ domain.VectorStore = (*Storage)(nil)

func chunks(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{Index: i, Text: t}
	}
	return out
}

func TestSearchOrdersByCosine(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(2))
	require.NoError(t, s.Upsert(chunks("x", "diag", "y"), [][]float64{{1, 0}, {1, 1}, {0, 3}}))

	res, err := s.Search([]float64{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "y", res[0].Chunk.Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.Equal(t, "diag", res[1].Chunk.Text)
	assert.Equal(t, "x", res[2].Chunk.Text)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(1))
	require.NoError(t, s.Upsert(chunks("a", "b", "c", "d"), [][]float64{{1}, {2}, {3}, {4}}))

	res, err := s.Search([]float64{1}, 4)
	require.NoError(t, err)
	var got []string
	for _, r := range res {
		got = append(got, r.Chunk.Text)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestSearchClampsTopK(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(1))
	require.NoError(t, s.Upsert(chunks("a", "b"), [][]float64{{1}, {1}}))

	res, err := s.Search([]float64{1}, 10)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = s.Search([]float64{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestStorageErrors(t *testing.T) {
	s := NewStorage()
	_, err := s.Search([]float64{1}, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.Upsert(chunks("a"), [][]float64{{1}}), ErrNotInitialized)

	assert.Error(t, s.Init(0))
	require.NoError(t, s.Init(2))
	assert.Error(t, s.Upsert(chunks("a", "b"), [][]float64{{1, 0}}))
	assert.Error(t, s.Upsert(chunks("a"), [][]float64{{1, 0, 0}}))
	_, err = s.Search([]float64{1}, 1)
	assert.Error(t, err)
}

func TestClearAndInitReset(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(1))
	require.NoError(t, s.Upsert(chunks("a"), [][]float64{{1}}))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Upsert(chunks("b"), [][]float64{{1}}))
	require.NoError(t, s.Init(3))
	assert.Equal(t, 0, s.Len())
}

func TestCosineZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, cosine([]float64{0, 0}, []float64{1, 1}))
}
