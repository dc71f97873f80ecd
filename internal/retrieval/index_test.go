package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/chunker"
	"docuchat/internal/domain"
	"docuchat/internal/embedding/tfidf"
	"docuchat/internal/log"
	"docuchat/internal/vectorstore/memory"
)

// keywordEmbedder counts a fixed list of words, one dimension per word.
type keywordEmbedder struct {
	words  []string
	calls  int
	failAt int
}

func (e *keywordEmbedder) Name() string { return "keyword" }

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls++
	if e.failAt > 0 && e.calls >= e.failAt {
		return nil, errors.New("embedding service unavailable")
	}
	lower := strings.ToLower(text)
	vec := make([]float64, len(e.words))
	for i, w := range e.words {
		vec[i] = float64(strings.Count(lower, w))
	}
	return vec, nil
}

type batchEmbedder struct {
	keywordEmbedder
	batches []int
}

func (e *batchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	e.batches = append(e.batches, len(texts))
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func paragraphChunks(t *testing.T) []domain.Chunk {
	t.Helper()
	c, err := chunker.NewRecursive(20, 5)
	require.NoError(t, err)
	chunks, err := c.Chunk(domain.Document{ID: "doc", Text: "Paragraph one. Paragraph two. Paragraph three."})
	require.NoError(t, err)
	return chunks
}

func TestBuildAndQueryFindsParagraphTwo(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{words: []string{"one", "two", "three"}}

	ix, err := Build(ctx, paragraphChunks(t), emb, memory.NewStorage(), BuildOptions{})
	require.NoError(t, err)

	res, err := ix.Query(ctx, "What does paragraph two say?", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Paragraph two. ", res[0].Chunk.Text)
	assert.Contains(t, res[0].Chunk.Text, "Paragraph two.")
	assert.Equal(t, 1, res[0].Chunk.Index)
}

func TestQueryOrderingAndLength(t *testing.T) {
	ctx := context.Background()
	chunks := paragraphChunks(t)
	ix, err := Build(ctx, chunks, &keywordEmbedder{words: []string{"one", "two", "three", "paragraph"}}, memory.NewStorage(), BuildOptions{})
	require.NoError(t, err)
	require.Equal(t, len(chunks), ix.Len())

	for _, k := range []int{1, 2, 4, 10} {
		res, err := ix.Query(ctx, "paragraph two", k)
		require.NoError(t, err)
		assert.Len(t, res, min(k, len(chunks)))
		for i := 1; i < len(res); i++ {
			assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
			if res[i-1].Score == res[i].Score {
				assert.Less(t, res[i-1].Chunk.Index, res[i].Chunk.Index)
			}
		}
	}
}

func TestQueryDefaultTopK(t *testing.T) {
	ctx := context.Background()
	chunks := make([]domain.Chunk, 6)
	for i := range chunks {
		chunks[i] = domain.Chunk{Index: i, Text: "same"}
	}
	ix, err := Build(ctx, chunks, &keywordEmbedder{words: []string{"same"}}, memory.NewStorage(), BuildOptions{})
	require.NoError(t, err)

	res, err := ix.Query(ctx, "same", 0)
	require.NoError(t, err)
	require.Len(t, res, DefaultTopK)
	for i, r := range res {
		assert.Equal(t, i, r.Chunk.Index)
	}
}

func TestBuildFailureLeavesNoIndex(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	emb := &keywordEmbedder{words: []string{"one"}, failAt: 3}

	ix, err := Build(ctx, paragraphChunks(t), emb, store, BuildOptions{})
	require.ErrorIs(t, err, domain.ErrIndexBuild)
	assert.Nil(t, ix)
	assert.Equal(t, 0, store.Len())
}

func TestBuildRejectsEmptyChunks(t *testing.T) {
	_, err := Build(context.Background(), nil, &keywordEmbedder{words: []string{"a"}}, memory.NewStorage(), BuildOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
}

func TestBuildUsesBatchesAndReportsProgress(t *testing.T) {
	emb := &batchEmbedder{keywordEmbedder: keywordEmbedder{words: []string{"one", "two"}}}
	var progress [][2]int

	_, err := Build(context.Background(), paragraphChunks(t), emb, memory.NewStorage(), BuildOptions{
		BatchSize: 2,
		Progress:  func(done, total int) { progress = append(progress, [2]int{done, total}) },
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, emb.batches)
	assert.Equal(t, [][2]int{{2, 3}, {3, 3}}, progress)
}

func TestBuildFitsCorpusEmbedder(t *testing.T) {
	ctx := context.Background()
	base := tfidf.NewEmbedder()
	ix, err := Build(ctx, paragraphChunks(t), base, memory.NewStorage(), BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, base.Dimension())

	res, err := ix.Query(ctx, "three", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Paragraph three.", res[0].Chunk.Text)
}

func TestQueryEmbedFailure(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{words: []string{"one"}}
	chunks := paragraphChunks(t)
	ix, err := Build(ctx, chunks, emb, memory.NewStorage(), BuildOptions{})
	require.NoError(t, err)

	emb.failAt = emb.calls + 1
	_, err = ix.Query(ctx, "one", 1)
	assert.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestBuildLogsEmbedderAndSize(t *testing.T) {
	prev := log.Logger()
	t.Cleanup(func() { log.SetLogger(prev) })
	var lines []string
	log.SetLogger(funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1}))

	_, err := Build(context.Background(), paragraphChunks(t), &keywordEmbedder{words: []string{"one", "two"}}, memory.NewStorage(), BuildOptions{})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg"="index built"`)
	assert.Contains(t, lines[0], `"embedder"="keyword"`)
	assert.Contains(t, lines[0], `"chunks"=3`)
	assert.Contains(t, lines[0], `"dims"=2`)
}
