package retrieval

import (
	"context"
	"errors"
	"fmt"

	"docuchat/internal/domain"
	"docuchat/internal/log"
)

// DefaultTopK is used when a query asks for k <= 0.
const DefaultTopK = 4

// DefaultBatchSize bounds the texts sent per batch embedding call.
const DefaultBatchSize = 32

// BuildOptions tunes index construction.
type BuildOptions struct {
	BatchSize int
	// Progress, if set, is called after each embedded batch.
	Progress func(done, total int)
}

// Index is a built, queryable set of chunk vectors. An Index only exists
// after a successful Build.
type Index struct {
	embedder domain.Embedder
	store    domain.VectorStore
	chunks   int
}

// Build embeds every chunk and loads the vectors into store, which is
// re-initialised first. Any failure returns ErrIndexBuild and no index.
func Build(ctx context.Context, chunks []domain.Chunk, embedder domain.Embedder, store domain.VectorStore, opts BuildOptions) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks", domain.ErrIndexBuild)
	}
	logger := log.WithValues("embedder", embedder.Name(), "chunks", len(chunks))
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	if ce, ok := embedder.(domain.CorpusEmbedder); ok {
		fitted, err := ce.Fit(texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
		}
		embedder = fitted
	}

	vectors, err := embedAll(ctx, embedder, texts, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
	}
	if err := store.Init(len(vectors[0])); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		_ = store.Clear()
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
	}
	logger.V(1).Info("index built", "dims", len(vectors[0]))
	return &Index{embedder: embedder, store: store, chunks: len(chunks)}, nil
}

func embedAll(ctx context.Context, embedder domain.Embedder, texts []string, opts BuildOptions) ([][]float64, error) {
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	batcher, canBatch := embedder.(domain.BatchEmbedder)
	if !canBatch {
		size = 1
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		if canBatch {
			batch, err := batcher.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
			}
			if len(batch) != end-start {
				return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end-1, len(batch))
			}
			vectors = append(vectors, batch...)
		} else {
			vec, err := embedder.Embed(ctx, texts[start])
			if err != nil {
				return nil, fmt.Errorf("embed chunk %d: %w", start, err)
			}
			vectors = append(vectors, vec)
		}
		if opts.Progress != nil {
			opts.Progress(end, len(texts))
		}
	}
	if len(vectors[0]) == 0 {
		return nil, errors.New("embedder returned empty vectors")
	}
	return vectors, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return ix.chunks }

// Query embeds question with the embedder the index was built with and
// returns the min(k, Len()) most similar chunks, best first. Ties go to the
// earlier chunk.
func (ix *Index) Query(ctx context.Context, question string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	vec, err := ix.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrRetrieval, err)
	}
	results, err := ix.store.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}
	return results, nil
}
