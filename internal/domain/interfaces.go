package domain

import "context"

// Document is the normalized text of one uploaded file.
type Document struct {
	ID    string
	Name  string
	Text  string
	Pages int
}

// Chunk is a bounded span of a document's text used for indexing.
// Start and End are rune offsets into Document.Text (End exclusive).
type Chunk struct {
	DocumentID string
	ChunkID    string
	Index      int
	Text       string
	Start      int
	End        int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Extractor converts raw document bytes into normalized text.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (*Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// BatchEmbedder is implemented by embedders that can embed many texts per call.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// CorpusEmbedder is an embedder that must see the corpus before it can embed.
// Fit leaves the receiver untouched and returns the fitted embedder.
type CorpusEmbedder interface {
	Embedder
	Fit(corpus []string) (Embedder, error)
}

// Completer sends a prompt to a language model and returns its text.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(dimension int) error
	Upsert(chunks []Chunk, vectors [][]float64) error
	Search(vector []float64, topK int) ([]SearchResult, error)
	Clear() error
	Len() int
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
