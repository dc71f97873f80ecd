package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/answer"
	"docuchat/internal/chunker"
	"docuchat/internal/domain"
	"docuchat/internal/summarizer"
	"docuchat/internal/vectorstore/memory"
)

// textExtractor treats the upload bytes as already-extracted text.
type textExtractor struct{}

func (textExtractor) Extract(_ context.Context, name string, data []byte) (*domain.Document, error) {
	text := string(data)
	if strings.HasPrefix(text, "%garbage") {
		return nil, fmt.Errorf("%w: %s: malformed", domain.ErrExtraction, name)
	}
	return &domain.Document{ID: "id-" + text, Name: name, Text: text, Pages: 1}, nil
}

type keywordEmbedder struct {
	words []string
	fail  bool
}

func (e *keywordEmbedder) Name() string { return "keyword" }

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.fail {
		return nil, errors.New("embedding service unavailable")
	}
	lower := strings.ToLower(text)
	vec := make([]float64, len(e.words))
	for i, w := range e.words {
		vec[i] = float64(strings.Count(lower, w))
	}
	return vec, nil
}

type echoCompleter struct {
	err error
}

func (echoCompleter) Name() string { return "echo" }

func (c echoCompleter) Complete(_ context.Context, prompt string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return "answer from: " + prompt, nil
}

type fixture struct {
	session   *Session
	embedder  *keywordEmbedder
	completer *echoCompleter
}

func newFixture(t *testing.T, topK int) *fixture {
	t.Helper()
	c, err := chunker.NewRecursive(20, 5)
	require.NoError(t, err)
	emb := &keywordEmbedder{words: []string{"one", "two", "three", "four"}}
	comp := &echoCompleter{}
	s := NewSession(Options{
		Extractor:           textExtractor{},
		Chunker:             c,
		Embedder:            emb,
		NewStore:            func() domain.VectorStore { return memory.NewStorage() },
		Generator:           answer.NewGenerator(comp),
		Summarizer:          summarizer.NewFrequency(),
		TopK:                topK,
		SummaryMaxSentences: 1,
	})
	return &fixture{session: s, embedder: emb, completer: comp}
}

const paragraphs = "Paragraph one. Paragraph two. Paragraph three."

func TestEndToEndParagraphTwo(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	res, err := f.session.ProcessDocument(ctx, "doc.pdf", []byte(paragraphs))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, len(paragraphs), res.Characters)
	assert.NotEmpty(t, res.Summary)
	assert.True(t, f.session.Ready())
	assert.Equal(t, "doc.pdf", f.session.Document().Name)

	ans, err := f.session.Ask(ctx, "  What does paragraph two say?  ")
	require.NoError(t, err)
	assert.Equal(t, "What does paragraph two say?", ans.Question)
	require.Len(t, ans.Sources, 1)
	assert.Contains(t, ans.Sources[0].Chunk.Text, "Paragraph two.")
	assert.Equal(t, "Paragraph two. ", ans.Sources[0].Chunk.Text)
	assert.Contains(t, ans.Text, ans.Sources[0].Chunk.Text)
}

func TestAskWarnings(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()

	_, err := f.session.Ask(ctx, "anything")
	require.ErrorIs(t, err, domain.ErrNoIndex)
	assert.True(t, domain.IsWarning(err))

	_, err = f.session.Ask(ctx, "   ")
	require.ErrorIs(t, err, domain.ErrEmptyQuestion)
	assert.True(t, domain.IsWarning(err))

	_, err = f.session.ProcessDocument(ctx, "none.pdf", nil)
	require.ErrorIs(t, err, domain.ErrNoDocument)
	assert.True(t, domain.IsWarning(err))
}

func TestExtractionErrorKeepsIndex(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	_, err := f.session.ProcessDocument(ctx, "good.pdf", []byte(paragraphs))
	require.NoError(t, err)

	_, err = f.session.ProcessDocument(ctx, "bad.pdf", []byte("%garbage"))
	require.ErrorIs(t, err, domain.ErrExtraction)
	assert.False(t, domain.IsWarning(err))
	assert.True(t, f.session.Ready())
	assert.Equal(t, "good.pdf", f.session.Document().Name)
}

func TestBuildFailureForNewDocumentDropsIndex(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	_, err := f.session.ProcessDocument(ctx, "first.pdf", []byte(paragraphs))
	require.NoError(t, err)

	f.embedder.fail = true
	_, err = f.session.ProcessDocument(ctx, "second.pdf", []byte("Paragraph four is new."))
	require.ErrorIs(t, err, domain.ErrIndexBuild)
	assert.False(t, f.session.Ready())
	assert.Nil(t, f.session.Document())

	_, err = f.session.Ask(ctx, "four?")
	assert.ErrorIs(t, err, domain.ErrNoIndex)
}

func TestBuildFailureForSameDocumentKeepsIndex(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	_, err := f.session.ProcessDocument(ctx, "doc.pdf", []byte(paragraphs))
	require.NoError(t, err)

	f.embedder.fail = true
	_, err = f.session.ProcessDocument(ctx, "doc.pdf", []byte(paragraphs))
	require.ErrorIs(t, err, domain.ErrIndexBuild)
	assert.True(t, f.session.Ready())

	f.embedder.fail = false
	ans, err := f.session.Ask(ctx, "three")
	require.NoError(t, err)
	assert.NotEmpty(t, ans.Sources)
}

func TestNewDocumentReplacesIndex(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	_, err := f.session.ProcessDocument(ctx, "a.pdf", []byte(paragraphs))
	require.NoError(t, err)
	_, err = f.session.ProcessDocument(ctx, "b.pdf", []byte("Paragraph four only."))
	require.NoError(t, err)

	ans, err := f.session.Ask(ctx, "four")
	require.NoError(t, err)
	for _, src := range ans.Sources {
		assert.NotContains(t, src.Chunk.Text, "one")
	}
	assert.Equal(t, "b.pdf", f.session.Document().Name)
}

func TestAskGenerationError(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	_, err := f.session.ProcessDocument(ctx, "doc.pdf", []byte(paragraphs))
	require.NoError(t, err)

	f.completer.err = errors.New("model overloaded")
	_, err = f.session.Ask(ctx, "two")
	require.ErrorIs(t, err, domain.ErrGeneration)
	assert.False(t, domain.IsWarning(err))
	assert.True(t, f.session.Ready(), "generation failures leave the index alone")
}

func TestAskRetrievalError(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	_, err := f.session.ProcessDocument(ctx, "doc.pdf", []byte(paragraphs))
	require.NoError(t, err)

	f.embedder.fail = true
	_, err = f.session.Ask(ctx, "two")
	assert.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestSessionIDsAreUnique(t *testing.T) {
	a := newFixture(t, 1).session
	b := newFixture(t, 1).session
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
