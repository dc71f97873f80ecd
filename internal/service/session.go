package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"docuchat/internal/domain"
	"docuchat/internal/log"
	"docuchat/internal/retrieval"
)

// Generator turns retrieved chunks and a question into an answer.
type Generator interface {
	Answer(ctx context.Context, question string, results []domain.SearchResult) (string, error)
}

// Options wires a Session. Summarizer is optional.
type Options struct {
	Extractor  domain.Extractor
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	NewStore   func() domain.VectorStore
	Generator  Generator
	Summarizer domain.Summarizer

	TopK                int
	BatchSize           int
	SummaryMaxSentences int

	// Progress receives embedding progress while a document is indexed.
	Progress func(done, total int)
}

// ProcessResult describes a successfully indexed document.
type ProcessResult struct {
	Document   domain.Document
	Characters int
	Chunks     int
	Summary    string
}

// Answer is the reply to one question together with the chunks it was based on.
type Answer struct {
	Question string
	Text     string
	Sources  []domain.SearchResult
}

// Session owns the index of the current document. Operations run one at a time.
type Session struct {
	opts   Options
	id     string
	logger logr.Logger

	mu    sync.Mutex
	index *retrieval.Index
	doc   *domain.Document
}

func NewSession(opts Options) *Session {
	id := uuid.NewString()
	return &Session{
		opts:   opts,
		id:     id,
		logger: log.WithName("session").WithValues("session", id),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Ready reports whether a document has been indexed and questions can be asked.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index != nil
}

// Document returns the indexed document, or nil before the first success.
func (s *Session) Document() *domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	d := *s.doc
	return &d
}

// ProcessDocument extracts, chunks and indexes data, replacing the current
// index on success. If extraction or chunking fails the current index is kept.
// If indexing fails the current index is kept only when data is the document
// already indexed; a new document leaves the session without an index.
func (s *Session) ProcessDocument(ctx context.Context, name string, data []byte) (*ProcessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.logger.WithValues("document", name)
	if len(data) == 0 {
		return nil, domain.ErrNoDocument
	}

	doc, err := s.opts.Extractor.Extract(ctx, name, data)
	if err != nil {
		logger.Error(err, "extraction failed")
		return nil, err
	}
	chunks, err := s.opts.Chunker.Chunk(*doc)
	if err != nil {
		logger.Error(err, "chunking failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoText, name)
	}

	index, err := retrieval.Build(ctx, chunks, s.opts.Embedder, s.opts.NewStore(), retrieval.BuildOptions{
		BatchSize: s.opts.BatchSize,
		Progress:  s.opts.Progress,
	})
	if err != nil {
		if s.doc == nil || s.doc.ID != doc.ID {
			s.index, s.doc = nil, nil
		}
		logger.Error(err, "index build failed", "kept_previous", s.index != nil)
		return nil, err
	}
	s.index, s.doc = index, doc

	res := &ProcessResult{
		Document:   *doc,
		Characters: utf8.RuneCountInString(doc.Text),
		Chunks:     len(chunks),
	}
	if s.opts.Summarizer != nil {
		summary, err := s.opts.Summarizer.Summarize(doc.Text, s.opts.SummaryMaxSentences)
		if err != nil {
			logger.Error(err, "summary failed")
		} else {
			res.Summary = summary
		}
	}
	logger.Info("document processed", "pages", doc.Pages, "characters", res.Characters, "chunks", res.Chunks)
	return res, nil
}

// Ask answers question from the current index.
func (s *Session) Ask(ctx context.Context, question string) (*Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if s.index == nil {
		return nil, domain.ErrNoIndex
	}

	results, err := s.index.Query(ctx, question, s.opts.TopK)
	if err != nil {
		s.logger.Error(err, "retrieval failed")
		return nil, err
	}
	text, err := s.opts.Generator.Answer(ctx, question, results)
	if err != nil {
		s.logger.Error(err, "generation failed")
		return nil, err
	}
	s.logger.V(1).Info("question answered", "sources", len(results))
	return &Answer{Question: question, Text: text, Sources: results}, nil
}
