package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docuchat/internal/answer"
	"docuchat/internal/chunker"
	"docuchat/internal/config"
	"docuchat/internal/domain"
	"docuchat/internal/embedding/tfidf"
	"docuchat/internal/extractor"
	"docuchat/internal/llm"
	"docuchat/internal/llm/gemini"
	"docuchat/internal/llm/openai"
	"docuchat/internal/log"
	"docuchat/internal/service"
	"docuchat/internal/summarizer"
	"docuchat/internal/vectorstore/memory"
)

// provider is a hosted model that both embeds and completes.
type provider interface {
	domain.BatchEmbedder
	domain.Completer
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

// setupLogging sends logs to stderr when verbose, otherwise to the log file.
func setupLogging(cfg *config.AppConfig, verbose bool) (func(), error) {
	opts := log.Options{Level: cfg.Log.Level, File: cfg.Log.File, Development: cfg.Log.Development}
	if verbose {
		opts.Level = "debug"
		opts.File = ""
		return log.Setup(opts)
	}
	if opts.File == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		opts.File = filepath.Join(dir, "docuchat.log")
	}
	return log.Setup(opts)
}

func newProvider(cfg *config.AppConfig) (provider, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second
	retry := llm.Policy{MaxRetries: cfg.LLM.MaxRetries}
	switch cfg.LLM.Provider {
	case gemini.ProviderName:
		c, err := gemini.NewClient(gemini.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.APIKey(),
			EmbedModel:  cfg.LLM.EmbedModel,
			ChatModel:   cfg.LLM.ChatModel,
			Temperature: cfg.LLM.Temperature,
			Timeout:     timeout,
			Retry:       retry,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case openai.ProviderName:
		c, err := openai.NewClient(openai.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.APIKey(),
			EmbedModel:  cfg.LLM.EmbedModel,
			ChatModel:   cfg.LLM.ChatModel,
			Temperature: cfg.LLM.Temperature,
			Timeout:     timeout,
			Retry:       retry,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}

// newSession assembles the pipeline from a validated config.
func newSession(cfg *config.AppConfig, progress func(done, total int)) (*service.Session, error) {
	p, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "provider":
		emb = p
	case "tfidf":
		emb = tfidf.NewEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	ch, err := chunker.NewRecursive(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency":
		sum = summarizer.NewFrequency()
	case "none":
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	s := service.NewSession(service.Options{
		Extractor:           extractor.NewPDF(),
		Chunker:             ch,
		Embedder:            emb,
		NewStore:            func() domain.VectorStore { return memory.NewStorage() },
		Generator:           answer.NewGenerator(p),
		Summarizer:          sum,
		TopK:                cfg.Retrieval.TopK,
		BatchSize:           cfg.Embedder.BatchSize,
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
		Progress:            progress,
	})
	log.Info("session started", "session", s.ID(), "provider", p.Name(), "embedder", emb.Name(),
		"chunk_size", cfg.Chunker.ChunkSize, "chunk_overlap", cfg.Chunker.ChunkOverlap, "top_k", cfg.Retrieval.TopK)
	return s, nil
}
