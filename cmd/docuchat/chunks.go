package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docuchat/internal/chunker"
	"docuchat/internal/domain"
	"docuchat/internal/extractor"
)

type chunksOptions struct {
	size    int
	overlap int
}

func newChunksCmd(root *rootOptions) *cobra.Command {
	opts := &chunksOptions{}
	cmd := &cobra.Command{
		Use:   "chunks file.pdf",
		Short: "Print how a PDF is split into chunks (no API key needed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunks(cmd.Context(), root, opts, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.size, "size", 0, "Maximum chunk size in characters (default from config)")
	cmd.Flags().IntVar(&opts.overlap, "overlap", -1, "Maximum overlap in characters (default from config)")
	return cmd
}

func runChunks(ctx context.Context, root *rootOptions, opts *chunksOptions, path string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(root.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.size > 0 {
		cfg.Chunker.ChunkSize = opts.size
	}
	if opts.overlap >= 0 {
		cfg.Chunker.ChunkOverlap = opts.overlap
	}
	if err := cfg.ValidateChunker(); err != nil {
		return err
	}
	if root.verbose {
		flush, err := setupLogging(cfg, true)
		if err != nil {
			return err
		}
		defer flush()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNoDocument, err)
	}
	doc, err := extractor.NewPDF().Extract(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}
	c, err := chunker.NewRecursive(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return err
	}
	chunks, err := c.Chunk(*doc)
	if err != nil {
		return err
	}
	return printChunks(w, doc, chunks)
}

func printChunks(w io.Writer, doc *domain.Document, chunks []domain.Chunk) error {
	if _, err := fmt.Fprintf(w, "%s: %d pages, %d chunks\n", doc.Name, doc.Pages, len(chunks)); err != nil {
		return err
	}
	for _, ch := range chunks {
		if _, err := fmt.Fprintf(w, "\n#%d [%d,%d) len=%d\n%s\n", ch.Index, ch.Start, ch.End, ch.End-ch.Start, ch.Text); err != nil {
			return err
		}
	}
	return nil
}
