package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docuchat/internal/domain"
	"docuchat/internal/service"
)

type askOptions struct {
	questions []string
	topK      int
	sources   bool
	quiet     bool
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask file.pdf -q question [-q question ...]",
		Short: "Process a PDF and print answers to one or more questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.questions) == 0 {
				return errors.New("at least one --question is required")
			}
			return runAsk(cmd.Context(), root, opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringArrayVarP(&opts.questions, "question", "q", nil, "Question to ask (repeatable)")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Chunks retrieved per question (default from config)")
	cmd.Flags().BoolVar(&opts.sources, "sources", false, "Print the chunks each answer was based on")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "Hide the embedding progress bar")
	return cmd
}

func runAsk(ctx context.Context, root *rootOptions, opts *askOptions, path string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, flush, err := prepare(root, root.verbose)
	if err != nil {
		return err
	}
	defer flush()
	if opts.topK > 0 {
		cfg.Retrieval.TopK = opts.topK
	}

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if opts.quiet {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(stderr),
				progressbar.OptionSetDescription("embedding chunks"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
		if done == total {
			_ = bar.Finish()
		}
	}

	session, err := newSession(cfg, progress)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNoDocument, err)
	}
	res, err := session.ProcessDocument(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Processed %s: %d pages, %d characters, %d chunks.\n",
		res.Document.Name, res.Document.Pages, res.Characters, res.Chunks)

	var failed int
	for i, q := range opts.questions {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		ans, err := session.Ask(ctx, q)
		if err != nil {
			failed++
			fmt.Fprintf(stdout, "Q: %s\n", q)
			fmt.Fprintf(stderr, "Error: %v\n", err)
			continue
		}
		printAnswer(stdout, ans, opts.sources)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d questions failed", failed, len(opts.questions))
	}
	return nil
}

func printAnswer(w io.Writer, ans *service.Answer, withSources bool) {
	fmt.Fprintf(w, "Q: %s\n", ans.Question)
	fmt.Fprintf(w, "A: %s\n", strings.TrimSpace(ans.Text))
	if !withSources {
		return
	}
	for i, src := range ans.Sources {
		fmt.Fprintf(w, "  [%d] chunk %d (score %.3f): %s\n", i+1, src.Chunk.Index, src.Score, oneLine(src.Chunk.Text, 160))
	}
}

// oneLine flattens text and cuts it to at most limit runes.
func oneLine(text string, limit int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
