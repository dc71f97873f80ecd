package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docuchat/internal/config"
	"docuchat/internal/log"
	"docuchat/internal/tui"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func main() {
	// A missing .env is fine; the credential may come from the environment.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "docuchat [file.pdf]",
		Short: "Ask questions about a PDF document",
		Long: `docuchat extracts the text of a PDF, indexes it for similarity search and
answers questions with a language model, using only the document as context.

Without a subcommand it starts the interactive terminal UI. A PDF given as
argument is processed on start.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var initial string
			if len(args) == 1 {
				initial = args[0]
			}
			return runTUI(opts, initial)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file (default ./config.yaml or ~/.config/docuchat/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level to stderr (not used by the interactive UI)")

	cmd.AddCommand(newAskCmd(opts), newChunksCmd(opts))
	return cmd
}

// prepare loads and validates the config and starts logging.
func prepare(opts *rootOptions, verbose bool) (*config.AppConfig, func(), error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	flush, err := setupLogging(cfg, verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logging: %w", err)
	}
	return cfg, flush, nil
}

func runTUI(opts *rootOptions, initial string) error {
	// The UI owns the terminal, so logs always go to the file.
	cfg, flush, err := prepare(opts, false)
	if err != nil {
		return err
	}
	defer flush()

	session, err := newSession(cfg, nil)
	if err != nil {
		return err
	}
	m := tui.New(session, tui.Options{InitialFile: initial})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Error(err, "ui exited")
		return err
	}
	return nil
}
