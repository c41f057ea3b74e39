package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careahead/vitalscope/internal/config"
	"github.com/careahead/vitalscope/internal/llm"
	"github.com/careahead/vitalscope/internal/logging"
	"github.com/careahead/vitalscope/internal/reveal"
	"github.com/careahead/vitalscope/internal/store"
	"github.com/careahead/vitalscope/internal/tui"
)

var (
	// Global flags
	configPath  string
	noAltScreen bool

	cfg    *config.Config
	logger *zap.Logger

	// Swapped in tests.
	now          = time.Now
	getenv       = os.Getenv
	newGenerator = llm.New
)

var rootCmd = &cobra.Command{
	Use:   "careahead",
	Short: "Daily vital-sign baselines and AI insights",
	Long: `careahead keeps a private history of daily face-scan vitals (heart rate,
breathing rate, optional sleep), compares each day with your own rolling
baseline and asks a language model for a short, non-diagnostic insight.

Run without arguments to open the dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		logger, err = logging.New(cfg.LoggingOptions())
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runDashboard,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().BoolVar(&noAltScreen, "no-alt-screen", false, "disable the alternate screen buffer")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore() (*store.Store, error) {
	return store.Open(cfg.Storage.Database, logger)
}

// generator builds the configured provider. The key is read here, at the
// edge, and handed to the llm package explicitly.
func generator(ctx context.Context) (llm.Generator, error) {
	return newGenerator(ctx, cfg.LLMOptions(cfg.APIKey(getenv), logger))
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	tuiConfig := tui.Config{
		Context:     ctx,
		History:     st,
		Format:      cfg.Format(),
		Engine:      engine(),
		ArchivePath: cfg.Storage.Archive,
		ExportPath:  cfg.Storage.Export,
		Logger:      logger,
		Now:         now,
	}

	gen, err := generator(ctx)
	if err != nil {
		logger.Warn("insights disabled", zap.Error(err))
		tuiConfig.Unavailable = llm.Describe(err)
		if errors.Is(err, llm.ErrMissingAPIKey) {
			tuiConfig.Unavailable = fmt.Sprintf("%s (%s)", tuiConfig.Unavailable, apiKeyEnv())
		}
	} else {
		ctrl := reveal.New(gen,
			reveal.WithRevealStep(cfg.Reveal.Step),
			reveal.WithLogger(logger),
			reveal.WithFormat(cfg.Format()),
		)
		defer ctrl.Close()
		tuiConfig.Controller = ctrl
		tuiConfig.Provider = gen.Name()
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithMouseCellMotion()}
	if !noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(tui.New(tuiConfig), opts...)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

func apiKeyEnv() string {
	if cfg.LLM.APIKeyEnv != "" {
		return cfg.LLM.APIKeyEnv
	}
	return config.DefaultAPIKeyEnv
}
