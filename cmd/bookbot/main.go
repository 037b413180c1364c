package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bookbot/internal/config"
	"bookbot/internal/logging"
	"bookbot/internal/session"
	"bookbot/internal/store"
)

var (
	// Global flags
	configPath string
	dataDir    string
	verbose    bool

	cfg    *config.UserConfig
	logger *zap.Logger
)

// rootCmd starts the interactive chat when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "bookbot",
	Short: "bookbot - Vietnamese bookstore assistant",
	Long: `bookbot is a rule-based conversational assistant for a Vietnamese
bookstore. It understands natural Vietnamese: searching the catalog by
title, author, category or price, answering price and stock questions,
recommending books, and walking through a complete order dialogue.

Run without arguments to start the interactive chat.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		settings := logging.Settings{
			DebugMode:  cfg.Logging.DebugMode || verbose,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		}
		if verbose {
			settings.Level = "debug"
		}
		if err := logging.Initialize(cfg.DataDir, settings); err != nil {
			return err
		}

		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// seedCmd loads the YAML catalog into the database.
var seedCmd = &cobra.Command{
	Use:   "seed [catalog.yaml]",
	Short: "Load the book catalog into the database",
	Long: `Reads a YAML catalog file and upserts its books into the SQLite
database. Without an argument the configured catalog path is used; when
that file is missing the built-in starter catalog is loaded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogPath := cfg.ResolvePath(cfg.Store.CatalogPath)
		if len(args) == 1 {
			catalogPath = args[0]
		}

		st, err := store.Open(cfg.ResolvePath(cfg.Store.DBPath), cfg.CacheTTL())
		if err != nil {
			return err
		}
		defer st.Close()

		count, err := store.Seed(st, catalogPath)
		if err != nil {
			return err
		}
		logger.Info("catalog seeded", zap.Int("books", count), zap.String("path", catalogPath))
		fmt.Printf("Seeded %d books into %s\n", count, cfg.ResolvePath(cfg.Store.DBPath))
		return nil
	},
}

// statsCmd prints catalog and order statistics.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog and order statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.ResolvePath(cfg.Store.DBPath), cfg.CacheTTL())
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats()
		if err != nil {
			return err
		}

		fmt.Println("Catalog")
		fmt.Printf("  Books:          %d\n", stats.TotalBooks)
		fmt.Printf("  Categories:     %d\n", stats.TotalCategories)
		fmt.Printf("  Authors:        %d\n", stats.TotalAuthors)
		fmt.Printf("  Average price:  %s\n", session.FormatCurrency(int(stats.AveragePrice)))
		fmt.Printf("  Total stock:    %d\n", stats.TotalStock)
		fmt.Println("Orders")
		fmt.Printf("  Total:          %d\n", stats.TotalOrders)
		fmt.Printf("  Pending:        %d\n", stats.PendingOrders)
		fmt.Printf("  Revenue:        %s\n", session.FormatCurrency(stats.Revenue))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "bookbot.json", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
