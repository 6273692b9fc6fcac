package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	PageSize int
	KeyCase  string
	Verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "pagedump",
	Short: "Stream a large query result page by page as JSON lines",
	Long: `pagedump reads a query result in fixed-size pages (limit/offset) inside a
single transaction and writes every row as one JSON object per line.

Examples:
  pagedump sql --driver pgx --dsn postgres://app@localhost/app --query "SELECT * FROM orders ORDER BY id"
  pagedump sql --driver sqlite --database app.db --query "SELECT * FROM items WHERE kind = ?" --arg book
  pagedump mongo --uri mongodb://localhost:27017 --database app --collection orders --filter '{"status":"open"}'`,
	SilenceUsage: true,
}

func Execute() error {
	// an interrupt cancels the fetch, which rolls its transaction back
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if Verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&PageSize, "page-size", "n", 1000, "Rows fetched per page")
	rootCmd.PersistentFlags().StringVar(&KeyCase, "keys", "none", "Rename output keys: none, snake or camel")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "Log every page fetch to stderr")

	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(mongoCmd)
}
