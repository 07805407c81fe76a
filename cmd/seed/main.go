package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"

	"credit-engine/internal/config"
	"credit-engine/internal/infrastructure/database/postgres"
	"credit-engine/internal/infrastructure/logging"
	"credit-engine/internal/ingestion"
)

// seed loads historical customer and loan CSV exports into the database.
// Re-running it is safe: existing rows are skipped.
func main() {
	customerFile := flag.String("customers", "", "path to the customer CSV file")
	loanFile := flag.String("loans", "", "path to the loan CSV file")
	configPath := flag.String("config", ".", "directory containing config.yml")
	flag.Parse()

	if *customerFile == "" && *loanFile == "" {
		slog.Error("Nothing to do: pass -customers and/or -loans")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.Logger)

	ctx := context.Background()
	dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	loader := ingestion.NewLoader(
		postgres.NewCustomerRepository(dbPool, logger),
		postgres.NewLoanRepository(dbPool, logger),
		logger,
	)

	// Customers first: loans reference them.
	if *customerFile != "" {
		ingestFile(ctx, logger, *customerFile, "customers", loader.LoadCustomers)
	}
	if *loanFile != "" {
		ingestFile(ctx, logger, *loanFile, "loans", loader.LoadLoans)
	}
}

func ingestFile(ctx context.Context, logger *slog.Logger, path, kind string, load func(context.Context, io.Reader) (*ingestion.Result, error)) {
	f, err := os.Open(path)
	if err != nil {
		logger.Error("Failed to open file", "kind", kind, "path", path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	res, err := load(ctx, f)
	if err != nil {
		logger.Error("Ingestion failed", "kind", kind, "path", path, "error", err)
		os.Exit(1)
	}
	logger.Info("Ingestion complete", "kind", kind, "path", path,
		"rows", res.RowsRead, "skipped", res.RowsSkipped, "inserted", res.Inserted)
}
