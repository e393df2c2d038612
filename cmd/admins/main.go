package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"community-token-tracker/internal/config"
	"community-token-tracker/internal/domain"
	"community-token-tracker/internal/storage"
	pgstore "community-token-tracker/internal/storage/postgres"
)

func main() {
	// Parse flags
	configFile := flag.String("config", "", "Path to YAML config file")
	envPath := flag.String("env-path", ".", "Directory holding .env files")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	limit := flag.Int("limit", 20, "Number of most recent tokens with an admin to list")
	flag.Parse()

	cfg, err := config.Load(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Database.PostgresDSN = *postgresDSN
	}
	if cfg.Database.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: a postgres dsn is required (--postgres-dsn, TRACKER_DATABASE_POSTGRES_DSN or DATABASE_URL)")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := report(ctx, os.Stdout, pgstore.NewTokenStore(pool), *limit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// report prints the most recent tokens with an admin and the coverage summary.
func report(ctx context.Context, w io.Writer, tokens storage.TokenStore, limit int) error {
	recs, err := tokens.ListWithAdmin(ctx, limit)
	if err != nil {
		return fmt.Errorf("list tokens with admin: %w", err)
	}
	counts, err := tokens.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count tokens: %w", err)
	}

	rule := strings.Repeat("=", 100)
	fmt.Fprintln(w, "Tokens with admin username:")
	fmt.Fprintln(w, rule)
	for _, rec := range recs {
		writeToken(w, rec)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Summary: %d / %d tokens have admin (%.1f%%)\n", counts.WithAdmin, counts.Total, counts.Percent())
	return nil
}

func writeToken(w io.Writer, rec *domain.TokenRecord) {
	community := ""
	if rec.CommunityID != nil {
		community = *rec.CommunityID
	}
	detected := time.Unix(rec.DetectedAt, 0).UTC().Format(time.DateTime)

	fmt.Fprintf(w, "Symbol: %-12s | Admin: @%-20s | Community: %-20s | Detected: %s\n",
		rec.Symbol, *rec.AdminUsername, community, detected)
	fmt.Fprintf(w, "  Pool: %s\n\n", rec.PoolAddress)
}
