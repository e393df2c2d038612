package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"community-token-tracker/internal/classifier"
	"community-token-tracker/internal/config"
	"community-token-tracker/internal/resolver"
	"community-token-tracker/internal/xapi"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML config file")
	envPath := flag.String("env-path", ".", "Directory holding .env files")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <community id or link>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.XAPI.HasXCredentials() {
		fmt.Fprintln(os.Stderr, "Error: X API bearer token, csrf token and cookie must be configured")
		os.Exit(1)
	}

	client := xapi.NewClient(xapi.Credentials{
		BearerToken: cfg.XAPI.BearerToken,
		CSRFToken:   cfg.XAPI.CSRFToken,
		Cookie:      cfg.XAPI.Cookie,
	},
		xapi.WithBaseURL(cfg.XAPI.BaseURL),
		xapi.WithEndpoint(cfg.XAPI.Endpoint),
		xapi.WithTimeout(cfg.XAPI.Timeout),
	)

	if err := lookup(context.Background(), os.Stdout, client, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// lookup resolves one community id (or community link) and prints its admin.
func lookup(ctx context.Context, w io.Writer, api resolver.AdminLookup, arg string) error {
	id := arg
	if parsed, ok := classifier.ParseCommunityID(arg); ok {
		id = parsed
	}
	if id == "" {
		return errors.New("empty community id")
	}

	admin, err := api.CommunityAdmin(ctx, id)
	if err != nil {
		var status *xapi.StatusError
		if errors.As(err, &status) {
			return fmt.Errorf("community %s: HTTP %d: %s", id, status.Code, status.Body)
		}
		return fmt.Errorf("community %s: %w", id, err)
	}

	fmt.Fprintf(w, "Community: %s\nAdmin: @%s\n", id, admin)
	return nil
}
