package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	_ "golang.org/x/crypto/x509roots/fallback" // CA bundle for FROM scratch

	"github.com/Amund211/haloclient/internal/apiclient"
	"github.com/Amund211/haloclient/internal/auth"
	"github.com/Amund211/haloclient/internal/config"
	"github.com/Amund211/haloclient/internal/domain"
	"github.com/Amund211/haloclient/internal/logging"
	"github.com/Amund211/haloclient/internal/ratelimiting"
	"github.com/Amund211/haloclient/internal/reporting"
	"github.com/Amund211/haloclient/internal/transport"
)

var errMissingServerToken = errors.New("no server token provided, set HALO_SERVER_TOKEN")

type matchReporter interface {
	ReportMatchComplete(ctx context.Context, matchResult domain.MatchResult, serverToken string) apiclient.Result[string]
}

func readMatchResult(path string) (domain.MatchResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("failed to read match result: %w", err)
	}

	var result domain.MatchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.MatchResult{}, fmt.Errorf("failed to parse match result: %w", err)
	}
	if result.MatchID == "" {
		return domain.MatchResult{}, errors.New("match result has no matchId")
	}
	return result, nil
}

func reportMatch(ctx context.Context, w io.Writer, reporter matchReporter, path string, serverToken string) error {
	if serverToken == "" {
		return errMissingServerToken
	}

	matchResult, err := readMatchResult(path)
	if err != nil {
		return err
	}

	result := reporter.ReportMatchComplete(ctx, matchResult, serverToken)
	if !result.OK() {
		return fmt.Errorf("failed to report match %s (%s error): %w", matchResult.MatchID, result.Kind(), result.Err)
	}

	fmt.Fprintf(w, "%s (%d players, status %d)\n", result.Data, len(matchResult.PlayerStats), result.StatusCode)
	return nil
}

// newClient sets up error reporting and the api client. cleanup closes the client and
// flushes pending reports.
func newClient(conf config.Config) (*apiclient.Client, func(), error) {
	flush, err := reporting.NewSentryOrMock(conf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	client, err := apiclient.New(
		conf.APIBaseURL(),
		transport.New(transport.NewHTTPClient(), ratelimiting.NewRequestLimiter(conf.RequestsPerSecond()), time.Now),
		auth.NewManager(),
		conf.RequestTimeout(),
	)
	if err != nil {
		flush()
		return nil, nil, fmt.Errorf("failed to create api client: %w", err)
	}

	cleanup := func() {
		client.Close()
		flush()
	}
	return client, cleanup, nil
}

func main() {
	logger := logging.New(os.Stderr, slog.LevelInfo).With(slog.String("component", "report-match"))

	conf, err := config.ConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, cleanup, err := newClient(conf)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer cleanup()

	app := &cli.App{
		Name:  "report-match",
		Usage: "post a finished match to the backend as a game server",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "file", Usage: "match result json", Required: true},
		},
		Action: func(c *cli.Context) error {
			return reportMatch(c.Context, c.App.Writer, client, c.Path("file"), conf.ServerToken())
		},
	}

	ctx := logging.AddToContext(context.Background(), logger)
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error("Failed to report match", "error", err.Error())
		cleanup()
		os.Exit(1)
	}
}
