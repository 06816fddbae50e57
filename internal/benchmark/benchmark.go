package benchmark

import (
	"context"
	"log/slog"
	"time"

	"github.com/Amund211/haloclient/internal/apiclient"
	"github.com/Amund211/haloclient/internal/domain"
	"github.com/Amund211/haloclient/internal/logging"
	"github.com/google/uuid"
)

const (
	OperationLogin       = "login"
	OperationWeapons     = "weapons"
	OperationGameState   = "gameState"
	OperationPlayerStats = "playerStats"
)

// Operations lists the benchmarked operations in report order
var Operations = []string{OperationLogin, OperationWeapons, OperationGameState, OperationPlayerStats}

type Client interface {
	Login(ctx context.Context, username, password string) apiclient.Result[domain.LoginResponse]
	GetWeapons(ctx context.Context) apiclient.Result[[]domain.Weapon]
	GetGameState(ctx context.Context) apiclient.Result[domain.GameState]
	GetPlayerStats(ctx context.Context, playerID int64) apiclient.Result[domain.PlayerStats]
}

type Options struct {
	Username string
	Password string
	PlayerID int64
}

func DefaultOptions() Options {
	return Options{
		Username: "testuser",
		Password: "password",
		PlayerID: 1,
	}
}

type Measurement struct {
	Operation  string
	Latency    time.Duration
	StatusCode int
	Success    bool
	// Empty on success
	Error string
}

type Report struct {
	RunID        uuid.UUID
	StartedAt    time.Time
	Duration     time.Duration
	Measurements []Measurement
}

func (r Report) Measurement(operation string) (Measurement, bool) {
	for _, measurement := range r.Measurements {
		if measurement.Operation == operation {
			return measurement, true
		}
	}
	return Measurement{}, false
}

func (r Report) Successes() int {
	count := 0
	for _, measurement := range r.Measurements {
		if measurement.Success {
			count++
		}
	}
	return count
}

type completed struct {
	index       int
	measurement Measurement
}

func measure[T any](ctx context.Context, index int, operation string, nowFunc func() time.Time, run func(ctx context.Context) apiclient.Result[T], done chan<- completed) {
	start := nowFunc()
	apiclient.Go(ctx, run, func(result apiclient.Result[T]) {
		measurement := Measurement{
			Operation:  operation,
			Latency:    nowFunc().Sub(start),
			StatusCode: result.StatusCode,
			Success:    result.OK(),
		}
		if result.Err != nil {
			measurement.Error = result.Err.Error()
		}
		done <- completed{index: index, measurement: measurement}
	})
}

// Run fires all benchmarked operations concurrently and returns once every one of them
// has resolved, successfully or not.
func Run(ctx context.Context, client Client, opts Options) Report {
	return run(ctx, client, opts, time.Now)
}

func run(ctx context.Context, client Client, opts Options, nowFunc func() time.Time) Report {
	runID := uuid.New()
	ctx = logging.AddMetaToContext(ctx,
		slog.String("component", "benchmark"),
		slog.String("runId", runID.String()),
	)

	startedAt := nowFunc()
	done := make(chan completed, len(Operations))

	measure(ctx, 0, OperationLogin, nowFunc, func(ctx context.Context) apiclient.Result[domain.LoginResponse] {
		return client.Login(ctx, opts.Username, opts.Password)
	}, done)
	measure(ctx, 1, OperationWeapons, nowFunc, client.GetWeapons, done)
	measure(ctx, 2, OperationGameState, nowFunc, client.GetGameState, done)
	measure(ctx, 3, OperationPlayerStats, nowFunc, func(ctx context.Context) apiclient.Result[domain.PlayerStats] {
		return client.GetPlayerStats(ctx, opts.PlayerID)
	}, done)

	measurements := make([]Measurement, len(Operations))
	for range Operations {
		c := <-done
		measurements[c.index] = c.measurement
	}

	report := Report{
		RunID:        runID,
		StartedAt:    startedAt,
		Duration:     nowFunc().Sub(startedAt),
		Measurements: measurements,
	}

	logger := logging.FromContext(ctx)
	for _, m := range measurements {
		logger.InfoContext(ctx, "Benchmarked operation",
			"operation", m.Operation,
			"latency", m.Latency.String(),
			"success", m.Success,
		)
	}

	return report
}

// Start runs the benchmark in the background and calls onComplete exactly once with the report
func Start(ctx context.Context, client Client, opts Options, onComplete func(Report)) {
	go func() {
		report := Run(ctx, client, opts)
		if onComplete != nil {
			onComplete(report)
		}
	}()
}
