package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Amund211/haloclient/internal/adapters/benchmarkrepository"
	"github.com/Amund211/haloclient/internal/adapters/database"
	"github.com/Amund211/haloclient/internal/apiclient"
	"github.com/Amund211/haloclient/internal/auth"
	"github.com/Amund211/haloclient/internal/config"
	"github.com/Amund211/haloclient/internal/logging"
	"github.com/Amund211/haloclient/internal/ratelimiting"
	"github.com/Amund211/haloclient/internal/reporting"
	"github.com/Amund211/haloclient/internal/telemetry"
	"github.com/Amund211/haloclient/internal/transport"
)

const serviceName = "haloclient"

type dependencies struct {
	client       *apiclient.Client
	pollInterval time.Duration
	maxWait      time.Duration
	baseURL      string

	// openRepository connects to and migrates the benchmark database
	openRepository func(ctx context.Context) (benchmarkrepository.BenchmarkRepository, error)

	cleanup []func()
}

type dependencyFactory func(ctx context.Context) (*dependencies, error)

func (d *dependencies) close() {
	for i := len(d.cleanup) - 1; i >= 0; i-- {
		d.cleanup[i]()
	}
	d.cleanup = nil
}

func newDependencies(ctx context.Context) (*dependencies, error) {
	logger := logging.FromContext(ctx)

	conf, err := config.ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.InfoContext(ctx, "Loaded config", "config", conf.NonSensitiveString())

	deps := &dependencies{
		pollInterval: conf.PollInterval(),
		maxWait:      conf.MaxWait(),
		baseURL:      conf.APIBaseURL(),
	}

	flush, err := reporting.NewSentryOrMock(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	deps.cleanup = append(deps.cleanup, flush)
	logger.InfoContext(ctx, "Initialized Sentry")

	if conf.TelemetryEnabled() {
		shutdown, err := telemetry.SetupOTelSDK(ctx, serviceName)
		if err != nil {
			deps.close()
			return nil, fmt.Errorf("failed to set up telemetry: %w", err)
		}
		deps.cleanup = append(deps.cleanup, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Warn("Failed to shut down telemetry", "error", err.Error())
			}
		})
		logger.InfoContext(ctx, "Initialized OpenTelemetry")
	}

	httpTransport := transport.New(
		transport.NewHTTPClient(),
		ratelimiting.NewRequestLimiter(conf.RequestsPerSecond()),
		time.Now,
	)

	client, err := apiclient.New(
		conf.APIBaseURL(),
		httpTransport,
		auth.NewManager(),
		conf.RequestTimeout(),
		apiclient.WithWeaponCacheTTL(conf.WeaponCacheTTL()),
	)
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}
	deps.client = client
	deps.cleanup = append(deps.cleanup, client.Close)

	var db *sqlx.DB
	deps.openRepository = func(ctx context.Context) (benchmarkrepository.BenchmarkRepository, error) {
		if db == nil {
			logger.InfoContext(ctx, "Initializing database connection")
			var err error
			db, err = database.NewPostgresDatabaseFromConfig(conf)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}
			deps.cleanup = append(deps.cleanup, func() {
				_ = db.Close()
			})
		}

		schema := database.GetSchemaName(!conf.IsProduction())
		migrator := database.NewDatabaseMigrator(db, logger.With(slog.String("component", "migrator")))
		if err := migrator.Migrate(ctx, schema); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		return benchmarkrepository.NewPostgresBenchmarkRepository(db, schema), nil
	}

	return deps, nil
}
