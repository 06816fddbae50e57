package benchmarkrepository

import (
	"context"
	"fmt"
	"time"

	"github.com/Amund211/haloclient/internal/benchmark"
	"github.com/Amund211/haloclient/internal/reporting"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PostgresBenchmarkRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresBenchmarkRepository(db *sqlx.DB, schema string) *PostgresBenchmarkRepository {
	return &PostgresBenchmarkRepository{db, schema}
}

type dbRun struct {
	ID         uuid.UUID `db:"id"`
	StartedAt  time.Time `db:"started_at"`
	DurationMS float64   `db:"duration_ms"`
	BaseURL    string    `db:"base_url"`
}

type dbMeasurement struct {
	RunID      uuid.UUID `db:"run_id"`
	Operation  string    `db:"operation"`
	LatencyMS  float64   `db:"latency_ms"`
	StatusCode int       `db:"status_code"`
	Success    bool      `db:"success"`
	Error      string    `db:"error"`
}

func toMilliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func fromMilliseconds(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func (p *PostgresBenchmarkRepository) setSearchPath(ctx context.Context, txx *sqlx.Tx) error {
	_, err := txx.ExecContext(ctx, fmt.Sprintf("SET LOCAL search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"schema": p.schema,
		})
		return err
	}
	return nil
}

func (p *PostgresBenchmarkRepository) StoreReport(ctx context.Context, baseURL string, report benchmark.Report) error {
	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return err
	}
	defer txx.Rollback()

	if err := p.setSearchPath(ctx, txx); err != nil {
		return err
	}

	_, err = txx.NamedExecContext(
		ctx,
		`INSERT INTO benchmark_runs
		(id, started_at, duration_ms, base_url)
		VALUES (:id, :started_at, :duration_ms, :base_url)`,
		dbRun{
			ID:         report.RunID,
			StartedAt:  report.StartedAt,
			DurationMS: toMilliseconds(report.Duration),
			BaseURL:    baseURL,
		},
	)
	if err != nil {
		err := fmt.Errorf("failed to insert benchmark run: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"runId": report.RunID.String(),
		})
		return err
	}

	if len(report.Measurements) > 0 {
		measurements := make([]dbMeasurement, 0, len(report.Measurements))
		for _, m := range report.Measurements {
			measurements = append(measurements, dbMeasurement{
				RunID:      report.RunID,
				Operation:  m.Operation,
				LatencyMS:  toMilliseconds(m.Latency),
				StatusCode: m.StatusCode,
				Success:    m.Success,
				Error:      m.Error,
			})
		}

		_, err = txx.NamedExecContext(
			ctx,
			`INSERT INTO benchmark_measurements
			(run_id, operation, latency_ms, status_code, success, error)
			VALUES (:run_id, :operation, :latency_ms, :status_code, :success, :error)`,
			measurements,
		)
		if err != nil {
			err := fmt.Errorf("failed to insert benchmark measurements: %w", err)
			reporting.Report(ctx, err, map[string]string{
				"runId": report.RunID.String(),
			})
			return err
		}
	}

	err = txx.Commit()
	if err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err)
		return err
	}

	return nil
}

func (p *PostgresBenchmarkRepository) RecentRuns(ctx context.Context, limit int) ([]StoredRun, error) {
	if limit <= 0 {
		return []StoredRun{}, nil
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}
	defer txx.Rollback()

	if err := p.setSearchPath(ctx, txx); err != nil {
		return nil, err
	}

	var runs []dbRun
	err = txx.SelectContext(
		ctx,
		&runs,
		`SELECT id, started_at, duration_ms, base_url
		FROM benchmark_runs
		ORDER BY started_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		err := fmt.Errorf("failed to select benchmark runs: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	if len(runs) == 0 {
		return []StoredRun{}, nil
	}

	ids := make([]string, len(runs))
	for i, run := range runs {
		ids[i] = run.ID.String()
	}

	var measurements []dbMeasurement
	err = txx.SelectContext(
		ctx,
		&measurements,
		`SELECT run_id, operation, latency_ms, status_code, success, error
		FROM benchmark_measurements
		WHERE run_id = ANY($1::uuid[])`,
		pq.StringArray(ids),
	)
	if err != nil {
		err := fmt.Errorf("failed to select benchmark measurements: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	byRun := make(map[uuid.UUID]map[string]dbMeasurement, len(runs))
	for _, m := range measurements {
		if byRun[m.RunID] == nil {
			byRun[m.RunID] = make(map[string]dbMeasurement)
		}
		byRun[m.RunID][m.Operation] = m
	}

	stored := make([]StoredRun, 0, len(runs))
	for _, run := range runs {
		report := benchmark.Report{
			RunID:        run.ID,
			StartedAt:    run.StartedAt,
			Duration:     fromMilliseconds(run.DurationMS),
			Measurements: []benchmark.Measurement{},
		}
		for _, operation := range benchmark.Operations {
			m, ok := byRun[run.ID][operation]
			if !ok {
				continue
			}
			report.Measurements = append(report.Measurements, benchmark.Measurement{
				Operation:  m.Operation,
				Latency:    fromMilliseconds(m.LatencyMS),
				StatusCode: m.StatusCode,
				Success:    m.Success,
				Error:      m.Error,
			})
		}
		stored = append(stored, StoredRun{BaseURL: run.BaseURL, Report: report})
	}

	return stored, nil
}
