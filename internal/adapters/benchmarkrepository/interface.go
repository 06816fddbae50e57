package benchmarkrepository

import (
	"context"

	"github.com/Amund211/haloclient/internal/benchmark"
)

type BenchmarkRepository interface {
	StoreReport(ctx context.Context, baseURL string, report benchmark.Report) error
	// RecentRuns returns up to limit runs, newest first
	RecentRuns(ctx context.Context, limit int) ([]StoredRun, error)
}

type StoredRun struct {
	BaseURL string
	Report  benchmark.Report
}
