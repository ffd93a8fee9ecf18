package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"marketpulse/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createReportsTable = `
CREATE TABLE IF NOT EXISTS analysis_reports (
    id               BIGSERIAL   PRIMARY KEY,
    generated_at     TIMESTAMPTZ NOT NULL,
    stocks_success   INT         NOT NULL,
    stocks_failed    INT         NOT NULL,
    rates_success    INT         NOT NULL,
    macro_degraded   BOOLEAN     NOT NULL,
    premium_fallback BOOLEAN     NOT NULL,
    report           JSONB       NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_reports_generated_at
    ON analysis_reports (generated_at DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ReportRepository archives completed runs. Write-only: collection and
// analysis never read archived reports back.
type ReportRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewReportRepository(pool PgxPool, tracer trace.Tracer) *ReportRepository {
	return &ReportRepository{pool: pool, tracer: tracer}
}

func (r *ReportRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "report-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createReportsTable)
	return err
}

// SaveReport inserts one run with its full JSON payload.
func (r *ReportRepository) SaveReport(ctx context.Context, report *domain.AnalysisReport) error {
	_, span := r.tracer.Start(ctx, "report-repo.save-report")
	defer span.End()

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO analysis_reports
		     (generated_at, stocks_success, stocks_failed, rates_success, macro_degraded, premium_fallback, report)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		report.GeneratedAt,
		report.Stocks.Successful,
		report.Stocks.Failed,
		report.Rates.Successful,
		report.Macro.Degraded,
		report.Premium.RateIsFallback,
		payload,
	)
	return err
}
