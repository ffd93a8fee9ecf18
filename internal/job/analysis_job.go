package job

import (
	"context"
	"log"
	"time"

	"marketpulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// ReportRunner executes one full collection-and-analysis batch.
type ReportRunner interface {
	Run(ctx context.Context) (*domain.AnalysisReport, error)
}

// ReportNotifier delivers finished reports and run failures.
type ReportNotifier interface {
	SendReport(report *domain.AnalysisReport)
	SendError(err error)
}

// AnalysisJob runs the report pipeline on a fixed interval with a hard
// per-run deadline.
type AnalysisJob struct {
	tracer   trace.Tracer
	runner   ReportRunner
	notifier ReportNotifier
	interval time.Duration
	timeout  time.Duration
}

func NewAnalysisJob(tracer trace.Tracer, runner ReportRunner, notifier ReportNotifier, intervalMins, timeoutSecs int) *AnalysisJob {
	return &AnalysisJob{
		tracer:   tracer,
		runner:   runner,
		notifier: notifier,
		interval: time.Duration(intervalMins) * time.Minute,
		timeout:  time.Duration(timeoutSecs) * time.Second,
	}
}

// Start blocks until ctx is cancelled. The first run fires immediately.
func (j *AnalysisJob) Start(ctx context.Context) {
	log.Println("Analysis job starting...")

	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Analysis job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce executes one batch under the configured deadline and hands the
// outcome to the notifier.
func (j *AnalysisJob) RunOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "job.analysis-run")
	defer span.End()

	runCtx := ctx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	started := time.Now()
	report, err := j.runner.Run(runCtx)
	if err != nil {
		span.RecordError(err)
		log.Printf("analysis run failed: %v", err)
		if j.notifier != nil {
			j.notifier.SendError(err)
		}
		return
	}

	log.Printf("analysis run finished in %s: %d/%d stocks ok",
		time.Since(started).Round(time.Millisecond),
		report.Stocks.Successful,
		report.Stocks.Successful+report.Stocks.Failed)

	if j.notifier != nil {
		j.notifier.SendReport(report)
	}
}
