package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"marketpulse/internal/collect"
	"marketpulse/internal/domain"
	"marketpulse/internal/signal"
	"marketpulse/internal/ta"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	latestReportKey = "report:latest"
	reportCacheTTL  = 2 * time.Hour
)

// ErrNoReport is returned before the first run completes.
var ErrNoReport = errors.New("no report available yet")

// RedisClient is the subset of the redis client the service uses.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ReportArchive persists completed runs.
type ReportArchive interface {
	SaveReport(ctx context.Context, report *domain.AnalysisReport) error
}

// Commentator turns a finished report into natural-language commentary.
type Commentator interface {
	Commentary(ctx context.Context, report *domain.AnalysisReport) (string, error)
}

// AnalysisService runs the full collection and analysis pipeline and
// keeps the latest report available for the API and the bot.
type AnalysisService struct {
	tracer  trace.Tracer
	stocks  *collect.StockCollector
	rates   *collect.RateCollector
	macro   *collect.MacroCollector
	premium *collect.PremiumCollector
	engine  *ta.Engine
	archive ReportArchive
	redis   RedisClient
	advisor Commentator
	symbols []string
	targets []string
	refPair string

	mu     sync.RWMutex
	latest *domain.AnalysisReport
}

func NewAnalysisService(
	tracer trace.Tracer,
	stocks *collect.StockCollector,
	rates *collect.RateCollector,
	macro *collect.MacroCollector,
	premium *collect.PremiumCollector,
	engine *ta.Engine,
	archive ReportArchive,
	redisClient RedisClient,
	advisor Commentator,
	symbols []string,
	targets []string,
) *AnalysisService {
	return &AnalysisService{
		tracer:  tracer,
		stocks:  stocks,
		rates:   rates,
		macro:   macro,
		premium: premium,
		engine:  engine,
		archive: archive,
		redis:   redisClient,
		advisor: advisor,
		symbols: symbols,
		targets: targets,
		refPair: "KRW",
	}
}

// Run executes one full batch: stocks, rates, macro, premium, indicator
// analysis, scoring, then archival. Individual identifier failures are
// folded into the report; only an empty symbol set is fatal.
func (s *AnalysisService) Run(ctx context.Context) (*domain.AnalysisReport, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.run")
	defer span.End()

	if len(s.symbols) == 0 {
		return nil, errors.New("no symbols configured")
	}

	report := &domain.AnalysisReport{GeneratedAt: time.Now().UTC()}

	report.Stocks = s.stocks.CollectMany(ctx, s.symbols)
	report.Rates = s.rates.CollectAll(ctx, s.targets)
	report.Macro = s.macro.Collect(ctx)

	// Premium uses the live reference rate when this run produced one,
	// otherwise the collector falls back to the configured average.
	var refRate float64
	if rec, ok := report.Rates.Rates[s.refPair]; ok && rec.Success {
		refRate = rec.CurrentRate
	}
	report.Premium = s.premium.Collect(ctx, refRate)

	report.Analyses = s.analyze(ctx, report.Stocks)

	if s.advisor != nil {
		commentary, err := s.advisor.Commentary(ctx, report)
		if err != nil {
			log.Printf("commentary generation failed: %v", err)
		} else {
			report.Commentary = commentary
		}
	}

	s.store(ctx, report)

	span.SetAttributes(
		attribute.Int("stocks_successful", report.Stocks.Successful),
		attribute.Int("stocks_failed", report.Stocks.Failed),
	)
	return report, nil
}

func (s *AnalysisService) analyze(ctx context.Context, stocks domain.QuoteBatch) map[string]*domain.StockAnalysis {
	_, span := s.tracer.Start(ctx, "analysis.indicators")
	defer span.End()

	analyses := make(map[string]*domain.StockAnalysis, len(s.symbols))
	for _, symbol := range s.symbols {
		quote := stocks.Quotes[symbol]
		analysis := &domain.StockAnalysis{Symbol: symbol, Quote: quote}
		switch {
		case quote == nil || !quote.Success:
			analysis.Error = collect.ReasonAllSourcesFailed
		case len(quote.Series) == 0:
			analysis.Error = "no historical data"
		default:
			analysis.Indicators = s.engine.Analyze(quote.Series, quote.CurrentPrice)
			sig := signal.Score(analysis.Indicators, quote.CurrentPrice)
			analysis.Signal = &sig
			analysis.Success = true
		}
		analyses[symbol] = analysis
	}
	return analyses
}

// store publishes the report to the in-memory slot, the redis snapshot,
// and the archive. Storage failures are logged, never fatal.
func (s *AnalysisService) store(ctx context.Context, report *domain.AnalysisReport) {
	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()

	if s.redis != nil {
		data, err := json.Marshal(report)
		if err != nil {
			log.Printf("report snapshot marshal error: %v", err)
		} else if err := s.redis.Set(ctx, latestReportKey, data, reportCacheTTL).Err(); err != nil {
			log.Printf("report snapshot write error: %v", err)
		}
	}

	if s.archive != nil {
		if err := s.archive.SaveReport(ctx, report); err != nil {
			log.Printf("report archive error: %v", err)
		}
	}
}

// Latest returns the most recent report from memory, falling back to the
// redis snapshot after a restart.
func (s *AnalysisService) Latest(ctx context.Context) (*domain.AnalysisReport, error) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest != nil {
		return latest, nil
	}

	if s.redis != nil {
		data, err := s.redis.Get(ctx, latestReportKey).Bytes()
		if err == nil {
			var report domain.AnalysisReport
			uerr := json.Unmarshal(data, &report)
			if uerr == nil {
				return &report, nil
			}
			log.Printf("report snapshot unmarshal error: %v", uerr)
		} else if err != redis.Nil {
			log.Printf("report snapshot read error: %v", err)
		}
	}

	return nil, ErrNoReport
}

// AnalyzeSymbol runs the single-symbol pipeline on demand for the API.
func (s *AnalysisService) AnalyzeSymbol(ctx context.Context, symbol string) (*domain.StockAnalysis, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.symbol")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	quote := s.stocks.Collect(ctx, symbol)
	analysis := &domain.StockAnalysis{Symbol: symbol, Quote: quote}
	if !quote.Success {
		analysis.Error = quote.Error
		return analysis, nil
	}
	if len(quote.Series) == 0 {
		analysis.Error = "no historical data"
		return analysis, nil
	}

	analysis.Indicators = s.engine.Analyze(quote.Series, quote.CurrentPrice)
	sig := signal.Score(analysis.Indicators, quote.CurrentPrice)
	analysis.Signal = &sig
	analysis.Success = true
	return analysis, nil
}
