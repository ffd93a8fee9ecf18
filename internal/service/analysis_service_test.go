package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"marketpulse/internal/collect"
	"marketpulse/internal/domain"
	"marketpulse/internal/ta"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

func testTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

func fastPolicy() collect.RetryPolicy {
	return collect.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

type fakeQuoteSource struct {
	failSymbols map[string]bool
}

func (s *fakeQuoteSource) Name() string { return "fake-quotes" }

func (s *fakeQuoteSource) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if s.failSymbols[symbol] {
		return nil, collect.Data(s.Name(), fmt.Errorf("no data for %s", symbol))
	}
	series := make([]domain.PriceBar, 60)
	for i := range series {
		series[i] = domain.PriceBar{
			Date:  time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:  100, High: 101, Low: 99, Close: 100, Volume: 1000,
		}
	}
	return &domain.Quote{Symbol: symbol, CurrentPrice: 100, Series: series}, nil
}

type fakeRateSource struct {
	krw float64
	err error
}

func (s *fakeRateSource) Name() string { return "fake-rates" }

func (s *fakeRateSource) FetchRate(ctx context.Context, base, target string) (*domain.RateRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	rate := 1.0
	if target == "KRW" {
		rate = s.krw
	}
	return &domain.RateRecord{Pair: base + "/" + target, CurrentRate: rate}, nil
}

type fakeVIXSource struct{}

func (s *fakeVIXSource) Name() string { return "fake-vix" }

func (s *fakeVIXSource) FetchVIX(ctx context.Context) (*domain.MacroRecord, error) {
	return &domain.MacroRecord{Name: domain.MacroVIX, CurrentValue: 17.5}, nil
}

type fakeDomesticSource struct{ price float64 }

func (s *fakeDomesticSource) Name() string { return "fake-domestic" }

func (s *fakeDomesticSource) FetchDomesticPrice(ctx context.Context, market string) (float64, error) {
	return s.price, nil
}

type fakeGlobalSource struct{ usd float64 }

func (s *fakeGlobalSource) Name() string { return "fake-global" }

func (s *fakeGlobalSource) FetchGlobalPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(ids))
	for _, id := range ids {
		prices[id] = s.usd
	}
	return prices, nil
}

type fakeSnapshotStore struct {
	data map[string]string
}

func (s *fakeSnapshotStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if s.data == nil {
		s.data = make(map[string]string)
	}
	switch v := value.(type) {
	case []byte:
		s.data[key] = string(v)
	case string:
		s.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (s *fakeSnapshotStore) Get(ctx context.Context, key string) *redis.StringCmd {
	if v, ok := s.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

type fakeArchive struct {
	saved []*domain.AnalysisReport
	err   error
}

func (a *fakeArchive) SaveReport(ctx context.Context, report *domain.AnalysisReport) error {
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, report)
	return nil
}

type fakeCommentator struct{ text string }

func (c *fakeCommentator) Commentary(ctx context.Context, report *domain.AnalysisReport) (string, error) {
	if c.text == "" {
		return "", errors.New("LLM unavailable")
	}
	return c.text, nil
}

func newTestService(t *testing.T, quotes *fakeQuoteSource, rates *fakeRateSource, archive ReportArchive, advisor Commentator) *AnalysisService {
	t.Helper()
	tracer := testTracer()
	policy := fastPolicy()

	stocks := collect.NewStockCollector(tracer, []collect.QuoteStep{{Source: quotes, Policy: policy}}, 0)
	rateCollector := collect.NewRateCollector(tracer, []collect.RateStep{{Source: rates, Policy: policy}}, nil, "USD", 0)
	macro := collect.NewMacroCollector(tracer, nil, &fakeVIXSource{}, domain.DefaultMacroSeries, policy, 0)
	premium := collect.NewPremiumCollector(tracer, &fakeDomesticSource{price: 1000000}, &fakeGlobalSource{usd: 700},
		domain.CryptoPairs, []string{"BTC"}, policy, 1320, 0)

	return NewAnalysisService(tracer, stocks, rateCollector, macro, premium,
		ta.NewEngine(ta.Config{}), archive, nil, advisor,
		[]string{"AAPL", "BROKEN"}, []string{"KRW", "EUR"})
}

func TestRunProducesFullReport(t *testing.T) {
	archive := &fakeArchive{}
	svc := newTestService(t,
		&fakeQuoteSource{failSymbols: map[string]bool{"BROKEN": true}},
		&fakeRateSource{krw: 1400},
		archive,
		&fakeCommentator{text: "markets are calm"},
	)

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Stocks.Successful != 1 || report.Stocks.Failed != 1 {
		t.Fatalf("expected 1/1 stocks, got %d/%d", report.Stocks.Successful, report.Stocks.Failed)
	}
	broken := report.Analyses["BROKEN"]
	if broken.Success || broken.Error != collect.ReasonAllSourcesFailed {
		t.Fatalf("unexpected failed analysis: %+v", broken)
	}
	good := report.Analyses["AAPL"]
	if !good.Success || good.Indicators == nil || good.Signal == nil {
		t.Fatalf("expected full analysis for AAPL: %+v", good)
	}

	if !report.Macro.Degraded {
		t.Fatal("keyless macro source must run degraded")
	}
	if report.Macro.Indicators[domain.MacroVIX] == nil {
		t.Fatal("expected VIX record in degraded mode")
	}

	// 1,000,000 KRW vs 700 USD at 1400 KRW/USD is 980,000 KRW global.
	btc := report.Premium.Premiums["BTC"]
	if btc == nil || !btc.Success {
		t.Fatalf("expected BTC premium record: %+v", btc)
	}
	if btc.PremiumPercent != 2.04 {
		t.Fatalf("expected premium 2.04, got %v", btc.PremiumPercent)
	}
	if btc.RateIsFallback {
		t.Fatal("live KRW rate must not be tagged as fallback")
	}

	if report.Commentary != "markets are calm" {
		t.Fatalf("unexpected commentary: %q", report.Commentary)
	}
	if len(archive.saved) != 1 {
		t.Fatalf("expected 1 archived report, got %d", len(archive.saved))
	}
}

func TestRunFallsBackWhenRateCollectionFails(t *testing.T) {
	svc := newTestService(t,
		&fakeQuoteSource{},
		&fakeRateSource{err: collect.Data("fake-rates", errors.New("down"))},
		nil, nil,
	)

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Premium.RateIsFallback || report.Premium.RateUsed != 1320 {
		t.Fatalf("expected fallback rate 1320, got %+v", report.Premium)
	}
}

func TestRunCommentaryFailureIsNonFatal(t *testing.T) {
	svc := newTestService(t, &fakeQuoteSource{}, &fakeRateSource{krw: 1400}, nil, &fakeCommentator{})

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Commentary != "" {
		t.Fatalf("expected empty commentary, got %q", report.Commentary)
	}
}

func TestRunFailingArchiveIsNonFatal(t *testing.T) {
	svc := newTestService(t, &fakeQuoteSource{}, &fakeRateSource{krw: 1400},
		&fakeArchive{err: errors.New("db down")}, nil)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("archive failure must not fail the run: %v", err)
	}
}

func TestRunWithoutSymbolsFails(t *testing.T) {
	svc := NewAnalysisService(testTracer(), nil, nil, nil, nil, ta.NewEngine(ta.Config{}),
		nil, nil, nil, nil, nil)
	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected an error with no symbols configured")
	}
}

func TestLatestBeforeFirstRun(t *testing.T) {
	svc := newTestService(t, &fakeQuoteSource{}, &fakeRateSource{krw: 1400}, nil, nil)
	if _, err := svc.Latest(context.Background()); !errors.Is(err, ErrNoReport) {
		t.Fatalf("expected ErrNoReport, got %v", err)
	}
}

func TestLatestReturnsStoredReport(t *testing.T) {
	svc := newTestService(t, &fakeQuoteSource{}, &fakeRateSource{krw: 1400}, nil, nil)

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	latest, err := svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != report {
		t.Fatal("Latest must return the report from the last run")
	}
}

func newTestServiceWithSnapshot(t *testing.T, store RedisClient) *AnalysisService {
	t.Helper()
	tracer := testTracer()
	policy := fastPolicy()

	stocks := collect.NewStockCollector(tracer, []collect.QuoteStep{{Source: &fakeQuoteSource{}, Policy: policy}}, 0)
	rateCollector := collect.NewRateCollector(tracer, []collect.RateStep{{Source: &fakeRateSource{krw: 1400}, Policy: policy}}, nil, "USD", 0)
	macro := collect.NewMacroCollector(tracer, nil, &fakeVIXSource{}, domain.DefaultMacroSeries, policy, 0)
	premium := collect.NewPremiumCollector(tracer, &fakeDomesticSource{price: 1000000}, &fakeGlobalSource{usd: 700},
		domain.CryptoPairs, []string{"BTC"}, policy, 1320, 0)

	return NewAnalysisService(tracer, stocks, rateCollector, macro, premium,
		ta.NewEngine(ta.Config{}), nil, store, nil,
		[]string{"AAPL"}, []string{"KRW"})
}

func TestLatestFallsBackToSnapshot(t *testing.T) {
	store := &fakeSnapshotStore{}

	writer := newTestServiceWithSnapshot(t, store)
	if _, err := writer.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A fresh service has an empty memory slot and must read the snapshot.
	reader := newTestServiceWithSnapshot(t, store)
	latest, err := reader.Latest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest == nil || latest.Analyses["AAPL"] == nil {
		t.Fatalf("expected snapshot report with AAPL analysis, got %+v", latest)
	}
}

func TestLatestCorruptSnapshotLogsUnmarshalError(t *testing.T) {
	store := &fakeSnapshotStore{data: map[string]string{latestReportKey: "{not json"}}
	svc := newTestServiceWithSnapshot(t, store)

	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	if _, err := svc.Latest(context.Background()); !errors.Is(err, ErrNoReport) {
		t.Fatalf("expected ErrNoReport on corrupt snapshot, got %v", err)
	}
	logged := buf.String()
	if !strings.Contains(logged, "report snapshot unmarshal error") {
		t.Fatalf("expected unmarshal error logged, got %q", logged)
	}
	if strings.Contains(logged, "<nil>") {
		t.Fatalf("logged the wrong error value: %q", logged)
	}
}

func TestAnalyzeSymbolOnDemand(t *testing.T) {
	svc := newTestService(t, &fakeQuoteSource{}, &fakeRateSource{krw: 1400}, nil, nil)

	analysis, err := svc.AnalyzeSymbol(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !analysis.Success || analysis.Signal == nil {
		t.Fatalf("expected successful on-demand analysis: %+v", analysis)
	}
}
