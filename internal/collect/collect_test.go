package collect

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"marketpulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func testTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

type fakeQuoteSource struct {
	name  string
	calls int
	fetch func(symbol string) (*domain.Quote, error)
}

func (f *fakeQuoteSource) Name() string { return f.name }

func (f *fakeQuoteSource) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	f.calls++
	return f.fetch(symbol)
}

func TestStockCollectorIsolatesFailures(t *testing.T) {
	t.Parallel()

	good := &fakeQuoteSource{name: "good", fetch: func(symbol string) (*domain.Quote, error) {
		if symbol == "BROKEN" {
			return nil, Transient("good", errors.New("down"))
		}
		return &domain.Quote{Symbol: symbol, CurrentPrice: 100}, nil
	}}

	collector := NewStockCollector(testTracer(), []QuoteStep{{Source: good, Policy: fastPolicy(1)}}, 0)
	batch := collector.CollectMany(context.Background(), []string{"AAPL", "BROKEN", "MSFT"})

	if batch.Successful != 2 || batch.Failed != 1 {
		t.Fatalf("expected 2/1, got %d/%d", batch.Successful, batch.Failed)
	}
	broken := batch.Quotes["BROKEN"]
	if broken == nil || broken.Success {
		t.Fatalf("expected failure record for BROKEN, got %+v", broken)
	}
	if broken.Error != ReasonAllSourcesFailed {
		t.Fatalf("expected terminal reason %q, got %q", ReasonAllSourcesFailed, broken.Error)
	}
	if aapl := batch.Quotes["AAPL"]; aapl == nil || !aapl.Success || aapl.Source != "good" {
		t.Fatalf("unexpected AAPL record: %+v", batch.Quotes["AAPL"])
	}
}

type fakeRateSource struct {
	name  string
	fetch func(base, target string) (*domain.RateRecord, error)
}

func (f *fakeRateSource) Name() string { return f.name }

func (f *fakeRateSource) FetchRate(ctx context.Context, base, target string) (*domain.RateRecord, error) {
	return f.fetch(base, target)
}

type fakeEnricher struct {
	hist *domain.RateHistory
	err  error
}

func (f *fakeEnricher) FetchRateHistory(ctx context.Context, base, target string) (*domain.RateHistory, error) {
	return f.hist, f.err
}

func TestRateCollectorMergesEnrichment(t *testing.T) {
	t.Parallel()

	spot := &fakeRateSource{name: "spot", fetch: func(base, target string) (*domain.RateRecord, error) {
		return &domain.RateRecord{CurrentRate: 1400}, nil
	}}
	enricher := &fakeEnricher{hist: &domain.RateHistory{Previous: 1390, Change: 10, ChangePercent: 0.72, MonthHigh: 1410, MonthLow: 1380, MonthAvg: 1395}}

	collector := NewRateCollector(testTracer(), []RateStep{{Source: spot, Policy: fastPolicy(1)}}, enricher, "USD", 0)
	record := collector.Collect(context.Background(), "KRW")

	if !record.Success || record.Pair != "USD/KRW" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.PreviousRate == nil || *record.PreviousRate != 1390 {
		t.Fatalf("expected enrichment merged, got %+v", record)
	}
	if record.MonthAvg == nil || *record.MonthAvg != 1395 {
		t.Fatalf("expected month average merged, got %+v", record)
	}
}

func TestRateCollectorEnrichmentFailureKeepsSpot(t *testing.T) {
	t.Parallel()

	spot := &fakeRateSource{name: "spot", fetch: func(base, target string) (*domain.RateRecord, error) {
		return &domain.RateRecord{CurrentRate: 1400}, nil
	}}
	enricher := &fakeEnricher{err: errors.New("history down")}

	collector := NewRateCollector(testTracer(), []RateStep{{Source: spot, Policy: fastPolicy(1)}}, enricher, "USD", 0)
	record := collector.Collect(context.Background(), "KRW")

	if !record.Success || record.CurrentRate != 1400 {
		t.Fatalf("enrichment failure must not invalidate spot: %+v", record)
	}
	if record.PreviousRate != nil {
		t.Fatalf("expected no history fields, got %+v", record)
	}
}

type fakeMacroSource struct {
	configured bool
	fetch      func(name, seriesID string) (*domain.MacroRecord, error)
}

func (f *fakeMacroSource) Name() string     { return "macro" }
func (f *fakeMacroSource) Configured() bool { return f.configured }

func (f *fakeMacroSource) FetchSeries(ctx context.Context, name, seriesID string) (*domain.MacroRecord, error) {
	return f.fetch(name, seriesID)
}

type fakeVIXSource struct {
	fetch func() (*domain.MacroRecord, error)
}

func (f *fakeVIXSource) Name() string { return "vix" }

func (f *fakeVIXSource) FetchVIX(ctx context.Context) (*domain.MacroRecord, error) {
	return f.fetch()
}

func TestMacroCollectorDegradesWithoutKey(t *testing.T) {
	t.Parallel()

	source := &fakeMacroSource{configured: false}
	vix := &fakeVIXSource{fetch: func() (*domain.MacroRecord, error) {
		return &domain.MacroRecord{CurrentValue: 18.5}, nil
	}}

	collector := NewMacroCollector(testTracer(), source, vix, domain.DefaultMacroSeries, fastPolicy(1), 0)
	batch := collector.Collect(context.Background())

	if !batch.Degraded || batch.Note != DegradedModeNote {
		t.Fatalf("expected degraded batch, got %+v", batch)
	}
	if batch.Successful != 1 || len(batch.Indicators) != 1 {
		t.Fatalf("expected VIX only, got %+v", batch)
	}
	record := batch.Indicators[domain.MacroVIX]
	if record == nil || !record.Success || record.CurrentValue != 18.5 {
		t.Fatalf("unexpected VIX record: %+v", record)
	}
}

func TestMacroCollectorVIXFallsBackToMarketData(t *testing.T) {
	t.Parallel()

	source := &fakeMacroSource{configured: true, fetch: func(name, seriesID string) (*domain.MacroRecord, error) {
		if name == domain.MacroVIX {
			return nil, Transient("macro", errors.New("down"))
		}
		return &domain.MacroRecord{Name: name, SeriesID: seriesID, CurrentValue: 2.5}, nil
	}}
	vix := &fakeVIXSource{fetch: func() (*domain.MacroRecord, error) {
		return &domain.MacroRecord{CurrentValue: 22.1}, nil
	}}

	collector := NewMacroCollector(testTracer(), source, vix, domain.DefaultMacroSeries, fastPolicy(1), 0)
	batch := collector.Collect(context.Background())

	if batch.Degraded {
		t.Fatal("keyed collection must not be degraded")
	}
	if batch.Successful != len(domain.DefaultMacroSeries) {
		t.Fatalf("expected all series successful, got %d", batch.Successful)
	}
	record := batch.Indicators[domain.MacroVIX]
	if record == nil || record.Source != "vix" || record.CurrentValue != 22.1 {
		t.Fatalf("expected VIX from market-data fallback, got %+v", record)
	}
}

type fakeDomesticSource struct {
	fetch func(market string) (float64, error)
}

func (f *fakeDomesticSource) Name() string { return "domestic" }

func (f *fakeDomesticSource) FetchDomesticPrice(ctx context.Context, market string) (float64, error) {
	return f.fetch(market)
}

type fakeGlobalSource struct {
	prices map[string]float64
	err    error
}

func (f *fakeGlobalSource) Name() string { return "global" }

func (f *fakeGlobalSource) FetchGlobalPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	return f.prices, f.err
}

func TestPremiumCollectorDerivation(t *testing.T) {
	t.Parallel()

	pairs := map[string]domain.CryptoPair{
		"BTC": {UpbitMarket: "KRW-BTC", CoinGeckoID: "bitcoin"},
	}
	domestic := &fakeDomesticSource{fetch: func(market string) (float64, error) {
		return 1_000_000, nil
	}}
	global := &fakeGlobalSource{prices: map[string]float64{"bitcoin": 700}}

	collector := NewPremiumCollector(testTracer(), domestic, global, pairs, []string{"BTC"}, fastPolicy(1), 1320, 0)
	batch := collector.Collect(context.Background(), 1400)

	if batch.RateIsFallback {
		t.Fatal("live rate must not be tagged as fallback")
	}
	record := batch.Premiums["BTC"]
	if record == nil || !record.Success {
		t.Fatalf("unexpected record: %+v", record)
	}
	if math.Abs(record.PremiumPercent-2.04) > 1e-9 {
		t.Fatalf("expected premium 2.04, got %v", record.PremiumPercent)
	}
	if record.Status != domain.PremiumModerate {
		t.Fatalf("expected status %q, got %q", domain.PremiumModerate, record.Status)
	}
	if record.GlobalPriceKRW != 980000 {
		t.Fatalf("expected global KRW price 980000, got %v", record.GlobalPriceKRW)
	}
}

func TestPremiumCollectorFallbackRate(t *testing.T) {
	t.Parallel()

	pairs := map[string]domain.CryptoPair{
		"BTC": {UpbitMarket: "KRW-BTC", CoinGeckoID: "bitcoin"},
	}
	domestic := &fakeDomesticSource{fetch: func(market string) (float64, error) {
		return 1_000_000, nil
	}}
	global := &fakeGlobalSource{prices: map[string]float64{"bitcoin": 700}}

	collector := NewPremiumCollector(testTracer(), domestic, global, pairs, []string{"BTC"}, fastPolicy(1), 1320, 0)
	batch := collector.Collect(context.Background(), 0)

	if !batch.RateIsFallback || batch.RateUsed != 1320 {
		t.Fatalf("expected fallback rate 1320, got %+v", batch)
	}
	record := batch.Premiums["BTC"]
	if record == nil || !record.RateIsFallback || record.RateUsed != 1320 {
		t.Fatalf("expected fallback tagging on record, got %+v", record)
	}
}

func TestPremiumStatusBands(t *testing.T) {
	t.Parallel()

	cases := []struct {
		premium float64
		status  string
	}{
		{7, domain.PremiumHigh},
		{5, domain.PremiumModerate}, // boundary is strict
		{3, domain.PremiumModerate},
		{2, domain.PremiumBalanced},
		{0, domain.PremiumBalanced},
		{-2, domain.PremiumBalanced},
		{-3, domain.PremiumDiscount},
		{-5, domain.PremiumDiscount},
		{-7, domain.PremiumHighDiscount},
	}
	for _, tc := range cases {
		status, _ := premiumStatus(tc.premium)
		if status != tc.status {
			t.Fatalf("premium %v: expected %q, got %q", tc.premium, tc.status, status)
		}
	}
}

func TestPremiumCollectorGlobalFailure(t *testing.T) {
	t.Parallel()

	pairs := map[string]domain.CryptoPair{
		"BTC": {UpbitMarket: "KRW-BTC", CoinGeckoID: "bitcoin"},
	}
	domestic := &fakeDomesticSource{fetch: func(market string) (float64, error) {
		t.Fatal("domestic source must not be consulted when global prices failed")
		return 0, nil
	}}
	global := &fakeGlobalSource{err: Transient("global", errors.New("down"))}

	collector := NewPremiumCollector(testTracer(), domestic, global, pairs, []string{"BTC"}, fastPolicy(1), 1320, 0)
	batch := collector.Collect(context.Background(), 1400)

	if batch.Failed != 1 || batch.Successful != 0 {
		t.Fatalf("expected single failure, got %+v", batch)
	}
	if batch.Premiums["BTC"].Error != ReasonAllSourcesFailed {
		t.Fatalf("expected terminal reason, got %q", batch.Premiums["BTC"].Error)
	}
}

func TestStockCollectorPauseHonorsContext(t *testing.T) {
	t.Parallel()

	src := &fakeQuoteSource{name: "src", fetch: func(symbol string) (*domain.Quote, error) {
		return &domain.Quote{Symbol: symbol}, nil
	}}
	collector := NewStockCollector(testTracer(), []QuoteStep{{Source: src, Policy: fastPolicy(1)}}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batch := collector.CollectMany(ctx, []string{"AAPL", "MSFT"})
	if len(batch.Quotes) != 2 {
		t.Fatalf("expected records for every symbol, got %d", len(batch.Quotes))
	}
}
