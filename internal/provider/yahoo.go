package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"marketpulse/internal/collect"
	"marketpulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// maxSeriesBars caps how much daily history a quote carries. The regime
// indicators need at most 200 closes plus the current bar.
const maxSeriesBars = 200

// YahooProvider fetches quotes, FX rates and the volatility index from
// the Yahoo Finance v8 chart API. It needs no API key, which makes it
// the primary source in every chain it appears in.
type YahooProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewYahooProvider(tracer trace.Tracer) *YahooProvider {
	return &YahooProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: yahooBaseURL,
		tracer:  tracer,
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

// yahooChart is the v8 chart API response.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string  `json:"symbol"`
				LongName             string  `json:"longName"`
				ShortName            string  `json:"shortName"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				ChartPreviousClose   float64 `json:"chartPreviousClose"`
				RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
				RegularMarketVolume  float64 `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchQuote fetches a year of daily bars plus the live quote fields.
func (p *YahooProvider) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.fetch-quote")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	chart, err := p.fetchChart(ctx, symbol, "1y")
	if err != nil {
		return nil, err
	}

	bars, err := p.parseBars(symbol, chart)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, collect.Data(p.Name(), fmt.Errorf("no usable bars for %s", symbol))
	}
	if len(bars) > maxSeriesBars {
		bars = bars[len(bars)-maxSeriesBars:]
	}

	meta := chart.Chart.Result[0].Meta
	last := bars[len(bars)-1]

	quote := &domain.Quote{
		Symbol:        symbol,
		Name:          meta.LongName,
		CurrentPrice:  meta.RegularMarketPrice,
		PreviousClose: meta.ChartPreviousClose,
		Open:          last.Open,
		DayHigh:       meta.RegularMarketDayHigh,
		DayLow:        meta.RegularMarketDayLow,
		Volume:        meta.RegularMarketVolume,
		Series:        bars,
	}
	if quote.Name == "" {
		quote.Name = meta.ShortName
	}
	if quote.CurrentPrice == 0 {
		quote.CurrentPrice = last.Close
	}
	if quote.PreviousClose == 0 && len(bars) > 1 {
		quote.PreviousClose = bars[len(bars)-2].Close
	}
	if quote.DayHigh == 0 {
		quote.DayHigh = last.High
	}
	if quote.DayLow == 0 {
		quote.DayLow = last.Low
	}
	if quote.Volume == 0 {
		quote.Volume = last.Volume
	}
	if quote.PreviousClose != 0 {
		change := (quote.CurrentPrice - quote.PreviousClose) / quote.PreviousClose * 100
		quote.ChangePercent = &change
	}
	return quote, nil
}

// FetchRate fetches the spot rate for base/target from the =X ticker,
// including the month-window history in the same call.
func (p *YahooProvider) FetchRate(ctx context.Context, base, target string) (*domain.RateRecord, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.fetch-rate")
	defer span.End()
	span.SetAttributes(attribute.String("pair", base+"/"+target))

	hist, current, err := p.fetchFXWindow(ctx, base, target)
	if err != nil {
		return nil, err
	}

	return &domain.RateRecord{
		Pair:          base + "/" + target,
		CurrentRate:   current,
		PreviousRate:  &hist.Previous,
		Change:        &hist.Change,
		ChangePercent: &hist.ChangePercent,
		MonthHigh:     &hist.MonthHigh,
		MonthLow:      &hist.MonthLow,
		MonthAvg:      &hist.MonthAvg,
	}, nil
}

// FetchRateHistory supplies the month-window enrichment for records from
// spot-only sources.
func (p *YahooProvider) FetchRateHistory(ctx context.Context, base, target string) (*domain.RateHistory, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.fetch-rate-history")
	defer span.End()

	hist, _, err := p.fetchFXWindow(ctx, base, target)
	return hist, err
}

func (p *YahooProvider) fetchFXWindow(ctx context.Context, base, target string) (*domain.RateHistory, float64, error) {
	symbol := base + target + "=X"
	chart, err := p.fetchChart(ctx, symbol, "1mo")
	if err != nil {
		return nil, 0, err
	}

	bars, err := p.parseBars(symbol, chart)
	if err != nil {
		return nil, 0, err
	}
	if len(bars) < 2 {
		return nil, 0, collect.Data(p.Name(), fmt.Errorf("insufficient FX history for %s", symbol))
	}

	current := bars[len(bars)-1].Close
	previous := bars[len(bars)-2].Close
	high, low, sum := bars[0].Close, bars[0].Close, 0.0
	for _, bar := range bars {
		if bar.Close > high {
			high = bar.Close
		}
		if bar.Close < low {
			low = bar.Close
		}
		sum += bar.Close
	}

	return &domain.RateHistory{
		Previous:      previous,
		Change:        current - previous,
		ChangePercent: (current - previous) / previous * 100,
		MonthHigh:     high,
		MonthLow:      low,
		MonthAvg:      sum / float64(len(bars)),
	}, current, nil
}

// FetchVIX fetches the CBOE volatility index from its ^VIX ticker.
func (p *YahooProvider) FetchVIX(ctx context.Context) (*domain.MacroRecord, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.fetch-vix")
	defer span.End()

	chart, err := p.fetchChart(ctx, "^VIX", "1mo")
	if err != nil {
		return nil, err
	}

	bars, err := p.parseBars("^VIX", chart)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, collect.Data(p.Name(), fmt.Errorf("no VIX observations"))
	}

	last := bars[len(bars)-1]
	record := &domain.MacroRecord{
		Name:         domain.MacroVIX,
		CurrentValue: last.Close,
		CurrentDate:  last.Date,
	}
	if len(bars) > 1 {
		prev := bars[len(bars)-2].Close
		change := last.Close - prev
		pct := change / prev * 100
		record.PreviousValue = &prev
		record.Change = &change
		record.ChangePercent = &pct
	}
	for _, bar := range bars {
		record.History = append(record.History, domain.MacroPoint{Date: bar.Date, Value: bar.Close})
	}
	return record, nil
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol, rng string) (*yahooChart, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s", p.baseURL, url.PathEscape(symbol), rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, collect.Transient(p.Name(), err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, collect.Transient(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, collect.Transient(p.Name(), fmt.Errorf("yahoo API error %d: %s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, collect.Transient(p.Name(), err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, collect.Data(p.Name(), fmt.Errorf("parse chart for %s: %w", symbol, err))
	}
	if chart.Chart.Error != nil {
		return nil, collect.Data(p.Name(), fmt.Errorf("chart error for %s: %s", symbol, chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 {
		return nil, collect.Data(p.Name(), fmt.Errorf("empty chart result for %s", symbol))
	}
	return &chart, nil
}

// parseBars flattens the chart arrays into daily bars, skipping entries
// with null closes (holidays, partial sessions).
func (p *YahooProvider) parseBars(symbol string, chart *yahooChart) ([]domain.PriceBar, error) {
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, collect.Data(p.Name(), fmt.Errorf("no quote indicators for %s", symbol))
	}
	q := result.Indicators.Quote[0]
	if len(result.Timestamp) != len(q.Close) {
		return nil, collect.Data(p.Name(), fmt.Errorf("mismatched data lengths for %s", symbol))
	}

	deref := func(vals []*float64, i int) float64 {
		if i < len(vals) && vals[i] != nil {
			return *vals[i]
		}
		return 0
	}

	bars := make([]domain.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if q.Close[i] == nil {
			continue
		}
		bars = append(bars, domain.PriceBar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   deref(q.Open, i),
			High:   deref(q.High, i),
			Low:    deref(q.Low, i),
			Close:  *q.Close[i],
			Volume: deref(q.Volume, i),
		})
	}
	return bars, nil
}
