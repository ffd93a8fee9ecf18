package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"marketpulse/internal/collect"
	"marketpulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantageProvider is the first stock fallback. The free tier allows
// 25 requests a day and 5 a minute, so every call goes through a rate
// limiter and the provider is only consulted after Yahoo fails.
type AlphaVantageProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
}

func NewAlphaVantageProvider(apiKey string, tracer trace.Tracer) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: alphaVantageBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
		limiter: NewRateLimiter(5, 12*time.Second),
	}
}

func (p *AlphaVantageProvider) Name() string { return "alphavantage" }

func (p *AlphaVantageProvider) Configured() bool { return p.apiKey != "" }

type alphaGlobalQuote struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Open          string `json:"02. open"`
		High          string `json:"03. high"`
		Low           string `json:"04. low"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		PreviousClose string `json:"08. previous close"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

type alphaDailySeries struct {
	Note        string                       `json:"Note"`
	Information string                       `json:"Information"`
	Series      map[string]map[string]string `json:"Time Series (Daily)"`
}

// FetchQuote combines the GLOBAL_QUOTE snapshot with the full daily
// series. Missing key fails immediately without consuming retry budget.
func (p *AlphaVantageProvider) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if !p.Configured() {
		return nil, collect.CredentialMissing(p.Name())
	}

	ctx, span := p.tracer.Start(ctx, "alphavantage.fetch-quote")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	body, err := p.doRequest(ctx, fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		p.baseURL, url.QueryEscape(symbol), p.apiKey))
	if err != nil {
		return nil, err
	}

	var gq alphaGlobalQuote
	if err := json.Unmarshal(body, &gq); err != nil {
		return nil, collect.Data(p.Name(), fmt.Errorf("parse global quote for %s: %w", symbol, err))
	}
	if gq.GlobalQuote.Price == "" {
		// Empty quote object: unknown symbol or daily-quota response.
		return nil, collect.Data(p.Name(), fmt.Errorf("no quote data for %s", symbol))
	}

	quote := &domain.Quote{Symbol: symbol}
	if quote.CurrentPrice, err = parseAlphaFloat(gq.GlobalQuote.Price); err != nil {
		return nil, collect.Data(p.Name(), fmt.Errorf("bad price for %s: %w", symbol, err))
	}
	quote.Open, _ = parseAlphaFloat(gq.GlobalQuote.Open)
	quote.DayHigh, _ = parseAlphaFloat(gq.GlobalQuote.High)
	quote.DayLow, _ = parseAlphaFloat(gq.GlobalQuote.Low)
	quote.Volume, _ = parseAlphaFloat(gq.GlobalQuote.Volume)
	quote.PreviousClose, _ = parseAlphaFloat(gq.GlobalQuote.PreviousClose)
	if pct, err := parseAlphaPercent(gq.GlobalQuote.ChangePercent); err == nil {
		quote.ChangePercent = &pct
	}

	series, err := p.fetchDailySeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	quote.Series = series
	return quote, nil
}

func (p *AlphaVantageProvider) fetchDailySeries(ctx context.Context, symbol string) ([]domain.PriceBar, error) {
	ctx, span := p.tracer.Start(ctx, "alphavantage.fetch-daily")
	defer span.End()

	body, err := p.doRequest(ctx, fmt.Sprintf("%s/query?function=TIME_SERIES_DAILY&symbol=%s&outputsize=full&apikey=%s",
		p.baseURL, url.QueryEscape(symbol), p.apiKey))
	if err != nil {
		return nil, err
	}

	var ds alphaDailySeries
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, collect.Data(p.Name(), fmt.Errorf("parse daily series for %s: %w", symbol, err))
	}
	if ds.Note != "" {
		return nil, collect.Transient(p.Name(), fmt.Errorf("rate limited: %s", ds.Note))
	}
	if len(ds.Series) == 0 {
		return nil, collect.Data(p.Name(), fmt.Errorf("no daily series for %s (%s)", symbol, ds.Information))
	}

	dates := make([]string, 0, len(ds.Series))
	for d := range ds.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > maxSeriesBars {
		dates = dates[len(dates)-maxSeriesBars:]
	}

	bars := make([]domain.PriceBar, 0, len(dates))
	for _, d := range dates {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		row := ds.Series[d]
		closePrice, err := parseAlphaFloat(row["4. close"])
		if err != nil {
			continue
		}
		open, _ := parseAlphaFloat(row["1. open"])
		high, _ := parseAlphaFloat(row["2. high"])
		low, _ := parseAlphaFloat(row["3. low"])
		volume, _ := parseAlphaFloat(row["5. volume"])
		bars = append(bars, domain.PriceBar{
			Date:   day.UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}
	return bars, nil
}

func (p *AlphaVantageProvider) doRequest(ctx context.Context, u string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, collect.Transient(p.Name(), fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, collect.Transient(p.Name(), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, collect.Transient(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, collect.Transient(p.Name(), fmt.Errorf("alphavantage API error %d: %s", resp.StatusCode, string(body)))
	}
	return io.ReadAll(resp.Body)
}

func parseAlphaFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseAlphaPercent parses values like "1.2345%".
func parseAlphaPercent(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
}
