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

const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPProvider is the last stock fallback, backed by the Financial
// Modeling Prep API. Requires an API key.
type FMPProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
}

func NewFMPProvider(apiKey string, tracer trace.Tracer) *FMPProvider {
	return &FMPProvider{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: fmpBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
	}
}

func (p *FMPProvider) Name() string { return "fmp" }

func (p *FMPProvider) Configured() bool { return p.apiKey != "" }

type fmpQuote struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	ChangesPercentage float64 `json:"changesPercentage"`
	DayLow            float64 `json:"dayLow"`
	DayHigh           float64 `json:"dayHigh"`
	Open              float64 `json:"open"`
	PreviousClose     float64 `json:"previousClose"`
	Volume            float64 `json:"volume"`
	AvgVolume         float64 `json:"avgVolume"`
}

type fmpHistorical struct {
	Historical []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"historical"`
}

// FetchQuote combines the /quote snapshot with /historical-price-full.
func (p *FMPProvider) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if !p.Configured() {
		return nil, collect.CredentialMissing(p.Name())
	}

	ctx, span := p.tracer.Start(ctx, "fmp.fetch-quote")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	body, err := p.doRequest(ctx, fmt.Sprintf("%s/quote/%s?apikey=%s", p.baseURL, url.PathEscape(symbol), p.apiKey))
	if err != nil {
		return nil, err
	}

	var quotes []fmpQuote
	if err := json.Unmarshal(body, &quotes); err != nil {
		return nil, collect.Data(p.Name(), fmt.Errorf("parse quote for %s: %w", symbol, err))
	}
	if len(quotes) == 0 || quotes[0].Price == 0 {
		return nil, collect.Data(p.Name(), fmt.Errorf("no quote data for %s", symbol))
	}
	q := quotes[0]

	quote := &domain.Quote{
		Symbol:        symbol,
		Name:          q.Name,
		CurrentPrice:  q.Price,
		PreviousClose: q.PreviousClose,
		Open:          q.Open,
		DayHigh:       q.DayHigh,
		DayLow:        q.DayLow,
		Volume:        q.Volume,
		AvgVolume:     q.AvgVolume,
	}
	pct := q.ChangesPercentage
	quote.ChangePercent = &pct

	series, err := p.fetchHistory(ctx, symbol)
	if err != nil {
		return nil, err
	}
	quote.Series = series
	return quote, nil
}

func (p *FMPProvider) fetchHistory(ctx context.Context, symbol string) ([]domain.PriceBar, error) {
	ctx, span := p.tracer.Start(ctx, "fmp.fetch-history")
	defer span.End()

	body, err := p.doRequest(ctx, fmt.Sprintf("%s/historical-price-full/%s?timeseries=%d&apikey=%s",
		p.baseURL, url.PathEscape(symbol), maxSeriesBars, p.apiKey))
	if err != nil {
		return nil, err
	}

	var hist fmpHistorical
	if err := json.Unmarshal(body, &hist); err != nil {
		return nil, collect.Data(p.Name(), fmt.Errorf("parse history for %s: %w", symbol, err))
	}
	if len(hist.Historical) == 0 {
		return nil, collect.Data(p.Name(), fmt.Errorf("no historical data for %s", symbol))
	}

	// FMP returns newest first; the series contract is oldest first.
	bars := make([]domain.PriceBar, 0, len(hist.Historical))
	for i := len(hist.Historical) - 1; i >= 0; i-- {
		row := hist.Historical[i]
		day, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}
		bars = append(bars, domain.PriceBar{
			Date:   day.UTC(),
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	return bars, nil
}

func (p *FMPProvider) doRequest(ctx context.Context, u string) ([]byte, error) {
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

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, collect.Data(p.Name(), fmt.Errorf("fmp API rejected key: %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, collect.Transient(p.Name(), fmt.Errorf("fmp API error %d: %s", resp.StatusCode, string(body)))
	}
	return io.ReadAll(resp.Body)
}
