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

const exchangeRateBaseURL = "https://api.exchangerate-api.com/v4"

// ExchangeRateProvider fetches spot currency rates from the keyless
// ExchangeRate-API. It returns spot only; month history comes from the
// enrichment pass.
type ExchangeRateProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewExchangeRateProvider(tracer trace.Tracer) *ExchangeRateProvider {
	return &ExchangeRateProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: exchangeRateBaseURL,
		tracer:  tracer,
	}
}

func (p *ExchangeRateProvider) Name() string { return "exchangerate-api" }

type exchangeRateResponse struct {
	Base            string             `json:"base"`
	TimeLastUpdated int64              `json:"time_last_updated"`
	Rates           map[string]float64 `json:"rates"`
}

// FetchRate returns the spot rate for base/target.
func (p *ExchangeRateProvider) FetchRate(ctx context.Context, base, target string) (*domain.RateRecord, error) {
	ctx, span := p.tracer.Start(ctx, "exchangerate.fetch-rate")
	defer span.End()
	span.SetAttributes(attribute.String("pair", base+"/"+target))

	u := fmt.Sprintf("%s/latest/%s", p.baseURL, url.PathEscape(base))
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
		return nil, collect.Transient(p.Name(), fmt.Errorf("exchangerate API error %d: %s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, collect.Transient(p.Name(), err)
	}

	var parsed exchangeRateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, collect.Data(p.Name(), fmt.Errorf("parse rates for %s: %w", base, err))
	}

	rate, ok := parsed.Rates[target]
	if !ok || rate <= 0 {
		return nil, collect.Data(p.Name(), fmt.Errorf("no rate for %s/%s", base, target))
	}

	return &domain.RateRecord{
		Pair:        base + "/" + target,
		CurrentRate: rate,
	}, nil
}
