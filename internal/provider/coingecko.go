package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketpulse/internal/collect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches global USD prices from the CoinGecko free
// API. Rate limited to stay within the anonymous tier.
type CoinGeckoProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewCoinGeckoProvider creates a provider with built-in rate limiting,
// one token every 7.5 seconds up to a burst of 8.
func NewCoinGeckoProvider(tracer trace.Tracer) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: coingeckoBaseURL,
		tracer:  tracer,
		limiter: NewRateLimiter(8, 7500*time.Millisecond),
	}
}

func (p *CoinGeckoProvider) Name() string { return "coingecko" }

// FetchGlobalPrices fetches USD prices for every id in a single call.
// Response shape: {"bitcoin": {"usd": 97000}, ...}
func (p *CoinGeckoProvider) FetchGlobalPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-prices")
	defer span.End()
	span.SetAttributes(attribute.Int("id_count", len(ids)))

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, collect.Transient(p.Name(), fmt.Errorf("rate limit wait: %w", err))
	}

	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", p.baseURL, strings.Join(ids, ","))
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
		return nil, collect.Transient(p.Name(), fmt.Errorf("coingecko API error %d: %s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, collect.Transient(p.Name(), err)
	}

	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, collect.Data(p.Name(), fmt.Errorf("parse prices: %w", err))
	}

	prices := make(map[string]float64, len(raw))
	for id, vals := range raw {
		if usd, ok := vals["usd"]; ok && usd > 0 {
			prices[id] = usd
		}
	}
	if len(prices) == 0 {
		return nil, collect.Data(p.Name(), fmt.Errorf("no usable prices in response"))
	}
	return prices, nil
}
