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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const upbitBaseURL = "https://api.upbit.com"

// UpbitProvider fetches KRW spot prices from the Upbit public ticker.
type UpbitProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewUpbitProvider(tracer trace.Tracer) *UpbitProvider {
	return &UpbitProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: upbitBaseURL,
		tracer:  tracer,
	}
}

func (p *UpbitProvider) Name() string { return "upbit" }

// FetchDomesticPrice returns the last trade price for one market, for
// example "KRW-BTC".
func (p *UpbitProvider) FetchDomesticPrice(ctx context.Context, market string) (float64, error) {
	ctx, span := p.tracer.Start(ctx, "upbit.fetch-ticker")
	defer span.End()
	span.SetAttributes(attribute.String("market", market))

	u := fmt.Sprintf("%s/v1/ticker?markets=%s", p.baseURL, url.QueryEscape(market))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, collect.Transient(p.Name(), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, collect.Transient(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, collect.Transient(p.Name(), fmt.Errorf("upbit API error %d: %s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, collect.Transient(p.Name(), err)
	}

	var tickers []struct {
		Market     string  `json:"market"`
		TradePrice float64 `json:"trade_price"`
	}
	if err := json.Unmarshal(body, &tickers); err != nil {
		return 0, collect.Data(p.Name(), fmt.Errorf("parse ticker for %s: %w", market, err))
	}
	if len(tickers) == 0 || tickers[0].TradePrice <= 0 {
		return 0, collect.Data(p.Name(), fmt.Errorf("no trade price for %s", market))
	}
	return tickers[0].TradePrice, nil
}
