package provider

import (
	"context"
	"net/http"
	"testing"

	"marketpulse/internal/collect"

	"go.opentelemetry.io/otel/trace"
)

func TestUpbitFetchDomesticPrice(t *testing.T) {
	t.Parallel()

	provider := NewUpbitProvider(trace.NewNoopTracerProvider().Tracer("test"))
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Query().Get("markets") != "KRW-BTC" {
				t.Fatalf("unexpected markets: %s", req.URL.RawQuery)
			}
			return jsonResponse(t, []map[string]interface{}{
				{"market": "KRW-BTC", "trade_price": 142000000.0},
			}), nil
		}),
	}

	price, err := provider.FetchDomesticPrice(context.Background(), "KRW-BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 142000000 {
		t.Fatalf("expected 142000000, got %v", price)
	}
}

func TestUpbitEmptyTickerIsDataFailure(t *testing.T) {
	t.Parallel()

	provider := NewUpbitProvider(trace.NewNoopTracerProvider().Tracer("test"))
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(t, []map[string]interface{}{}), nil
		}),
	}

	_, err := provider.FetchDomesticPrice(context.Background(), "KRW-NOPE")
	if collect.ClassOf(err) != collect.FailureData {
		t.Fatalf("expected data failure, got %v", err)
	}
}
