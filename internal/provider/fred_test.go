package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"marketpulse/internal/collect"

	"go.opentelemetry.io/otel/trace"
)

func TestFREDMissingKeySkipsWithoutRequest(t *testing.T) {
	t.Parallel()

	provider := NewFREDProvider("", trace.NewNoopTracerProvider().Tracer("test"))
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			t.Fatal("no request should be made without a key")
			return nil, nil
		}),
	}

	_, err := provider.FetchSeries(context.Background(), "FED_RATE", "FEDFUNDS")
	var pe *collect.ProviderError
	if !errors.As(err, &pe) || pe.Class != collect.FailureCredential {
		t.Fatalf("expected credential failure, got %v", err)
	}
}

func TestFREDFetchSeriesSkipsPlaceholders(t *testing.T) {
	t.Parallel()

	provider := NewFREDProvider("test-key", trace.NewNoopTracerProvider().Tracer("test"))
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Query().Get("series_id") != "DGS10" {
				t.Fatalf("unexpected series: %s", req.URL.RawQuery)
			}
			// Newest first, with weekend placeholders mixed in.
			return jsonResponse(t, map[string]interface{}{
				"observations": []map[string]string{
					{"date": "2026-08-28", "value": "4.25"},
					{"date": "2026-08-27", "value": "."},
					{"date": "2026-08-26", "value": "4.20"},
					{"date": "2026-08-25", "value": "4.10"},
				},
			}), nil
		}),
	}

	record, err := provider.FetchSeries(context.Background(), "TREASURY_10Y", "DGS10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.CurrentValue != 4.25 {
		t.Fatalf("expected current 4.25, got %v", record.CurrentValue)
	}
	if record.PreviousValue == nil || *record.PreviousValue != 4.20 {
		t.Fatalf("placeholder must not become the previous value, got %v", record.PreviousValue)
	}
	if len(record.History) != 3 {
		t.Fatalf("expected 3 history points, got %d", len(record.History))
	}
	// History is stored oldest first.
	if record.History[0].Value != 4.10 || record.History[2].Value != 4.25 {
		t.Fatalf("unexpected history order: %+v", record.History)
	}
}

func TestFREDAllPlaceholdersIsDataFailure(t *testing.T) {
	t.Parallel()

	provider := NewFREDProvider("test-key", trace.NewNoopTracerProvider().Tracer("test"))
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(t, map[string]interface{}{
				"observations": []map[string]string{
					{"date": "2026-08-28", "value": "."},
				},
			}), nil
		}),
	}

	_, err := provider.FetchSeries(context.Background(), "TREASURY_10Y", "DGS10")
	if collect.ClassOf(err) != collect.FailureData {
		t.Fatalf("expected data failure, got %v", err)
	}
}
