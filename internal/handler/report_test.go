package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketpulse/internal/collect"
	"marketpulse/internal/domain"
	"marketpulse/internal/service"
	"marketpulse/internal/ta"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type stubQuoteSource struct{ fail bool }

func (s stubQuoteSource) Name() string { return "stub" }

func (s stubQuoteSource) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if s.fail {
		return nil, collect.Data(s.Name(), fmt.Errorf("no data for %s", symbol))
	}
	series := make([]domain.PriceBar, 30)
	for i := range series {
		series[i] = domain.PriceBar{
			Date:  time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Close: 100,
		}
	}
	return &domain.Quote{Symbol: symbol, CurrentPrice: 100, Series: series}, nil
}

func newTestHandler(t *testing.T, runNow func()) (*Handler, *service.AnalysisService) {
	t.Helper()
	tracer := trace.NewNoopTracerProvider().Tracer("handler-test")
	policy := collect.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}

	stocks := collect.NewStockCollector(tracer, []collect.QuoteStep{{Source: stubQuoteSource{}, Policy: policy}}, 0)
	svc := service.NewAnalysisService(tracer, stocks, nil, nil, nil,
		ta.NewEngine(ta.Config{}), nil, nil, nil, nil, nil)

	return New(tracer, svc, runNow), svc
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestGetReportBeforeFirstRun(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before the first run, got %d", w.Code)
	}
}

func TestGetRatesBeforeFirstRun(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rates", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRunReportWithoutRunner(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/report/run", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRunReportTriggersRunner(t *testing.T) {
	runs := 0
	h, _ := newTestHandler(t, func() { runs++ })
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/report/run", nil))

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if runs != 1 {
		t.Fatalf("expected 1 triggered run, got %d", runs)
	}
}

func TestGetAnalysisUppercasesSymbol(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analysis/nvda", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body domain.StockAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Symbol != "NVDA" || !body.Success {
		t.Fatalf("unexpected analysis: %+v", body)
	}
	if body.Signal == nil {
		t.Fatal("expected a scored signal")
	}
}
