package handler

import (
	"errors"
	"net/http"
	"strings"

	"marketpulse/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetReport godoc
// @Summary      Get the latest analysis report
// @Description  Returns the most recent full batch report
// @Tags         reports
// @Produce      json
// @Success      200  {object}  domain.AnalysisReport
// @Failure      404  {object}  map[string]string
// @Router       /api/report [get]
func (h *Handler) GetReport(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-report")
	defer span.End()

	report, err := h.analysis.Latest(ctx)
	if err != nil {
		if errors.Is(err, service.ErrNoReport) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// RunReport godoc
// @Summary      Trigger an immediate batch run
// @Description  Starts a collection and analysis run in the background
// @Tags         reports
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/report/run [post]
func (h *Handler) RunReport(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.run-report")
	defer span.End()

	if h.runNow == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "manual runs are not enabled"})
		return
	}

	h.runNow()
	c.JSON(http.StatusAccepted, gin.H{"status": "run started"})
}

// GetAnalysis godoc
// @Summary      Analyze one symbol on demand
// @Description  Fetches the symbol through the fallback chain and computes indicators and signal
// @Tags         reports
// @Produce      json
// @Param        symbol  path  string  true  "Stock ticker (e.g., AAPL)"
// @Success      200  {object}  domain.StockAnalysis
// @Failure      400  {object}  map[string]string
// @Router       /api/analysis/{symbol} [get]
func (h *Handler) GetAnalysis(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-analysis")
	defer span.End()

	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing symbol"})
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	analysis, err := h.analysis.AnalyzeSymbol(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// GetRates godoc
// @Summary      Get the latest exchange rates
// @Description  Returns the rate section of the most recent report
// @Tags         reports
// @Produce      json
// @Success      200  {object}  domain.RateBatch
// @Failure      404  {object}  map[string]string
// @Router       /api/rates [get]
func (h *Handler) GetRates(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-rates")
	defer span.End()

	report, err := h.analysis.Latest(ctx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report.Rates)
}

// GetPremium godoc
// @Summary      Get the latest premium data
// @Description  Returns the kimchi premium section of the most recent report
// @Tags         reports
// @Produce      json
// @Success      200  {object}  domain.PremiumBatch
// @Failure      404  {object}  map[string]string
// @Router       /api/premium [get]
func (h *Handler) GetPremium(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-premium")
	defer span.End()

	report, err := h.analysis.Latest(ctx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report.Premium)
}
