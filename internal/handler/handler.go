package handler

import (
	"marketpulse/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer   trace.Tracer
	analysis *service.AnalysisService
	runNow   func()
}

// New builds the handler set. runNow triggers an immediate batch run in
// the background and may be nil.
func New(tracer trace.Tracer, analysis *service.AnalysisService, runNow func()) *Handler {
	return &Handler{
		tracer:   tracer,
		analysis: analysis,
		runNow:   runNow,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/report", h.GetReport)
	r.POST("/api/report/run", h.RunReport)
	r.GET("/api/analysis/:symbol", h.GetAnalysis)
	r.GET("/api/rates", h.GetRates)
	r.GET("/api/premium", h.GetPremium)
}
