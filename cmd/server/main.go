package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketpulse/internal/advisor"
	"marketpulse/internal/bot"
	"marketpulse/internal/cache"
	"marketpulse/internal/collect"
	"marketpulse/internal/config"
	"marketpulse/internal/db"
	"marketpulse/internal/domain"
	"marketpulse/internal/handler"
	"marketpulse/internal/job"
	"marketpulse/internal/provider"
	"marketpulse/internal/repository"
	"marketpulse/internal/service"
	"marketpulse/internal/ta"
	"marketpulse/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	startTelegramBotFunc   = bot.StartTelegramBot
	startAnalysisJobFunc   = func(j *job.AnalysisJob, ctx context.Context) { go j.Start(ctx) }
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Report archive, only when Postgres is up
	var archive service.ReportArchive
	if db.Pool != nil {
		reportRepo := repository.NewReportRepository(db.Pool, tracer)
		if err := reportRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		archive = reportRepo
	}

	// Providers and fallback chains
	yahoo := provider.NewYahooProvider(tracer)
	alpha := provider.NewAlphaVantageProvider(cfg.AlphaVantageAPIKey, tracer)
	fmp := provider.NewFMPProvider(cfg.FMPAPIKey, tracer)
	exchangeRate := provider.NewExchangeRateProvider(tracer)
	fred := provider.NewFREDProvider(cfg.FREDAPIKey, tracer)
	upbit := provider.NewUpbitProvider(tracer)
	coingecko := provider.NewCoinGeckoProvider(tracer)

	primary := collect.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   time.Second,
		MinDelay:    time.Duration(cfg.RetryMinSecs) * time.Second,
		MaxDelay:    time.Duration(cfg.RetryMaxSecs) * time.Second,
	}
	secondary := collect.SecondaryRetryPolicy()
	pause := time.Duration(cfg.FetchDelayMillis) * time.Millisecond

	stockCollector := collect.NewStockCollector(tracer, []collect.QuoteStep{
		{Source: yahoo, Policy: primary},
		{Source: alpha, Policy: secondary},
		{Source: fmp, Policy: secondary},
	}, pause)

	rateCollector := collect.NewRateCollector(tracer, []collect.RateStep{
		{Source: exchangeRate, Policy: primary},
		{Source: yahoo, Policy: secondary},
	}, yahoo, "USD", pause)

	macroCollector := collect.NewMacroCollector(tracer, fred, yahoo, domain.DefaultMacroSeries, primary, pause)

	premiumCollector := collect.NewPremiumCollector(tracer, upbit, coingecko,
		domain.CryptoPairs, cfg.PremiumAssets, primary, cfg.FallbackKRWRate, pause)

	// Commentary, only when a key is configured
	var commentator service.Commentator
	if cfg.OpenAIAPIKey != "" {
		commentator = advisor.NewAdvisorService(tracer, advisor.NewOpenAIClient(cfg.OpenAIAPIKey), cfg.OpenAIModel)
	}

	analysisService := service.NewAnalysisService(
		tracer,
		stockCollector,
		rateCollector,
		macroCollector,
		premiumCollector,
		ta.NewEngine(ta.Config{
			RSIPeriod:        cfg.RSIPeriod,
			MAPeriods:        cfg.MAPeriods,
			BollingerPeriod:  cfg.BollingerPeriod,
			BollingerStdDevs: cfg.BollingerStdDevs,
			MACDFast:         cfg.MACDFast,
			MACDSlow:         cfg.MACDSlow,
			MACDSignal:       cfg.MACDSignal,
		}),
		archive,
		cache.Client,
		commentator,
		cfg.Symbols,
		cfg.RateCurrencies,
	)

	var analysisJob *job.AnalysisJob
	runNow := func() {
		if analysisJob != nil {
			go analysisJob.RunOnce(ctx)
		}
	}

	// Start Telegram bot and wire it as the run notifier
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	tgBot := startTelegramBotFunc(analysisService, runNow, cfg.TelegramChatID)
	var notifier job.ReportNotifier
	if tgBot != nil {
		notifier = tgBot
	}

	analysisJob = job.NewAnalysisJob(tracer, analysisService, notifier, cfg.RunIntervalMins, cfg.RunTimeoutSecs)
	startAnalysisJobFunc(analysisJob, ctx)

	// Create handlers and routes
	h := handler.New(tracer, analysisService, runNow)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("marketpulse"))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
