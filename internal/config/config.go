package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	TelegramBotToken string
	TelegramChatID   int64
	DatabaseURL      string
	RedisURL         string

	HTTPPort int

	Symbols          []string
	RateCurrencies   []string
	PremiumAssets    []string
	FallbackKRWRate  float64
	RunIntervalMins  int
	RunTimeoutSecs   int
	FetchDelayMillis int

	AlphaVantageAPIKey string
	FMPAPIKey          string
	FREDAPIKey         string

	OpenAIAPIKey string
	OpenAIModel  string

	RetryMaxAttempts int
	RetryMinSecs     int
	RetryMaxSecs     int

	RSIPeriod        int
	MAPeriods        []int
	BollingerPeriod  int
	BollingerStdDevs float64
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		AlphaVantageAPIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		FMPAPIKey:          os.Getenv("FMP_API_KEY"),
		FREDAPIKey:         os.Getenv("FRED_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, bot disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, report archive disabled")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, report snapshot disabled")
	}
	if cfg.AlphaVantageAPIKey == "" {
		log.Println("Warning: ALPHA_VANTAGE_API_KEY not set, first stock fallback disabled")
	}
	if cfg.FMPAPIKey == "" {
		log.Println("Warning: FMP_API_KEY not set, second stock fallback disabled")
	}
	if cfg.FREDAPIKey == "" {
		log.Println("Warning: FRED_API_KEY not set, macro collection degrades to VIX only")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, commentary disabled")
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		} else {
			log.Printf("Warning: invalid TELEGRAM_CHAT_ID=%q", v)
		}
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	cfg.Symbols = splitList(os.Getenv("STOCK_SYMBOLS"))
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = []string{"AAPL", "MSFT", "GOOGL", "TSLA", "NVDA"}
	}

	cfg.RateCurrencies = splitList(os.Getenv("RATE_CURRENCIES"))
	if len(cfg.RateCurrencies) == 0 {
		cfg.RateCurrencies = []string{"KRW", "EUR", "JPY", "CNY"}
	}

	cfg.PremiumAssets = splitList(os.Getenv("PREMIUM_ASSETS"))
	if len(cfg.PremiumAssets) == 0 {
		cfg.PremiumAssets = []string{"BTC", "ETH", "XRP", "SOL", "ADA"}
	}

	cfg.FallbackKRWRate = 1320
	if v := strings.TrimSpace(os.Getenv("FALLBACK_KRW_RATE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.FallbackKRWRate = n
		}
	}

	cfg.RunIntervalMins = 60
	if v := strings.TrimSpace(os.Getenv("RUN_INTERVAL_MINS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RunIntervalMins = n
		}
	}

	cfg.RunTimeoutSecs = 600
	if v := strings.TrimSpace(os.Getenv("RUN_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RunTimeoutSecs = n
		}
	}

	cfg.FetchDelayMillis = 1500
	if v := strings.TrimSpace(os.Getenv("FETCH_DELAY_MILLIS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.FetchDelayMillis = n
		}
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.RetryMaxAttempts = 3
	if v := strings.TrimSpace(os.Getenv("RETRY_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetryMaxAttempts = n
		}
	}

	cfg.RetryMinSecs = 2
	if v := strings.TrimSpace(os.Getenv("RETRY_MIN_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetryMinSecs = n
		}
	}

	cfg.RetryMaxSecs = 10
	if v := strings.TrimSpace(os.Getenv("RETRY_MAX_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetryMaxSecs = n
		}
	}

	cfg.RSIPeriod = 14
	if v := strings.TrimSpace(os.Getenv("RSI_PERIOD")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			cfg.RSIPeriod = n
		}
	}

	cfg.MAPeriods = splitInts(os.Getenv("MA_PERIODS"))
	if len(cfg.MAPeriods) == 0 {
		cfg.MAPeriods = []int{20, 50, 200}
	}

	cfg.BollingerPeriod = 20
	if v := strings.TrimSpace(os.Getenv("BOLLINGER_PERIOD")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			cfg.BollingerPeriod = n
		}
	}

	cfg.BollingerStdDevs = 2.0
	if v := strings.TrimSpace(os.Getenv("BOLLINGER_STD_DEVS")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.BollingerStdDevs = n
		}
	}

	cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal = 12, 26, 9
	if v := strings.TrimSpace(os.Getenv("MACD_FAST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MACDFast = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MACD_SLOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > cfg.MACDFast {
			cfg.MACDSlow = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MACD_SIGNAL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MACDSignal = n
		}
	}

	return cfg
}

// splitInts parses a comma-separated list of positive integers, dropping
// anything that does not parse.
func splitInts(raw string) []int {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil && n > 1 {
			out = append(out, n)
		}
	}
	return out
}

// splitList parses a comma-separated env value into trimmed upper-case
// entries, dropping empties.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
