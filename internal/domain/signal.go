package domain

import "time"

// SignalLabel is the composite trade-signal classification.
type SignalLabel string

const (
	SignalStrongSell SignalLabel = "STRONG_SELL"
	SignalSell       SignalLabel = "SELL"
	SignalNeutral    SignalLabel = "NEUTRAL"
	SignalBuy        SignalLabel = "BUY"
	SignalStrongBuy  SignalLabel = "STRONG_BUY"
)

// SignalResult is the scored composite signal for one symbol. Strength is
// always within [-100, 100]; Reasons lists the contributing rules in the
// order they were applied.
type SignalResult struct {
	Overall  SignalLabel `json:"overall"`
	Strength int         `json:"strength"`
	Reasons  []string    `json:"reasons,omitempty"`
}

// StockAnalysis pairs a collected quote with its computed indicators and
// composite signal. Indicators and Signal are nil when the quote failed
// or carried no usable series.
type StockAnalysis struct {
	Symbol     string        `json:"symbol"`
	Quote      *Quote        `json:"quote,omitempty"`
	Indicators *IndicatorSet `json:"indicators,omitempty"`
	Signal     *SignalResult `json:"signal,omitempty"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
}

// AnalysisReport is the full output of one batch run, handed as-is to the
// formatter, notifier, archive, and API.
type AnalysisReport struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Stocks      QuoteBatch                `json:"stocks"`
	Analyses    map[string]*StockAnalysis `json:"analyses"`
	Rates       RateBatch                 `json:"rates"`
	Macro       MacroBatch                `json:"macro"`
	Premium     PremiumBatch              `json:"premium"`
	Commentary  string                    `json:"commentary,omitempty"`
}
