package domain

import "time"

// PriceBar represents a single daily OHLCV bar, dates ascending within a series.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Quote is the canonical stock record every provider normalizes into.
// Exactly one of Success=true with a populated series, or Success=false
// with Error set.
type Quote struct {
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name,omitempty"`
	CurrentPrice  float64    `json:"current_price"`
	PreviousClose float64    `json:"previous_close"`
	Open          float64    `json:"open"`
	DayHigh       float64    `json:"day_high"`
	DayLow        float64    `json:"day_low"`
	Volume        float64    `json:"volume"`
	AvgVolume     float64    `json:"avg_volume,omitempty"`
	ChangePercent *float64   `json:"change_percent,omitempty"`
	Series        []PriceBar `json:"series,omitempty"`
	Source        string     `json:"source"`
	Success       bool       `json:"success"`
	Error         string     `json:"error,omitempty"`
	FetchedAt     time.Time  `json:"fetched_at"`
}

// Closes returns the closing prices of the series in chronological order.
func (q *Quote) Closes() []float64 {
	out := make([]float64, len(q.Series))
	for i, bar := range q.Series {
		out[i] = bar.Close
	}
	return out
}

// RateRecord is the canonical exchange-rate record. History fields are
// best-effort enrichment and may be absent even on success.
type RateRecord struct {
	Pair          string    `json:"pair"`
	CurrentRate   float64   `json:"current_rate"`
	PreviousRate  *float64  `json:"previous_rate,omitempty"`
	Change        *float64  `json:"change,omitempty"`
	ChangePercent *float64  `json:"change_percent,omitempty"`
	MonthHigh     *float64  `json:"month_high,omitempty"`
	MonthLow      *float64  `json:"month_low,omitempty"`
	MonthAvg      *float64  `json:"month_avg,omitempty"`
	Source        string    `json:"source"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// RateHistory holds the month-window enrichment fields for a rate record,
// derived from roughly 30 days of daily closes.
type RateHistory struct {
	Previous      float64 `json:"previous"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	MonthHigh     float64 `json:"month_high"`
	MonthLow      float64 `json:"month_low"`
	MonthAvg      float64 `json:"month_avg"`
}

// MacroPoint is one observation of a macroeconomic series.
type MacroPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MacroRecord is the canonical macro-indicator record.
type MacroRecord struct {
	Name          string       `json:"name"`
	SeriesID      string       `json:"series_id,omitempty"`
	CurrentValue  float64      `json:"current_value"`
	CurrentDate   time.Time    `json:"current_date"`
	PreviousValue *float64     `json:"previous_value,omitempty"`
	Change        *float64     `json:"change,omitempty"`
	ChangePercent *float64     `json:"change_percent,omitempty"`
	History       []MacroPoint `json:"history,omitempty"`
	Source        string       `json:"source"`
	Success       bool         `json:"success"`
	Error         string       `json:"error,omitempty"`
	FetchedAt     time.Time    `json:"fetched_at"`
}

// PremiumRecord captures the domestic-vs-global price gap for one asset.
// GlobalPriceKRW = GlobalPriceUSD * RateUsed and PremiumPercent is derived
// from the KRW prices; RateIsFallback marks records built from the
// configured last-known-average rate instead of a live one.
type PremiumRecord struct {
	Asset            string    `json:"asset"`
	DomesticMarket   string    `json:"domestic_market"`
	DomesticPriceKRW float64   `json:"domestic_price_krw"`
	GlobalPriceUSD   float64   `json:"global_price_usd"`
	GlobalPriceKRW   float64   `json:"global_price_krw"`
	PremiumPercent   float64   `json:"premium_percent"`
	Status           string    `json:"status"`
	Advice           string    `json:"advice,omitempty"`
	RateUsed         float64   `json:"rate_used"`
	RateIsFallback   bool      `json:"rate_is_fallback"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// Premium status bands, strict thresholds at +5/+2/-2/-5 percent.
const (
	PremiumHigh         = "high premium"
	PremiumModerate     = "premium"
	PremiumBalanced     = "balanced"
	PremiumDiscount     = "discount"
	PremiumHighDiscount = "high discount"
)

// QuoteBatch is the result of collecting quotes for a symbol set.
type QuoteBatch struct {
	Quotes      map[string]*Quote `json:"quotes"`
	Successful  int               `json:"successful"`
	Failed      int               `json:"failed"`
	CollectedAt time.Time         `json:"collected_at"`
}

// RateBatch is the result of collecting exchange rates.
type RateBatch struct {
	Rates       map[string]*RateRecord `json:"rates"`
	Successful  int                    `json:"successful"`
	Failed      int                    `json:"failed"`
	CollectedAt time.Time              `json:"collected_at"`
}

// MacroBatch is the result of collecting macro indicators. Degraded marks
// a reduced keyless collection rather than a failure.
type MacroBatch struct {
	Indicators  map[string]*MacroRecord `json:"indicators"`
	Successful  int                     `json:"successful"`
	Failed      int                     `json:"failed"`
	Degraded    bool                    `json:"degraded,omitempty"`
	Note        string                  `json:"note,omitempty"`
	CollectedAt time.Time               `json:"collected_at"`
}

// PremiumBatch is the result of collecting premium records. RateUsed and
// RateIsFallback describe the reference exchange rate shared by the batch.
type PremiumBatch struct {
	Premiums       map[string]*PremiumRecord `json:"premiums"`
	Successful     int                       `json:"successful"`
	Failed         int                       `json:"failed"`
	RateUsed       float64                   `json:"rate_used"`
	RateIsFallback bool                      `json:"rate_is_fallback"`
	CollectedAt    time.Time                 `json:"collected_at"`
}
