package domain

// IndicatorSet holds the technical indicators computed from one price
// series. Every field is independently optional: a nil field means the
// indicator was unavailable for that series, never that the whole
// analysis failed.
type IndicatorSet struct {
	RSI               *float64           `json:"rsi,omitempty"`
	MovingAverages    map[int]float64    `json:"moving_averages,omitempty"`
	Bollinger         *BollingerBands    `json:"bollinger,omitempty"`
	MACD              *MACDResult        `json:"macd,omitempty"`
	Volatility        *float64           `json:"volatility,omitempty"`
	SupportResistance *SupportResistance `json:"support_resistance,omitempty"`
	Disparity         *Disparity         `json:"disparity,omitempty"`
	MAAlignment       *MAAlignment       `json:"ma_alignment,omitempty"`
}

// BollingerBands holds band levels plus the price position within the
// band in percent. Position is not clamped: a price breaking the band
// legitimately reads below 0 or above 100. A zero-width band has no
// meaningful position, so Position is nil there.
type BollingerBands struct {
	Upper    float64  `json:"upper"`
	Middle   float64  `json:"middle"`
	Lower    float64  `json:"lower"`
	Position *float64 `json:"position,omitempty"`
	Width    float64  `json:"width"`
}

// MACDResult holds the MACD line, signal line, histogram, and trend label.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Trend     string  `json:"trend"`
}

const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
)

// SupportResistance holds window extremes with distances in percent of
// the current price.
type SupportResistance struct {
	Resistance           float64 `json:"resistance"`
	Support              float64 `json:"support"`
	DistanceToResistance float64 `json:"distance_to_resistance"`
	DistanceToSupport    float64 `json:"distance_to_support"`
}

// Disparity is the current price relative to a moving average, in percent.
type Disparity struct {
	Value  float64 `json:"value"`
	Status string  `json:"status"`
	MA     float64 `json:"ma"`
}

// Disparity status buckets, strict thresholds at 105/102/98/95.
const (
	DisparityOverheated = "overheated"
	DisparityStrong     = "strong"
	DisparityNeutral    = "neutral"
	DisparityWeak       = "weak"
	DisparityDepressed  = "depressed"
)

// CrossEvent is a realized MA20/MA50 cross detected within the recent
// scan window. BarsAgo counts back from the newest bar.
type CrossEvent struct {
	Type    string `json:"type"`
	BarsAgo int    `json:"bars_ago"`
}

const (
	CrossGolden = "golden"
	CrossDead   = "dead"
)

// MAAlignment describes the ordering of price and moving averages plus
// cross state. LastCross is a detected historical event; Forecast is a
// proximity heuristic and is only set when no realized cross was found
// in the window. The two are deliberately separate fields.
type MAAlignment struct {
	Alignment string      `json:"alignment"`
	MA20      float64     `json:"ma20"`
	MA50      float64     `json:"ma50"`
	MA200     *float64    `json:"ma200,omitempty"`
	LastCross *CrossEvent `json:"last_cross,omitempty"`
	Forecast  string      `json:"forecast,omitempty"`
}

const (
	AlignmentBullish = "bullish-aligned"
	AlignmentBearish = "bearish-aligned"
	AlignmentMixed   = "mixed"
)

// Forecast labels. The "imminent" pair are heuristic forecasts, not
// detected events.
const (
	ForecastGoldenImminent = "golden cross imminent"
	ForecastDeadImminent   = "dead cross imminent"
	ForecastUptrendHold    = "uptrend holding"
	ForecastDowntrendHold  = "downtrend holding"
)
