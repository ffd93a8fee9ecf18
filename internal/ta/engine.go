package ta

import (
	"math"

	"marketpulse/internal/domain"
)

// tradingDaysPerYear annualizes daily return volatility.
const tradingDaysPerYear = 252

// Config holds the indicator windows. Zero values are replaced by the
// defaults from DefaultConfig.
type Config struct {
	RSIPeriod        int
	MAPeriods        []int
	BollingerPeriod  int
	BollingerStdDevs float64
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
	VolatilityPeriod int
	SRWindow         int
	DisparityPeriod  int
	CrossScanWindow  int
}

// DefaultConfig returns the standard daily-bar windows.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:        14,
		MAPeriods:        []int{20, 50, 200},
		BollingerPeriod:  20,
		BollingerStdDevs: 2.0,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		VolatilityPeriod: 20,
		SRWindow:         20,
		DisparityPeriod:  20,
		CrossScanWindow:  5,
	}
}

// Engine computes the indicator set for a daily price series.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = def.RSIPeriod
	}
	if len(cfg.MAPeriods) == 0 {
		cfg.MAPeriods = def.MAPeriods
	}
	if cfg.BollingerPeriod <= 0 {
		cfg.BollingerPeriod = def.BollingerPeriod
	}
	if cfg.BollingerStdDevs <= 0 {
		cfg.BollingerStdDevs = def.BollingerStdDevs
	}
	if cfg.MACDFast <= 0 {
		cfg.MACDFast = def.MACDFast
	}
	if cfg.MACDSlow <= 0 {
		cfg.MACDSlow = def.MACDSlow
	}
	if cfg.MACDSignal <= 0 {
		cfg.MACDSignal = def.MACDSignal
	}
	if cfg.VolatilityPeriod <= 0 {
		cfg.VolatilityPeriod = def.VolatilityPeriod
	}
	if cfg.SRWindow <= 0 {
		cfg.SRWindow = def.SRWindow
	}
	if cfg.DisparityPeriod <= 0 {
		cfg.DisparityPeriod = def.DisparityPeriod
	}
	if cfg.CrossScanWindow <= 0 {
		cfg.CrossScanWindow = def.CrossScanWindow
	}
	return &Engine{cfg: cfg}
}

// Analyze computes every indicator the series supports. It never fails:
// indicators whose window exceeds the series are simply left nil, so a
// freshly listed symbol still gets RSI and short MAs without MA200.
func (e *Engine) Analyze(bars []domain.PriceBar, currentPrice float64) *domain.IndicatorSet {
	set := &domain.IndicatorSet{}
	if len(bars) == 0 {
		return set
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	if currentPrice <= 0 {
		currentPrice = closes[len(closes)-1]
	}

	if rsi, ok := RSI(closes, e.cfg.RSIPeriod); ok {
		set.RSI = &rsi
	}

	mas := make(map[int]float64, len(e.cfg.MAPeriods))
	for _, period := range e.cfg.MAPeriods {
		if ma, ok := SMA(closes, period); ok {
			mas[period] = ma
		}
	}
	if len(mas) > 0 {
		set.MovingAverages = mas
	}

	set.Bollinger = e.bollinger(closes, currentPrice)
	set.MACD = e.macd(closes)
	set.Volatility = e.volatility(closes)
	set.SupportResistance = e.supportResistance(bars, currentPrice)
	set.Disparity = e.disparity(closes, currentPrice)
	set.MAAlignment = e.alignment(closes, currentPrice)
	return set
}

func (e *Engine) bollinger(closes []float64, currentPrice float64) *domain.BollingerBands {
	if len(closes) < e.cfg.BollingerPeriod {
		return nil
	}
	window := closes[len(closes)-e.cfg.BollingerPeriod:]
	mean, std := MeanStd(window)
	upper := mean + e.cfg.BollingerStdDevs*std
	lower := mean - e.cfg.BollingerStdDevs*std

	bands := &domain.BollingerBands{
		Upper:  upper,
		Middle: mean,
		Lower:  lower,
	}
	if span := upper - lower; span != 0 {
		// Deliberately unclamped: band breaks read outside [0,100].
		pos := (currentPrice - lower) / span * 100
		bands.Position = &pos
	}
	if mean != 0 {
		bands.Width = (upper - lower) / mean * 100
	}
	return bands
}

func (e *Engine) macd(closes []float64) *domain.MACDResult {
	if len(closes) < e.cfg.MACDSlow {
		return nil
	}
	macdLine, signalLine := MACDSeries(closes, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	last := len(closes) - 1

	result := &domain.MACDResult{
		MACD:      macdLine[last],
		Signal:    signalLine[last],
		Histogram: macdLine[last] - signalLine[last],
	}
	// A zero histogram is not bullish.
	if result.Histogram > 0 {
		result.Trend = domain.TrendBullish
	} else {
		result.Trend = domain.TrendBearish
	}
	return result
}

func (e *Engine) volatility(closes []float64) *float64 {
	returns := Returns(closes)
	if len(returns) < e.cfg.VolatilityPeriod {
		return nil
	}
	_, std := MeanStd(returns[len(returns)-e.cfg.VolatilityPeriod:])
	vol := std * math.Sqrt(tradingDaysPerYear) * 100
	return &vol
}

func (e *Engine) supportResistance(bars []domain.PriceBar, currentPrice float64) *domain.SupportResistance {
	if len(bars) == 0 || currentPrice == 0 {
		return nil
	}
	window := bars
	if len(window) > e.cfg.SRWindow {
		window = window[len(window)-e.cfg.SRWindow:]
	}

	resistance := window[0].High
	support := window[0].Low
	for _, bar := range window {
		if bar.High > resistance {
			resistance = bar.High
		}
		if bar.Low < support {
			support = bar.Low
		}
	}

	return &domain.SupportResistance{
		Resistance:           resistance,
		Support:              support,
		DistanceToResistance: (resistance - currentPrice) / currentPrice * 100,
		DistanceToSupport:    (currentPrice - support) / currentPrice * 100,
	}
}

func (e *Engine) disparity(closes []float64, currentPrice float64) *domain.Disparity {
	ma, ok := SMA(closes, e.cfg.DisparityPeriod)
	if !ok || ma == 0 {
		return nil
	}
	value := currentPrice / ma * 100

	var status string
	switch {
	case value > 105:
		status = domain.DisparityOverheated
	case value > 102:
		status = domain.DisparityStrong
	case value < 95:
		status = domain.DisparityDepressed
	case value < 98:
		status = domain.DisparityWeak
	default:
		status = domain.DisparityNeutral
	}

	return &domain.Disparity{Value: value, Status: status, MA: ma}
}

func (e *Engine) alignment(closes []float64, currentPrice float64) *domain.MAAlignment {
	ma20, ok20 := SMA(closes, 20)
	ma50, ok50 := SMA(closes, 50)
	if !ok20 || !ok50 {
		return nil
	}

	out := &domain.MAAlignment{MA20: ma20, MA50: ma50}

	if ma200, ok := SMA(closes, 200); ok {
		out.MA200 = &ma200
		switch {
		case currentPrice > ma20 && ma20 > ma50 && ma50 > ma200:
			out.Alignment = domain.AlignmentBullish
		case currentPrice < ma20 && ma20 < ma50 && ma50 < ma200:
			out.Alignment = domain.AlignmentBearish
		default:
			out.Alignment = domain.AlignmentMixed
		}
	} else {
		switch {
		case currentPrice > ma20 && ma20 > ma50:
			out.Alignment = domain.AlignmentBullish
		case currentPrice < ma20 && ma20 < ma50:
			out.Alignment = domain.AlignmentBearish
		default:
			out.Alignment = domain.AlignmentMixed
		}
	}

	out.LastCross = e.scanCross(closes)
	if out.LastCross == nil {
		out.Forecast = forecast(ma20, ma50)
	}
	return out
}

// scanCross looks for the oldest MA20/MA50 sign change within the scan
// window, walking from CrossScanWindow bars back toward the newest bar.
func (e *Engine) scanCross(closes []float64) *domain.CrossEvent {
	n := len(closes)
	for barsAgo := e.cfg.CrossScanWindow; barsAgo >= 1; barsAgo-- {
		curr := n - barsAgo
		prev := curr - 1
		prev20, ok1 := smaAt(closes, 20, prev)
		prev50, ok2 := smaAt(closes, 50, prev)
		curr20, ok3 := smaAt(closes, 20, curr)
		curr50, ok4 := smaAt(closes, 50, curr)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		if prev20 <= prev50 && curr20 > curr50 {
			return &domain.CrossEvent{Type: domain.CrossGolden, BarsAgo: barsAgo}
		}
		if prev20 >= prev50 && curr20 < curr50 {
			return &domain.CrossEvent{Type: domain.CrossDead, BarsAgo: barsAgo}
		}
	}
	return nil
}

// forecast labels cross proximity when no realized cross exists. A gap
// under one percent of MA50 counts as imminent.
func forecast(ma20, ma50 float64) string {
	if ma50 == 0 {
		return ""
	}
	gap := math.Abs(ma20-ma50) / ma50 * 100
	if gap < 1 {
		if ma20 < ma50 {
			return domain.ForecastGoldenImminent
		}
		return domain.ForecastDeadImminent
	}
	if ma20 > ma50 {
		return domain.ForecastUptrendHold
	}
	return domain.ForecastDowntrendHold
}
