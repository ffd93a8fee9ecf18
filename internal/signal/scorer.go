package signal

import "marketpulse/internal/domain"

// Indicator weights. Each contributes independently and only when the
// underlying indicator is present, so thin series degrade toward a
// neutral score instead of failing.
const (
	weightRSIExtreme = 20
	weightRSILean    = 10
	weightShortTrend = 15
	weightLongTrend  = 10
	weightBandEdge   = 15
	weightMACD       = 10
	maxStrength      = 100
	minStrength      = -100
)

// Score folds an indicator set into one additive strength value and its
// label. A positive strength leans buy, negative leans sell.
func Score(ind *domain.IndicatorSet, currentPrice float64) domain.SignalResult {
	result := domain.SignalResult{}
	if ind == nil {
		result.Overall = domain.SignalNeutral
		return result
	}

	strength := 0
	reasons := make([]string, 0, 5)

	if ind.RSI != nil {
		switch rsi := *ind.RSI; {
		case rsi < 30:
			strength += weightRSIExtreme
			reasons = append(reasons, "RSI oversold (buy signal)")
		case rsi > 70:
			strength -= weightRSIExtreme
			reasons = append(reasons, "RSI overbought (sell signal)")
		case rsi < 40:
			strength += weightRSILean
			reasons = append(reasons, "RSI in undervalued zone")
		case rsi > 60:
			strength -= weightRSILean
			reasons = append(reasons, "RSI in overvalued zone")
		}
	}

	if ma20, ok := ind.MovingAverages[20]; ok {
		if ma50, ok := ind.MovingAverages[50]; ok {
			if ma20 > ma50 {
				strength += weightShortTrend
				reasons = append(reasons, "short-term uptrend (MA20 > MA50)")
			} else {
				strength -= weightShortTrend
				reasons = append(reasons, "short-term downtrend (MA20 < MA50)")
			}
		}
	}

	if ma200, ok := ind.MovingAverages[200]; ok && currentPrice > 0 {
		if currentPrice > ma200 {
			strength += weightLongTrend
			reasons = append(reasons, "above long-term trend (price > MA200)")
		} else {
			strength -= weightLongTrend
			reasons = append(reasons, "below long-term trend (price < MA200)")
		}
	}

	if ind.Bollinger != nil && ind.Bollinger.Position != nil {
		switch pos := *ind.Bollinger.Position; {
		case pos < 20:
			strength += weightBandEdge
			reasons = append(reasons, "near lower Bollinger band (rebound zone)")
		case pos > 80:
			strength -= weightBandEdge
			reasons = append(reasons, "near upper Bollinger band (pullback zone)")
		}
	}

	if ind.MACD != nil {
		if ind.MACD.Trend == domain.TrendBullish {
			strength += weightMACD
			reasons = append(reasons, "MACD trending up")
		} else {
			strength -= weightMACD
			reasons = append(reasons, "MACD trending down")
		}
	}

	if strength > maxStrength {
		strength = maxStrength
	}
	if strength < minStrength {
		strength = minStrength
	}

	result.Strength = strength
	result.Reasons = reasons
	result.Overall = classify(strength)
	return result
}

// classify maps strength onto the five labels with strict thresholds.
func classify(strength int) domain.SignalLabel {
	switch {
	case strength > 30:
		return domain.SignalStrongBuy
	case strength > 10:
		return domain.SignalBuy
	case strength < -30:
		return domain.SignalStrongSell
	case strength < -10:
		return domain.SignalSell
	default:
		return domain.SignalNeutral
	}
}
