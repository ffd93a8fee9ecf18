package bot

import (
	"fmt"
	"sort"
	"strings"

	"marketpulse/internal/domain"
)

// messageChunkLimit is the Telegram hard cap per message.
const messageChunkLimit = 4096

// FormatReport renders a full report as plain text for Telegram.
func FormatReport(report *domain.AnalysisReport) string {
	var sb strings.Builder

	sb.WriteString("MARKET REPORT\n")
	sb.WriteString(report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	sb.WriteString("\n")

	sb.WriteString("\n== Stocks ==\n")
	for _, symbol := range sortedKeys(report.Analyses) {
		sb.WriteString(formatAnalysis(report.Analyses[symbol]))
	}

	if len(report.Rates.Rates) > 0 {
		sb.WriteString("\n== Exchange Rates ==\n")
		for _, target := range sortedKeys(report.Rates.Rates) {
			sb.WriteString(formatRate(report.Rates.Rates[target]))
		}
	}

	if len(report.Macro.Indicators) > 0 || report.Macro.Degraded {
		sb.WriteString("\n== Macro ==\n")
		if report.Macro.Degraded {
			sb.WriteString(fmt.Sprintf("(%s)\n", report.Macro.Note))
		}
		for _, name := range sortedKeys(report.Macro.Indicators) {
			sb.WriteString(formatMacro(report.Macro.Indicators[name]))
		}
	}

	if len(report.Premium.Premiums) > 0 {
		sb.WriteString("\n== Kimchi Premium ==\n")
		sb.WriteString(FormatPremium(&report.Premium))
	}

	if report.Commentary != "" {
		sb.WriteString("\n== Commentary ==\n")
		sb.WriteString(report.Commentary)
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatAnalysis(a *domain.StockAnalysis) string {
	if a == nil {
		return ""
	}
	if !a.Success {
		return fmt.Sprintf("%s: unavailable (%s)\n", a.Symbol, a.Error)
	}

	var sb strings.Builder
	sb.WriteString(a.Symbol)
	if a.Quote != nil {
		sb.WriteString(fmt.Sprintf(": $%.2f", a.Quote.CurrentPrice))
		if a.Quote.ChangePercent != nil {
			sb.WriteString(fmt.Sprintf(" (%+.2f%%)", *a.Quote.ChangePercent))
		}
	}
	if a.Signal != nil {
		sb.WriteString(fmt.Sprintf(" - %s [%+d]", a.Signal.Overall, a.Signal.Strength))
	}
	sb.WriteString("\n")

	if a.Indicators != nil {
		if a.Indicators.RSI != nil {
			sb.WriteString(fmt.Sprintf("  RSI %.1f", *a.Indicators.RSI))
		}
		if a.Indicators.Disparity != nil {
			sb.WriteString(fmt.Sprintf("  disparity %.1f (%s)", a.Indicators.Disparity.Value, a.Indicators.Disparity.Status))
		}
		if a.Indicators.MACD != nil {
			sb.WriteString(fmt.Sprintf("  MACD %s", a.Indicators.MACD.Trend))
		}
		sb.WriteString("\n")
		if ma := a.Indicators.MAAlignment; ma != nil {
			sb.WriteString(fmt.Sprintf("  trend: %s", ma.Alignment))
			if ma.LastCross != nil {
				sb.WriteString(fmt.Sprintf(", %s cross %d bars ago", ma.LastCross.Type, ma.LastCross.BarsAgo))
			} else if ma.Forecast != "" {
				sb.WriteString(", " + ma.Forecast)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatRate(r *domain.RateRecord) string {
	if r == nil {
		return ""
	}
	if !r.Success {
		return fmt.Sprintf("%s: unavailable\n", r.Pair)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %.2f", r.Pair, r.CurrentRate))
	if r.ChangePercent != nil {
		sb.WriteString(fmt.Sprintf(" (%+.2f%%)", *r.ChangePercent))
	}
	if r.MonthLow != nil && r.MonthHigh != nil {
		sb.WriteString(fmt.Sprintf(" month %.2f-%.2f", *r.MonthLow, *r.MonthHigh))
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatMacro(m *domain.MacroRecord) string {
	if m == nil {
		return ""
	}
	if !m.Success {
		return fmt.Sprintf("%s: unavailable\n", m.Name)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %.2f", m.Name, m.CurrentValue))
	if m.Change != nil {
		sb.WriteString(fmt.Sprintf(" (%+.2f)", *m.Change))
	}
	sb.WriteString("\n")
	return sb.String()
}

// FormatPremium renders the premium section, shared by the full report
// and the /premium command.
func FormatPremium(batch *domain.PremiumBatch) string {
	var sb strings.Builder
	if batch.RateIsFallback {
		sb.WriteString(fmt.Sprintf("(using fallback rate %.0f KRW/USD)\n", batch.RateUsed))
	}
	for _, asset := range sortedKeys(batch.Premiums) {
		p := batch.Premiums[asset]
		if p == nil {
			continue
		}
		if !p.Success {
			sb.WriteString(fmt.Sprintf("%s: unavailable\n", asset))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %+.2f%% (%s)\n", asset, p.PremiumPercent, p.Status))
	}
	return sb.String()
}

// ChunkMessage splits text into Telegram-sized chunks, preferring line
// boundaries so indicator blocks stay intact.
func ChunkMessage(text string) []string {
	if len(text) <= messageChunkLimit {
		return []string{text}
	}

	var chunks []string
	for len(text) > messageChunkLimit {
		cut := strings.LastIndexByte(text[:messageChunkLimit], '\n')
		if cut <= 0 {
			cut = messageChunkLimit
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
