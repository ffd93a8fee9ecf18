package advisor

import (
	"fmt"
	"sort"
	"strings"

	"marketpulse/internal/domain"
)

const briefingRole = `You are a market analyst writing a short daily briefing for retail investors who follow US stocks, the KRW exchange rate, and crypto.

Rules:
- Only reference the data provided. Never fabricate numbers.
- If a section is marked unavailable or degraded, say so and move on.
- Lead with the single most important observation of the day.
- Interpret the precomputed technical signals; do not recompute or second-guess them.
- Keep it under 200 words. You are writing for Telegram.`

// BuildBriefingPrompt renders the report into the data block the model
// interprets. Sections with no data are omitted entirely.
func BuildBriefingPrompt(report *domain.AnalysisReport) string {
	var sb strings.Builder
	sb.WriteString("Market data as of ")
	sb.WriteString(report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	sb.WriteString("\n")

	writeStocks(&sb, report)
	writeRates(&sb, report)
	writeMacro(&sb, report)
	writePremium(&sb, report)
	return sb.String()
}

func writeStocks(sb *strings.Builder, report *domain.AnalysisReport) {
	if len(report.Analyses) == 0 {
		return
	}
	sb.WriteString("\nStocks:\n")
	for _, symbol := range sortedKeys(report.Analyses) {
		a := report.Analyses[symbol]
		if a == nil || !a.Success {
			sb.WriteString(fmt.Sprintf("  %s: unavailable\n", symbol))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s: $%.2f", symbol, a.Quote.CurrentPrice))
		if a.Quote.ChangePercent != nil {
			sb.WriteString(fmt.Sprintf(" (%+.2f%%)", *a.Quote.ChangePercent))
		}
		if a.Signal != nil {
			sb.WriteString(fmt.Sprintf(", signal %s (%+d)", a.Signal.Overall, a.Signal.Strength))
			if len(a.Signal.Reasons) > 0 {
				sb.WriteString(": " + strings.Join(a.Signal.Reasons, "; "))
			}
		}
		sb.WriteString("\n")
	}
}

func writeRates(sb *strings.Builder, report *domain.AnalysisReport) {
	if len(report.Rates.Rates) == 0 {
		return
	}
	sb.WriteString("\nExchange rates:\n")
	for _, target := range sortedKeys(report.Rates.Rates) {
		r := report.Rates.Rates[target]
		if r == nil || !r.Success {
			sb.WriteString(fmt.Sprintf("  %s: unavailable\n", target))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s: %.2f", r.Pair, r.CurrentRate))
		if r.ChangePercent != nil {
			sb.WriteString(fmt.Sprintf(" (%+.2f%%)", *r.ChangePercent))
		}
		sb.WriteString("\n")
	}
}

func writeMacro(sb *strings.Builder, report *domain.AnalysisReport) {
	if len(report.Macro.Indicators) == 0 && !report.Macro.Degraded {
		return
	}
	sb.WriteString("\nMacro:\n")
	if report.Macro.Degraded {
		sb.WriteString("  (" + report.Macro.Note + ")\n")
	}
	for _, name := range sortedKeys(report.Macro.Indicators) {
		m := report.Macro.Indicators[name]
		if m == nil || !m.Success {
			sb.WriteString(fmt.Sprintf("  %s: unavailable\n", name))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s: %.2f", name, m.CurrentValue))
		if m.Change != nil {
			sb.WriteString(fmt.Sprintf(" (%+.2f)", *m.Change))
		}
		sb.WriteString("\n")
	}
}

func writePremium(sb *strings.Builder, report *domain.AnalysisReport) {
	if len(report.Premium.Premiums) == 0 {
		return
	}
	sb.WriteString("\nKimchi premium:\n")
	if report.Premium.RateIsFallback {
		sb.WriteString(fmt.Sprintf("  (fallback rate %.0f KRW/USD)\n", report.Premium.RateUsed))
	}
	for _, asset := range sortedKeys(report.Premium.Premiums) {
		p := report.Premium.Premiums[asset]
		if p == nil || !p.Success {
			sb.WriteString(fmt.Sprintf("  %s: unavailable\n", asset))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s: %+.2f%% (%s)\n", asset, p.PremiumPercent, p.Status))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
