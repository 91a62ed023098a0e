package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/skalibog/smcbot/pkg/models"
)

var (
	sectionTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	labelStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	reportStyle       = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)
)

// RenderResult форматирует результат анализа для вывода в терминал
func RenderResult(r *models.AnalysisResult) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", r.Symbol, r.Timeframe)) + "\n\n")

	b.WriteString(sectionTitleStyle.Render("Рынок") + "\n")
	writeRow(&b, "Цена", FormatPrice(r.CurrentPrice))
	writeRow(&b, "Изменение 24ч", FormatPercent(r.Change24h))
	writeRow(&b, "Диапазон 24ч", FormatPrice(r.Low24h)+" – "+FormatPrice(r.High24h))
	writeRow(&b, "Объем 24ч", fmt.Sprintf("%.2f", r.Volume24h))
	writeRow(&b, "Bias", biasStyle(r.Bias).Render(string(r.Bias)))
	writeRow(&b, "Тренд", string(r.Structure.Trend))
	if r.Structure.LastBreakOfStructure != nil {
		writeRow(&b, "BOS", formatBreak(r.Structure.LastBreakOfStructure))
	}
	if r.Structure.LastChangeOfCharacter != nil {
		writeRow(&b, "CHoCH", formatBreak(r.Structure.LastChangeOfCharacter))
	}

	b.WriteString("\n" + sectionTitleStyle.Render("Уровни") + "\n")
	writeRow(&b, "Поддержка", FormatPrices(r.Levels.Support))
	writeRow(&b, "Сопротивление", FormatPrices(r.Levels.Resistance))
	writeRow(&b, "Ближайшие", fmt.Sprintf("%s / %s", formatOptional(r.NearestSupport), formatOptional(r.NearestResistance)))

	b.WriteString("\n" + sectionTitleStyle.Render("Зоны") + "\n")
	writeRow(&b, "Bullish OB", formatBlocks(r.OrderBlocks.Bullish))
	writeRow(&b, "Bearish OB", formatBlocks(r.OrderBlocks.Bearish))
	writeRow(&b, "Bullish FVG", formatGaps(r.FairValueGaps.Bullish))
	writeRow(&b, "Bearish FVG", formatGaps(r.FairValueGaps.Bearish))

	b.WriteString("\n" + sectionTitleStyle.Render("Индикаторы") + "\n")
	writeRow(&b, "RSI", fmt.Sprintf("%.2f", r.Indicators.RSI))
	writeRow(&b, "ATR", FormatPrice(r.Indicators.ATR))
	writeRow(&b, "EMA", fmt.Sprintf("%s / %s", FormatPrice(r.Indicators.EMA20), FormatPrice(r.Indicators.EMA50)))

	b.WriteString("\n" + sectionTitleStyle.Render("Сигнал") + "\n")
	b.WriteString(renderSignal(r.Signal))

	return reportStyle.Render(b.String())
}

func renderSignal(s models.Signal) string {
	var b strings.Builder
	writeRow(&b, "Действие", actionStyle(s.Action).Render(string(s.Action)))
	writeRow(&b, "Уверенность", fmt.Sprintf("%.0f%%", s.Confidence))
	if s.EntryZone != nil {
		writeRow(&b, "Вход", FormatPrice(s.EntryZone.Low)+" – "+FormatPrice(s.EntryZone.High))
	}
	if s.StopLoss != nil {
		writeRow(&b, "Стоп", FormatPrice(*s.StopLoss))
	}
	if s.TakeProfit != nil {
		writeRow(&b, "Цель", FormatPrice(*s.TakeProfit))
	}
	if s.RiskReward != nil {
		writeRow(&b, "R:R", fmt.Sprintf("1:%.1f", *s.RiskReward))
	}
	return b.String()
}

// RenderHistory форматирует сохраненные анализы в таблицу
func RenderHistory(symbol string, records []*models.AnalysisRecord) string {
	if len(records) == 0 {
		return fmt.Sprintf("История анализов для %s пуста\n", symbol)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("История "+symbol) + "\n\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-19s  %-3s  %12s  %-8s  %-9s  %-5s  %5s", "Время", "TF", "Цена", "Bias", "Тренд", "Сигн.", "Conf.")) + "\n")
	for _, rec := range records {
		line := fmt.Sprintf("%-19s  %-3s  %12s  %-8s  %-9s  %-5s  %4.0f%%",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Timeframe,
			FormatPrice(rec.Price),
			rec.Bias,
			rec.Trend,
			rec.Action,
			rec.Confidence)
		b.WriteString(actionStyle(rec.Action).Render(line) + "\n")
	}
	return b.String()
}

// FormatPrice подбирает точность под порядок цены
func FormatPrice(p float64) string {
	switch {
	case p == 0:
		return "0"
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}

// FormatPrices форматирует список цен через запятую
func FormatPrices(prices []float64) string {
	if len(prices) == 0 {
		return "—"
	}
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = FormatPrice(p)
	}
	return strings.Join(parts, ", ")
}

// FormatPercent форматирует изменение со знаком
func FormatPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func formatOptional(p float64) string {
	if p == 0 {
		return "—"
	}
	return FormatPrice(p)
}

func formatBreak(b *models.StructureBreak) string {
	return fmt.Sprintf("%s @ %s", b.Label, FormatPrice(b.Price))
}

func formatBlocks(blocks []models.OrderBlock) string {
	if len(blocks) == 0 {
		return "—"
	}
	parts := make([]string, len(blocks))
	for i, ob := range blocks {
		parts[i] = fmt.Sprintf("%s (x%.2f)", FormatPrice(ob.Price), ob.Strength)
	}
	return strings.Join(parts, ", ")
}

func formatGaps(gaps []models.FairValueGap) string {
	if len(gaps) == 0 {
		return "—"
	}
	parts := make([]string, len(gaps))
	for i, g := range gaps {
		parts[i] = FormatPrice(g.Low) + "–" + FormatPrice(g.High)
	}
	return strings.Join(parts, ", ")
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + value + "\n")
}

func actionStyle(a models.Action) lipgloss.Style {
	switch a {
	case models.ActionBuy:
		return lipgloss.NewStyle().Foreground(successColor).Bold(true)
	case models.ActionSell:
		return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(warningColor)
	}
}

func biasStyle(b models.Bias) lipgloss.Style {
	switch b {
	case models.BiasBullish:
		return lipgloss.NewStyle().Foreground(successColor)
	case models.BiasBearish:
		return lipgloss.NewStyle().Foreground(errorColor)
	default:
		return lipgloss.NewStyle().Foreground(warningColor)
	}
}
