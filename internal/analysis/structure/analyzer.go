package structure

import (
	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

// Метки событий структуры
const (
	LabelBullishBOS   = "Bullish BOS"
	LabelBearishBOS   = "Bearish BOS"
	LabelBullishCHoCH = "Bullish CHoCH"
	LabelBearishCHoCH = "Bearish CHoCH"
)

// Analyzer классифицирует тренд и находит сломы структуры
type Analyzer struct {
	config config.StructureConfig
}

// NewAnalyzer создает новый классификатор структуры
func NewAnalyzer(cfg config.StructureConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze определяет тренд по последним Window свечам.
// Если свечей меньше Window, возвращается SIDEWAYS без событий.
func (a *Analyzer) Analyze(candles []*models.Candle) models.MarketStructure {
	result := models.MarketStructure{Trend: models.TrendSideways}

	window := a.window(candles)
	if window == nil {
		return result
	}

	result.Trend, result.LastBreakOfStructure = classifyTrend(window)

	// Сохраняется только последнее событие CHOCH
	if events := a.changesOfCharacter(window); len(events) > 0 {
		last := events[len(events)-1]
		result.LastChangeOfCharacter = &last
	}

	return result
}

// ChangesOfCharacter возвращает все события CHOCH в окне в порядке появления
func (a *Analyzer) ChangesOfCharacter(candles []*models.Candle) []models.StructureBreak {
	window := a.window(candles)
	if window == nil {
		return nil
	}
	return a.changesOfCharacter(window)
}

func (a *Analyzer) window(candles []*models.Candle) []*models.Candle {
	if len(candles) < a.config.Window {
		return nil
	}
	return candles[len(candles)-a.config.Window:]
}

// classifyTrend сравнивает средние максимумы и минимумы старшей и младшей половин окна
func classifyTrend(window []*models.Candle) (models.Trend, *models.StructureBreak) {
	half := len(window) / 2
	older, newer := window[:half], window[half:]

	oldHigh, oldLow := averages(older)
	newHigh, newLow := averages(newer)

	switch {
	case newHigh > oldHigh && newLow > oldLow:
		return models.TrendUp, &models.StructureBreak{
			Label:     LabelBullishBOS,
			Direction: models.DirectionBullish,
			Price:     maxHigh(newer),
		}
	case newHigh < oldHigh && newLow < oldLow:
		return models.TrendDown, &models.StructureBreak{
			Label:     LabelBearishBOS,
			Direction: models.DirectionBearish,
			Price:     minLow(newer),
		}
	}
	return models.TrendSideways, nil
}

func (a *Analyzer) changesOfCharacter(window []*models.Candle) []models.StructureBreak {
	swing := a.config.SwingLength
	var events []models.StructureBreak

	for i := swing; i < len(window)-swing; i++ {
		prior := window[i-swing : i]
		c := window[i]

		if c.High > maxHigh(prior) {
			events = append(events, models.StructureBreak{
				Label:     LabelBullishCHoCH,
				Direction: models.DirectionBullish,
				Price:     c.High,
			})
		} else if c.Low < minLow(prior) {
			events = append(events, models.StructureBreak{
				Label:     LabelBearishCHoCH,
				Direction: models.DirectionBearish,
				Price:     c.Low,
			})
		}
	}

	return events
}

func averages(candles []*models.Candle) (high, low float64) {
	for _, c := range candles {
		high += c.High
		low += c.Low
	}
	n := float64(len(candles))
	return high / n, low / n
}

func maxHigh(candles []*models.Candle) float64 {
	m := candles[0].High
	for _, c := range candles[1:] {
		if c.High > m {
			m = c.High
		}
	}
	return m
}

func minLow(candles []*models.Candle) float64 {
	m := candles[0].Low
	for _, c := range candles[1:] {
		if c.Low < m {
			m = c.Low
		}
	}
	return m
}
