package bias

import (
	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

// Analyzer оценивает направление старшего таймфрейма по последовательности свингов
type Analyzer struct {
	config config.BiasConfig
}

// NewAnalyzer создает новый анализатор направления
func NewAnalyzer(cfg config.BiasConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// SwingCounts счетчики сравнений соседних свечей
type SwingCounts struct {
	HigherHighs int
	LowerHighs  int
	HigherLows  int
	LowerLows   int
}

// Analyze возвращает BULLISH, BEARISH или NEUTRAL по последним Window свечам
func (a *Analyzer) Analyze(candles []*models.Candle) models.Bias {
	if len(candles) < a.config.Window {
		return models.BiasNeutral
	}

	s := Count(candles[len(candles)-a.config.Window:])

	switch {
	case s.HigherHighs > s.LowerHighs && s.HigherLows > s.LowerLows:
		return models.BiasBullish
	case s.LowerHighs > s.HigherHighs && s.LowerLows > s.HigherLows:
		return models.BiasBearish
	}
	return models.BiasNeutral
}

// Count считает рост и падение максимумов и минимумов соседних свечей.
// Равные значения не учитываются.
func Count(candles []*models.Candle) SwingCounts {
	var s SwingCounts
	for i := 1; i < len(candles); i++ {
		prev, curr := candles[i-1], candles[i]

		if curr.High > prev.High {
			s.HigherHighs++
		} else if curr.High < prev.High {
			s.LowerHighs++
		}

		if curr.Low > prev.Low {
			s.HigherLows++
		} else if curr.Low < prev.Low {
			s.LowerLows++
		}
	}
	return s
}
