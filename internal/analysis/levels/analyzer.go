package levels

import (
	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

// Analyzer находит значимые уровни поддержки и сопротивления
type Analyzer struct {
	config config.LevelsConfig
}

// NewAnalyzer создает новый анализатор уровней
func NewAnalyzer(cfg config.LevelsConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze возвращает уровни по максимумам (сопротивление) и минимумам (поддержка)
func (a *Analyzer) Analyze(candles []*models.Candle) models.Levels {
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
	}

	return models.Levels{
		Support:    FindSupport(lows, a.config.Lookback, a.config.MaxLevels),
		Resistance: FindResistance(highs, a.config.Lookback, a.config.MaxLevels),
	}
}

// FindResistance возвращает локальные максимумы, строго превышающие
// все цены в окне [i-lookback, i+lookback]. Остаются последние limit уровней.
func FindResistance(highs []float64, lookback, limit int) []float64 {
	return findExtremes(highs, lookback, limit, func(candidate, other float64) bool {
		return candidate > other
	})
}

// FindSupport возвращает локальные минимумы, строго ниже всех цен в окне
func FindSupport(lows []float64, lookback, limit int) []float64 {
	return findExtremes(lows, lookback, limit, func(candidate, other float64) bool {
		return candidate < other
	})
}

func findExtremes(prices []float64, lookback, limit int, beats func(candidate, other float64) bool) []float64 {
	levels := []float64{}

	for i := lookback; i < len(prices)-lookback; i++ {
		significant := true
		for j := i - lookback; j <= i+lookback; j++ {
			if j != i && !beats(prices[i], prices[j]) {
				significant = false
				break
			}
		}
		if significant {
			levels = append(levels, prices[i])
		}
	}

	return lastN(levels, limit)
}

// Nearest возвращает ближайшую поддержку не выше цены и ближайшее
// сопротивление не ниже цены. Ноль означает отсутствие уровня.
func Nearest(lv models.Levels, price float64) (support, resistance float64) {
	for _, s := range lv.Support {
		if s <= price && s > support {
			support = s
		}
	}
	for _, r := range lv.Resistance {
		if r >= price && (resistance == 0 || r < resistance) {
			resistance = r
		}
	}
	return support, resistance
}

func lastN(values []float64, n int) []float64 {
	if len(values) > n {
		return values[len(values)-n:]
	}
	return values
}
