package fvg

import (
	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

// Analyzer ищет зоны дисбаланса (Fair Value Gap) из трех свечей
type Analyzer struct {
	config config.FVGConfig
}

// NewAnalyzer создает новый анализатор FVG
func NewAnalyzer(cfg config.FVGConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze возвращает бычьи и медвежьи FVG, не более MaxGaps последних
// в каждом направлении. Пересекающиеся зоны не объединяются.
func (a *Analyzer) Analyze(candles []*models.Candle) models.FairValueGaps {
	result := models.FairValueGaps{
		Bullish: []models.FairValueGap{},
		Bearish: []models.FairValueGap{},
	}

	for i := 1; i < len(candles)-1; i++ {
		prev, curr, next := candles[i-1], candles[i], candles[i+1]

		// средний истинный диапазон тройки свечей
		atr := (prev.Range() + curr.Range() + next.Range()) / 3
		minGap := a.config.MinATRFraction * atr

		if next.Low > prev.High && next.Low-prev.High > minGap {
			result.Bullish = append(result.Bullish, models.FairValueGap{
				High: next.Low,
				Low:  prev.High,
			})
		}

		if next.High < prev.Low && prev.Low-next.High > minGap {
			result.Bearish = append(result.Bearish, models.FairValueGap{
				High: prev.Low,
				Low:  next.High,
			})
		}
	}

	result.Bullish = lastN(result.Bullish, a.config.MaxGaps)
	result.Bearish = lastN(result.Bearish, a.config.MaxGaps)
	return result
}

func lastN(gaps []models.FairValueGap, n int) []models.FairValueGap {
	if len(gaps) > n {
		return gaps[len(gaps)-n:]
	}
	return gaps
}
