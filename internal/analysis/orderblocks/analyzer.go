package orderblocks

import (
	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

// Analyzer ищет ордер-блоки: импульсные свечи, подтвержденные
// последующим движением цены
type Analyzer struct {
	config config.OrderBlockConfig
}

// NewAnalyzer создает новый анализатор ордер-блоков
func NewAnalyzer(cfg config.OrderBlockConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze возвращает бычьи и медвежьи ордер-блоки, не более MaxBlocks
// последних в каждом направлении
func (a *Analyzer) Analyze(candles []*models.Candle) models.OrderBlocks {
	result := models.OrderBlocks{
		Bullish: []models.OrderBlock{},
		Bearish: []models.OrderBlock{},
	}

	edge := a.config.EdgeExclusion
	for i := edge; i < len(candles)-edge; i++ {
		c := candles[i]

		avgBody := a.localAverageBody(candles, i)
		if avgBody <= 0 {
			continue
		}
		body := c.Body()
		if body <= a.config.BodyMultiplier*avgBody {
			continue
		}
		strength := body / avgBody

		switch {
		case c.IsBearish() && a.confirmedBelow(candles, i):
			result.Bullish = append(result.Bullish, models.OrderBlock{
				Price:    (c.Open + c.Low) / 2,
				Strength: strength,
			})
		case c.IsBullish() && a.confirmedAbove(candles, i):
			result.Bearish = append(result.Bearish, models.OrderBlock{
				Price:    (c.Open + c.High) / 2,
				Strength: strength,
			})
		}
	}

	result.Bullish = lastN(result.Bullish, a.config.MaxBlocks)
	result.Bearish = lastN(result.Bearish, a.config.MaxBlocks)
	return result
}

// localAverageBody средний размер тела в окне BodyWindow вокруг свечи i
func (a *Analyzer) localAverageBody(candles []*models.Candle, i int) float64 {
	start := i - a.config.BodyWindow/2
	end := start + a.config.BodyWindow
	if start < 0 {
		start = 0
	}
	if end > len(candles) {
		end = len(candles)
	}
	if end <= start {
		return 0
	}

	var sum float64
	for j := start; j < end; j++ {
		sum += candles[j].Body()
	}
	return sum / float64(end-start)
}

// confirmedBelow проверяет, пробил ли минимум одной из следующих свечей
// минимум свечи i на ConfirmationMove
func (a *Analyzer) confirmedBelow(candles []*models.Candle, i int) bool {
	threshold := candles[i].Low * (1 - a.config.ConfirmationMove)
	for j := i + 1; j <= i+a.config.ConfirmationCandles && j < len(candles); j++ {
		if candles[j].Low < threshold {
			return true
		}
	}
	return false
}

// confirmedAbove проверяет пробой максимума свечи i вверх на ConfirmationMove
func (a *Analyzer) confirmedAbove(candles []*models.Candle, i int) bool {
	threshold := candles[i].High * (1 + a.config.ConfirmationMove)
	for j := i + 1; j <= i+a.config.ConfirmationCandles && j < len(candles); j++ {
		if candles[j].High > threshold {
			return true
		}
	}
	return false
}

func lastN(blocks []models.OrderBlock, n int) []models.OrderBlock {
	if len(blocks) > n {
		return blocks[len(blocks)-n:]
	}
	return blocks
}
