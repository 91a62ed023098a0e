package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

// Analyzer рассчитывает вспомогательные индикаторы импульса и волатильности.
// На сигнал они не влияют.
type Analyzer struct {
	config config.IndicatorsConfig
}

// NewAnalyzer создает новый анализатор индикаторов
func NewAnalyzer(cfg config.IndicatorsConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze возвращает последние значения RSI, ATR и EMA.
// При недостатке истории соответствующее значение равно нулю.
func (a *Analyzer) Analyze(candles []*models.Candle) models.Indicators {
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))

	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	var result models.Indicators

	if p := a.config.RSIPeriod; p > 0 && len(closes) > p {
		result.RSI = last(talib.Rsi(closes, p))
	}
	if p := a.config.ATRPeriod; p > 0 && len(closes) > p {
		result.ATR = last(talib.Atr(highs, lows, closes, p))
	}
	if p := a.config.EMAFast; p > 1 && len(closes) >= p {
		result.EMA20 = last(talib.Ema(closes, p))
	}
	if p := a.config.EMASlow; p > 1 && len(closes) >= p {
		result.EMA50 = last(talib.Ema(closes, p))
	}

	return result
}

// last возвращает последнее значение ряда, NaN и Inf заменяются нулем
func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
