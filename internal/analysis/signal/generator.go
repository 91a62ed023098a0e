package signal

import (
	"math"

	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

// Generator формирует торговый сигнал по конфлюенции направления,
// структуры, ордер-блоков и FVG
type Generator struct {
	config config.SignalConfig
}

// NewGenerator создает новый генератор сигналов
func NewGenerator(cfg config.SignalConfig) *Generator {
	return &Generator{
		config: cfg,
	}
}

// Input входные данные генератора
type Input struct {
	Price       float64
	Bias        models.Bias
	OrderBlocks models.OrderBlocks
	Gaps        models.FairValueGaps
	Structure   models.MarketStructure
}

// Generate проверяет правила по приоритету: бычьи ордер-блоки, медвежьи
// ордер-блоки, бычьи FVG, медвежьи FVG. Срабатывает первое совпадение.
func (g *Generator) Generate(in Input) models.Signal {
	bullish := in.Bias == models.BiasBullish && in.Structure.Trend == models.TrendUp
	bearish := in.Bias == models.BiasBearish && in.Structure.Trend == models.TrendDown
	price := in.Price

	if bullish {
		for _, ob := range in.OrderBlocks.Bullish {
			if g.nearBlock(price, ob) {
				return g.orderBlockSignal(models.ActionBuy, price, ob,
					price*(1-g.config.OrderBlockStop), price*(1+g.config.OrderBlockTarget))
			}
		}
	}

	if bearish {
		for _, ob := range in.OrderBlocks.Bearish {
			if g.nearBlock(price, ob) {
				return g.orderBlockSignal(models.ActionSell, price, ob,
					price*(1+g.config.OrderBlockStop), price*(1-g.config.OrderBlockTarget))
			}
		}
	}

	if bullish {
		for _, gap := range in.Gaps.Bullish {
			if gap.Contains(price) {
				return g.gapSignal(models.ActionBuy, gap,
					gap.Low*(1-g.config.FVGStop), gap.High*(1+g.config.FVGTarget))
			}
		}
	}

	if bearish {
		for _, gap := range in.Gaps.Bearish {
			if gap.Contains(price) {
				return g.gapSignal(models.ActionSell, gap,
					gap.High*(1+g.config.FVGStop), gap.Low*(1-g.config.FVGTarget))
			}
		}
	}

	return Wait()
}

// Wait возвращает сигнал ожидания без ценовых уровней
func Wait() models.Signal {
	return models.Signal{Action: models.ActionWait}
}

// nearBlock проверяет, что цена ближе OrderBlockProximity к цене блока
func (g *Generator) nearBlock(price float64, ob models.OrderBlock) bool {
	if ob.Price <= 0 {
		return false
	}
	return math.Abs(price-ob.Price)/ob.Price < g.config.OrderBlockProximity
}

func (g *Generator) orderBlockSignal(action models.Action, price float64, ob models.OrderBlock, stop, target float64) models.Signal {
	confidence := math.Min(g.config.OrderBlockMaxConf, g.config.OrderBlockBaseConf+ob.Strength*g.config.OrderBlockConfStep)
	rr := g.config.OrderBlockRR

	return models.Signal{
		Action:     action,
		Confidence: confidence,
		EntryZone: &models.PriceZone{
			Low:  price * (1 - g.config.EntryBand),
			High: price * (1 + g.config.EntryBand),
		},
		StopLoss:   &stop,
		TakeProfit: &target,
		RiskReward: &rr,
	}
}

func (g *Generator) gapSignal(action models.Action, gap models.FairValueGap, stop, target float64) models.Signal {
	rr := g.config.FVGRR

	return models.Signal{
		Action:     action,
		Confidence: g.config.FVGConfidence,
		EntryZone: &models.PriceZone{
			Low:  gap.Low,
			High: gap.High,
		},
		StopLoss:   &stop,
		TakeProfit: &target,
		RiskReward: &rr,
	}
}
