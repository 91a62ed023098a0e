package models

import (
	"time"
)

// Candle представляет свечу
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Body возвращает размер тела свечи
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range возвращает полный диапазон свечи (high - low)
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// IsBullish сообщает, закрылась ли свеча выше открытия
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish сообщает, закрылась ли свеча ниже открытия
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Поддерживаемые таймфреймы анализа
const (
	Timeframe1h = "1h"
	Timeframe4h = "4h"
	Timeframe1d = "1d"

	DefaultTimeframe = Timeframe4h
)

// IsSupportedTimeframe проверяет, поддерживается ли таймфрейм
func IsSupportedTimeframe(tf string) bool {
	switch tf {
	case Timeframe1h, Timeframe4h, Timeframe1d:
		return true
	}
	return false
}

// Ticker представляет 24-часовую статистику инструмента
type Ticker struct {
	Symbol        string  `json:"symbol"`
	LastPrice     float64 `json:"last_price"`
	ChangePercent float64 `json:"change_24h_percent"`
	High24h       float64 `json:"high_24h"`
	Low24h        float64 `json:"low_24h"`
	Volume24h     float64 `json:"volume_24h"`
}

// Bias направление старшего таймфрейма
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// Trend тренд рыночной структуры
type Trend string

const (
	TrendUp       Trend = "UPTREND"
	TrendDown     Trend = "DOWNTREND"
	TrendSideways Trend = "SIDEWAYS"
)

// Direction направление зоны или события структуры
type Direction string

const (
	DirectionBullish Direction = "BULLISH"
	DirectionBearish Direction = "BEARISH"
)

// Action рекомендуемое действие
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionWait Action = "WAIT"
)

// Levels уровни поддержки и сопротивления
type Levels struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}

// OrderBlock представляет ордер-блок
type OrderBlock struct {
	Price    float64 `json:"price"`
	Strength float64 `json:"strength"`
}

// OrderBlocks бычьи и медвежьи ордер-блоки
type OrderBlocks struct {
	Bullish []OrderBlock `json:"bullish"`
	Bearish []OrderBlock `json:"bearish"`
}

// FairValueGap представляет зону дисбаланса из трех свечей
type FairValueGap struct {
	High float64 `json:"high"`
	Low  float64 `json:"low"`
}

// Contains проверяет, находится ли цена внутри зоны (включая границы)
func (g FairValueGap) Contains(price float64) bool {
	return price >= g.Low && price <= g.High
}

// FairValueGaps бычьи и медвежьи зоны FVG
type FairValueGaps struct {
	Bullish []FairValueGap `json:"bullish"`
	Bearish []FairValueGap `json:"bearish"`
}

// StructureBreak событие слома структуры (CHOCH или BOS)
type StructureBreak struct {
	Label     string    `json:"label"`
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`
}

// MarketStructure рыночная структура
type MarketStructure struct {
	Trend                 Trend           `json:"trend"`
	LastChangeOfCharacter *StructureBreak `json:"last_choch,omitempty"`
	LastBreakOfStructure  *StructureBreak `json:"last_bos,omitempty"`
}

// PriceZone ценовой диапазон
type PriceZone struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Signal торговый сигнал
type Signal struct {
	Action     Action     `json:"action"`
	Confidence float64    `json:"confidence"`
	EntryZone  *PriceZone `json:"entry_zone,omitempty"`
	StopLoss   *float64   `json:"stop_loss,omitempty"`
	TakeProfit *float64   `json:"take_profit,omitempty"`
	RiskReward *float64   `json:"risk_reward,omitempty"`
}

// Indicators вспомогательные индикаторы импульса и волатильности
type Indicators struct {
	RSI   float64 `json:"rsi"`
	ATR   float64 `json:"atr"`
	EMA20 float64 `json:"ema20"`
	EMA50 float64 `json:"ema50"`
}

// AnalysisResult представляет результат анализа инструмента
type AnalysisResult struct {
	Symbol            string          `json:"symbol"`
	Timeframe         string          `json:"timeframe"`
	CurrentPrice      float64         `json:"current_price"`
	Change24h         float64         `json:"change_24h"`
	Volume24h         float64         `json:"volume_24h"`
	High24h           float64         `json:"high_24h"`
	Low24h            float64         `json:"low_24h"`
	Bias              Bias            `json:"htf_bias"`
	Levels            Levels          `json:"levels"`
	NearestSupport    float64         `json:"nearest_support"`
	NearestResistance float64         `json:"nearest_resistance"`
	OrderBlocks       OrderBlocks     `json:"order_blocks"`
	FairValueGaps     FairValueGaps   `json:"fair_value_gaps"`
	Structure         MarketStructure `json:"market_structure"`
	Indicators        Indicators      `json:"indicators"`
	Signal            Signal          `json:"signal"`
}

// AnalysisRecord представляет сохраненную запись истории анализа
type AnalysisRecord struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Price      float64   `json:"price"`
	Bias       Bias      `json:"bias"`
	Trend      Trend     `json:"trend"`
	Action     Action    `json:"action"`
	Confidence float64   `json:"confidence"`
	EntryLow   float64   `json:"entry_low"`
	EntryHigh  float64   `json:"entry_high"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	RiskReward float64   `json:"risk_reward"`
}
