package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

type fakePriceFeed struct {
	tickers map[string]*models.Ticker
	err     error
}

func (f *fakePriceFeed) GetTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tickers[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return t, nil
}

type fakeCandleFeed struct {
	candles []*models.Candle
	err     error

	mu        sync.Mutex
	intervals []string
	limits    []int
}

func (f *fakeCandleFeed) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	f.mu.Lock()
	f.intervals = append(f.intervals, interval)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []*models.AnalysisRecord
}

func (r *fakeRecorder) SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRecorder) GetHistory(ctx context.Context, symbol string, limit int) ([]*models.AnalysisRecord, error) {
	return r.records, nil
}

func (r *fakeRecorder) Close() error { return nil }

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// uptrend каждая свеча открывается на 1 выше предыдущей, тела одинаковые, разрывов нет
func uptrend(n int) []*models.Candle {
	candles := make([]*models.Candle, n)
	for i := range candles {
		open := 100 + float64(i)
		candles[i] = &models.Candle{
			Symbol:   "BTCUSDT",
			Interval: "4h",
			OpenTime: t0.Add(time.Duration(i) * 4 * time.Hour),
			Open:     open,
			Close:    open + 1,
			High:     open + 1.5,
			Low:      open - 0.5,
			Volume:   10,
		}
	}
	return candles
}

func randomWalk(n int, seed int64) []*models.Candle {
	rng := rand.New(rand.NewSource(seed))
	candles := make([]*models.Candle, n)
	price := 100.0
	for i := range candles {
		open := price
		closeP := open * (1 + (rng.Float64()-0.5)*0.08)
		high := maxf(open, closeP) * (1 + rng.Float64()*0.03)
		low := minf(open, closeP) * (1 - rng.Float64()*0.03)
		candles[i] = &models.Candle{OpenTime: t0.Add(time.Duration(i) * time.Hour), Open: open, Close: closeP, High: high, Low: low}
		// периодические разрывы для появления FVG
		if i%7 == 0 {
			closeP *= 1 + (rng.Float64()-0.5)*0.1
		}
		price = closeP
	}
	return candles
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func newTestAnalyzer(prices *fakePriceFeed, candles *fakeCandleFeed, rec *fakeRecorder) *Analyzer {
	a := NewAnalyzer(config.DefaultAnalysis(), prices, candles, rec, 100)
	a.now = func() time.Time { return t0 }
	return a
}

func TestAnalyze_UptrendWithoutZonesWaits(t *testing.T) {
	candles := uptrend(25)
	last := candles[len(candles)-1].Close
	prices := &fakePriceFeed{tickers: map[string]*models.Ticker{
		"BTCUSDT": {Symbol: "BTCUSDT", LastPrice: last, ChangePercent: 2.5, High24h: last + 1, Low24h: last - 5, Volume24h: 1000},
	}}
	feed := &fakeCandleFeed{candles: candles}
	rec := &fakeRecorder{}

	result, err := newTestAnalyzer(prices, feed, rec).Analyze(context.Background(), "btcusdt", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.Bias != models.BiasBullish {
		t.Errorf("bias = %s, ожидался BULLISH", result.Bias)
	}
	if result.Structure.Trend != models.TrendUp {
		t.Errorf("trend = %s, ожидался UPTREND", result.Structure.Trend)
	}
	if len(result.OrderBlocks.Bullish)+len(result.OrderBlocks.Bearish) != 0 {
		t.Errorf("неожиданные ордер-блоки: %+v", result.OrderBlocks)
	}
	if len(result.FairValueGaps.Bullish)+len(result.FairValueGaps.Bearish) != 0 {
		t.Errorf("неожиданные FVG: %+v", result.FairValueGaps)
	}

	sig := result.Signal
	if sig.Action != models.ActionWait || sig.Confidence != 0 {
		t.Errorf("сигнал = %+v, ожидался WAIT", sig)
	}
	if sig.EntryZone != nil || sig.StopLoss != nil || sig.TakeProfit != nil || sig.RiskReward != nil {
		t.Errorf("у WAIT не должно быть ценовых полей: %+v", sig)
	}

	if result.Symbol != "BTCUSDT" || result.Timeframe != "4h" {
		t.Errorf("symbol/timeframe = %s/%s", result.Symbol, result.Timeframe)
	}
	if result.Change24h != 2.5 || result.Volume24h != 1000 {
		t.Errorf("24h статистика не перенесена: %+v", result)
	}
	if feed.intervals[0] != "4h" || feed.limits[0] != 100 {
		t.Errorf("запрос свечей: interval=%v limit=%v", feed.intervals, feed.limits)
	}
	if len(rec.records) != 1 || rec.records[0].Action != models.ActionWait {
		t.Errorf("ожидалась одна запись истории, получено %+v", rec.records)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	a := newTestAnalyzer(&fakePriceFeed{}, &fakeCandleFeed{}, &fakeRecorder{})
	candles := randomWalk(100, 7)
	ticker := &models.Ticker{Symbol: "ETHUSDT", LastPrice: candles[99].Close}

	first, err := a.Evaluate("ETHUSDT", "1h", ticker, candles)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	second, err := a.Evaluate("ETHUSDT", "1h", ticker, candles)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	b1, _ := json.Marshal(first)
	b2, _ := json.Marshal(second)
	if string(b1) != string(b2) {
		t.Errorf("результаты различаются:\n%s\n%s", b1, b2)
	}
}

func TestEvaluate_CollectionsAreBounded(t *testing.T) {
	a := newTestAnalyzer(&fakePriceFeed{}, &fakeCandleFeed{}, &fakeRecorder{})

	for seed := int64(1); seed <= 30; seed++ {
		candles := randomWalk(100, seed)
		res, err := a.Evaluate("X", "1h", &models.Ticker{LastPrice: candles[99].Close}, candles)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if len(res.OrderBlocks.Bullish) > 3 || len(res.OrderBlocks.Bearish) > 3 {
			t.Errorf("seed %d: ордер-блоков больше 3: %+v", seed, res.OrderBlocks)
		}
		if len(res.FairValueGaps.Bullish) > 3 || len(res.FairValueGaps.Bearish) > 3 {
			t.Errorf("seed %d: FVG больше 3: %+v", seed, res.FairValueGaps)
		}
		if len(res.Levels.Support) > 5 || len(res.Levels.Resistance) > 5 {
			t.Errorf("seed %d: уровней больше 5: %+v", seed, res.Levels)
		}
		if res.Signal.Action != models.ActionWait {
			if res.Signal.RiskReward == nil || *res.Signal.RiskReward < 2 || res.Signal.StopLoss == nil || res.Signal.TakeProfit == nil {
				t.Errorf("seed %d: неполный сигнал %+v", seed, res.Signal)
			}
		}
	}
}

func TestEvaluate_ShortHistoryDegradesGracefully(t *testing.T) {
	a := newTestAnalyzer(&fakePriceFeed{}, &fakeCandleFeed{}, &fakeRecorder{})
	candles := uptrend(5)

	res, err := a.Evaluate("BTCUSDT", "4h", &models.Ticker{LastPrice: 105}, candles)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Bias != models.BiasNeutral || res.Structure.Trend != models.TrendSideways {
		t.Errorf("ожидались NEUTRAL/SIDEWAYS, получено %s/%s", res.Bias, res.Structure.Trend)
	}
	if res.Structure.LastChangeOfCharacter != nil || res.Structure.LastBreakOfStructure != nil {
		t.Errorf("не ожидалось событий структуры: %+v", res.Structure)
	}
	if res.Signal.Action != models.ActionWait {
		t.Errorf("action = %s, ожидался WAIT", res.Signal.Action)
	}
}

func TestEvaluate_InvalidInput(t *testing.T) {
	a := newTestAnalyzer(&fakePriceFeed{}, &fakeCandleFeed{}, &fakeRecorder{})

	unordered := uptrend(3)
	unordered[2].OpenTime = unordered[1].OpenTime

	tests := []struct {
		name    string
		ticker  *models.Ticker
		candles []*models.Candle
	}{
		{"пустой ряд", &models.Ticker{LastPrice: 1}, nil},
		{"дубликат времени", &models.Ticker{LastPrice: 1}, unordered},
		{"нулевая цена", &models.Ticker{LastPrice: 0}, uptrend(3)},
		{"нет тикера", nil, uptrend(3)},
		{"NaN цена", &models.Ticker{LastPrice: math.NaN()}, uptrend(3)},
		{"бесконечная цена", &models.Ticker{LastPrice: math.Inf(1)}, uptrend(3)},
	}
	for _, tt := range tests {
		_, err := a.Evaluate("X", "4h", tt.ticker, tt.candles)
		var invalid *models.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Errorf("%s: ожидалась InvalidInputError, получено %v", tt.name, err)
		}
	}
}

func TestAnalyze_PriceFetchFailure(t *testing.T) {
	rec := &fakeRecorder{}
	a := newTestAnalyzer(&fakePriceFeed{err: errors.New("503")}, &fakeCandleFeed{candles: uptrend(25)}, rec)

	result, err := a.Analyze(context.Background(), "BTCUSDT", "1h")
	if result != nil {
		t.Errorf("при ошибке не должно быть результата: %+v", result)
	}
	var pfe *models.PriceFetchError
	if !errors.As(err, &pfe) || pfe.Symbol != "BTCUSDT" {
		t.Fatalf("ожидалась PriceFetchError, получено %v", err)
	}
	if len(rec.records) != 0 {
		t.Error("неудачный анализ не должен сохраняться")
	}
}

func TestAnalyze_CandleFetchFailure(t *testing.T) {
	prices := &fakePriceFeed{tickers: map[string]*models.Ticker{"BTCUSDT": {LastPrice: 100}}}
	a := newTestAnalyzer(prices, &fakeCandleFeed{err: errors.New("timeout")}, &fakeRecorder{})

	_, err := a.Analyze(context.Background(), "BTCUSDT", "1d")
	var tde *models.TechnicalDataFetchError
	if !errors.As(err, &tde) {
		t.Fatalf("ожидалась TechnicalDataFetchError, получено %v", err)
	}
	if tde.Timeframe != "1d" || tde.Symbol != "BTCUSDT" {
		t.Errorf("неверный контекст ошибки: %+v", tde)
	}
}

func TestAnalyze_RejectsBadRequest(t *testing.T) {
	a := newTestAnalyzer(&fakePriceFeed{}, &fakeCandleFeed{}, &fakeRecorder{})

	for _, tc := range []struct{ symbol, timeframe string }{{"BTCUSDT", "15m"}, {"  ", "4h"}} {
		_, err := a.Analyze(context.Background(), tc.symbol, tc.timeframe)
		var invalid *models.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Errorf("%q/%q: ожидалась InvalidInputError, получено %v", tc.symbol, tc.timeframe, err)
		}
	}
}

func TestAnalyzeAll_SkipsFailedSymbols(t *testing.T) {
	candles := uptrend(25)
	prices := &fakePriceFeed{tickers: map[string]*models.Ticker{
		"BTCUSDT": {Symbol: "BTCUSDT", LastPrice: 125},
	}}
	a := newTestAnalyzer(prices, &fakeCandleFeed{candles: candles}, &fakeRecorder{})

	results := a.AnalyzeAll(context.Background(), []string{"BTCUSDT", "DOGEUSDT"}, "4h")
	if len(results) != 1 || results["BTCUSDT"] == nil {
		t.Errorf("ожидался результат только для BTCUSDT, получено %v", results)
	}
}
