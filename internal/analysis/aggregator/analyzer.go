package aggregator

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skalibog/smcbot/internal/analysis/bias"
	"github.com/skalibog/smcbot/internal/analysis/fvg"
	"github.com/skalibog/smcbot/internal/analysis/indicators"
	"github.com/skalibog/smcbot/internal/analysis/levels"
	"github.com/skalibog/smcbot/internal/analysis/orderblocks"
	"github.com/skalibog/smcbot/internal/analysis/signal"
	"github.com/skalibog/smcbot/internal/analysis/structure"
	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/internal/exchange"
	"github.com/skalibog/smcbot/internal/storage"
	"github.com/skalibog/smcbot/pkg/logger"
	"github.com/skalibog/smcbot/pkg/models"
)

// Analyzer объединяет все аналитические компоненты
type Analyzer struct {
	config      config.AnalysisConfig
	prices      exchange.PriceFeed
	candles     exchange.CandleFeed
	recorder    storage.Recorder
	candleLimit int
	now         func() time.Time

	levelsAnal     *levels.Analyzer
	orderBlockAnal *orderblocks.Analyzer
	fvgAnal        *fvg.Analyzer
	structureAnal  *structure.Analyzer
	biasAnal       *bias.Analyzer
	indicatorsAnal *indicators.Analyzer
	signalGen      *signal.Generator
}

// NewAnalyzer создает новый анализатор. recorder может быть nil.
func NewAnalyzer(cfg config.AnalysisConfig, prices exchange.PriceFeed, candles exchange.CandleFeed, recorder storage.Recorder, candleLimit int) *Analyzer {
	if recorder == nil {
		recorder = storage.NewNoopStorage()
	}
	return &Analyzer{
		config:         cfg,
		prices:         prices,
		candles:        candles,
		recorder:       recorder,
		candleLimit:    candleLimit,
		now:            time.Now,
		levelsAnal:     levels.NewAnalyzer(cfg.Levels),
		orderBlockAnal: orderblocks.NewAnalyzer(cfg.OrderBlock),
		fvgAnal:        fvg.NewAnalyzer(cfg.FVG),
		structureAnal:  structure.NewAnalyzer(cfg.Structure),
		biasAnal:       bias.NewAnalyzer(cfg.Bias),
		indicatorsAnal: indicators.NewAnalyzer(cfg.Indicators),
		signalGen:      signal.NewGenerator(cfg.Signal),
	}
}

// Analyze получает цену и свечи и выполняет полный анализ инструмента.
// Ошибка любого из источников прерывает анализ без частичного результата.
func (a *Analyzer) Analyze(ctx context.Context, symbol, timeframe string) (*models.AnalysisResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if timeframe == "" {
		timeframe = models.DefaultTimeframe
	}
	if symbol == "" {
		return nil, &models.InvalidInputError{Field: "symbol", Reason: "пустой символ"}
	}
	if !models.IsSupportedTimeframe(timeframe) {
		return nil, &models.InvalidInputError{Field: "timeframe", Reason: "поддерживаются 1h, 4h, 1d: " + timeframe}
	}

	// Запрашиваем цену и свечи параллельно
	var ticker *models.Ticker
	var candles []*models.Candle

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := a.prices.GetTicker(gctx, symbol)
		if err != nil {
			return &models.PriceFetchError{Symbol: symbol, Err: err}
		}
		ticker = t
		return nil
	})
	g.Go(func() error {
		c, err := a.candles.GetKlines(gctx, symbol, timeframe, a.candleLimit)
		if err != nil {
			return &models.TechnicalDataFetchError{Symbol: symbol, Timeframe: timeframe, Err: err}
		}
		candles = c
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Warn("AGGREGATOR: Ошибка получения данных",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe),
			zap.Error(err))
		return nil, err
	}

	result, err := a.Evaluate(symbol, timeframe, ticker, candles)
	if err != nil {
		return nil, err
	}

	logger.Debug("AGGREGATOR: Анализ завершен",
		zap.String("symbol", symbol),
		zap.String("bias", string(result.Bias)),
		zap.String("trend", string(result.Structure.Trend)),
		zap.String("action", string(result.Signal.Action)),
		zap.Float64("confidence", result.Signal.Confidence))

	// Сохраняем результат в историю
	if err := a.recorder.SaveAnalysis(ctx, storage.NewRecord(result, a.now())); err != nil {
		logger.Warn("Предупреждение: не удалось сохранить анализ", zap.String("symbol", symbol), zap.Error(err))
	}

	return result, nil
}

// Evaluate строит результат анализа по уже полученным данным.
// Чистая функция: одинаковые входные данные дают одинаковый результат.
func (a *Analyzer) Evaluate(symbol, timeframe string, ticker *models.Ticker, candles []*models.Candle) (*models.AnalysisResult, error) {
	if ticker == nil || math.IsNaN(ticker.LastPrice) || math.IsInf(ticker.LastPrice, 0) || ticker.LastPrice <= 0 {
		return nil, &models.InvalidInputError{Field: "price", Reason: "текущая цена должна быть положительной"}
	}
	if err := ValidateCandles(candles); err != nil {
		return nil, err
	}

	price := ticker.LastPrice

	// Независимые детекторы над одним и тем же рядом
	lv := a.levelsAnal.Analyze(candles)
	blocks := a.orderBlockAnal.Analyze(candles)
	gaps := a.fvgAnal.Analyze(candles)
	ms := a.structureAnal.Analyze(candles)
	htf := a.biasAnal.Analyze(candles)
	ind := a.indicatorsAnal.Analyze(candles)

	// Генератор сигналов использует результаты всех детекторов
	sig := a.signalGen.Generate(signal.Input{
		Price:       price,
		Bias:        htf,
		OrderBlocks: blocks,
		Gaps:        gaps,
		Structure:   ms,
	})

	support, resistance := levels.Nearest(lv, price)

	return &models.AnalysisResult{
		Symbol:            symbol,
		Timeframe:         timeframe,
		CurrentPrice:      price,
		Change24h:         ticker.ChangePercent,
		Volume24h:         ticker.Volume24h,
		High24h:           ticker.High24h,
		Low24h:            ticker.Low24h,
		Bias:              htf,
		Levels:            lv,
		NearestSupport:    support,
		NearestResistance: resistance,
		OrderBlocks:       blocks,
		FairValueGaps:     gaps,
		Structure:         ms,
		Indicators:        ind,
		Signal:            sig,
	}, nil
}

// ValidateCandles проверяет, что ряд не пуст и строго упорядочен по времени
func ValidateCandles(candles []*models.Candle) error {
	if len(candles) == 0 {
		return &models.InvalidInputError{Field: "candles", Reason: "пустой ряд свечей"}
	}
	for i, c := range candles {
		if c == nil {
			return &models.InvalidInputError{Field: "candles", Reason: "пустая свеча в ряду"}
		}
		if i > 0 && !c.OpenTime.After(candles[i-1].OpenTime) {
			return &models.InvalidInputError{Field: "candles", Reason: "время свечей должно строго возрастать"}
		}
	}
	return nil
}

// AnalyzeAll анализирует все символы параллельно.
// Ошибки отдельных символов логируются и пропускаются.
func (a *Analyzer) AnalyzeAll(ctx context.Context, symbols []string, timeframe string) map[string]*models.AnalysisResult {
	results := make(map[string]*models.AnalysisResult)
	var wg sync.WaitGroup
	var mutex sync.Mutex

	for _, symbol := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()

			result, err := a.Analyze(ctx, sym, timeframe)
			if err != nil {
				logger.Error("Ошибка анализа символа", zap.String("symbol", sym), zap.Error(err))
				return
			}

			mutex.Lock()
			results[result.Symbol] = result
			mutex.Unlock()
		}(symbol)
	}

	wg.Wait()
	return results
}

// GetHistory возвращает историю анализов для символа
func (a *Analyzer) GetHistory(ctx context.Context, symbol string, limit int) ([]*models.AnalysisRecord, error) {
	return a.recorder.GetHistory(ctx, strings.ToUpper(symbol), limit)
}
