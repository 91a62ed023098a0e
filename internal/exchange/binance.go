package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

// BinanceClient клиент для получения цен и свечей Binance
type BinanceClient struct {
	futures *futures.Client
	spot    *binance.Client
	market  string
	retrier *Retrier
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) (*BinanceClient, error) {
	futuresClient := futures.NewClient(cfg.APIKey, cfg.APISecret)
	spotClient := binance.NewClient(cfg.APIKey, cfg.APISecret)

	if cfg.Testnet {
		futuresClient.BaseURL = "https://testnet.binancefuture.com"
		spotClient.BaseURL = "https://testnet.binance.vision"
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	if cfg.RequestsPerSecond <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}

	return &BinanceClient{
		futures: futuresClient,
		spot:    spotClient,
		market:  cfg.Market,
		retrier: NewRetrier(limiter, cfg.MaxRetries,
			time.Duration(cfg.RetryMinMs)*time.Millisecond,
			time.Duration(cfg.RetryMaxMs)*time.Millisecond),
	}, nil
}

// rawKline строковое представление свечи, общее для спота и фьючерсов
type rawKline struct {
	OpenTime  int64
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
	CloseTime int64
}

// rawTicker строковое представление 24-часовой статистики
type rawTicker struct {
	Symbol             string
	LastPrice          string
	PriceChangePercent string
	HighPrice          string
	LowPrice           string
	Volume             string
}

// GetKlines получает исторические свечи
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	var raw []rawKline

	err := c.retrier.Do(ctx, "klines", func(ctx context.Context) error {
		var err error
		raw, err = c.fetchKlines(ctx, symbol, interval, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	candles := make([]*models.Candle, len(raw))
	for i, k := range raw {
		candle, err := convertKline(k, symbol, interval)
		if err != nil {
			return nil, fmt.Errorf("свеча %d: %w", i, err)
		}
		candles[i] = candle
	}

	return candles, nil
}

func (c *BinanceClient) fetchKlines(ctx context.Context, symbol, interval string, limit int) ([]rawKline, error) {
	if c.market == config.MarketSpot {
		klines, err := c.spot.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		if err != nil {
			return nil, err
		}
		raw := make([]rawKline, len(klines))
		for i, k := range klines {
			raw[i] = rawKline{k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume, k.CloseTime}
		}
		return raw, nil
	}

	klines, err := c.futures.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	raw := make([]rawKline, len(klines))
	for i, k := range klines {
		raw[i] = rawKline{k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume, k.CloseTime}
	}
	return raw, nil
}

// GetTicker получает текущую цену и статистику за 24 часа
func (c *BinanceClient) GetTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	var raw *rawTicker

	err := c.retrier.Do(ctx, "ticker", func(ctx context.Context) error {
		var err error
		raw, err = c.fetchTicker(ctx, symbol)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения тикера: %w", err)
	}

	return convertTicker(*raw)
}

func (c *BinanceClient) fetchTicker(ctx context.Context, symbol string) (*rawTicker, error) {
	if c.market == config.MarketSpot {
		stats, err := c.spot.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		if err != nil {
			return nil, err
		}
		if len(stats) == 0 {
			return nil, fmt.Errorf("не найдена статистика для %s", symbol)
		}
		s := stats[0]
		return &rawTicker{s.Symbol, s.LastPrice, s.PriceChangePercent, s.HighPrice, s.LowPrice, s.Volume}, nil
	}

	stats, err := c.futures.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("не найдена статистика для %s", symbol)
	}
	s := stats[0]
	return &rawTicker{s.Symbol, s.LastPrice, s.PriceChangePercent, s.HighPrice, s.LowPrice, s.Volume}, nil
}

// convertKline переводит строковые цены в числа
func convertKline(k rawKline, symbol, interval string) (*models.Candle, error) {
	values, err := parseDecimals(k.Open, k.High, k.Low, k.Close, k.Volume)
	if err != nil {
		return nil, err
	}

	return &models.Candle{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		CloseTime: time.UnixMilli(k.CloseTime).UTC(),
	}, nil
}

// convertTicker переводит строковую статистику в числа
func convertTicker(t rawTicker) (*models.Ticker, error) {
	values, err := parseDecimals(t.LastPrice, t.PriceChangePercent, t.HighPrice, t.LowPrice, t.Volume)
	if err != nil {
		return nil, fmt.Errorf("некорректный тикер %s: %w", t.Symbol, err)
	}

	return &models.Ticker{
		Symbol:        t.Symbol,
		LastPrice:     values[0],
		ChangePercent: values[1],
		High24h:       values[2],
		Low24h:        values[3],
		Volume24h:     values[4],
	}, nil
}

func parseDecimals(in ...string) ([]float64, error) {
	out := make([]float64, len(in))
	for i, s := range in {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга числа %q: %w", s, err)
		}
		out[i] = d.InexactFloat64()
	}
	return out, nil
}
