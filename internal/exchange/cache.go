package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/logger"
	"github.com/skalibog/smcbot/pkg/models"
)

const cachePrefix = "smcbot:"

// CachedCandleFeed кэширует свечи в Redis поверх другого источника.
// Ошибки кэша не прерывают получение данных.
type CachedCandleFeed struct {
	next   CandleFeed
	client *redis.Client
	ttl    time.Duration
}

// NewCachedCandleFeed создает кэширующий источник свечей и проверяет соединение с Redis
func NewCachedCandleFeed(ctx context.Context, next CandleFeed, cfg config.CacheConfig) (*CachedCandleFeed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с Redis: %w", err)
	}

	return &CachedCandleFeed{
		next:   next,
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

// GetKlines возвращает свечи из кэша или из исходного источника
func (f *CachedCandleFeed) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	key := candleKey(symbol, interval, limit)

	data, err := f.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var candles []*models.Candle
		if err := json.Unmarshal(data, &candles); err == nil {
			logger.Debug("Свечи получены из кэша", zap.String("symbol", symbol), zap.String("interval", interval))
			return candles, nil
		}
		logger.Warn("Поврежденная запись кэша свечей", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		logger.Warn("Ошибка чтения кэша свечей", zap.String("key", key), zap.Error(err))
	}

	candles, err := f.next.GetKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(candles); err == nil {
		if err := f.client.Set(ctx, key, data, f.ttl).Err(); err != nil {
			logger.Warn("Ошибка записи кэша свечей", zap.String("key", key), zap.Error(err))
		}
	}

	return candles, nil
}

// Close закрывает соединение с Redis
func (f *CachedCandleFeed) Close() error {
	return f.client.Close()
}

func candleKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("%scandles:%s:%s:%d", cachePrefix, symbol, interval, limit)
}
