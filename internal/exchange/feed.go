package exchange

import (
	"context"

	"github.com/skalibog/smcbot/pkg/models"
)

// PriceFeed источник текущей цены и 24-часовой статистики
type PriceFeed interface {
	GetTicker(ctx context.Context, symbol string) (*models.Ticker, error)
}

// CandleFeed источник исторических свечей, упорядоченных по времени
type CandleFeed interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error)
}
