package exchange

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/skalibog/smcbot/pkg/logger"
)

// Retrier ограничивает частоту запросов и повторяет неудачные вызовы
// с экспоненциальной задержкой
type Retrier struct {
	limiter    *rate.Limiter
	maxRetries int
	minDelay   time.Duration
	maxDelay   time.Duration
}

// NewRetrier создает новый Retrier
func NewRetrier(limiter *rate.Limiter, maxRetries int, minDelay, maxDelay time.Duration) *Retrier {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Retrier{
		limiter:    limiter,
		maxRetries: maxRetries,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
	}
}

// Do выполняет fn, повторяя попытку не более maxRetries раз.
// Ошибки API биржи (4xx, неверный символ) не повторяются.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := &backoff.Backoff{
		Min:    r.minDelay,
		Max:    r.maxDelay,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 0; ; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if common.IsAPIError(err) || attempt >= r.maxRetries || ctx.Err() != nil {
			return err
		}

		delay := b.Duration()
		logger.Warn("Повтор запроса к бирже",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
