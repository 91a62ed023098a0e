package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/skalibog/smcbot/pkg/logger"
	"github.com/skalibog/smcbot/pkg/models"
)

// Runner выполняет анализ набора символов
type Runner interface {
	AnalyzeAll(ctx context.Context, symbols []string, timeframe string) map[string]*models.AnalysisResult
}

// Sink получает результаты каждого прогона
type Sink interface {
	UpdateResults(results map[string]*models.AnalysisResult)
}

// Scheduler периодически запускает анализ по cron-расписанию
type Scheduler struct {
	cron      *cron.Cron
	runner    Runner
	sink      Sink
	symbols   []string
	timeframe string
	ctx       context.Context

	// прогоны не перекрываются
	mu sync.Mutex
}

// NewScheduler создает планировщик. sink может быть nil.
func NewScheduler(ctx context.Context, runner Runner, sink Sink, symbols []string, timeframe string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		runner:    runner,
		sink:      sink,
		symbols:   symbols,
		timeframe: timeframe,
		ctx:       ctx,
	}
}

// Register добавляет задачу анализа с указанным расписанием
func (s *Scheduler) Register(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.RunNow); err != nil {
		return fmt.Errorf("ошибка регистрации задачи анализа %q: %w", schedule, err)
	}
	return nil
}

// Start запускает планировщик
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Планировщик запущен",
		zap.Strings("symbols", s.symbols),
		zap.String("timeframe", s.timeframe))
}

// Stop останавливает планировщик и дожидается текущего прогона
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Планировщик остановлен")
}

// RunNow выполняет один прогон анализа немедленно
func (s *Scheduler) RunNow() {
	if s.ctx.Err() != nil {
		return
	}
	if !s.mu.TryLock() {
		logger.Warn("Предыдущий прогон анализа еще выполняется, пропуск")
		return
	}
	defer s.mu.Unlock()

	results := s.runner.AnalyzeAll(s.ctx, s.symbols, s.timeframe)
	logger.Info("Прогон анализа завершен",
		zap.Int("analyzed", len(results)),
		zap.Int("total", len(s.symbols)))

	if s.sink != nil && len(results) > 0 {
		s.sink.UpdateResults(results)
	}
}
