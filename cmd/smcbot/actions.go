package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/internal/scheduler"
	"github.com/skalibog/smcbot/internal/ui"
	"github.com/skalibog/smcbot/pkg/logger"
	"github.com/skalibog/smcbot/pkg/models"
)

const defaultHistoryLimit = 20

// analysisService - то, что CLI использует от агрегатора
type analysisService interface {
	Analyze(ctx context.Context, symbol, timeframe string) (*models.AnalysisResult, error)
	AnalyzeAll(ctx context.Context, symbols []string, timeframe string) map[string]*models.AnalysisResult
	GetHistory(ctx context.Context, symbol string, limit int) ([]*models.AnalysisRecord, error)
}

// app связывает сервис анализа с выводом CLI
type app struct {
	cfg     *config.Config
	service analysisService
	out     io.Writer
	asJSON  bool

	// watch запускает интерактивный режим, подменяется в тестах
	watch func(ctx context.Context) error
}

func newApp(cfg *config.Config, service analysisService, out io.Writer, asJSON bool) *app {
	a := &app{cfg: cfg, service: service, out: out, asJSON: asJSON}
	a.watch = a.runWatch
	return a
}

// run выполняет действие, заданное аргументами командной строки
func (a *app) run(ctx context.Context, args []string) error {
	action := "watch"
	if len(args) > 0 {
		action = strings.ToLower(args[0])
		args = args[1:]
	}

	logger.Debug("Выполнение действия", zap.String("action", action), zap.Strings("args", args))

	switch action {
	case "analyze":
		return a.runAnalyze(ctx, args)
	case "history":
		return a.runHistory(ctx, args)
	case "watch":
		return a.watch(ctx)
	default:
		return &models.UnknownActionError{Action: action}
	}
}

func (a *app) runAnalyze(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return &models.InvalidInputError{Field: "symbol", Reason: "использование: analyze <SYMBOL> [timeframe]"}
	}
	timeframe := a.cfg.Trading.Timeframe
	if len(args) > 1 {
		timeframe = args[1]
	}

	result, err := a.service.Analyze(ctx, args[0], timeframe)
	if err != nil {
		return err
	}

	if a.asJSON {
		return a.writeJSON(result)
	}
	_, err = fmt.Fprintln(a.out, ui.RenderResult(result))
	return err
}

func (a *app) runHistory(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return &models.InvalidInputError{Field: "symbol", Reason: "использование: history <SYMBOL> [limit]"}
	}
	limit := defaultHistoryLimit
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return &models.InvalidInputError{Field: "limit", Reason: "ожидается положительное число: " + args[1]}
		}
		limit = n
	}

	symbol := strings.ToUpper(args[0])
	records, err := a.service.GetHistory(ctx, symbol, limit)
	if err != nil {
		return fmt.Errorf("ошибка получения истории: %w", err)
	}

	if a.asJSON {
		return a.writeJSON(records)
	}
	_, err = fmt.Fprint(a.out, ui.RenderHistory(symbol, records))
	return err
}

// runWatch запускает периодический анализ и терминальный интерфейс
func (a *app) runWatch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	termUI := ui.NewTermUI(ctx, a.cfg.UI, a.cfg.Log.JSONFile)

	sched := scheduler.NewScheduler(ctx, a.service, termUI, a.cfg.Trading.Symbols, a.cfg.Trading.Timeframe)
	if err := sched.Register(a.cfg.Analysis.Schedule); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		cancel()
		sched.Stop()
	}()

	// Первый прогон сразу, не дожидаясь расписания
	go sched.RunNow()

	go func() {
		<-ctx.Done()
		termUI.Quit()
	}()

	return termUI.Start()
}

func (a *app) writeJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
