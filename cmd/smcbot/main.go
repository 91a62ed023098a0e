package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/skalibog/smcbot/internal/analysis/aggregator"
	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/internal/exchange"
	"github.com/skalibog/smcbot/internal/storage"
	"github.com/skalibog/smcbot/pkg/logger"
	"github.com/skalibog/smcbot/pkg/models"
)

func main() {
	os.Exit(execute())
}

// execute выполняет команду и возвращает код завершения
func execute() int {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	asJSON := flag.Bool("json", false, "вывод результата в формате JSON")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Использование: %s [флаги] analyze <SYMBOL> [timeframe] | history <SYMBOL> [limit] | watch\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		return 1
	}

	if err := logger.Init(logger.Options{
		Level:    cfg.Log.Level,
		File:     cfg.Log.File,
		JSONFile: cfg.Log.JSONFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем хранилище
	store, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
	}
	defer store.Close()

	// Инициализируем клиент биржи
	client, err := exchange.NewBinanceClient(cfg.Binance)
	if err != nil {
		logger.Fatal("Ошибка инициализации клиента биржи", zap.Error(err))
	}

	var candles exchange.CandleFeed = client
	if cfg.Cache.Enabled {
		cached, err := exchange.NewCachedCandleFeed(ctx, client, cfg.Cache)
		if err != nil {
			logger.Warn("Кэш свечей недоступен, работаем без него", zap.Error(err))
		} else {
			defer cached.Close()
			candles = cached
		}
	}

	// Создаем агрегатор аналитики
	analyzer := aggregator.NewAnalyzer(cfg.Analysis, client, candles, store, cfg.Trading.CandleLimit)

	if err := newApp(cfg, analyzer, os.Stdout, *asJSON).run(ctx, flag.Args()); err != nil {
		logger.Error("Ошибка выполнения", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)

		var unknown *models.UnknownActionError
		if errors.As(err, &unknown) {
			flag.Usage()
			return 2
		}
		return 1
	}
	return 0
}
