package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"

	"github.com/skalibog/smcbot/pkg/models"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance  BinanceConfig  `yaml:"binance"`
	Trading  TradingConfig  `yaml:"trading"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
	UI       UIConfig       `yaml:"ui"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey            string  `yaml:"api_key"`
	APISecret         string  `yaml:"api_secret"`
	Testnet           bool    `yaml:"testnet"`
	Market            string  `yaml:"market"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxRetries        int     `yaml:"max_retries"`
	RetryMinMs        int     `yaml:"retry_min_ms"`
	RetryMaxMs        int     `yaml:"retry_max_ms"`
}

// TradingConfig содержит настройки инструментов
type TradingConfig struct {
	Symbols     []string `yaml:"symbols"`
	Timeframe   string   `yaml:"timeframe"`
	CandleLimit int      `yaml:"candle_limit"`
}

// AnalysisConfig содержит пороги аналитических модулей
type AnalysisConfig struct {
	Schedule   string           `yaml:"schedule"`
	Levels     LevelsConfig     `yaml:"levels"`
	OrderBlock OrderBlockConfig `yaml:"order_block"`
	FVG        FVGConfig        `yaml:"fvg"`
	Structure  StructureConfig  `yaml:"structure"`
	Bias       BiasConfig       `yaml:"bias"`
	Signal     SignalConfig     `yaml:"signal"`
	Indicators IndicatorsConfig `yaml:"indicators"`
}

// LevelsConfig настройки поиска уровней
type LevelsConfig struct {
	Lookback  int `yaml:"lookback"`
	MaxLevels int `yaml:"max_levels"`
}

// OrderBlockConfig настройки поиска ордер-блоков
type OrderBlockConfig struct {
	EdgeExclusion       int     `yaml:"edge_exclusion"`
	BodyWindow          int     `yaml:"body_window"`
	BodyMultiplier      float64 `yaml:"body_multiplier"`
	ConfirmationCandles int     `yaml:"confirmation_candles"`
	ConfirmationMove    float64 `yaml:"confirmation_move"`
	MaxBlocks           int     `yaml:"max_blocks"`
}

// FVGConfig настройки поиска FVG
type FVGConfig struct {
	MinATRFraction float64 `yaml:"min_atr_fraction"`
	MaxGaps        int     `yaml:"max_gaps"`
}

// StructureConfig настройки классификатора структуры
type StructureConfig struct {
	Window      int `yaml:"window"`
	SwingLength int `yaml:"swing_length"`
}

// BiasConfig настройки оценки направления старшего таймфрейма
type BiasConfig struct {
	Window int `yaml:"window"`
}

// SignalConfig настройки генератора сигналов
type SignalConfig struct {
	OrderBlockProximity float64 `yaml:"order_block_proximity"`
	OrderBlockBaseConf  float64 `yaml:"order_block_base_confidence"`
	OrderBlockConfStep  float64 `yaml:"order_block_confidence_step"`
	OrderBlockMaxConf   float64 `yaml:"order_block_max_confidence"`
	EntryBand           float64 `yaml:"entry_band"`
	OrderBlockStop      float64 `yaml:"order_block_stop"`
	OrderBlockTarget    float64 `yaml:"order_block_target"`
	OrderBlockRR        float64 `yaml:"order_block_risk_reward"`
	FVGConfidence       float64 `yaml:"fvg_confidence"`
	FVGStop             float64 `yaml:"fvg_stop"`
	FVGTarget           float64 `yaml:"fvg_target"`
	FVGRR               float64 `yaml:"fvg_risk_reward"`
	MinRiskReward       float64 `yaml:"min_risk_reward"`
}

// IndicatorsConfig периоды вспомогательных индикаторов
type IndicatorsConfig struct {
	RSIPeriod int `yaml:"rsi_period"`
	ATRPeriod int `yaml:"atr_period"`
	EMAFast   int `yaml:"ema_fast"`
	EMASlow   int `yaml:"ema_slow"`
}

// StorageConfig настройки хранения истории анализа
type StorageConfig struct {
	Type         string `yaml:"type"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
	SQLitePath   string `yaml:"sqlite_path"`
}

// CacheConfig настройки кэша свечей в Redis
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	JSONFile string `yaml:"json_file"`
}

// UIConfig настройки пользовательского интерфейса
type UIConfig struct {
	RefreshRate int `yaml:"refresh_rate_ms"`
}

// Типы хранилища
const (
	StorageInfluxDB = "influxdb"
	StorageSQLite   = "sqlite"
	StorageNone     = "none"
)

// Рынки Binance
const (
	MarketFutures = "futures"
	MarketSpot    = "spot"
)

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Binance: BinanceConfig{
			Market:            MarketFutures,
			RequestsPerSecond: 10,
			Burst:             20,
			MaxRetries:        3,
			RetryMinMs:        100,
			RetryMaxMs:        2000,
		},
		Trading: TradingConfig{
			Symbols:     []string{"BTCUSDT", "ETHUSDT"},
			Timeframe:   models.DefaultTimeframe,
			CandleLimit: 100,
		},
		Analysis: DefaultAnalysis(),
		Storage: StorageConfig{
			Type:       StorageNone,
			SQLitePath: "smcbot.db",
		},
		Cache: CacheConfig{
			Addr:       "localhost:6379",
			TTLSeconds: 60,
		},
		Log: LogConfig{
			Level:    "info",
			File:     "app.log",
			JSONFile: "app.json.log",
		},
		UI: UIConfig{
			RefreshRate: 1000,
		},
	}
}

// DefaultAnalysis возвращает стандартные пороги анализа
func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		Schedule: "*/5 * * * *",
		Levels: LevelsConfig{
			Lookback:  5,
			MaxLevels: 5,
		},
		OrderBlock: OrderBlockConfig{
			EdgeExclusion:       5,
			BodyWindow:          10,
			BodyMultiplier:      1.5,
			ConfirmationCandles: 3,
			ConfirmationMove:    0.02,
			MaxBlocks:           3,
		},
		FVG: FVGConfig{
			MinATRFraction: 0.1,
			MaxGaps:        3,
		},
		Structure: StructureConfig{
			Window:      20,
			SwingLength: 5,
		},
		Bias: BiasConfig{
			Window: 10,
		},
		Signal: SignalConfig{
			OrderBlockProximity: 0.002,
			OrderBlockBaseConf:  60,
			OrderBlockConfStep:  10,
			OrderBlockMaxConf:   90,
			EntryBand:           0.001,
			OrderBlockStop:      0.015,
			OrderBlockTarget:    0.045,
			OrderBlockRR:        3.0,
			FVGConfidence:       70,
			FVGStop:             0.01,
			FVGTarget:           0.06,
			FVGRR:               2.0,
			MinRiskReward:       2.0,
		},
		Indicators: IndicatorsConfig{
			RSIPeriod: 14,
			ATRPeriod: 14,
			EMAFast:   20,
			EMASlow:   50,
		},
	}
}

// Load загружает конфигурацию из файла и переменных окружения.
// Отсутствующий файл не является ошибкой: используются значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv переопределяет секреты и список символов из окружения
func applyEnv(cfg *Config) {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Binance.APISecret = v
	}
	if v := os.Getenv("INFLUX_TOKEN"); v != "" {
		cfg.Storage.Token = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("SMCBOT_SYMBOLS"); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		cfg.Trading.Symbols = symbols
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if !models.IsSupportedTimeframe(c.Trading.Timeframe) {
		return fmt.Errorf("неподдерживаемый таймфрейм: %q", c.Trading.Timeframe)
	}
	if c.Trading.CandleLimit < 1 {
		return fmt.Errorf("candle_limit должен быть положительным: %d", c.Trading.CandleLimit)
	}
	switch c.Binance.Market {
	case MarketFutures, MarketSpot:
	default:
		return fmt.Errorf("неизвестный рынок: %q", c.Binance.Market)
	}
	// лимитер с нулевым burst отклоняет любой запрос
	if c.Binance.RequestsPerSecond > 0 && c.Binance.Burst < 1 {
		return fmt.Errorf("burst должен быть не меньше 1 при requests_per_second %.2f: %d",
			c.Binance.RequestsPerSecond, c.Binance.Burst)
	}
	// нулевой TTL в Redis означает запись без срока жизни
	if c.Cache.Enabled && c.Cache.TTLSeconds < 1 {
		return fmt.Errorf("cache.ttl_seconds должен быть положительным: %d", c.Cache.TTLSeconds)
	}
	switch c.Storage.Type {
	case StorageInfluxDB, StorageSQLite, StorageNone:
	default:
		return fmt.Errorf("неизвестный тип хранилища: %q", c.Storage.Type)
	}
	return c.Analysis.Validate()
}

// Validate проверяет пороги анализа
func (a AnalysisConfig) Validate() error {
	if _, err := cron.ParseStandard(a.Schedule); err != nil {
		return fmt.Errorf("некорректное расписание %q: %w", a.Schedule, err)
	}
	switch {
	case a.Levels.Lookback < 1 || a.Levels.MaxLevels < 1:
		return fmt.Errorf("некорректные настройки уровней: %+v", a.Levels)
	case a.OrderBlock.EdgeExclusion < 1 || a.OrderBlock.BodyWindow < 1 || a.OrderBlock.ConfirmationCandles < 1:
		return fmt.Errorf("некорректные окна ордер-блоков: %+v", a.OrderBlock)
	case a.OrderBlock.ConfirmationCandles > a.OrderBlock.EdgeExclusion:
		return fmt.Errorf("confirmation_candles (%d) больше edge_exclusion (%d)",
			a.OrderBlock.ConfirmationCandles, a.OrderBlock.EdgeExclusion)
	case a.OrderBlock.BodyMultiplier <= 0 || a.OrderBlock.ConfirmationMove <= 0 || a.OrderBlock.MaxBlocks < 1:
		return fmt.Errorf("некорректные пороги ордер-блоков: %+v", a.OrderBlock)
	case a.FVG.MinATRFraction < 0 || a.FVG.MaxGaps < 1:
		return fmt.Errorf("некорректные настройки FVG: %+v", a.FVG)
	case a.Structure.Window < 2 || a.Structure.SwingLength < 1 || a.Structure.SwingLength*2 > a.Structure.Window:
		return fmt.Errorf("некорректные настройки структуры: %+v", a.Structure)
	case a.Bias.Window < 2:
		return fmt.Errorf("некорректное окно bias: %d", a.Bias.Window)
	case a.Signal.OrderBlockProximity <= 0:
		return fmt.Errorf("order_block_proximity должен быть положительным")
	case a.Signal.OrderBlockRR < a.Signal.MinRiskReward || a.Signal.FVGRR < a.Signal.MinRiskReward:
		return fmt.Errorf("risk/reward сигналов ниже минимума %.2f", a.Signal.MinRiskReward)
	case a.Signal.OrderBlockStop <= 0 || a.Signal.OrderBlockTarget <= 0 || a.Signal.FVGStop <= 0 || a.Signal.FVGTarget <= 0:
		return fmt.Errorf("стоп и цель сигналов должны быть положительными: %+v", a.Signal)
	}
	return a.Signal.validateRiskReward()
}

// rrTolerance допустимое расхождение заявленного и фактического risk/reward
const rrTolerance = 1e-6

// validateRiskReward сверяет заявленный risk/reward с расстояниями до стопа и цели.
// Для ордер-блока вход по текущей цене, поэтому отношение равно target/stop.
func (s SignalConfig) validateRiskReward() error {
	obRatio := s.OrderBlockTarget / s.OrderBlockStop
	if obRatio < s.MinRiskReward-rrTolerance {
		return fmt.Errorf("order_block_target/order_block_stop = %.4f ниже минимума %.2f", obRatio, s.MinRiskReward)
	}
	if math.Abs(obRatio-s.OrderBlockRR) > rrTolerance*math.Max(1, obRatio) {
		return fmt.Errorf("order_block_rr %.4f не совпадает с отношением цели к стопу %.4f", s.OrderBlockRR, obRatio)
	}
	if fvgRatio := s.FVGTarget / s.FVGStop; fvgRatio < s.MinRiskReward-rrTolerance {
		return fmt.Errorf("fvg_target/fvg_stop = %.4f ниже минимума %.2f", fvgRatio, s.MinRiskReward)
	}
	return nil
}
