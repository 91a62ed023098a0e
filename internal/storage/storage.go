package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

// Recorder интерфейс для хранения истории анализа
type Recorder interface {
	SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error
	GetHistory(ctx context.Context, symbol string, limit int) ([]*models.AnalysisRecord, error)
	Close() error
}

// New создает хранилище согласно конфигурации
func New(cfg config.StorageConfig) (Recorder, error) {
	switch cfg.Type {
	case config.StorageInfluxDB:
		return NewInfluxDBStorage(cfg)
	case config.StorageSQLite:
		return NewSQLiteStorage(cfg.SQLitePath)
	case config.StorageNone, "":
		return NewNoopStorage(), nil
	}
	return nil, fmt.Errorf("неизвестный тип хранилища: %q", cfg.Type)
}

// NewRecord формирует запись истории из результата анализа
func NewRecord(result *models.AnalysisResult, ts time.Time) *models.AnalysisRecord {
	rec := &models.AnalysisRecord{
		ID:         uuid.NewString(),
		Timestamp:  ts,
		Symbol:     result.Symbol,
		Timeframe:  result.Timeframe,
		Price:      result.CurrentPrice,
		Bias:       result.Bias,
		Trend:      result.Structure.Trend,
		Action:     result.Signal.Action,
		Confidence: result.Signal.Confidence,
	}

	sig := result.Signal
	if sig.EntryZone != nil {
		rec.EntryLow = sig.EntryZone.Low
		rec.EntryHigh = sig.EntryZone.High
	}
	if sig.StopLoss != nil {
		rec.StopLoss = *sig.StopLoss
	}
	if sig.TakeProfit != nil {
		rec.TakeProfit = *sig.TakeProfit
	}
	if sig.RiskReward != nil {
		rec.RiskReward = *sig.RiskReward
	}

	return rec
}
