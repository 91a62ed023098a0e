package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/skalibog/smcbot/pkg/logger"
	"github.com/skalibog/smcbot/pkg/models"
)

// SQLiteStorage хранит историю анализа в SQLite
type SQLiteStorage struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStorage открывает (или создает) базу и применяет миграции
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка включения WAL: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка миграции: %w", err)
	}

	logger.Info("Открыто хранилище SQLite", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			timeframe   TEXT NOT NULL,
			price       REAL,
			bias        TEXT,
			trend       TEXT,
			action      TEXT,
			confidence  REAL,
			entry_low   REAL,
			entry_high  REAL,
			stop_loss   REAL,
			take_profit REAL,
			risk_reward REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_symbol_ts ON analyses(symbol, timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveAnalysis сохраняет запись анализа
func (s *SQLiteStorage) SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO analyses
		(id, timestamp, symbol, timeframe, price, bias, trend, action, confidence,
		 entry_low, entry_high, stop_loss, take_profit, risk_reward)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), rec.Symbol, rec.Timeframe, rec.Price,
		string(rec.Bias), string(rec.Trend), string(rec.Action), rec.Confidence,
		rec.EntryLow, rec.EntryHigh, rec.StopLoss, rec.TakeProfit, rec.RiskReward)
	if err != nil {
		return fmt.Errorf("ошибка записи анализа: %w", err)
	}
	return nil
}

// GetHistory возвращает последние записи по символу, новые первыми
func (s *SQLiteStorage) GetHistory(ctx context.Context, symbol string, limit int) ([]*models.AnalysisRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, symbol, timeframe, price, bias, trend, action,
		confidence, entry_low, entry_high, stop_loss, take_profit, risk_reward
		FROM analyses WHERE symbol = ? ORDER BY timestamp DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории анализов: %w", err)
	}
	defer rows.Close()

	var records []*models.AnalysisRecord
	for rows.Next() {
		var (
			rec                 models.AnalysisRecord
			ts                  int64
			bias, trend, action string
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Symbol, &rec.Timeframe, &rec.Price, &bias, &trend, &action,
			&rec.Confidence, &rec.EntryLow, &rec.EntryHigh, &rec.StopLoss, &rec.TakeProfit, &rec.RiskReward); err != nil {
			return nil, fmt.Errorf("ошибка чтения записи: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts).UTC()
		rec.Bias = models.Bias(bias)
		rec.Trend = models.Trend(trend)
		rec.Action = models.Action(action)
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Close закрывает базу
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
