// internal/storage/influxdb.go
package storage

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

const analysisMeasurement = "analyses"

// InfluxDBStorage реализует интерфейс Recorder с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	return &InfluxDBStorage{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Organization),
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() error {
	s.client.Close()
	return nil
}

// SaveAnalysis сохраняет запись анализа
func (s *InfluxDBStorage) SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	if err := s.writeAPI.WritePoint(ctx, analysisPoint(rec)); err != nil {
		return fmt.Errorf("ошибка записи анализа: %w", err)
	}
	return nil
}

// analysisPoint создает точку для записи в InfluxDB
func analysisPoint(rec *models.AnalysisRecord) *write.Point {
	return influxdb2.NewPoint(
		analysisMeasurement,
		map[string]string{
			"symbol":    rec.Symbol,
			"timeframe": rec.Timeframe,
		},
		map[string]interface{}{
			"id":          rec.ID,
			"price":       rec.Price,
			"bias":        string(rec.Bias),
			"trend":       string(rec.Trend),
			"action":      string(rec.Action),
			"confidence":  rec.Confidence,
			"entry_low":   rec.EntryLow,
			"entry_high":  rec.EntryHigh,
			"stop_loss":   rec.StopLoss,
			"take_profit": rec.TakeProfit,
			"risk_reward": rec.RiskReward,
		},
		rec.Timestamp,
	)
}

// GetHistory получает историю анализов
func (s *InfluxDBStorage) GetHistory(ctx context.Context, symbol string, limit int) ([]*models.AnalysisRecord, error) {
	// Выполняем запрос
	result, err := s.queryAPI.Query(ctx, historyQuery(s.bucket, symbol, limit))
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории анализов: %w", err)
	}
	defer result.Close()

	// Обрабатываем результаты
	var records []*models.AnalysisRecord
	for result.Next() {
		record := result.Record()

		rec := &models.AnalysisRecord{
			Timestamp: record.Time(),
			Symbol:    symbol,
		}
		rec.ID, _ = record.ValueByKey("id").(string)
		rec.Timeframe, _ = record.ValueByKey("timeframe").(string)
		rec.Price, _ = record.ValueByKey("price").(float64)
		rec.Confidence, _ = record.ValueByKey("confidence").(float64)
		rec.EntryLow, _ = record.ValueByKey("entry_low").(float64)
		rec.EntryHigh, _ = record.ValueByKey("entry_high").(float64)
		rec.StopLoss, _ = record.ValueByKey("stop_loss").(float64)
		rec.TakeProfit, _ = record.ValueByKey("take_profit").(float64)
		rec.RiskReward, _ = record.ValueByKey("risk_reward").(float64)

		bias, _ := record.ValueByKey("bias").(string)
		trend, _ := record.ValueByKey("trend").(string)
		action, _ := record.ValueByKey("action").(string)
		rec.Bias = models.Bias(bias)
		rec.Trend = models.Trend(trend)
		rec.Action = models.Action(action)

		records = append(records, rec)
	}

	// Проверяем на ошибки при обработке результатов
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	return records, nil
}

// historyQuery формирует Flux-запрос последних записей символа.
// Окно не ограничено, как и у SQLite: глубину задает только limit.
func historyQuery(bucket, symbol string, limit int) string {
	return fmt.Sprintf(`
		from(bucket: %q)
			|> range(start: 0)
			|> filter(fn: (r) => r._measurement == %q)
			|> filter(fn: (r) => r.symbol == %q)
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> group()
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, bucket, analysisMeasurement, symbol, limit)
}
