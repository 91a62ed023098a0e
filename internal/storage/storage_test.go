package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

func buyResult() *models.AnalysisResult {
	stop, target, rr := 98.5, 104.5, 3.0
	return &models.AnalysisResult{
		Symbol:       "BTCUSDT",
		Timeframe:    "4h",
		CurrentPrice: 100,
		Bias:         models.BiasBullish,
		Structure:    models.MarketStructure{Trend: models.TrendUp},
		Signal: models.Signal{
			Action:     models.ActionBuy,
			Confidence: 80,
			EntryZone:  &models.PriceZone{Low: 99.9, High: 100.1},
			StopLoss:   &stop,
			TakeProfit: &target,
			RiskReward: &rr,
		},
	}
}

func TestNewRecord(t *testing.T) {
	ts := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	rec := NewRecord(buyResult(), ts)

	if rec.ID == "" {
		t.Error("у записи должен быть идентификатор")
	}
	if rec.Action != models.ActionBuy || rec.Trend != models.TrendUp || rec.Bias != models.BiasBullish {
		t.Errorf("неверные поля записи: %+v", rec)
	}
	if rec.EntryLow != 99.9 || rec.StopLoss != 98.5 || rec.TakeProfit != 104.5 || rec.RiskReward != 3 {
		t.Errorf("неверные уровни: %+v", rec)
	}

	wait := NewRecord(&models.AnalysisResult{Symbol: "X", Signal: models.Signal{Action: models.ActionWait}}, ts)
	if wait.StopLoss != 0 || wait.EntryHigh != 0 {
		t.Errorf("у WAIT уровни должны быть нулевыми: %+v", wait)
	}
	if wait.ID == rec.ID {
		t.Error("идентификаторы записей должны различаться")
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	r, err := New(config.StorageConfig{Type: config.StorageNone})
	if err != nil {
		t.Fatalf("New(none): %v", err)
	}
	if _, ok := r.(*NoopStorage); !ok {
		t.Errorf("ожидался NoopStorage, получено %T", r)
	}

	if _, err := New(config.StorageConfig{Type: "mongo"}); err == nil {
		t.Error("неизвестный тип должен давать ошибку")
	}
}

func TestSQLiteStorage_SaveAndHistory(t *testing.T) {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := NewRecord(buyResult(), base.Add(time.Duration(i)*time.Hour))
		rec.Price = 100 + float64(i)
		if err := s.SaveAnalysis(ctx, rec); err != nil {
			t.Fatalf("SaveAnalysis: %v", err)
		}
	}
	other := NewRecord(buyResult(), base)
	other.Symbol = "ETHUSDT"
	if err := s.SaveAnalysis(ctx, other); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	history, err := s.GetHistory(ctx, "BTCUSDT", 2)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("записей = %d, ожидалось 2", len(history))
	}
	if history[0].Price != 102 || history[1].Price != 101 {
		t.Errorf("ожидался порядок от новых к старым: %v, %v", history[0].Price, history[1].Price)
	}
	if !history[0].Timestamp.Equal(base.Add(2*time.Hour)) {
		t.Errorf("timestamp = %v", history[0].Timestamp)
	}
	if history[0].Action != models.ActionBuy || history[0].RiskReward != 3 {
		t.Errorf("неверная запись: %+v", history[0])
	}
}

func TestNoopStorage(t *testing.T) {
	s := NewNoopStorage()
	if err := s.SaveAnalysis(context.Background(), &models.AnalysisRecord{}); err != nil {
		t.Fatal(err)
	}
	if h, err := s.GetHistory(context.Background(), "X", 10); err != nil || len(h) != 0 {
		t.Errorf("GetHistory = %v, %v", h, err)
	}
}

func TestAnalysisPoint(t *testing.T) {
	rec := NewRecord(buyResult(), time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	p := analysisPoint(rec)

	if p.Name() != "analyses" {
		t.Errorf("measurement = %q", p.Name())
	}
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["symbol"] != "BTCUSDT" || tags["timeframe"] != "4h" {
		t.Errorf("теги = %v", tags)
	}
	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["action"] != "BUY" || fields["risk_reward"] != 3.0 || fields["id"] != rec.ID {
		t.Errorf("поля = %v", fields)
	}
}

func TestHistoryQuery(t *testing.T) {
	q := historyQuery("smc", "BTCUSDT", 7)

	for _, want := range []string{`range(start: 0)`, `r.symbol == "BTCUSDT"`, `from(bucket: "smc")`, `limit(n: 7)`} {
		if !strings.Contains(q, want) {
			t.Errorf("в запросе нет %s:\n%s", want, q)
		}
	}
	if strings.Contains(q, "-30d") {
		t.Error("история не должна ограничиваться окном в 30 дней")
	}
}
