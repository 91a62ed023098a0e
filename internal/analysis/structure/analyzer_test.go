package structure

import (
	"testing"

	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/models"
)

func newAnalyzer() *Analyzer {
	return NewAnalyzer(config.DefaultAnalysis().Structure)
}

func ladder(n int, step float64) []*models.Candle {
	candles := make([]*models.Candle, n)
	for i := range candles {
		base := 100 + float64(i)*step
		candles[i] = &models.Candle{Open: base, Close: base + step/2, High: base + 2, Low: base}
	}
	return candles
}

func flat(n int) []*models.Candle {
	candles := make([]*models.Candle, n)
	for i := range candles {
		candles[i] = &models.Candle{Open: 100, Close: 100, High: 101, Low: 99}
	}
	return candles
}

func TestAnalyze_ShortSeriesIsSideways(t *testing.T) {
	for _, n := range []int{0, 1, 10, 19} {
		got := newAnalyzer().Analyze(ladder(n, 1))
		if got.Trend != models.TrendSideways || got.LastBreakOfStructure != nil || got.LastChangeOfCharacter != nil {
			t.Errorf("n=%d: ожидался SIDEWAYS без событий, получено %+v", n, got)
		}
	}
}

func TestAnalyze_Uptrend(t *testing.T) {
	got := newAnalyzer().Analyze(ladder(25, 1))
	if got.Trend != models.TrendUp {
		t.Fatalf("тренд = %s, ожидался UPTREND", got.Trend)
	}
	if got.LastBreakOfStructure == nil || got.LastBreakOfStructure.Label != LabelBullishBOS {
		t.Fatalf("ожидался бычий BOS, получено %+v", got.LastBreakOfStructure)
	}
	if got.LastBreakOfStructure.Price != 126 {
		t.Errorf("цена BOS = %v, ожидалось 126", got.LastBreakOfStructure.Price)
	}
	// последняя проверяемая свеча окна - 19-я в исходном ряду
	if got.LastChangeOfCharacter == nil || got.LastChangeOfCharacter.Label != LabelBullishCHoCH ||
		got.LastChangeOfCharacter.Price != 121 {
		t.Errorf("ожидался бычий CHoCH на 121, получено %+v", got.LastChangeOfCharacter)
	}
}

func TestAnalyze_Downtrend(t *testing.T) {
	got := newAnalyzer().Analyze(ladder(20, -1))
	if got.Trend != models.TrendDown {
		t.Fatalf("тренд = %s, ожидался DOWNTREND", got.Trend)
	}
	if got.LastBreakOfStructure == nil || got.LastBreakOfStructure.Direction != models.DirectionBearish {
		t.Errorf("ожидался медвежий BOS, получено %+v", got.LastBreakOfStructure)
	}
	if got.LastChangeOfCharacter == nil || got.LastChangeOfCharacter.Label != LabelBearishCHoCH {
		t.Errorf("ожидался медвежий CHoCH, получено %+v", got.LastChangeOfCharacter)
	}
}

func TestAnalyze_FlatIsSidewaysWithoutEvents(t *testing.T) {
	got := newAnalyzer().Analyze(flat(30))
	if got.Trend != models.TrendSideways || got.LastBreakOfStructure != nil || got.LastChangeOfCharacter != nil {
		t.Errorf("ожидался SIDEWAYS без событий, получено %+v", got)
	}
}

// Сохраняется последнее событие CHOCH, а полный список доступен через ChangesOfCharacter.
func TestAnalyze_LastChangeOfCharacterWins(t *testing.T) {
	candles := flat(20)
	candles[7] = &models.Candle{Open: 100, Close: 104, High: 105, Low: 99}
	candles[12] = &models.Candle{Open: 100, Close: 91, High: 101, Low: 90}

	a := newAnalyzer()
	events := a.ChangesOfCharacter(candles)
	if len(events) != 2 {
		t.Fatalf("ожидалось 2 события, получено %+v", events)
	}
	if events[0].Label != LabelBullishCHoCH || events[0].Price != 105 {
		t.Errorf("первое событие = %+v", events[0])
	}

	got := a.Analyze(candles)
	if got.LastChangeOfCharacter == nil || *got.LastChangeOfCharacter != events[len(events)-1] {
		t.Fatalf("последнее событие = %+v, ожидалось %+v", got.LastChangeOfCharacter, events[len(events)-1])
	}
	if got.LastChangeOfCharacter.Label != LabelBearishCHoCH || got.LastChangeOfCharacter.Price != 90 {
		t.Errorf("ожидался медвежий CHoCH на 90, получено %+v", got.LastChangeOfCharacter)
	}
}

func TestAnalyze_UsesOnlyRecentWindow(t *testing.T) {
	// ранний провал вне окна из 20 свечей не влияет на результат
	candles := flat(40)
	candles[5] = &models.Candle{Open: 100, Close: 80, High: 101, Low: 79}

	got := newAnalyzer().Analyze(candles)
	if got.Trend != models.TrendSideways || got.LastChangeOfCharacter != nil {
		t.Errorf("ожидался SIDEWAYS без событий, получено %+v", got)
	}
}
