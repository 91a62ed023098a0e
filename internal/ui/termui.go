package ui

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/skalibog/smcbot/internal/config"
	"github.com/skalibog/smcbot/pkg/logger"
	"github.com/skalibog/smcbot/pkg/models"
)

const maxLogLines = 50

// Стили UI
var (
	// Основные цвета
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")

	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1).
			Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(secondaryColor).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)

	ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// TermUI представляет терминальный интерфейс режима наблюдения
type TermUI struct {
	results       map[string]*models.AnalysisResult
	resultsMutex  sync.RWMutex
	logs          []string
	logsMutex     sync.RWMutex
	config        config.UIConfig
	logFile       string
	program       *tea.Program
	programMutex  sync.Mutex
	selectedIndex int
	showDetails   bool
	width         int
	height        int
}

// Сообщения для обновления UI
type refreshMsg struct{}

// bubbleModel - модель для bubbletea
type bubbleModel struct {
	ui *TermUI
}

// NewTermUI создает интерфейс. logFile - JSON-лог, хвост которого показывается в панели логов.
func NewTermUI(ctx context.Context, cfg config.UIConfig, logFile string) *TermUI {
	ui := &TermUI{
		results: make(map[string]*models.AnalysisResult),
		logs:    []string{"SMCBot запущен. Ожидание данных..."},
		config:  cfg,
		logFile: logFile,
		width:   120,
		height:  40,
	}

	if err := ui.loadLogsFromFile(); err != nil {
		ui.appendLog(fmt.Sprintf("Ошибка загрузки логов: %v", err))
	}

	refresh := time.Duration(cfg.RefreshRate) * time.Millisecond
	if refresh <= 0 {
		refresh = time.Second
	}

	// Периодически перечитываем логи
	go func() {
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := ui.loadLogsFromFile(); err != nil {
					logger.Warn("Ошибка загрузки логов", zap.Error(err))
					continue
				}
				ui.refresh()
			case <-ctx.Done():
				return
			}
		}
	}()

	return ui
}

// Start запускает UI и блокируется до выхода пользователя
func (ui *TermUI) Start() error {
	program := tea.NewProgram(bubbleModel{ui: ui}, tea.WithAltScreen())
	ui.programMutex.Lock()
	ui.program = program
	ui.programMutex.Unlock()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("ошибка запуска UI: %w", err)
	}
	return nil
}

// Quit завершает работу UI
func (ui *TermUI) Quit() {
	if p := ui.currentProgram(); p != nil {
		p.Quit()
	}
}

// UpdateResults заменяет отображаемые результаты анализа
func (ui *TermUI) UpdateResults(results map[string]*models.AnalysisResult) {
	ui.resultsMutex.Lock()
	ui.results = results
	ui.resultsMutex.Unlock()

	ui.refresh()
}

func (ui *TermUI) refresh() {
	if p := ui.currentProgram(); p != nil {
		p.Send(refreshMsg{})
	}
}

func (ui *TermUI) currentProgram() *tea.Program {
	ui.programMutex.Lock()
	defer ui.programMutex.Unlock()
	return ui.program
}

func (ui *TermUI) appendLog(line string) {
	ui.logsMutex.Lock()
	defer ui.logsMutex.Unlock()
	ui.logs = append(ui.logs, line)
	if len(ui.logs) > maxLogLines {
		ui.logs = ui.logs[len(ui.logs)-maxLogLines:]
	}
}

// loadLogsFromFile читает хвост JSON-лога
func (ui *TermUI) loadLogsFromFile() error {
	if ui.logFile == "" {
		return nil
	}
	file, err := os.Open(ui.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var logs []string
	for scanner.Scan() {
		logs = append(logs, FormatLogLine(scanner.Text()))
		if len(logs) > maxLogLines {
			logs = logs[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(logs) > 0 {
		ui.logsMutex.Lock()
		ui.logs = logs
		ui.logsMutex.Unlock()
	}
	return nil
}

// FormatLogLine превращает JSON-запись zap в строку "[время] [уровень] сообщение (поля)".
// Строки, не являющиеся JSON, возвращаются без изменений.
func FormatLogLine(line string) string {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line
	}

	level, _ := entry["level"].(string)
	ts, _ := entry["ts"].(string)
	msg, _ := entry["msg"].(string)
	level = ansiRegex.ReplaceAllString(level, "")

	timestamp := ""
	if t, err := time.Parse("02.01.2006 - 15:04:05.999999999Z07:00", ts); err == nil {
		timestamp = t.Format("15:04:05")
	}

	formatted := fmt.Sprintf("[%s] [%s] %s", timestamp, level, msg)

	keys := make([]string, 0, len(entry))
	for k := range entry {
		if k != "level" && k != "ts" && k != "msg" && k != "caller" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		formatted += fmt.Sprintf(" (%s: %v)", k, entry[k])
	}
	return formatted
}

// Методы для bubbletea
func (m bubbleModel) Init() tea.Cmd {
	return nil
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up":
			m.ui.selectedIndex = max(0, m.ui.selectedIndex-1)
		case "down":
			m.ui.resultsMutex.RLock()
			n := len(m.ui.results)
			m.ui.resultsMutex.RUnlock()
			m.ui.selectedIndex = max(0, min(n-1, m.ui.selectedIndex+1))
		case "enter":
			m.ui.showDetails = !m.ui.showDetails
		}

	case tea.WindowSizeMsg:
		m.ui.width = msg.Width
		m.ui.height = msg.Height

	case refreshMsg:
	}

	return m, nil
}

func (m bubbleModel) View() string {
	m.ui.resultsMutex.RLock()
	m.ui.logsMutex.RLock()
	defer m.ui.resultsMutex.RUnlock()
	defer m.ui.logsMutex.RUnlock()

	title := titleStyle.Render("SMCBot - Smart Money Concepts Analyzer")
	footer := footerStyle.Render("Клавиши: ↑/↓ - навигация, Enter - подробности, Q - выход")

	var body string
	symbols := SortedSymbols(m.ui.results)
	if m.ui.showDetails && m.ui.selectedIndex < len(symbols) {
		body = RenderResult(m.ui.results[symbols[m.ui.selectedIndex]])
	} else {
		body = renderSignalsSection(m.ui.results, m.ui.selectedIndex)
	}

	return appStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			"\n",
			renderLogsSection(m.ui.logs),
			"\n",
			footer,
		),
	)
}

func renderSignalsSection(results map[string]*models.AnalysisResult, selectedIndex int) string {
	header := headerStyle.Render("СИГНАЛЫ")
	content := strings.Builder{}

	symbols := SortedSymbols(results)
	if len(symbols) == 0 {
		content.WriteString("  Ожидание данных...\n")
	}
	for i, symbol := range symbols {
		line := "  " + SummaryLine(results[symbol])
		if i == selectedIndex {
			line = "> " + line[2:]
			line = lipgloss.NewStyle().Background(lipgloss.Color("#222222")).Render(line)
		}
		content.WriteString(line + "\n")
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content.String()))
}

func renderLogsSection(logs []string) string {
	header := headerStyle.Render("ЛОГИ")
	content := strings.Builder{}

	for _, line := range logs {
		switch {
		case strings.Contains(line, "[ERROR]"):
			line = lipgloss.NewStyle().Foreground(errorColor).Render(line)
		case strings.Contains(line, "[WARN]"):
			line = lipgloss.NewStyle().Foreground(warningColor).Render(line)
		case strings.Contains(line, "[INFO]"):
			line = lipgloss.NewStyle().Foreground(successColor).Render(line)
		case strings.Contains(line, "[DEBUG]"):
			line = lipgloss.NewStyle().Foreground(lipgloss.Color("#9999ff")).Render(line)
		}
		content.WriteString("  " + line + "\n")
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content.String()))
}

// SummaryLine - однострочная сводка по символу для списка сигналов
func SummaryLine(r *models.AnalysisResult) string {
	return fmt.Sprintf("%-10s %-4s %s (%.0f%%) Цена: %s Bias: %s Тренд: %s",
		r.Symbol,
		r.Timeframe,
		actionStyle(r.Signal.Action).Render(fmt.Sprintf("%-4s", r.Signal.Action)),
		r.Signal.Confidence,
		FormatPrice(r.CurrentPrice),
		r.Bias,
		r.Structure.Trend)
}

// SortedSymbols возвращает символы в алфавитном порядке для стабильной навигации
func SortedSymbols(results map[string]*models.AnalysisResult) []string {
	symbols := make([]string, 0, len(results))
	for symbol := range results {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
