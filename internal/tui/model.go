// Package tui is the terminal front end of the forecast pipeline.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"demandcast/internal/present"
	"demandcast/internal/services"
	"demandcast/pkg/contracts/domain"
)

// Runner executes forecasts for the terminal
type Runner interface {
	RunForecast(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastReport, error)
	DefaultHorizon() int
	MaxHorizon() int
}

type field int

const (
	fieldItem field = iota
	fieldWeeks
	fieldCount
)

const (
	defaultWidth = 80
	chartHeight  = 12
	maxWeeksLen  = 3
)

type forecastDoneMsg struct {
	report *domain.ForecastReport
	err    error
}

// Model is the bubbletea model of the forecast screen
type Model struct {
	ctx    context.Context
	runner Runner

	item    string
	weeks   string
	focus   field
	running bool

	report *domain.ForecastReport
	errMsg string

	width int
}

// New creates the model with the weeks field at the runner's default
func New(ctx context.Context, runner Runner) Model {
	return Model{
		ctx:    ctx,
		runner: runner,
		weeks:  strconv.Itoa(runner.DefaultHorizon()),
		width:  defaultWidth,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case forecastDoneMsg:
		m.running = false
		if msg.err != nil {
			m.report = nil
			m.errMsg = services.UserMessage(msg.err)
			return m, nil
		}
		m.report = msg.report
		m.errMsg = ""
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "down":
		m.focus = (m.focus + 1) % fieldCount
		return m, nil
	case "shift+tab", "up":
		m.focus = (m.focus + fieldCount - 1) % fieldCount
		return m, nil
	case "enter":
		return m.submit()
	case "backspace":
		m.setValue(trimLastRune(m.value()))
		return m, nil
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		m.insert(msg.Runes)
	}
	return m, nil
}

func (m *Model) insert(runes []rune) {
	if m.focus == fieldWeeks {
		for _, r := range runes {
			if unicode.IsDigit(r) && len(m.weeks) < maxWeeksLen {
				m.weeks += string(r)
			}
		}
		return
	}
	m.item += string(runes)
}

func (m Model) value() string {
	if m.focus == fieldWeeks {
		return m.weeks
	}
	return m.item
}

func (m *Model) setValue(v string) {
	if m.focus == fieldWeeks {
		m.weeks = v
		return
	}
	m.item = v
}

// submit starts a forecast unless one is already running. The previous
// report is cleared either way.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}

	weeks, err := strconv.Atoi(m.weeks)
	if err != nil || weeks < domain.MinHorizonWeeks || weeks > m.runner.MaxHorizon() {
		m.errMsg = fmt.Sprintf("Number of weeks must be between %d and %d.", domain.MinHorizonWeeks, m.runner.MaxHorizon())
		m.report = nil
		return m, nil
	}

	m.running = true
	m.errMsg = ""
	m.report = nil
	req := domain.ForecastRequest{ItemID: m.item, Horizon: weeks}
	ctx, runner := m.ctx, m.runner
	return m, func() tea.Msg {
		report, err := runner.RunForecast(ctx, req)
		return forecastDoneMsg{report: report, err: err}
	}
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Demand Forecasting App"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Enter Stock Code and the Number of Weeks to Forecast"))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderField("Enter Stock Code:", m.item, fieldItem, 24),
		"  ",
		m.renderField("Number of Weeks to Forecast:", m.weeks, fieldWeeks, 8),
	))
	b.WriteString("\n")

	switch {
	case m.running:
		b.WriteString(statusStyle.Render("Forecasting..."))
	case m.errMsg != "":
		b.WriteString(errorStyle.Render(m.errMsg))
	}
	b.WriteString("\n")

	if m.report != nil {
		b.WriteString(sectionStyle.Render(headerStyle.Render(m.report.Chart.Title)))
		b.WriteString("\n")
		b.WriteString(present.RenderASCII(m.report.Result, m.width, chartHeight))
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(headerStyle.Render("Forecast Data:")))
		b.WriteString("\n")
		b.WriteString(renderTable(m.report.Table))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab: switch field • enter: forecast • esc: quit"))
	return b.String()
}

func (m Model) renderField(label, value string, f field, width int) string {
	style := inputStyle
	cursor := ""
	if m.focus == f {
		style = focusStyle
		cursor = "_"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render(label),
		style.Width(width).Render(value+cursor),
	)
}

func renderTable(t domain.ForecastTable) string {
	cols := t.Columns
	if len(cols) != 4 {
		cols = present.TableColumns
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-12s %12s %12s %12s", cols[0], cols[1], cols[2], cols[3])))
	b.WriteString("\n")
	for _, row := range t.Rows {
		fmt.Fprintf(&b, "%-12s %12.2f %12.2f %12.2f\n", row.Date, row.Yhat, row.YhatLower, row.YhatUpper)
	}
	return b.String()
}

func trimLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
