// Package ui renders live build progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kiln/internal/buildpipeline"
)

type progressModel struct {
	title      string
	events     <-chan buildpipeline.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []unitItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type unitItem struct {
	key    string
	status buildpipeline.Status
	step   string
	pos    int
	total  int
	took   time.Duration // set when the unit finishes
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders one line per
// unit. Units not known up front are added when their first event
// arrives.
func NewProgressModel(title string, keys []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		index:   make(map[string]int, len(keys)),
		width:   80,
	}
	for _, key := range keys {
		m.item(key)
	}
	return m
}

func (m *progressModel) item(key string) *unitItem {
	idx, ok := m.index[key]
	if !ok {
		idx = len(m.items)
		m.items = append(m.items, unitItem{key: key, status: buildpipeline.StatusQueued})
		m.index[key] = idx
	}
	return &m.items[idx]
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(buildpipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth = 24
	nameWidth := max(m.width-statusWidth-4, 20)

	for _, it := range m.items {
		label := itemLabel(it)
		styled := styleStatus(it.status).Render(fmt.Sprintf("%*s", statusWidth, truncate(label, statusWidth)))
		name := truncate(it.key, nameWidth)
		if it.took > 0 {
			name += dimStyle.Render(" " + it.took.Round(time.Millisecond).String())
		}
		fmt.Fprintf(&b, "  %s %s\n", styled, name)
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.counts()))
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	if ev.Item == "" {
		m.stageLabel = stageLabel(ev.Stage, ev.Status)
		return nil
	}
	it := m.item(ev.Item)
	it.status = ev.Status
	if ev.Step != "" {
		it.step = ev.Step
	}
	if ev.Total > 0 {
		it.total = ev.Total
	}
	it.pos = max(it.pos, ev.Index)
	if isFinal(ev.Status) {
		it.took = ev.Elapsed
	}
	return m.prog.SetPercent(m.percent())
}

// percent is the share of plan steps completed over all units; finished
// units count as whole whatever they completed.
func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, it := range m.items {
		switch {
		case isFinal(it.status):
			total += 1.0
		case it.total > 0:
			total += float64(it.pos) / float64(it.total)
		}
	}
	return total / float64(len(m.items))
}

var dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

// counts is the footer: "2/5 done, 1 failed, 0 skipped".
func (m *progressModel) counts() string {
	var done, failed, skipped int
	for _, it := range m.items {
		switch it.status {
		case buildpipeline.StatusDone:
			done++
		case buildpipeline.StatusError:
			failed++
		case buildpipeline.StatusSkipped:
			skipped++
		}
	}
	return fmt.Sprintf("%d/%d done, %d failed, %d skipped", done, len(m.items), failed, skipped)
}

func isFinal(s buildpipeline.Status) bool {
	return s == buildpipeline.StatusDone || s == buildpipeline.StatusError || s == buildpipeline.StatusSkipped
}

func itemLabel(it unitItem) string {
	switch it.status {
	case buildpipeline.StatusWorking:
		if it.step == "" {
			return "starting"
		}
		return fmt.Sprintf("%s %d/%d", it.step, it.pos, it.total)
	case buildpipeline.StatusError:
		if it.step != "" {
			return "error@" + it.step
		}
	}
	return string(it.status)
}

func stageLabel(stage buildpipeline.Stage, status buildpipeline.Status) string {
	if status == buildpipeline.StatusError {
		return string(stage) + " failed"
	}
	switch stage {
	case buildpipeline.StageLoad:
		return "loading"
	case buildpipeline.StagePlan:
		return "planning"
	case buildpipeline.StageRun:
		if status == buildpipeline.StatusDone {
			return "finished"
		}
		return "running"
	case buildpipeline.StageEmit:
		return "writing"
	default:
		return ""
	}
}

func styleStatus(status buildpipeline.Status) lipgloss.Style {
	switch status {
	case buildpipeline.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case buildpipeline.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case buildpipeline.StatusSkipped:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case buildpipeline.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
