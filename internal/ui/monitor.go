package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/anisync/internal/tasks"
)

const pollInterval = 5 * time.Second

type statusMsg tasks.StateSnapshot

type errMsg struct{ err error }

type tickMsg time.Time

type triggeredMsg struct{ accepted bool }

// Model is the bubbletea model for the live status monitor. It polls the
// dashboard's status endpoint and renders the engine's run state.
type Model struct {
	ctx     context.Context
	client  *http.Client
	baseURL string
	spinner spinner.Model
	state   tasks.StateSnapshot
	fetched bool
	err     error
	notice  string
	help    help.Model
	keys    keyMap
}

// NewModel creates a monitor pointed at a running dashboard.
func NewModel(ctx context.Context, baseURL string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title

	return Model{
		ctx:     ctx,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		spinner: sp,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchStatus, tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// fetchStatus polls GET /api/status.
func (m Model) fetchStatus() tea.Msg {
	req, err := http.NewRequestWithContext(m.ctx, http.MethodGet, m.baseURL+"/api/status", nil)
	if err != nil {
		return errMsg{err}
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return errMsg{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errMsg{fmt.Errorf("status endpoint returned %d", resp.StatusCode)}
	}

	var snapshot tasks.StateSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return errMsg{err}
	}
	return statusMsg(snapshot)
}

// triggerSync posts to the manual trigger endpoint.
func (m Model) triggerSync() tea.Msg {
	req, err := http.NewRequestWithContext(m.ctx, http.MethodPost, m.baseURL+"/api/sync", nil)
	if err != nil {
		return errMsg{err}
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return errMsg{err}
	}
	defer resp.Body.Close()

	var body struct {
		Triggered bool `json:"triggered"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errMsg{err}
	}
	return triggeredMsg{accepted: body.Triggered}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.sync):
			return m, m.triggerSync
		case key.Matches(msg, m.keys.refresh):
			return m, m.fetchStatus
		}
	case tickMsg:
		return m, tea.Batch(m.fetchStatus, tick())
	case statusMsg:
		m.state = tasks.StateSnapshot(msg)
		m.fetched = true
		m.err = nil
		return m, nil
	case triggeredMsg:
		if msg.accepted {
			m.notice = "sync triggered"
		} else {
			m.notice = "sync already pending"
		}
		return m, m.fetchStatus
	case errMsg:
		m.err = msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("anisync monitor"))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}

	if !m.fetched {
		b.WriteString(fmt.Sprintf("%s connecting to %s\n", m.spinner.View(), m.baseURL))
		b.WriteString("\n" + m.help.View(m.keys))
		return b.String()
	}

	phase := m.state.Phase
	if phase == "idle" || phase == "sleeping" {
		b.WriteString(fmt.Sprintf("phase: %s\n", styles.ok.Render(phase)))
	} else {
		b.WriteString(fmt.Sprintf("%s phase: %s\n", m.spinner.View(), styles.warn.Render(phase)))
	}

	if !m.state.ConfigValid {
		b.WriteString(styles.err.Render("configuration invalid, sync paused") + "\n")
	}

	b.WriteString(fmt.Sprintf("cycles: %d\n", m.state.CycleCount))
	if !m.state.LastSyncAt.IsZero() {
		b.WriteString(fmt.Sprintf("last sync: %s\n", m.state.LastSyncAt.Local().Format(time.RFC822)))
	}
	if !m.state.NextSyncAt.IsZero() {
		b.WriteString(fmt.Sprintf("next sync: %s\n", m.state.NextSyncAt.Local().Format(time.RFC822)))
	}

	if report := m.state.LastReport; report != nil {
		style := styles.ok
		if report.Outcome != "success" {
			style = styles.warn
		}
		b.WriteString(fmt.Sprintf("last cycle: %s\n", style.Render(report.Summary())))
		for _, entryErr := range report.Errors {
			b.WriteString(styles.err.Render(fmt.Sprintf("  %s: %s", entryErr.Title, entryErr.Message)) + "\n")
		}
	}

	if m.notice != "" {
		b.WriteString(styles.warn.Render(m.notice) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

// Run starts the monitor program and blocks until the user quits.
func Run(ctx context.Context, baseURL string) error {
	program := tea.NewProgram(NewModel(ctx, baseURL))
	_, err := program.Run()
	return err
}
