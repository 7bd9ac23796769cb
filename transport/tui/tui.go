package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/wricardo/grid-shooter/game/engine"
	"github.com/wricardo/grid-shooter/game/scheduler"
	"github.com/wricardo/grid-shooter/game/service"
)

const recentEvents = 8

// loopErrMsg reports that the scheduler stopped
type loopErrMsg struct{ err error }

// resetMsg carries the state after a reset
type resetMsg struct{ state *engine.GameState }

// Controller is what the model sends player input to
type Controller interface {
	Input(code string) bool
	Fire() bool
	Refresh() bool
}

type model struct {
	ctx       context.Context
	svc       service.GameService
	sessionID string
	control   Controller
	updates   chan *service.ActionResult
	loopErrs  chan error

	state  *engine.GameState
	grid   []string
	threat string
	recent []string
	err    error
}

func newModel(ctx context.Context, svc service.GameService, sessionID string, control Controller, updates chan *service.ActionResult, loopErrs chan error) model {
	return model{
		ctx:       ctx,
		svc:       svc,
		sessionID: sessionID,
		control:   control,
		updates:   updates,
		loopErrs:  loopErrs,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadState(), waitForUpdate(m.updates), waitForLoopErr(m.loopErrs))
}

func (m model) loadState() tea.Cmd {
	return func() tea.Msg {
		state, err := m.svc.GetGameState(m.ctx, m.sessionID)
		if err != nil {
			return loopErrMsg{err}
		}
		return resetMsg{state}
	}
}

func waitForUpdate(updates chan *service.ActionResult) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func waitForLoopErr(errs chan error) tea.Cmd {
	return func() tea.Msg {
		return loopErrMsg{<-errs}
	}
}

func (m model) reset() tea.Cmd {
	return func() tea.Msg {
		state, err := m.svc.Reset(m.ctx, m.sessionID)
		if err != nil {
			return loopErrMsg{err}
		}
		m.control.Refresh()
		return resetMsg{state}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.control.Input(string(engine.Up))
		case "down", "j":
			m.control.Input(string(engine.Down))
		case "left", "h":
			m.control.Input(string(engine.Left))
		case "right", "l":
			m.control.Input(string(engine.Right))
		case " ", "f":
			m.control.Fire()
		case "r":
			return m, m.reset()
		}
	case *service.ActionResult:
		m.apply(msg)
		return m, waitForUpdate(m.updates)
	case resetMsg:
		if msg.state == nil {
			return m, nil
		}
		m.state = msg.state
		if msg.state.Grid != nil {
			m.grid = msg.state.Grid.Render()
		}
		m.threat = engine.AnalyzeThreat(msg.state)
	case loopErrMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.err = msg.err
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *model) apply(result *service.ActionResult) {
	if result.GameState != nil {
		m.state = result.GameState
	}
	if len(result.Grid) > 0 {
		m.grid = result.Grid
	}
	m.threat = result.Threat
	for _, ev := range result.Events {
		line := fmt.Sprintf("%4d %-16s %s", ev.Tick, ev.Type, ev.To)
		m.recent = append([]string{line}, m.recent...)
	}
	if len(m.recent) > recentEvents {
		m.recent = m.recent[:recentEvents]
	}
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}
	if m.state == nil {
		return "Loading...\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session %s  %s\n\n", m.sessionID, m.state.ConfigName)
	for _, line := range m.grid {
		b.WriteString("  ")
		b.WriteString(strings.Join(strings.Split(line, ""), " "))
		b.WriteString("\n")
	}

	waves := fmt.Sprintf("%d", m.state.WavesSpawned)
	if m.state.Rules.EnemyWaves > 0 {
		waves = fmt.Sprintf("%d/%d", m.state.WavesSpawned, m.state.Rules.EnemyWaves)
	}
	fmt.Fprintf(&b, "\nScore: %d  Wave: %s  Bullet: %s\n", m.state.Score, waves, m.state.BulletState)
	if m.state.Message != "" {
		fmt.Fprintf(&b, "%s\n", m.state.Message)
	}
	if m.threat != "" {
		fmt.Fprintf(&b, "%s\n", m.threat)
	}
	if m.state.GameOver {
		if m.state.Victory {
			b.WriteString("\nVICTORY! Press r to play again.\n")
		} else {
			b.WriteString("\nGAME OVER. Press r to play again.\n")
		}
	}

	if len(m.recent) > 0 {
		b.WriteString("\nRecent events:\n")
		for _, line := range m.recent {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\narrows/hjkl move, space fires, r resets, q quits\n")
	return b.String()
}

// Run plays a session in the terminal until the player quits. A scheduler
// loop ticks the session in real time while the program renders its results.
func Run(ctx context.Context, svc service.GameService, sessionID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan *service.ActionResult, 64)
	loopErrs := make(chan error, 1)

	loop := scheduler.NewLoop(svc, sessionID, func(result *service.ActionResult) {
		select {
		case updates <- result:
		case <-ctx.Done():
		}
	})
	go func() {
		loopErrs <- loop.Run(ctx)
	}()

	p := tea.NewProgram(newModel(ctx, svc, sessionID, loop, updates, loopErrs), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if m, ok := final.(model); ok && m.err != nil {
		return m.err
	}
	return nil
}
