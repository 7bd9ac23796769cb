package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/wricardo/grid-shooter/game/config"
	"github.com/wricardo/grid-shooter/game/service"
	"github.com/wricardo/grid-shooter/game/session"
)

type fakeController struct {
	inputs    []string
	fires     int
	refreshes int
}

func (f *fakeController) Input(code string) bool { f.inputs = append(f.inputs, code); return true }
func (f *fakeController) Fire() bool             { f.fires++; return true }
func (f *fakeController) Refresh() bool          { f.refreshes++; return true }

func setupModel(t *testing.T) (model, *fakeController, service.GameService, string) {
	t.Helper()
	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	svc := service.NewGameService(session.NewManager(), configManager)
	info, err := svc.CreateSession(context.Background(), "classic")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	control := &fakeController{}
	m := newModel(context.Background(), svc, info.ID, control, make(chan *service.ActionResult, 1), make(chan error, 1))

	next, _ := m.Update(m.loadState()())
	return next.(model), control, svc, info.ID
}

func TestModel_InitialView(t *testing.T) {
	m, _, _, _ := setupModel(t)

	view := m.View()
	for _, want := range []string{"_ _ V _", "_ _ @ _", "Score: 0", "Bullet: idle"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected %q in view, got:\n%s", want, view)
		}
	}
}

func TestModel_Keys(t *testing.T) {
	tests := []struct {
		name   string
		key    tea.KeyMsg
		inputs []string
		fires  int
	}{
		{"arrow left", tea.KeyMsg{Type: tea.KeyLeft}, []string{"left"}, 0},
		{"arrow up", tea.KeyMsg{Type: tea.KeyUp}, []string{"up"}, 0},
		{"vim right", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}}, []string{"right"}, 0},
		{"space fires", tea.KeyMsg{Type: tea.KeySpace}, nil, 1},
		{"f fires", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}}, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, control, _, _ := setupModel(t)
			m.Update(tt.key)

			if strings.Join(control.inputs, ",") != strings.Join(tt.inputs, ",") {
				t.Errorf("Expected inputs %v, got %v", tt.inputs, control.inputs)
			}
			if control.fires != tt.fires {
				t.Errorf("Expected %d fires, got %d", tt.fires, control.fires)
			}
		})
	}
}

func TestModel_Quit(t *testing.T) {
	m, _, _, _ := setupModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestModel_AppliesResults(t *testing.T) {
	m, _, svc, id := setupModel(t)

	result, err := svc.Fire(context.Background(), id)
	if err != nil {
		t.Fatalf("Fire failed: %v", err)
	}
	next, cmd := m.Update(result)
	m = next.(model)

	if cmd == nil {
		t.Error("Expected the model to keep waiting for updates")
	}
	view := m.View()
	if !strings.Contains(view, "bullet_fired") {
		t.Errorf("Expected bullet_fired in recent events, got:\n%s", view)
	}
	if !strings.Contains(view, "_ _ | _") {
		t.Errorf("Expected the bullet on the board, got:\n%s", view)
	}
}

func TestModel_Reset(t *testing.T) {
	m, control, svc, id := setupModel(t)
	svc.Input(context.Background(), id, "left")

	next, _ := m.Update(m.reset()())
	m = next.(model)

	if control.refreshes != 1 {
		t.Errorf("Expected the loop to be refreshed once, got %d", control.refreshes)
	}
	if m.state.Player.Pos.X != 2 {
		t.Errorf("Expected player back at x=2, got %d", m.state.Player.Pos.X)
	}
}

func TestModel_LoopError(t *testing.T) {
	m, _, _, _ := setupModel(t)

	next, cmd := m.Update(loopErrMsg{errors.New("session gone")})
	m = next.(model)
	if cmd == nil {
		t.Error("Expected quit after a loop error")
	}
	if !strings.Contains(m.View(), "session gone") {
		t.Errorf("Expected error in view, got %s", m.View())
	}

	m.err = nil
	_, cmd = m.Update(loopErrMsg{context.Canceled})
	if cmd != nil {
		t.Error("Expected cancellation to be ignored")
	}
}
