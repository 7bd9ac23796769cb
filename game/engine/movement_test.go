package engine

import (
	"reflect"
	"testing"
)

func TestValidateMovement_BoundsProperty(t *testing.T) {
	const rows, cols = 5, 4
	grid := NewGrid(rows, cols)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			for _, d := range Directions {
				player := NewEntity(KindPlayer, Position{X: x, Y: y})
				target := player.Pos.Add(d.Vector())
				got := ValidateMovement(d, player, grid)
				if want := InBounds(target, rows, cols); got != want {
					t.Errorf("Expected ValidateMovement(%s from %s) = %v, got %v", d, player.Pos, want, got)
				}
			}
		}
	}
}

func TestCheckMovement_EntryPolicy(t *testing.T) {
	tests := []struct {
		name     string
		kind     EntityKind
		occupant Symbol
		allowed  bool
		reason   string
	}{
		{"player onto empty", KindPlayer, Empty, true, ReasonOK},
		{"player onto wall", KindPlayer, Wall, false, ReasonWall},
		{"player onto enemy", KindPlayer, Enemy, false, ReasonContact},
		{"player onto bullet", KindPlayer, Bullet, false, ReasonOccupied},
		{"bullet onto enemy", KindBullet, Enemy, true, ReasonOK},
		{"bullet onto wall", KindBullet, Wall, false, ReasonWall},
		{"bullet onto player", KindBullet, Player, false, ReasonOccupied},
		{"enemy onto bullet", KindEnemy, Bullet, true, ReasonOK},
		{"enemy onto player", KindEnemy, Player, false, ReasonContact},
		{"enemy onto wall", KindEnemy, Wall, false, ReasonWall},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			grid := NewGrid(3, 3)
			grid.Set(Position{X: 1, Y: 0}, test.occupant)
			e := NewEntity(test.kind, Position{X: 1, Y: 1})

			check := CheckMovement(Up, e, grid)
			if check.Allowed != test.allowed {
				t.Errorf("Expected allowed=%v, got %v", test.allowed, check.Allowed)
			}
			if check.Reason != test.reason {
				t.Errorf("Expected reason %s, got %s", test.reason, check.Reason)
			}
		})
	}
}

func TestCheckMovement_Refusals(t *testing.T) {
	grid := NewGrid(3, 3)
	e := NewEntity(KindPlayer, Position{X: 0, Y: 0})

	if check := CheckMovement(Left, e, grid); check.Reason != ReasonBoundary {
		t.Errorf("Expected boundary refusal, got %s", check.Reason)
	}
	if check := CheckMovement(Direction("diagonal"), e, grid); check.Reason != ReasonInvalidDirection {
		t.Errorf("Expected invalid direction refusal, got %s", check.Reason)
	}
	e.Alive = false
	if check := CheckMovement(Right, e, grid); check.Reason != ReasonDeadEntity {
		t.Errorf("Expected dead entity refusal, got %s", check.Reason)
	}
	if !IsOccupied(Position{X: -1, Y: 0}, grid, KindPlayer) {
		t.Error("Expected off-grid cell to count as occupied")
	}
}

func TestHandleDirectionInput_MovesPlayerLeft(t *testing.T) {
	state := InitGame(5, 4)
	if !state.Player.Pos.Equal(Position{X: 2, Y: 4}) {
		t.Fatalf("Expected player spawn (2,4), got %s", state.Player.Pos)
	}

	if !state.HandleDirectionInput("left") {
		t.Fatal("Expected LEFT to succeed")
	}

	if !state.Player.Pos.Equal(Position{X: 1, Y: 4}) {
		t.Errorf("Expected player at (1,4), got %s", state.Player.Pos)
	}
	if !state.Player.PrevPos.Equal(Position{X: 2, Y: 4}) {
		t.Errorf("Expected previous position (2,4), got %s", state.Player.PrevPos)
	}
	cells := state.Grid.Snapshot()
	if cells[4][1] != Player {
		t.Errorf("Expected grid[4][1] = player, got %s", cells[4][1])
	}
	if cells[4][2] != Empty {
		t.Errorf("Expected grid[4][2] = empty, got %s", cells[4][2])
	}
	if n := state.Grid.Count(Player); n != 1 {
		t.Errorf("Expected exactly one player cell, got %d", n)
	}

	last := state.EventHistory[len(state.EventHistory)-1]
	if last.Type != EventMove || !last.From.Equal(Position{X: 2, Y: 4}) || !last.To.Equal(Position{X: 1, Y: 4}) {
		t.Errorf("Expected move event (2,4)->(1,4), got %+v", last)
	}
}

func TestHandleDirectionInput_KeyCodes(t *testing.T) {
	state := InitGame(5, 4)

	if !state.HandleDirectionInput("37") {
		t.Fatal("Expected key code 37 to move left")
	}
	if !state.HandleDirectionInput("8") {
		t.Fatal("Expected keypad code 8 to move up")
	}
	if !state.Player.Pos.Equal(Position{X: 1, Y: 3}) {
		t.Errorf("Expected player at (1,3), got %s", state.Player.Pos)
	}
}

func TestHandleDirectionInput_BlockedIsSilent(t *testing.T) {
	state := InitGame(5, 4)
	before := state.Grid.Snapshot()
	events := state.TotalEvents

	if state.HandleDirectionInput("down") {
		t.Fatal("Expected DOWN off the bottom row to fail")
	}
	if !reflect.DeepEqual(before, state.Grid.Snapshot()) {
		t.Error("Expected grid unchanged after blocked move")
	}
	if !state.Player.Pos.Equal(Position{X: 2, Y: 4}) {
		t.Errorf("Expected player to stay at (2,4), got %s", state.Player.Pos)
	}
	if state.TotalEvents != events+1 {
		t.Fatalf("Expected one blocked event, got %d new events", state.TotalEvents-events)
	}
	last := state.EventHistory[len(state.EventHistory)-1]
	if last.Type != EventBlocked || last.Reason != ReasonBoundary {
		t.Errorf("Expected blocked boundary event, got %+v", last)
	}

	// Unknown codes are dropped without an event
	if state.HandleDirectionInput("5") {
		t.Error("Expected unknown code to fail")
	}
	if state.TotalEvents != events+1 {
		t.Error("Expected no event for an unknown code")
	}
}

func TestHandleDirectionInput_Wall(t *testing.T) {
	config := DefaultGameConfig()
	config.Layout = []string{"____", "____", "____", "____", "_#__"}
	state := InitGameStateFromConfig(config)

	if state.HandleDirectionInput("left") {
		t.Fatal("Expected LEFT into a wall to fail")
	}
	last := state.EventHistory[len(state.EventHistory)-1]
	if last.Reason != ReasonWall {
		t.Errorf("Expected blocked_wall, got %s", last.Reason)
	}
	if state.Grid.Get(Position{X: 1, Y: 4}) != Wall {
		t.Error("Expected wall to remain")
	}
}

func TestHandleDirectionInput_PlayerContact(t *testing.T) {
	state := InitGame(3, 3) // player (1,2), enemy (1,0)

	if !state.HandleDirectionInput("up") {
		t.Fatal("Expected first UP to succeed")
	}
	if state.HandleDirectionInput("up") {
		t.Fatal("Expected UP into the enemy to be refused")
	}

	last := state.EventHistory[len(state.EventHistory)-1]
	if last.Type != EventPlayerContact {
		t.Errorf("Expected player_contact event, got %s", last.Type)
	}
	if state.GameOver {
		t.Error("Expected contact not to end the game by default")
	}
	if state.Grid.Get(Position{X: 1, Y: 0}) != Enemy || state.Grid.Get(Position{X: 1, Y: 1}) != Player {
		t.Error("Expected both entities to keep their cells")
	}
}

func TestPossibleMoves(t *testing.T) {
	state := InitGame(5, 4)
	moves := state.PossibleMoves()
	expected := []string{"up", "left", "right"}
	if !reflect.DeepEqual(moves, expected) {
		t.Errorf("Expected %v, got %v", expected, moves)
	}
	if state.CanMove("down") {
		t.Error("Expected DOWN to be impossible from the bottom row")
	}
	if state.CanMove("bogus") {
		t.Error("Expected unknown direction to be impossible")
	}
}
