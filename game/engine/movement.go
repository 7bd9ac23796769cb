package engine

import (
	"fmt"
	"time"
)

// Move check reasons
const (
	ReasonOK               = "ok"
	ReasonBoundary         = "blocked_boundary"
	ReasonWall             = "blocked_wall"
	ReasonOccupied         = "blocked_occupied"
	ReasonContact          = "player_contact"
	ReasonInvalidDirection = "invalid_direction"
	ReasonDeadEntity       = "dead_entity"
)

// MoveCheck is the validator's verdict for one candidate move
type MoveCheck struct {
	Allowed bool     `json:"allowed"`
	Target  Position `json:"target"`
	Blocker Symbol   `json:"blocker,omitempty"`
	Reason  string   `json:"reason"`
}

// InBounds reports whether p lies within [0,cols) x [0,rows)
func InBounds(p Position, rows, cols int) bool {
	return p.X >= 0 && p.X < cols && p.Y >= 0 && p.Y < rows
}

// canEnter is the entry policy: which symbols each kind may move onto.
// Bullets may enter the enemy and enemies may enter the bullet; the shared
// cell is resolved as a collision after the tick.
func canEnter(kind EntityKind, s Symbol) bool {
	switch s {
	case Empty:
		return true
	case Enemy:
		return kind == KindBullet
	case Bullet:
		return kind == KindEnemy
	}
	return false
}

// isContact reports a player/enemy meeting
func isContact(kind EntityKind, s Symbol) bool {
	return (kind == KindPlayer && s == Enemy) || (kind == KindEnemy && s == Player)
}

// IsOccupied reports whether the cell at p holds something the kind may not enter.
// Positions off the grid count as occupied.
func IsOccupied(p Position, grid *Grid, kind EntityKind) bool {
	if !grid.InBounds(p) {
		return true
	}
	return !canEnter(kind, grid.Get(p))
}

// ValidateMovement checks bounds and occupancy against the committed grid
func ValidateMovement(direction Direction, e *Entity, grid *Grid) bool {
	return CheckMovement(direction, e, grid).Allowed
}

// CheckMovement is ValidateMovement with the reason for a refusal
func CheckMovement(direction Direction, e *Entity, grid *Grid) MoveCheck {
	if e == nil || !e.Alive {
		return MoveCheck{Reason: ReasonDeadEntity}
	}
	if !direction.Valid() {
		return MoveCheck{Target: e.Pos, Reason: ReasonInvalidDirection}
	}

	target := e.Pos.Add(direction.Vector())
	if !grid.InBounds(target) {
		return MoveCheck{Target: target, Reason: ReasonBoundary}
	}

	blocker := grid.Get(target)
	if !IsOccupied(target, grid, e.Kind) {
		return MoveCheck{Allowed: true, Target: target, Blocker: blocker, Reason: ReasonOK}
	}

	reason := ReasonOccupied
	switch {
	case blocker == Wall:
		reason = ReasonWall
	case isContact(e.Kind, blocker):
		reason = ReasonContact
	}
	return MoveCheck{Target: target, Blocker: blocker, Reason: reason}
}

// Advance validates and, when legal, commits one step for the entity:
// cache the old position, accelerate, clear the old cell, stamp the new one.
// A refused move leaves the state untouched.
func (gs *GameState) Advance(e *Entity, direction Direction) MoveCheck {
	check := CheckMovement(direction, e, gs.Grid)
	if !check.Allowed {
		return check
	}

	e.CacheOldPos()
	e.Accelerate(direction.Vector())
	gs.Grid.Clear(e.PrevPos, gs.liveEntities()...)
	gs.Grid.Set(e.Pos, e.Symbol())
	return check
}

// HandleDirectionInput moves the player for a direction name or key code.
// Unknown codes and illegal moves are ignored.
func (gs *GameState) HandleDirectionInput(code string) bool {
	if gs.GameOver {
		return false
	}
	direction, ok := ParseDirection(code)
	if !ok {
		return false
	}

	from := gs.Player.Pos
	check := gs.Advance(&gs.Player, direction)
	if check.Allowed {
		gs.Message = fmt.Sprintf("Moved %s to %s", direction, gs.Player.Pos)
		gs.recordEvent(GameEvent{Type: EventMove, Kind: KindPlayer, From: from, To: gs.Player.Pos})
		gs.mustHoldInvariants()
		return true
	}

	if check.Reason == ReasonContact {
		gs.playerContact(KindPlayer, from, check.Target)
	} else {
		gs.Message = fmt.Sprintf("Can't move %s: %s at %s", direction, describeBlocker(check), check.Target)
		if gs.Rules.Messages.Blocked != "" {
			gs.Message = gs.Rules.Messages.Blocked + fmt.Sprintf(" [Blocked by: %s]", describeBlocker(check))
		}
		gs.recordEvent(GameEvent{Type: EventBlocked, Kind: KindPlayer, From: from, To: check.Target, Reason: check.Reason})
	}
	gs.mustHoldInvariants()
	return false
}

// CanMove checks whether the player could move in the named direction
func (gs *GameState) CanMove(direction string) bool {
	if gs.GameOver {
		return false
	}
	d, ok := ParseDirection(direction)
	if !ok {
		return false
	}
	return ValidateMovement(d, &gs.Player, gs.Grid)
}

// PossibleMoves returns every direction the player may currently take
func (gs *GameState) PossibleMoves() []string {
	var possible []string
	for _, d := range Directions {
		if gs.CanMove(string(d)) {
			possible = append(possible, string(d))
		}
	}
	return possible
}

func describeBlocker(check MoveCheck) string {
	if check.Reason == ReasonBoundary {
		return "boundary"
	}
	return string(check.Blocker)
}

// recordEvent appends to both the cumulative and the current-segment logs
func (gs *GameState) recordEvent(ev GameEvent) {
	ev.Tick = gs.Ticks
	ev.Sequence = gs.TotalEvents + 1
	ev.Timestamp = time.Now().Unix()
	if ev.Message == "" {
		ev.Message = gs.Message
	}

	gs.EventHistory = append(gs.EventHistory, ev)
	gs.TotalEvents++

	gs.CurrentEvents = append(gs.CurrentEvents, ev)
	gs.CurrentEventsCount++
}
