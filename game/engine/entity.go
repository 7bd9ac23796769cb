package engine

import "time"

// Entity is a movable game object: the player, a bullet, or an enemy
type Entity struct {
	Kind    EntityKind `json:"kind"`
	Pos     Position   `json:"pos"`
	PrevPos Position   `json:"prev_pos"`
	Origin  Position   `json:"origin"` // player position at fire time, bullets only
	Alive   bool       `json:"alive"`
}

// NewEntity creates a live entity at pos
func NewEntity(kind EntityKind, pos Position) *Entity {
	return &Entity{
		Kind:    kind,
		Pos:     pos,
		PrevPos: pos,
		Origin:  pos,
		Alive:   true,
	}
}

// CacheOldPos records the current position as the previous one.
// It must run exactly once immediately before Accelerate.
func (e *Entity) CacheOldPos() {
	e.PrevPos = e.Pos
}

// Accelerate adds the vector to the position without any bounds checks
func (e *Entity) Accelerate(v Vector) {
	e.Pos = e.Pos.Add(v)
}

// Symbol returns the grid symbol for this entity
func (e *Entity) Symbol() Symbol {
	return e.Kind.Symbol()
}

// Task is the cancellation token for a repeating bullet or enemy cadence.
// Schedulers poll Active instead of rescheduling themselves.
type Task struct {
	Kind      EntityKind    `json:"kind"`
	Interval  time.Duration `json:"interval"`
	Runs      int           `json:"runs"`
	Cancelled bool          `json:"cancelled"`
}

// NewTask creates an active task for the kind
func NewTask(kind EntityKind, interval time.Duration) *Task {
	return &Task{Kind: kind, Interval: interval}
}

// Active reports whether the task should keep ticking
func (t *Task) Active() bool {
	return t != nil && !t.Cancelled
}

// Cancel stops the task; further ticks are ignored
func (t *Task) Cancel() {
	if t != nil {
		t.Cancelled = true
	}
}
