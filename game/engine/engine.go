package engine

import "fmt"

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsGameOver() bool
	GetScore() int
	GetPlayerPosition() Position

	// Input and cadence
	HandleDirectionInput(code string) bool
	HandleFireInput() bool
	Tick(kind EntityKind) bool
	Step() bool
	CanMove(direction string) bool
	GetPossibleMoves() []string

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// Queries
	GetRenderableGrid() [][]Symbol
	GetEventHistory() []GameEvent
	GetLastEvent() *GameEvent
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state  *GameState
	config *GameConfig
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return &GameEngine{
		config: config,
		state:  InitGameStateFromConfig(config),
	}, nil
}

// NewEngineWithDefaults creates a new game engine with default configuration
func NewEngineWithDefaults() *GameEngine {
	config := DefaultGameConfig()
	return &GameEngine{
		config: config,
		state:  InitGameStateFromConfig(config),
	}
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState sets the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if err := state.CheckInvariants(); err != nil {
		return fmt.Errorf("inconsistent state: %w", err)
	}
	e.state = state
	return nil
}

// Reset resets the game to initial state
func (e *GameEngine) Reset() *GameState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.EventHistory
	prevTotal := e.state.TotalEvents

	e.state = InitGameStateFromConfig(e.config)

	// Restore cumulative history; the current segment starts with the reset
	e.state.EventHistory = prevHistory
	e.state.TotalEvents = prevTotal
	e.state.CurrentEvents = []GameEvent{}
	e.state.CurrentEventsCount = 0
	e.state.recordEvent(GameEvent{Type: EventReset, From: e.state.Player.Pos, To: e.state.Player.Pos})

	return e.state
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// GetScore returns the current score
func (e *GameEngine) GetScore() int {
	return e.state.Score
}

// GetPlayerPosition returns the current player position
func (e *GameEngine) GetPlayerPosition() Position {
	return e.state.Player.Pos
}

// HandleDirectionInput moves the player; invalid codes and blocked moves are no-ops
func (e *GameEngine) HandleDirectionInput(code string) bool {
	return e.state.HandleDirectionInput(code)
}

// HandleFireInput fires a bullet unless one is already in flight
func (e *GameEngine) HandleFireInput() bool {
	return e.state.HandleFireInput()
}

// Tick advances one cadence
func (e *GameEngine) Tick(kind EntityKind) bool {
	return e.state.Tick(kind)
}

// Step advances both cadences
func (e *GameEngine) Step() bool {
	return e.state.Step()
}

// CanMove checks if the player can move in the specified direction
func (e *GameEngine) CanMove(direction string) bool {
	return e.state.CanMove(direction)
}

// GetPossibleMoves returns all valid directions the player can move
func (e *GameEngine) GetPossibleMoves() []string {
	return e.state.PossibleMoves()
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and resets the game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	e.config = config
	e.state = InitGameStateFromConfig(config)
	return nil
}

// GetRenderableGrid returns a read-only snapshot of the board
func (e *GameEngine) GetRenderableGrid() [][]Symbol {
	return e.state.Grid.Snapshot()
}

// GetEventHistory returns the complete event history
func (e *GameEngine) GetEventHistory() []GameEvent {
	return e.state.EventHistory
}

// GetLastEvent returns the last event, or nil if there are none
func (e *GameEngine) GetLastEvent() *GameEvent {
	if len(e.state.EventHistory) == 0 {
		return nil
	}
	return &e.state.EventHistory[len(e.state.EventHistory)-1]
}

// RunInputs applies a sequence of inputs, returning the success status for each.
// "fire" fires; anything else is a direction code.
func (e *GameEngine) RunInputs(inputs []string) []bool {
	results := make([]bool, 0, len(inputs))

	for _, input := range inputs {
		if e.IsGameOver() {
			break
		}
		if input == "fire" {
			results = append(results, e.HandleFireInput())
			continue
		}
		results = append(results, e.HandleDirectionInput(input))
	}

	return results
}

// Clone returns a deep copy of the state that shares nothing with the original
func (gs *GameState) Clone() *GameState {
	out := *gs
	if gs.Grid != nil {
		out.Grid = gs.Grid.Clone()
	}
	out.Bullet = cloneEntity(gs.Bullet)
	out.Enemy = cloneEntity(gs.Enemy)
	if gs.BulletTask != nil {
		task := *gs.BulletTask
		out.BulletTask = &task
	}
	if gs.EnemyTask != nil {
		task := *gs.EnemyTask
		out.EnemyTask = &task
	}
	out.EventHistory = make([]GameEvent, len(gs.EventHistory))
	copy(out.EventHistory, gs.EventHistory)
	out.CurrentEvents = make([]GameEvent, len(gs.CurrentEvents))
	copy(out.CurrentEvents, gs.CurrentEvents)
	return &out
}

func cloneEntity(e *Entity) *Entity {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
