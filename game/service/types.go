package service

import (
	"time"

	"github.com/wricardo/grid-shooter/game/engine"
)

// Tick kinds accepted by GameService.Tick
const (
	TickBullet = "bullet"
	TickEnemy  = "enemy"
	TickAll    = "all"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// ActionResult contains the result of an input, fire or tick
type ActionResult struct {
	Action        string             `json:"action"`
	Success       bool               `json:"success"`
	GameState     *engine.GameState  `json:"game_state"`
	Grid          []string           `json:"grid"`
	Message       string             `json:"message"`
	Events        []engine.GameEvent `json:"events"`
	PossibleMoves []string           `json:"possible_moves,omitempty"`
	Threat        string             `json:"threat,omitempty"`
	GameOver      bool               `json:"game_over"`
}

// GridView is a read-only rendering of the board
type GridView struct {
	Rows   int               `json:"rows"`
	Cols   int               `json:"cols"`
	Cells  [][]engine.Symbol `json:"cells"`
	Lines  []string          `json:"lines"`
	Player engine.Position   `json:"player"`
	Score  int               `json:"score"`
}

// Cadence describes which repeating tasks are live for a session.
// Schedulers poll it instead of reading the game state directly.
type Cadence struct {
	BulletActive   bool          `json:"bullet_active"`
	BulletInterval time.Duration `json:"bullet_interval"`
	EnemyActive    bool          `json:"enemy_active"`
	EnemyInterval  time.Duration `json:"enemy_interval"`
	GameOver       bool          `json:"game_over"`
}

// HistoryOptions configures event history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated event history
type HistoryResponse struct {
	Events      []engine.GameEvent `json:"events"`
	TotalEvents int                `json:"total_events"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
	TotalPages  int                `json:"total_pages"`
	HasNext     bool               `json:"has_next"`
	HasPrevious bool               `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	EnemyWaves  int    `json:"enemy_waves"`
}
