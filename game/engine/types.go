package engine

// Symbol represents what occupies a grid cell
type Symbol string

const (
	Empty  Symbol = "empty"
	Player Symbol = "player"
	Bullet Symbol = "bullet"
	Enemy  Symbol = "enemy"
	Wall   Symbol = "wall"

	// Validation constants
	MinGridSize           = 2
	MaxGridSize           = 50
	MinIntervalMs         = 10
	MaxEnemyWaves         = 1000
	DefaultRows           = 5
	DefaultCols           = 4
	DefaultBulletInterval = 150
	DefaultEnemyInterval  = 600
	WebSocketBufferSize   = 256
)

// Char returns the single-character rendering of a symbol
func (s Symbol) Char() byte {
	switch s {
	case Player:
		return '@'
	case Bullet:
		return '|'
	case Enemy:
		return 'V'
	case Wall:
		return '#'
	default:
		return '_'
	}
}

// SymbolFromChar maps a layout character back to its symbol
func SymbolFromChar(c byte) (Symbol, bool) {
	switch c {
	case '_':
		return Empty, true
	case '@':
		return Player, true
	case '|':
		return Bullet, true
	case 'V':
		return Enemy, true
	case '#':
		return Wall, true
	}
	return "", false
}

// EntityKind identifies a movable game object
type EntityKind string

const (
	KindPlayer EntityKind = "player"
	KindBullet EntityKind = "bullet"
	KindEnemy  EntityKind = "enemy"
)

// Symbol returns the grid symbol stamped for this kind
func (k EntityKind) Symbol() Symbol {
	switch k {
	case KindPlayer:
		return Player
	case KindBullet:
		return Bullet
	case KindEnemy:
		return Enemy
	}
	return Empty
}

// ParseEntityKind converts a tickable kind name
func ParseEntityKind(name string) (EntityKind, bool) {
	switch EntityKind(name) {
	case KindPlayer, KindBullet, KindEnemy:
		return EntityKind(name), true
	}
	return "", false
}

// SlotState is the bullet slot state machine
type SlotState string

const (
	Idle           SlotState = "idle"
	BulletInFlight SlotState = "bullet_in_flight"
)

// EventType classifies entries in the event log
type EventType string

const (
	EventMove           EventType = "move"
	EventBlocked        EventType = "blocked"
	EventBulletFired    EventType = "bullet_fired"
	EventBulletMoved    EventType = "bullet_moved"
	EventBulletExited   EventType = "bullet_exited"
	EventBulletAbsorbed EventType = "bullet_absorbed"
	EventEnemySpawned   EventType = "enemy_spawned"
	EventEnemyMoved     EventType = "enemy_moved"
	EventEnemyExited    EventType = "enemy_exited"
	EventCollision      EventType = "collision"
	EventPlayerContact  EventType = "player_contact"
	EventGameOver       EventType = "game_over"
	EventReset          EventType = "reset"
)

// Messages holds the text shown to players for game events
type Messages struct {
	Welcome    string `json:"welcome"`
	Fired      string `json:"fired"`
	BulletBusy string `json:"bullet_busy"`
	Hit        string `json:"hit"`
	Contact    string `json:"contact"`
	Blocked    string `json:"blocked"`
	Wave       string `json:"wave"`
	GameOver   string `json:"game_over"`
	Victory    string `json:"victory"`
}

// GameConfig represents the game configuration from JSON
type GameConfig struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Rows             int               `json:"rows"`
	Cols             int               `json:"cols"`
	Layout           []string          `json:"layout,omitempty"`
	Legend           map[string]string `json:"legend,omitempty"`
	BulletIntervalMs int               `json:"bullet_interval_ms"`
	EnemyIntervalMs  int               `json:"enemy_interval_ms"`
	EnemyWaves       int               `json:"enemy_waves"` // 0 means endless
	ContactEndsGame  bool              `json:"contact_ends_game"`
	Messages         Messages          `json:"messages"`
}

// GameRules is the subset of a config a running game needs.
// It is copied into the state so persisted games stay self-contained.
type GameRules struct {
	BulletIntervalMs int      `json:"bullet_interval_ms"`
	EnemyIntervalMs  int      `json:"enemy_interval_ms"`
	EnemyWaves       int      `json:"enemy_waves"`
	ContactEndsGame  bool     `json:"contact_ends_game"`
	Messages         Messages `json:"messages"`
}

// GameEvent is a single entry in the game's event log
type GameEvent struct {
	Type      EventType  `json:"type"`
	Kind      EntityKind `json:"kind,omitempty"`
	From      Position   `json:"from"`
	To        Position   `json:"to"`
	Reason    string     `json:"reason,omitempty"`
	Message   string     `json:"message,omitempty"`
	Tick      int        `json:"tick"`
	Sequence  int        `json:"sequence"`
	Timestamp int64      `json:"timestamp"`
}

// GameState represents the complete game state
type GameState struct {
	Grid         *Grid     `json:"grid"`
	Player       Entity    `json:"player"`
	Bullet       *Entity   `json:"bullet,omitempty"`
	Enemy        *Entity   `json:"enemy,omitempty"`
	BulletState  SlotState `json:"bullet_state"`
	BulletTask   *Task     `json:"bullet_task,omitempty"`
	EnemyTask    *Task     `json:"enemy_task,omitempty"`
	Score        int       `json:"score"`
	WavesSpawned int       `json:"waves_spawned"`
	Ticks        int       `json:"ticks"`
	Message      string    `json:"message"`
	GameOver     bool      `json:"game_over"`
	Victory      bool      `json:"victory"`
	ConfigName   string    `json:"config_name"`
	Rules        GameRules `json:"rules"`

	EventHistory []GameEvent `json:"event_history"`
	TotalEvents  int         `json:"total_events"`

	// CurrentEvents mirrors EventHistory since the last reset; EventHistory is cumulative.
	CurrentEvents      []GameEvent `json:"current_events"`
	CurrentEventsCount int         `json:"current_events_count"`
}
