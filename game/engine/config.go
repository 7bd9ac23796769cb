package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate board size
	if config.Rows < MinGridSize || config.Rows > MaxGridSize {
		return fmt.Errorf("config validation: rows must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Rows)
	}
	if config.Cols < MinGridSize || config.Cols > MaxGridSize {
		return fmt.Errorf("config validation: cols must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Cols)
	}

	// Validate cadences
	if config.BulletIntervalMs < MinIntervalMs {
		return fmt.Errorf("config validation: bullet_interval_ms must be at least %d, got %d", MinIntervalMs, config.BulletIntervalMs)
	}
	if config.EnemyIntervalMs < MinIntervalMs {
		return fmt.Errorf("config validation: enemy_interval_ms must be at least %d, got %d", MinIntervalMs, config.EnemyIntervalMs)
	}
	if config.EnemyWaves < 0 || config.EnemyWaves > MaxEnemyWaves {
		return fmt.Errorf("config validation: enemy_waves must be between 0 and %d, got %d", MaxEnemyWaves, config.EnemyWaves)
	}

	// Validate layout, which is optional
	if len(config.Layout) > 0 {
		if len(config.Layout) != config.Rows {
			return fmt.Errorf("config validation: layout must have %d rows to match rows, got %d",
				config.Rows, len(config.Layout))
		}
		for i, row := range config.Layout {
			if len(row) != config.Cols {
				return fmt.Errorf("config validation: row %d must have %d characters to match cols, got %d",
					i+1, config.Cols, len(row))
			}
			for j := 0; j < len(row); j++ {
				switch row[j] {
				case '_', '#':
				default:
					return fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", row[j], i+1, j+1)
				}
			}
		}

		player := Position{X: config.Cols / 2, Y: config.Rows - 1}
		enemy := Position{X: config.Cols / 2, Y: 0}
		if config.Layout[player.Y][player.X] == '#' {
			return fmt.Errorf("config validation: player spawn %s must not be a wall", player)
		}
		if config.Layout[enemy.Y][enemy.X] == '#' {
			return fmt.Errorf("config validation: enemy spawn %s must not be a wall", enemy)
		}
	}

	// Validate legend
	if len(config.Legend) > 0 {
		requiredLegend := map[string]string{
			"_": string(Empty),
			"#": string(Wall),
		}
		for key, expectedValue := range requiredLegend {
			if value, ok := config.Legend[key]; !ok || value != expectedValue {
				return fmt.Errorf("config validation: legend['%s'] must be '%s', got '%s'", key, expectedValue, value)
			}
		}
	}

	// Validate messages
	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.Hit != "" && !strings.Contains(config.Messages.Hit, "%d") {
		return fmt.Errorf("config validation: messages.hit must contain %%d for score")
	}
	if config.Messages.Wave != "" && strings.Count(config.Messages.Wave, "%") > strings.Count(config.Messages.Wave, "%d") {
		return fmt.Errorf("config validation: messages.wave may only use %%d")
	}

	return nil
}

// LoadGameConfig loads a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfigByName loads a game configuration by name from the configs directory
func LoadConfigByName(configName string) (*GameConfig, error) {
	if !strings.HasSuffix(configName, ".json") {
		configName = configName + ".json"
	}

	configPath := filepath.Join("configs", configName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file '%s' not found", configName)
	}

	config, err := LoadGameConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
	}
	return config, nil
}

// DefaultGameConfig returns the built-in 5x4 board with endless waves
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:             "default",
		Description:      "Open 5x4 board with endless enemy waves",
		Rows:             DefaultRows,
		Cols:             DefaultCols,
		BulletIntervalMs: DefaultBulletInterval,
		EnemyIntervalMs:  DefaultEnemyInterval,
		Messages: Messages{
			Welcome:    "Welcome! Move with the arrow keys and fire at the descending enemy.",
			Fired:      "Fire!",
			BulletBusy: "A bullet is already in flight",
			Hit:        "Enemy destroyed! Score: %d",
			Contact:    "The enemy reached you!",
			Blocked:    "Can't move there!",
			Wave:       "Enemy wave %d incoming",
			GameOver:   "Game Over!",
			Victory:    "Victory! All %d waves destroyed!",
		},
	}
}

// InitGame creates a state for an open board of the given size using default rules
func InitGame(rows, cols int) *GameState {
	config := DefaultGameConfig()
	config.Rows = rows
	config.Cols = cols
	return InitGameStateFromConfig(config)
}

// NewBoard creates a grid that is empty apart from walls and the player spawn cell
func NewBoard(config *GameConfig) (*Grid, Position) {
	grid := NewGrid(config.Rows, config.Cols)
	for y := 0; y < config.Rows && y < len(config.Layout); y++ {
		for x := 0; x < config.Cols && x < len(config.Layout[y]); x++ {
			if config.Layout[y][x] == '#' {
				grid.Set(Position{X: x, Y: y}, Wall)
			}
		}
	}

	spawn := Position{X: config.Cols / 2, Y: config.Rows - 1}
	grid.Set(spawn, Player)
	return grid, spawn
}

// InitGameStateFromConfig creates a new game state using the provided configuration.
// The first enemy wave enters immediately.
func InitGameStateFromConfig(config *GameConfig) *GameState {
	if config == nil {
		config = DefaultGameConfig()
	}

	grid, spawn := NewBoard(config)
	state := &GameState{
		Grid:        grid,
		Player:      *NewEntity(KindPlayer, spawn),
		BulletState: Idle,
		ConfigName:  config.Name,
		Rules: GameRules{
			BulletIntervalMs: config.BulletIntervalMs,
			EnemyIntervalMs:  config.EnemyIntervalMs,
			EnemyWaves:       config.EnemyWaves,
			ContactEndsGame:  config.ContactEndsGame,
			Messages:         config.Messages,
		},
		EventHistory:  []GameEvent{},
		CurrentEvents: []GameEvent{},
	}

	state.SpawnEnemy()
	state.Message = config.Messages.Welcome
	return state
}
