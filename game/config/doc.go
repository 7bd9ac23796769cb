// Package config provides board configuration management for the shooter game.
//
// The config package handles loading, validating and caching board
// configurations from JSON files. Each file describes the board size, an
// optional wall layout, the bullet and enemy cadences, the number of enemy
// waves and the player-facing messages.
//
// Bundled configurations:
//   - classic: the 5x4 open board with endless waves
//   - arena: a wider board with a few walls and ten waves
//   - gauntlet: a tall board where contact ends the game
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("arena")
//	if errors.Is(err, config.ErrConfigNotFound) {
//		gameConfig = manager.GetDefault()
//	}
//
//	configs, err := manager.ListConfigs()
//
// Validation:
//
// Configurations are validated by engine.ValidateGameConfig. Layout rows may
// only contain '_' and '#', and neither spawn cell may be a wall.
package config
