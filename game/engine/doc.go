// Package engine provides the core game logic for the grid shooter.
//
// The engine package implements the game mechanics including:
//   - The grid, its symbols and the guarded clear/stamp primitives
//   - Entities (player, bullet, enemy) and their movement primitive
//   - The movement validator (bounds and occupancy against the committed grid)
//   - The board controller: bullet slot state machine, ticks and collisions
//   - Configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState holds the whole board, the live
// entities and the event log; there is no package-level game. GameConfig
// defines the board size, layout and cadences loaded from JSON files.
//
// Usage:
//
//	config, err := engine.LoadConfigByName("classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine.HandleDirectionInput("left")
//	gameEngine.HandleFireInput()
//	gameEngine.Tick(engine.KindBullet)
//	grid := gameEngine.GetRenderableGrid()
//
// Concurrency:
//
// GameState is not safe for concurrent use. Callers serialize every input
// and tick, either behind a mutex (game/service) or on a single event loop
// (game/scheduler).
//
// Game Rules:
//
// The player sits on the bottom row and may move in four directions. One
// bullet at a time travels upward; enemies enter at the top-row midpoint
// and descend. A bullet and an enemy sharing a cell destroy each other and
// score a point. Invalid moves are silently ignored; a state that breaks
// the board invariants panics.
package engine
