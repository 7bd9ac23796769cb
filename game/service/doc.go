// Package service provides the business logic layer for the grid shooter.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration management and loading
//   - Input, fire and tick processing with per-call event extraction
//   - Event history pagination
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transports (HTTP/WebSocket/MCP/TUI) and
// the game engine. Each session owns its own engine. A single mutex
// serializes every input and tick, so a tick and an input never interleave
// on the same board, and callers only ever receive cloned snapshots of the
// state.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	sessionInfo, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Input(ctx, sessionInfo.ID, "left")
//	result, err = gameService.Fire(ctx, sessionInfo.ID)
//	result, err = gameService.Tick(ctx, sessionInfo.ID, service.TickBullet)
package service
