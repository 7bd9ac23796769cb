// Package mcp exposes the grid shooter to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call becomes a request against the
// REST API, so the same server state is shared with browsers and the TUI.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state, render_grid
//   - move, fire, tick, reset_game
//   - event_history, list_configs, game_instructions
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: the server command mounts HandleMessage at /mcp
package mcp
