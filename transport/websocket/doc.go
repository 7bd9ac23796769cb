// Package websocket provides the WebSocket transport for the shooter game.
//
// A central Hub owns every connection. Clients join a session with
// ?session=<id>; state updates are broadcast only to the clients of that
// session. Broadcasts are queued and never block the caller.
//
// Message protocol:
//   - Outgoing: {"session_id", "game_state", "event", "data"}, where event is
//     the action that produced the state and data carries its events
//   - Incoming: {"action": "input", "code": "left"}, {"action": "fire"},
//     {"action": "tick", "kind": "bullet"} or {"action": "reset"}
//
// Inbound actions are passed to the ActionHandler installed with OnAction.
// A handler error is sent back to the requesting client as an "error" event.
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.OnAction(server.handleSocketAction)
//	go hub.Run()
package websocket
