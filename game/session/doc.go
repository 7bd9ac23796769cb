// Package session provides session management for the shooter game.
//
// Manager keeps one engine per session in memory, keyed case-insensitively
// by a short random hex ID. Sessions are optionally written through a
// SessionPersistence backend after every change:
//
//   - FilePersistence stores one JSON document per session in a directory
//   - PostgresPersistence upserts a row per session with the game state as JSONB
//
// A restored session is rebuilt from its configuration ID and the saved
// state is checked for consistency before it is attached to the new engine.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//	manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", config)
//
// Sweep drops idle sessions and finished games from memory. A session whose
// save failed stays in memory until Flush writes it.
package session
