// Package api provides the HTTP REST API for the grid shooter.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({config_id, clock})
//   - GET /api/sessions - List sessions (sort=accessed|created|score, order, limit)
//   - GET /api/sessions/unified - Sessions with state for dashboards
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session and stop its clock
//
// Game:
//   - GET /api/sessions/{id}/state - Full game state
//   - GET /api/sessions/{id}/grid - Board view (format=text for plain rows)
//   - POST /api/sessions/{id}/input - Direction input ({code} or {key_code})
//   - POST /api/sessions/{id}/fire - Fire a bullet
//   - POST /api/sessions/{id}/tick - Advance a cadence ({kind, count})
//   - POST /api/sessions/{id}/reset - Restart the session
//   - GET /api/sessions/{id}/history - Paginated event history
//   - GET /api/sessions/{id}/export - Event history as a Parquet file
//
// Clock:
//   - GET|POST|DELETE /api/sessions/{id}/clock - Inspect, start or stop real-time ticking
//
// Configuration:
//   - GET /api/configs - List configurations
//   - POST /api/configs - Save a configuration
//   - GET /api/configs/{name} - Load a configuration
//
// WebSocket:
//   - GET /ws?session={id} - Live updates and inbound actions
package api
