// Package scheduler runs sessions in real time.
//
// A Loop owns one goroutine per session. The bullet and enemy cadences are
// tickers whose intervals come from the session's task tokens; inputs are
// queued on a channel and processed between ticks, so no two mutations of a
// session ever overlap. After each event the loop re-reads the cadence and
// stops the ticker of a cancelled task, re-arming it when a new bullet is
// fired or a new wave spawns.
//
// Registry keeps at most one loop per session for the HTTP server.
package scheduler
