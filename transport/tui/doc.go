// Package tui plays a session in the terminal with Bubble Tea.
//
// Key presses are queued on a scheduler.Loop, which also owns the bullet
// and enemy tickers, so the board keeps moving while the player thinks.
package tui
