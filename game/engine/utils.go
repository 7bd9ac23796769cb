package engine

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// InFiringLine reports whether a bullet fired now would travel up the enemy's column
func InFiringLine(state *GameState) bool {
	if state.Enemy == nil || !state.Enemy.Alive {
		return false
	}
	return state.Enemy.Pos.X == state.Player.Pos.X && state.Enemy.Pos.Y < state.Player.Pos.Y
}

// RowsUntilContact returns how many enemy steps remain before it reaches the player's row.
// The second result is false when no enemy is alive.
func RowsUntilContact(state *GameState) (int, bool) {
	if state.Enemy == nil || !state.Enemy.Alive {
		return 0, false
	}
	return state.Player.Pos.Y - state.Enemy.Pos.Y - 1, true
}

// AnalyzeThreat summarizes the danger the current enemy poses to the player
func AnalyzeThreat(state *GameState) string {
	if state.GameOver {
		return "OVER: No further moves"
	}

	rows, alive := RowsUntilContact(state)
	if !alive {
		return "CLEAR: No enemy on the board"
	}

	sameColumn := InFiringLine(state)
	switch {
	case sameColumn && rows <= 0:
		return "CRITICAL: Enemy is directly above you!"
	case sameColumn && rows <= 1:
		return "DANGER: Enemy is one step from contact"
	case sameColumn:
		return "AIM: Enemy is in your firing line"
	}
	return "SAFE: Enemy is in another column"
}
