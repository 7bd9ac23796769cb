package main

import (
	"github.com/wricardo/grid-shooter/game/engine"
)

// Action is one request the bot sends to the server
type Action struct {
	Kind      string // "move", "fire" or "tick"
	Direction engine.Direction
}

func (a Action) String() string {
	if a.Kind == "move" {
		return "move " + string(a.Direction)
	}
	return a.Kind
}

// LaneStrategy keeps the player under the enemy's column and fires whenever
// the bullet slot is free and the shot is clear
type LaneStrategy struct {
	stuckCount int // ticks spent waiting with no route to a firing cell
}

func NewLaneStrategy() *LaneStrategy {
	return &LaneStrategy{}
}

// NextAction picks the next request for the given state
func (s *LaneStrategy) NextAction(state *engine.GameState) Action {
	column, enemyY := target(state)
	if s.canShoot(state, state.Player.Pos, column, enemyY) {
		if state.BulletState == engine.Idle && enemyY >= 0 {
			return Action{Kind: "fire"}
		}
		return Action{Kind: "tick"}
	}

	path := s.BFS(state, func(p engine.Position) bool {
		return s.canShoot(state, p, column, enemyY)
	})
	if len(path) == 0 {
		s.stuckCount++
		return Action{Kind: "tick"}
	}
	return Action{Kind: "move", Direction: path[0]}
}

// target returns the enemy column and row; row is -1 with no enemy on the board
func target(state *engine.GameState) (int, int) {
	if state.Enemy != nil && state.Enemy.Alive {
		return state.Enemy.Pos.X, state.Enemy.Pos.Y
	}
	return state.Grid.Cols() / 2, -1
}

// canShoot reports whether a bullet fired from pos travels up the column
// without hitting a wall before it reaches the enemy
func (s *LaneStrategy) canShoot(state *engine.GameState, pos engine.Position, column, enemyY int) bool {
	if pos.X != column || pos.Y < 1 || pos.Y <= enemyY {
		return false
	}
	for y := pos.Y - 1; y >= 0 && y >= enemyY; y-- {
		if state.Grid.Get(engine.Position{X: column, Y: y}) == engine.Wall {
			return false
		}
	}
	return true
}

// BFS returns the shortest list of moves from the player to the nearest
// cell accepted by goal, or nil when none is reachable
func (s *LaneStrategy) BFS(state *engine.GameState, goal func(engine.Position) bool) []engine.Direction {
	type node struct {
		pos  engine.Position
		path []engine.Direction
	}

	start := state.Player.Pos
	visited := map[engine.Position]bool{start: true}
	queue := []node{{pos: start}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if goal(current.pos) && len(current.path) > 0 {
			return current.path
		}

		for _, d := range engine.Directions {
			next := current.pos.Add(d.Vector())
			if visited[next] || !s.isValidPosition(state, next) {
				continue
			}
			visited[next] = true

			path := make([]engine.Direction, len(current.path), len(current.path)+1)
			copy(path, current.path)
			queue = append(queue, node{pos: next, path: append(path, d)})
		}
	}
	return nil
}

func (s *LaneStrategy) isValidPosition(state *engine.GameState, pos engine.Position) bool {
	if !state.Grid.InBounds(pos) {
		return false
	}
	switch state.Grid.Get(pos) {
	case engine.Wall, engine.Enemy:
		return false
	}
	return true
}

// Reset clears per-attempt bookkeeping
func (s *LaneStrategy) Reset() {
	s.stuckCount = 0
}

// Stuck returns how many times no firing cell was reachable this attempt
func (s *LaneStrategy) Stuck() int {
	return s.stuckCount
}
