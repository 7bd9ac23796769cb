package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Position represents x,y grid coordinates. X is the column, Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the position offset by a vector
func (p Position) Add(v Vector) Position {
	return Position{X: p.X + v.X, Y: p.Y + v.Y}
}

// Equal reports whether two positions name the same cell
func (p Position) Equal(other Position) bool {
	return p.X == other.X && p.Y == other.Y
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Vector is a discrete displacement on the grid
type Vector struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the component-wise sum of two vectors
func (v Vector) Add(other Vector) Vector {
	return Vector{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns the component-wise difference of two vectors
func (v Vector) Sub(other Vector) Vector {
	return Vector{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale multiplies both components by n
func (v Vector) Scale(n int) Vector {
	return Vector{X: v.X * n, Y: v.Y * n}
}

// Direction is one of the four unit moves
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists every direction in a stable order
var Directions = []Direction{Up, Down, Left, Right}

var directionVectors = map[Direction]Vector{
	Up:    {X: 0, Y: -1},
	Down:  {X: 0, Y: 1},
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
}

// keyCodes maps browser key codes and numeric-keypad codes to directions
var keyCodes = map[int]Direction{
	37: Left,
	38: Up,
	39: Right,
	40: Down,
	4:  Left,
	8:  Up,
	6:  Right,
	2:  Down,
}

// Vector returns the unit displacement for the direction
func (d Direction) Vector() Vector {
	return directionVectors[d]
}

// Valid reports whether d is one of the four directions
func (d Direction) Valid() bool {
	_, ok := directionVectors[d]
	return ok
}

// DirectionFromKeyCode maps an input key code to a direction
func DirectionFromKeyCode(code int) (Direction, bool) {
	d, ok := keyCodes[code]
	return d, ok
}

// ParseDirection accepts a direction name or a numeric key code
func ParseDirection(code string) (Direction, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if d := Direction(code); d.Valid() {
		return d, true
	}
	if n, err := strconv.Atoi(code); err == nil {
		return DirectionFromKeyCode(n)
	}
	return "", false
}
