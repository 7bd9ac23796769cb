package engine

import (
	"encoding/json"
	"fmt"
)

// Grid is a fixed-size board of cell symbols indexed as cells[row][col]
type Grid struct {
	cells [][]Symbol
}

// NewGrid creates a rows x cols grid with every cell empty
func NewGrid(rows, cols int) *Grid {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("engine: invalid grid size %dx%d", rows, cols))
	}
	cells := make([][]Symbol, rows)
	for y := range cells {
		cells[y] = make([]Symbol, cols)
		for x := range cells[y] {
			cells[y][x] = Empty
		}
	}
	return &Grid{cells: cells}
}

// Rows returns the grid height
func (g *Grid) Rows() int {
	return len(g.cells)
}

// Cols returns the grid width
func (g *Grid) Cols() int {
	if len(g.cells) == 0 {
		return 0
	}
	return len(g.cells[0])
}

// InBounds reports whether p lies on the grid
func (g *Grid) InBounds(p Position) bool {
	return InBounds(p, g.Rows(), g.Cols())
}

// Get returns the symbol at p. Reading off the grid is a programming error.
func (g *Grid) Get(p Position) Symbol {
	g.mustContain(p)
	return g.cells[p.Y][p.X]
}

// Set writes a symbol at p. Writing off the grid is a programming error.
func (g *Grid) Set(p Position, s Symbol) {
	g.mustContain(p)
	g.cells[p.Y][p.X] = s
}

// Clear empties the cell at p unless one of the live entities sits on it,
// in which case that entity's symbol is restamped.
func (g *Grid) Clear(p Position, live ...*Entity) {
	for _, e := range live {
		if e != nil && e.Alive && e.Pos.Equal(p) {
			g.Set(p, e.Symbol())
			return
		}
	}
	g.Set(p, Empty)
}

// Count returns how many cells hold the symbol
func (g *Grid) Count(s Symbol) int {
	count := 0
	for _, row := range g.cells {
		for _, cell := range row {
			if cell == s {
				count++
			}
		}
	}
	return count
}

// Find returns every position holding the symbol in row-major order
func (g *Grid) Find(s Symbol) []Position {
	var found []Position
	for y, row := range g.cells {
		for x, cell := range row {
			if cell == s {
				found = append(found, Position{X: x, Y: y})
			}
		}
	}
	return found
}

// Snapshot returns a deep copy of the cells for read-only use
func (g *Grid) Snapshot() [][]Symbol {
	out := make([][]Symbol, len(g.cells))
	for y, row := range g.cells {
		out[y] = append([]Symbol(nil), row...)
	}
	return out
}

// Clone returns an independent copy of the grid
func (g *Grid) Clone() *Grid {
	return &Grid{cells: g.Snapshot()}
}

// Render returns one string per row using the symbol characters
func (g *Grid) Render() []string {
	lines := make([]string, len(g.cells))
	for y, row := range g.cells {
		buf := make([]byte, len(row))
		for x, cell := range row {
			buf[x] = cell.Char()
		}
		lines[y] = string(buf)
	}
	return lines
}

// MarshalJSON encodes the grid as a matrix of symbols
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.cells)
}

// UnmarshalJSON decodes a matrix of symbols, rejecting ragged rows
func (g *Grid) UnmarshalJSON(data []byte) error {
	var cells [][]Symbol
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	for y, row := range cells {
		if len(row) != len(cells[0]) {
			return fmt.Errorf("grid row %d has %d cells, expected %d", y, len(row), len(cells[0]))
		}
	}
	g.cells = cells
	return nil
}

func (g *Grid) mustContain(p Position) {
	if !g.InBounds(p) {
		panic(fmt.Sprintf("engine: cell %s outside %dx%d grid", p, g.Rows(), g.Cols()))
	}
}
