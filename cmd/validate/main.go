// Command validate checks the game configuration JSON files in a directory
// (default "configs"). Beyond the engine's own validation it checks that:
//   - the player can reach the enemy's lane from the spawn cell
//   - a bullet fired from that lane can meet the enemy before a wall does
//
// It also prints a short analysis of each board: wall count, reachable
// cells, cadences, and whether an unshot enemy can slip past the bottom edge.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/grid-shooter/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// LaneReport describes how the player and the enemy share the spawn column
type LaneReport struct {
	Column      int
	EnemyRows   int // rows the enemy can descend before a wall stops it
	Reachable   int // cells the player can reach from spawn
	FiringCells []engine.Position
	Leaks       bool // an unshot enemy walks off the bottom edge
}

// Shootable reports whether any reachable cell has a clear shot at the enemy
func (l LaneReport) Shootable() bool {
	return len(l.FiringCells) > 0
}

// validateConfig loads and validates a single configuration JSON file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := engine.ValidateGameConfig(&config); err != nil {
		result.fail("%v", err)
		return result
	}

	lane := analyzeLane(&config)
	if !lane.Shootable() {
		result.fail("No reachable cell has a clear shot up column %d", lane.Column)
	}
	if !result.Valid {
		return result
	}

	waves := "endless"
	if config.EnemyWaves > 0 {
		waves = fmt.Sprintf("%d", config.EnemyWaves)
	}
	result.info("Name: %s", config.Name)
	result.info("Grid: %d rows x %d cols, %d walls", config.Rows, config.Cols, countWalls(&config))
	result.info("Cadence: bullet every %dms, enemy every %dms", config.BulletIntervalMs, config.EnemyIntervalMs)
	result.info("Waves: %s, contact ends game: %t", waves, config.ContactEndsGame)
	result.info("Reachable cells: %d, firing positions: %d", lane.Reachable, len(lane.FiringCells))
	if lane.Leaks {
		result.info("Enemies that are not shot leave through the bottom edge")
	} else {
		result.info("Enemies stop %d rows down column %d", lane.EnemyRows, lane.Column)
	}
	return result
}

func countWalls(config *engine.GameConfig) int {
	n := 0
	for _, row := range config.Layout {
		n += strings.Count(row, "#")
	}
	return n
}

// analyzeLane flood fills from the player spawn and finds the cells in the
// enemy column from which an upward bullet meets the enemy's path
func analyzeLane(config *engine.GameConfig) LaneReport {
	grid, spawn := engine.NewBoard(config)
	column := config.Cols / 2

	report := LaneReport{Column: column, EnemyRows: config.Rows, Leaks: true}
	for y := 0; y < config.Rows; y++ {
		if grid.Get(engine.Position{X: column, Y: y}) == engine.Wall {
			report.EnemyRows = y
			report.Leaks = false
			break
		}
	}

	visited := map[engine.Position]bool{spawn: true}
	queue := []engine.Position{spawn}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		report.Reachable++

		// The bullet spawns one row up, so row 0 cannot fire
		if current.X == column && current.Y >= 1 && current.Y <= report.EnemyRows {
			report.FiringCells = append(report.FiringCells, current)
		}

		for _, d := range engine.Directions {
			next := current.Add(d.Vector())
			if visited[next] || !grid.InBounds(next) || grid.Get(next) == engine.Wall {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}

	return report
}

// main validates every *.json in the directory, printing a concise report
// and exiting with non-zero status if any are invalid.
func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No config files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
