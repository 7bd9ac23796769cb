// Command autoplay plays a grid shooter session against a running server
// through its REST API. It walks the player into the enemy's column, fires
// whenever the bullet slot is idle and advances time with ticks until the
// game ends or the step budget runs out.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/grid-shooter/game/engine"
	"github.com/wricardo/grid-shooter/game/service"
)

const sessionFile = ".session"

// Summary reports how the last attempt ended
type Summary struct {
	SessionID string
	Attempts  int
	Steps     int
	Score     int
	Victory   bool
	GameOver  bool
}

// Player runs the strategy against one session
type Player struct {
	client      *Client
	strategy    *LaneStrategy
	maxSteps    int
	maxAttempts int
	delay       time.Duration
	verbose     bool
}

func NewPlayer(client *Client, maxSteps, maxAttempts int) *Player {
	return &Player{
		client:      client,
		strategy:    NewLaneStrategy(),
		maxSteps:    maxSteps,
		maxAttempts: maxAttempts,
	}
}

// Play resets the session and keeps playing until a victory, an endless
// game survives its step budget, or the attempts run out
func (p *Player) Play(ctx context.Context) (Summary, error) {
	summary := Summary{SessionID: p.client.SessionID()}

	for summary.Attempts < p.maxAttempts {
		summary.Attempts++

		log.Printf("🔄 Resetting game state...")
		state, err := p.client.Reset(ctx)
		if err != nil {
			return summary, err
		}
		p.strategy.Reset()

		log.Printf("=== 🎮 Attempt %d/%d ===", summary.Attempts, p.maxAttempts)
		state, steps, err := p.playAttempt(ctx, state)
		if err != nil {
			return summary, err
		}

		summary.Steps = steps
		summary.Score = state.Score
		summary.Victory = state.Victory
		summary.GameOver = state.GameOver
		log.Printf("Attempt %d: Steps=%d, Score=%d, Waves=%d, Stuck=%d",
			summary.Attempts, steps, state.Score, state.WavesSpawned, p.strategy.Stuck())

		if state.Victory || !state.GameOver {
			return summary, nil
		}
	}
	return summary, nil
}

func (p *Player) playAttempt(ctx context.Context, state *engine.GameState) (*engine.GameState, int, error) {
	steps := 0
	for !state.GameOver && steps < p.maxSteps {
		if err := ctx.Err(); err != nil {
			return state, steps, err
		}

		action := p.strategy.NextAction(state)
		if p.verbose {
			distance := -1
			if state.Enemy != nil {
				distance = engine.ManhattanDistance(state.Player.Pos, state.Enemy.Pos)
			}
			log.Printf("Step %d: %s at %s, enemy distance %d, score %d", steps, action, state.Player.Pos, distance, state.Score)
		}

		result, err := p.execute(ctx, action)
		if err != nil {
			return state, steps, err
		}
		if result.GameState != nil {
			state = result.GameState
		}
		steps++

		if p.delay > 0 {
			time.Sleep(p.delay)
		}
	}
	return state, steps, nil
}

func (p *Player) execute(ctx context.Context, action Action) (*service.ActionResult, error) {
	switch action.Kind {
	case "move":
		return p.client.Input(ctx, string(action.Direction))
	case "fire":
		return p.client.Fire(ctx)
	default:
		return p.client.Tick(ctx, service.TickAll)
	}
}

// openSession resumes continueID or the saved session, creating a new one
// when neither is usable
func openSession(ctx context.Context, client *Client, continueID, configID, savePath string) error {
	savedID := continueID
	if savedID == "" && savePath != "" {
		if data, err := os.ReadFile(savePath); err == nil {
			savedID = string(bytes.TrimSpace(data))
		}
	}

	if savedID != "" {
		client.Attach(savedID)
		state, err := client.GetState(ctx)
		if err == nil {
			log.Printf("🔄 Resuming session %s on %s (%dx%d)", savedID, state.ConfigName, state.Grid.Rows(), state.Grid.Cols())
			return nil
		}
		log.Printf("⚠️  Failed to resume session (may be expired): %v", err)
	}

	state, err := client.CreateSession(ctx, configID)
	if err != nil {
		return err
	}
	log.Printf("✨ Session created: %s on %s (%dx%d)", client.SessionID(), state.ConfigName, state.Grid.Rows(), state.Grid.Cols())

	if savePath != "" {
		if err := os.WriteFile(savePath, []byte(client.SessionID()), 0644); err != nil {
			log.Printf("Warning: Failed to save session ID: %v", err)
		}
	}
	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "Play a grid shooter session through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "config", Value: "arena", Usage: "Config ID for new sessions"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.IntFlag{Name: "max-steps", Value: 500, Usage: "Maximum requests per attempt"},
			&cli.IntFlag{Name: "max-attempts", Value: 3, Usage: "Maximum attempts before giving up"},
			&cli.IntFlag{Name: "delay", Usage: "Delay between requests in milliseconds"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.Printf("Connecting to game server at %s", cmd.String("url"))
			client := NewClient(cmd.String("url"))
			if err := openSession(ctx, client, cmd.String("continue"), cmd.String("config"), sessionFile); err != nil {
				return err
			}

			player := NewPlayer(client, int(cmd.Int("max-steps")), int(cmd.Int("max-attempts")))
			player.delay = time.Duration(cmd.Int("delay")) * time.Millisecond
			player.verbose = cmd.Bool("v")

			summary, err := player.Play(ctx)
			if err != nil {
				return err
			}

			switch {
			case summary.Victory:
				log.Printf("🎉 VICTORY! Score %d in attempt %d with %d steps", summary.Score, summary.Attempts, summary.Steps)
			case !summary.GameOver:
				log.Printf("⏱️  Still alive after %d steps with score %d", summary.Steps, summary.Score)
			default:
				return fmt.Errorf("❌ failed to win after %d attempts (session %s)", summary.Attempts, summary.SessionID)
			}
			log.Printf("Session: %s", summary.SessionID)
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
