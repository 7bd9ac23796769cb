package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/grid-shooter/game/engine"
)

var (
	// ErrUnknownTickKind is returned for tick kinds other than bullet, enemy and all
	ErrUnknownTickKind = errors.New("unknown tick kind")

	// ErrConfigNotFound is wrapped by ConfigManager implementations when a
	// configuration name does not resolve
	ErrConfigNotFound = errors.New("not found")
)

// gameServiceImpl implements the GameService interface.
// One mutex serializes every input and tick across sessions.
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.Mutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState().Clone(),
		GameConfig:     session.Config,
	}, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess.Config.Name),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState().Clone(),
		GameConfig:     sess.Config,
	}, nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, &SessionInfo{
			ID:             sess.ID,
			ConfigName:     s.getConfigID(sess.Config.Name),
			CreatedAt:      sess.CreatedAt,
			LastAccessedAt: sess.LastAccessedAt,
			GameState:      sess.Engine.GetState().Clone(),
			GameConfig:     sess.Config,
		})
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Input applies a direction name or key code to the player
func (s *gameServiceImpl) Input(ctx context.Context, sessionID, code string) (*ActionResult, error) {
	return s.act(sessionID, "input", func(e *engine.GameEngine) bool {
		return e.HandleDirectionInput(code)
	})
}

// Fire launches a bullet from the player
func (s *gameServiceImpl) Fire(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, "fire", func(e *engine.GameEngine) bool {
		return e.HandleFireInput()
	})
}

// Tick advances the bullet, the enemy, or both
func (s *gameServiceImpl) Tick(ctx context.Context, sessionID, kind string) (*ActionResult, error) {
	switch strings.ToLower(kind) {
	case TickBullet:
		return s.act(sessionID, "tick_bullet", func(e *engine.GameEngine) bool {
			return e.Tick(engine.KindBullet)
		})
	case TickEnemy:
		return s.act(sessionID, "tick_enemy", func(e *engine.GameEngine) bool {
			return e.Tick(engine.KindEnemy)
		})
	case TickAll, "", "step":
		return s.Step(ctx, sessionID)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTickKind, kind)
}

// Step advances both cadences with a single collision check
func (s *gameServiceImpl) Step(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, "step", func(e *engine.GameEngine) bool {
		return e.Step()
	})
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset().Clone()
	s.persist(sessionID, "reset")
	return state, nil
}

// GetGameState retrieves a snapshot of the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState().Clone(), nil
}

// GetGrid renders the board
func (s *gameServiceImpl) GetGrid(ctx context.Context, sessionID string) (*GridView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	return &GridView{
		Rows:   state.Grid.Rows(),
		Cols:   state.Grid.Cols(),
		Cells:  sess.Engine.GetRenderableGrid(),
		Lines:  state.Grid.Render(),
		Player: state.Player.Pos,
		Score:  state.Score,
	}, nil
}

// GetCadence reports the live repeating tasks for a session
func (s *gameServiceImpl) GetCadence(ctx context.Context, sessionID string) (*Cadence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	return &Cadence{
		BulletActive:   state.BulletTask.Active(),
		BulletInterval: intervalOf(state.BulletTask, state.Rules.BulletIntervalMs),
		// The enemy cadence keeps running between waves so the next one can spawn
		EnemyActive:   !state.GameOver,
		EnemyInterval: intervalOf(state.EnemyTask, state.Rules.EnemyIntervalMs),
		GameOver:      state.GameOver,
	}, nil
}

// GetEventHistory returns paginated event history
func (s *gameServiceImpl) GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetEventHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	events := []engine.GameEvent{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = append(events, history[start:end]...)
	}

	return &HistoryResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// act runs one engine mutation under the lock and reports the events it produced
func (s *gameServiceImpl) act(sessionID, action string, apply func(e *engine.GameEngine) bool) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	before := sess.Engine.GetState().TotalEvents
	success := apply(sess.Engine)
	state := sess.Engine.GetState()

	result := &ActionResult{
		Action:        action,
		Success:       success,
		GameState:     state.Clone(),
		Grid:          state.Grid.Render(),
		Message:       state.Message,
		Events:        eventsSince(state, before),
		PossibleMoves: sess.Engine.GetPossibleMoves(),
		Threat:        engine.AnalyzeThreat(state),
		GameOver:      state.GameOver,
	}

	s.persist(sessionID, action)
	return result, nil
}

func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.Touch(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) persist(sessionID, action string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after %s: %v", sessionID, action, err)
	}
}

// eventsSince returns the events recorded after the given cumulative total
func eventsSince(state *engine.GameState, total int) []engine.GameEvent {
	start := len(state.EventHistory) - (state.TotalEvents - total)
	if start < 0 {
		start = 0
	}
	if start > len(state.EventHistory) {
		start = len(state.EventHistory)
	}
	events := make([]engine.GameEvent, len(state.EventHistory)-start)
	copy(events, state.EventHistory[start:])
	return events
}

func intervalOf(task *engine.Task, fallbackMs int) time.Duration {
	if task != nil && task.Interval > 0 {
		return task.Interval
	}
	return time.Duration(fallbackMs) * time.Millisecond
}
