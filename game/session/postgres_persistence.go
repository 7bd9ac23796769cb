package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wricardo/grid-shooter/game/service"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresPersistence implements SessionPersistence on a PostgreSQL table.
// The game state is stored as JSONB next to the session metadata.
type PostgresPersistence struct {
	db            *sql.DB
	configManager service.ConfigManager
}

// NewPostgresPersistence connects to the database and creates the sessions table
func NewPostgresPersistence(connectionString string, configManager service.ConfigManager) (*PostgresPersistence, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &PostgresPersistence{db: db, configManager: configManager}
	if err := p.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return p, nil
}

func (p *PostgresPersistence) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS game_sessions (
		id TEXT PRIMARY KEY,
		config_name TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		last_accessed_at TIMESTAMP WITH TIME ZONE NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		game_over BOOLEAN NOT NULL DEFAULT FALSE,
		game_state JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`

	_, err := p.db.Exec(schema)
	return err
}

// Save upserts a session row
func (p *PostgresPersistence) Save(session *service.Session) error {
	data, err := encodeSession(session, p.configManager)
	if err != nil {
		return err
	}

	stateJSON, err := json.Marshal(data.GameState)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	query := `
	INSERT INTO game_sessions (id, config_name, created_at, last_accessed_at, score, game_over, game_state)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id)
	DO UPDATE SET
		config_name = $2, last_accessed_at = $4,
		score = $5, game_over = $6, game_state = $7,
		updated_at = NOW()
	`

	_, err = p.db.Exec(query,
		data.ID, data.ConfigName, data.CreatedAt, data.LastAccessedAt,
		data.GameState.Score, data.GameState.GameOver, string(stateJSON))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Load reads a session row and restores its engine
func (p *PostgresPersistence) Load(id string) (*service.Session, error) {
	query := `SELECT id, config_name, created_at, last_accessed_at, game_state FROM game_sessions WHERE id = $1`

	var data PersistedSessionData
	var stateJSON string
	err := p.db.QueryRow(query, id).Scan(
		&data.ID, &data.ConfigName, &data.CreatedAt, &data.LastAccessedAt, &stateJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &data.GameState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %w", err)
	}

	return restoreSession(&data, p.configManager)
}

// Delete removes a session row
func (p *PostgresPersistence) Delete(id string) error {
	res, err := p.db.Exec(`DELETE FROM game_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns every stored session ID
func (p *PostgresPersistence) ListAll() ([]string, error) {
	rows, err := p.db.Query(`SELECT id FROM game_sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks whether a row exists for the ID
func (p *PostgresPersistence) Exists(id string) bool {
	var exists bool
	err := p.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM game_sessions WHERE id = $1)`, id).Scan(&exists)
	return err == nil && exists
}

// Close releases the database handle
func (p *PostgresPersistence) Close() error {
	return p.db.Close()
}
