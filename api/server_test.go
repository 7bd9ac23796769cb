package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/grid-shooter/game/archive"
	"github.com/wricardo/grid-shooter/game/config"
	"github.com/wricardo/grid-shooter/game/engine"
	"github.com/wricardo/grid-shooter/game/service"
	"github.com/wricardo/grid-shooter/game/session"
	"github.com/wricardo/grid-shooter/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	InputFunc func(ctx context.Context, sessionID, code string) (*service.ActionResult, error)
	FireFunc  func(ctx context.Context, sessionID string) (*service.ActionResult, error)
	TickFunc  func(ctx context.Context, sessionID, kind string) (*service.ActionResult, error)
	ResetFunc func(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameStateFunc    func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetGridFunc         func(ctx context.Context, sessionID string) (*service.GridView, error)
	GetEventHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error
}

func mockResult(action string) *service.ActionResult {
	state := engine.InitGame(5, 4)
	return &service.ActionResult{
		Action:    action,
		Success:   true,
		GameState: state,
		Grid:      state.Grid.Render(),
		Message:   state.Message,
	}
}

func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{
		ID:         "test-session",
		ConfigName: configName,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:         sessionID,
		ConfigName: "test-config",
		CreatedAt:  time.Now(),
		GameState:  engine.InitGame(5, 4),
	}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Input(ctx context.Context, sessionID, code string) (*service.ActionResult, error) {
	if m.InputFunc != nil {
		return m.InputFunc(ctx, sessionID, code)
	}
	return mockResult("input"), nil
}

func (m *MockGameService) Fire(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	if m.FireFunc != nil {
		return m.FireFunc(ctx, sessionID)
	}
	return mockResult("fire"), nil
}

func (m *MockGameService) Tick(ctx context.Context, sessionID, kind string) (*service.ActionResult, error) {
	if m.TickFunc != nil {
		return m.TickFunc(ctx, sessionID, kind)
	}
	return mockResult("tick_" + kind), nil
}

func (m *MockGameService) Step(ctx context.Context, sessionID string) (*service.ActionResult, error) {
	return m.Tick(ctx, sessionID, service.TickAll)
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return engine.InitGame(5, 4), nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return engine.InitGame(5, 4), nil
}

func (m *MockGameService) GetGrid(ctx context.Context, sessionID string) (*service.GridView, error) {
	if m.GetGridFunc != nil {
		return m.GetGridFunc(ctx, sessionID)
	}
	state := engine.InitGame(5, 4)
	return &service.GridView{
		Rows:   5,
		Cols:   4,
		Cells:  state.Grid.Snapshot(),
		Lines:  state.Grid.Render(),
		Player: state.Player.Pos,
	}, nil
}

func (m *MockGameService) GetCadence(ctx context.Context, sessionID string) (*service.Cadence, error) {
	return &service.Cadence{
		EnemyActive:    true,
		EnemyInterval:  time.Second,
		BulletInterval: time.Second,
	}, nil
}

func (m *MockGameService) GetEventHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetEventHistoryFunc != nil {
		return m.GetEventHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Events:   []engine.GameEvent{},
		Page:     opts.Page,
		PageSize: opts.Limit,
	}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	cfg := engine.DefaultGameConfig()
	cfg.Name = configName
	return cfg, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, cfg *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, cfg)
	}
	return nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService service.GameService) *Server {
	hub := websocket.NewHub()
	go hub.Run()
	server := NewServer(mockService, hub)
	t.Cleanup(func() {
		server.Shutdown()
		hub.Stop()
	})
	return server
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	server := setupTestServer(t, &MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy, got %s", resp["status"])
	}
}

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default config",
			requestBody: nil,
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %s", configName)
					}
					return &service.SessionInfo{ID: "ab12", ConfigName: "classic", CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with config_id",
			requestBody: map[string]string{"config_id": "arena"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "arena" {
						t.Errorf("Expected config 'arena', got %s", configName)
					}
					return &service.SessionInfo{ID: "cd34", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Deprecated config_name still works",
			requestBody: map[string]string{"config_name": "gauntlet"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "gauntlet" {
						t.Errorf("Expected config 'gauntlet', got %s", configName)
					}
					return &service.SessionInfo{ID: "ef56", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Unknown config is a 404",
			requestBody: map[string]string{"config_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("failed to load config nope: %w", config.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	withScore := func(id string, score int, created time.Time) *service.SessionInfo {
		state := engine.InitGame(5, 4)
		state.Score = score
		return &service.SessionInfo{ID: id, CreatedAt: created, LastAccessedAt: created, GameState: state}
	}
	list := func(ctx context.Context) ([]*service.SessionInfo, error) {
		return []*service.SessionInfo{
			withScore("a", 1, now.Add(-2*time.Minute)),
			withScore("b", 5, now.Add(-1*time.Minute)),
			withScore("c", 3, now),
		}, nil
	}

	tests := []struct {
		name      string
		query     string
		expectIDs []string
	}{
		{"default sorts by access time desc", "", []string{"c", "b", "a"}},
		{"created ascending", "?sort=created&order=asc", []string{"a", "b", "c"}},
		{"score descending", "?sort=score", []string{"b", "c", "a"}},
		{"limit", "?sort=created&order=asc&limit=2", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t, &MockGameService{ListSessionsFunc: list})
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != 3 {
				t.Errorf("Expected total 3, got %d", resp.Total)
			}
			if resp.Count != len(tt.expectIDs) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.expectIDs), resp.Count)
			}
			for i, id := range tt.expectIDs {
				if resp.Sessions[i].ID != id {
					t.Errorf("Expected session %d to be %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestSessionNotFound(t *testing.T) {
	notFound := fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			return nil, notFound
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error { return notFound },
		GetGameStateFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return nil, notFound
		},
		InputFunc: func(ctx context.Context, sessionID, code string) (*service.ActionResult, error) {
			return nil, notFound
		},
		FireFunc: func(ctx context.Context, sessionID string) (*service.ActionResult, error) {
			return nil, notFound
		},
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return nil, notFound
		},
	}

	tests := []struct {
		method string
		path   string
		body   interface{}
	}{
		{"GET", "/api/sessions/zz99", nil},
		{"DELETE", "/api/sessions/zz99", nil},
		{"GET", "/api/sessions/zz99/state", nil},
		{"POST", "/api/sessions/zz99/input", map[string]string{"code": "left"}},
		{"POST", "/api/sessions/zz99/fire", nil},
		{"POST", "/api/sessions/zz99/reset", nil},
		{"GET", "/api/sessions/zz99/export", nil},
		{"POST", "/api/sessions/zz99/clock", nil},
		{"DELETE", "/api/sessions/zz99/clock", nil},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			server := setupTestServer(t, mock)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, tt.body))

			if w.Code != http.StatusNotFound {
				t.Errorf("Expected status 404, got %d", w.Code)
			}
		})
	}
}

func TestInput(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectCode     string
		expectedStatus int
	}{
		{"direction name", map[string]interface{}{"code": "left"}, "left", http.StatusOK},
		{"key code", map[string]interface{}{"key_code": 37}, "37", http.StatusOK},
		{"code wins over key code", map[string]interface{}{"code": "up", "key_code": 40}, "up", http.StatusOK},
		{"missing code", map[string]interface{}{}, "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			mock := &MockGameService{
				InputFunc: func(ctx context.Context, sessionID, code string) (*service.ActionResult, error) {
					got = code
					return mockResult("input"), nil
				},
			}

			server := setupTestServer(t, mock)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/input", tt.body))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if got != tt.expectCode {
				t.Errorf("Expected code %q, got %q", tt.expectCode, got)
			}
		})
	}

	t.Run("invalid body", func(t *testing.T) {
		server := setupTestServer(t, &MockGameService{})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/sessions/ab12/input", strings.NewReader("{"))
		server.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestTick(t *testing.T) {
	t.Run("count repeats and merges events", func(t *testing.T) {
		calls := 0
		mock := &MockGameService{
			TickFunc: func(ctx context.Context, sessionID, kind string) (*service.ActionResult, error) {
				calls++
				if kind != "bullet" {
					t.Errorf("Expected kind bullet, got %s", kind)
				}
				result := mockResult("tick_bullet")
				result.Events = []engine.GameEvent{{Type: engine.EventBulletMoved, Sequence: calls}}
				return result, nil
			},
		}

		server := setupTestServer(t, mock)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/tick", map[string]interface{}{"kind": "bullet", "count": 3}))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp service.ActionResult
		parseResponse(t, w, &resp)
		if calls != 3 || len(resp.Events) != 3 {
			t.Errorf("Expected 3 ticks and 3 events, got %d and %d", calls, len(resp.Events))
		}
	})

	t.Run("unknown kind is a 400", func(t *testing.T) {
		mock := &MockGameService{
			TickFunc: func(ctx context.Context, sessionID, kind string) (*service.ActionResult, error) {
				return nil, fmt.Errorf("%w: %q", service.ErrUnknownTickKind, kind)
			},
		}
		server := setupTestServer(t, mock)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/tick", map[string]string{"kind": "laser"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		expect service.HistoryOptions
	}{
		{"defaults", "", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"explicit", "?page=2&limit=5&order=asc", service.HistoryOptions{Page: 2, Limit: 5, Order: "asc"}},
		{"garbage falls back", "?page=x&limit=-1&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			mock := &MockGameService{
				GetEventHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Events: []engine.GameEvent{}}, nil
				},
			}
			server := setupTestServer(t, mock)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/history"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.expect {
				t.Errorf("Expected options %+v, got %+v", tt.expect, got)
			}
		})
	}
}

func TestGetGridText(t *testing.T) {
	server := setupTestServer(t, &MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/grid?format=text", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 rows, got %d", len(lines))
	}
	if lines[4] != "__@_" {
		t.Errorf("Expected bottom row '__@_', got %q", lines[4])
	}
}

func TestConfigs(t *testing.T) {
	t.Run("get config strips extension", func(t *testing.T) {
		var got string
		mock := &MockGameService{
			LoadConfigFunc: func(ctx context.Context, name string) (*engine.GameConfig, error) {
				got = name
				return engine.DefaultGameConfig(), nil
			},
		}
		server := setupTestServer(t, mock)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs/arena.json", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if got != "arena" {
			t.Errorf("Expected 'arena', got %q", got)
		}
	})

	t.Run("create config derives id from name", func(t *testing.T) {
		var gotID string
		mock := &MockGameService{
			SaveConfigFunc: func(ctx context.Context, name string, cfg *engine.GameConfig) error {
				gotID = name
				if cfg.Rows != 5 || cfg.Cols != 4 {
					t.Errorf("Expected 5x4 config, got %dx%d", cfg.Rows, cfg.Cols)
				}
				return nil
			},
		}
		cfg := engine.DefaultGameConfig()
		cfg.Name = "My Board"

		server := setupTestServer(t, mock)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", cfg))

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", w.Code)
		}
		if gotID != "my_board" {
			t.Errorf("Expected config id 'my_board', got %q", gotID)
		}
	})

	t.Run("invalid config is a 400", func(t *testing.T) {
		mock := &MockGameService{
			SaveConfigFunc: func(ctx context.Context, name string, cfg *engine.GameConfig) error {
				return fmt.Errorf("%w: rows out of range", config.ErrInvalidConfig)
			},
		}
		cfg := engine.DefaultGameConfig()
		server := setupTestServer(t, mock)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", cfg))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		server := setupTestServer(t, &MockGameService{})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]int{"rows": 5}))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestWebSocketEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			queryParams:    "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, session.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/ws"+tt.queryParams, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestConfigIDFromName(t *testing.T) {
	tests := map[string]string{
		"Classic":         "classic",
		"My Board":        "my_board",
		"  Arena-2  ":     "arena-2",
		"Weird/../Name!!": "weirdname",
	}
	for in, want := range tests {
		if got := configIDFromName(in); got != want {
			t.Errorf("configIDFromName(%q): expected %q, got %q", in, want, got)
		}
	}
}

// newRealServer wires the real service against the bundled configs
func newRealServer(t *testing.T) *httptest.Server {
	t.Helper()
	configManager, err := config.NewManager("../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	gameService := service.NewGameService(session.NewManager(), configManager)
	ts := httptest.NewServer(setupTestServer(t, gameService))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}, target interface{}) int {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("Failed to decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestGameFlowOverHTTP(t *testing.T) {
	ts := newRealServer(t)

	var info service.SessionInfo
	if status := postJSON(t, ts.URL+"/api/sessions", map[string]string{"config_id": "classic"}, &info); status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", status)
	}
	base := ts.URL + "/api/sessions/" + info.ID

	if info.GameState.Player.Pos != (engine.Position{X: 2, Y: 4}) {
		t.Errorf("Expected spawn at (2,4), got %v", info.GameState.Player.Pos)
	}

	var moved service.ActionResult
	postJSON(t, base+"/input", map[string]int{"key_code": 37}, &moved)
	if !moved.Success || moved.GameState.Player.Pos.X != 1 {
		t.Errorf("Expected key code 37 to move left, got %+v", moved.GameState.Player.Pos)
	}
	if moved.Grid[4] != "_@__" {
		t.Errorf("Expected bottom row '_@__', got %q", moved.Grid[4])
	}

	var fired service.ActionResult
	postJSON(t, base+"/fire", nil, &fired)
	if !fired.Success || fired.GameState.BulletState != engine.BulletInFlight {
		t.Fatalf("Expected bullet in flight, got %+v", fired)
	}

	var busy service.ActionResult
	postJSON(t, base+"/fire", nil, &busy)
	if busy.Success {
		t.Error("Expected second fire to be a no-op")
	}
	if n := strings.Count(strings.Join(busy.Grid, ""), "|"); n != 1 {
		t.Errorf("Expected one bullet cell, got %d", n)
	}

	var ticked service.ActionResult
	postJSON(t, base+"/tick", map[string]interface{}{"kind": "bullet", "count": 10}, &ticked)
	if ticked.GameState.BulletState != engine.Idle {
		t.Errorf("Expected the bullet slot to return to idle, got %s", ticked.GameState.BulletState)
	}

	resp, err := http.Get(base + "/history?order=asc&limit=100")
	if err != nil {
		t.Fatalf("History request failed: %v", err)
	}
	var history service.HistoryResponse
	json.NewDecoder(resp.Body).Decode(&history)
	resp.Body.Close()
	if history.TotalEvents == 0 || history.Events[0].Type != engine.EventEnemySpawned {
		t.Errorf("Expected history to start with the first wave, got %+v", history.Events)
	}

	resp, err = http.Get(base + "/export")
	if err != nil {
		t.Fatalf("Export request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from export, got %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	rows, err := archive.Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Failed to read exported parquet: %v", err)
	}
	if len(rows) != history.TotalEvents {
		t.Errorf("Expected %d exported rows, got %d", history.TotalEvents, len(rows))
	}
	if rows[0].ExportID != resp.Header.Get("X-Export-Id") {
		t.Errorf("Expected rows stamped with export id %s, got %s", resp.Header.Get("X-Export-Id"), rows[0].ExportID)
	}
}

func TestClockOverHTTP(t *testing.T) {
	ts := newRealServer(t)

	var info service.SessionInfo
	postJSON(t, ts.URL+"/api/sessions", map[string]string{"config_id": "gauntlet"}, &info)
	base := ts.URL + "/api/sessions/" + info.ID

	var started map[string]interface{}
	if status := postJSON(t, base+"/clock", nil, &started); status != http.StatusOK {
		t.Fatalf("Expected 200 starting clock, got %d", status)
	}

	// The gauntlet enemy moves every 350ms; wait for it to leave the spawn cell
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(base + "/state")
		if err != nil {
			t.Fatalf("State request failed: %v", err)
		}
		var state engine.GameState
		json.NewDecoder(resp.Body).Decode(&state)
		resp.Body.Close()
		if state.Ticks > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Clock did not tick the session")
		}
		time.Sleep(50 * time.Millisecond)
	}

	req, _ := http.NewRequest("DELETE", base+"/clock", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Stop request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 stopping clock, got %d", resp.StatusCode)
	}
}
