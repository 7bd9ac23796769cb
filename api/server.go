package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/grid-shooter/game/archive"
	"github.com/wricardo/grid-shooter/game/config"
	"github.com/wricardo/grid-shooter/game/engine"
	"github.com/wricardo/grid-shooter/game/scheduler"
	"github.com/wricardo/grid-shooter/game/service"
	"github.com/wricardo/grid-shooter/game/session"
	"github.com/wricardo/grid-shooter/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	clocks  *scheduler.Registry
	router  *mux.Router
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		clocks:  scheduler.NewRegistry(gameService),
		router:  mux.NewRouter(),
	}

	if hub != nil {
		hub.OnAction(s.handleSocketAction)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Unified sessions for multi-session view (must be before {id} pattern)
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/grid", s.handleGetGrid).Methods("GET")
	api.HandleFunc("/sessions/{id}/input", s.handleInput).Methods("POST")
	api.HandleFunc("/sessions/{id}/fire", s.handleFire).Methods("POST")
	api.HandleFunc("/sessions/{id}/tick", s.handleTick).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/export", s.handleExport).Methods("GET")

	// Real-time clock
	api.HandleFunc("/sessions/{id}/clock", s.handleClockStatus).Methods("GET")
	api.HandleFunc("/sessions/{id}/clock", s.handleClockStart).Methods("POST")
	api.HandleFunc("/sessions/{id}/clock", s.handleClockStop).Methods("DELETE")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Static files (if needed)
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static/")))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown stops every running clock
func (s *Server) Shutdown() {
	s.clocks.StopAll()
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, scheduler.ErrLoopNotRunning):
		return http.StatusNotFound
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, service.ErrUnknownTickKind):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
		Clock      bool   `json:"clock,omitempty"`
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	// Support both parameter names, but prefer config_id
	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	info, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if req.Clock {
		s.startClock(info.ID)
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default) or "score"
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sortBy == "score" {
			si, sj := scoreOf(sessions[i]), scoreOf(sessions[j])
			if order == "asc" {
				return si < sj
			}
			return si > sj
		}

		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	limit := total
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func scoreOf(info *service.SessionInfo) int {
	if info.GameState == nil {
		return 0
	}
	return info.GameState.Score
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	s.clocks.Stop(sessionID)
	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	grid, err := s.service.GetGrid(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, strings.Join(grid.Lines, "\n"))
		return
	}

	respondJSON(w, http.StatusOK, grid)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Code    string `json:"code"`
		KeyCode int    `json:"key_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	code := req.Code
	if code == "" && req.KeyCode != 0 {
		code = strconv.Itoa(req.KeyCode)
	}
	if code == "" {
		respondError(w, http.StatusBadRequest, "code or key_code is required")
		return
	}

	result, err := s.service.Input(r.Context(), sessionID, code)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.afterAction(sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleFire(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Fire(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.afterAction(sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Kind  string `json:"kind"`
		Count int    `json:"count,omitempty"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Count < 1 {
		req.Count = 1
	}
	if req.Count > 100 {
		req.Count = 100
	}

	var (
		result *service.ActionResult
		events []engine.GameEvent
	)
	for i := 0; i < req.Count; i++ {
		var err error
		result, err = s.service.Tick(r.Context(), sessionID, req.Kind)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		events = append(events, result.Events...)
		if result.GameOver {
			break
		}
	}
	result.Events = events

	s.afterAction(sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
	s.refreshClock(sessionID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetEventHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var events []engine.GameEvent
	if info.GameState != nil {
		events = info.GameState.EventHistory
	}

	meta := archive.NewMeta(info.ID, info.ConfigName)
	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.ID+".parquet"))
	w.Header().Set("X-Export-Id", meta.ExportID)

	n, err := archive.Write(w, meta, events)
	if err != nil {
		// Headers are already written
		log.Printf("[EXPORT] session=%s failed after %d rows: %v", sessionID, n, err)
		return
	}
	log.Printf("[EXPORT] session=%s rows=%d export=%s", sessionID, n, meta.ExportID)
}

// Clock Handlers

func (s *Server) handleClockStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	cadence, err := s.service.GetCadence(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"running": s.clocks.Running(sessionID),
		"cadence": cadence,
	})
}

func (s *Server) handleClockStart(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	s.startClock(sessionID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"running": true,
		"message": fmt.Sprintf("Clock started for session %s", sessionID),
	})
}

func (s *Server) handleClockStop(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.clocks.Stop(sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"running": false,
		"message": fmt.Sprintf("Clock stopped for session %s", sessionID),
	})
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	cfg, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
		engine.GameConfig
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = configIDFromName(req.Name)
	}

	if err := s.service.SaveConfig(r.Context(), configID, &req.GameConfig); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// configIDFromName turns a display name into a file-safe identifier
func configIDFromName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Unified Sessions Handler

func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo

	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		for _, id := range strings.Split(sessionIDs, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if info, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, info)
			}
		}
	} else {
		all, err := s.service.ListSessions(r.Context())
		if err != nil {
			respondServiceError(w, err)
			return
		}
		configName := query.Get("configName")
		for _, info := range all {
			if configName == "" || info.ConfigName == configName {
				sessions = append(sessions, info)
			}
		}
	}

	configName := ""
	enemyWaves := 0
	if len(sessions) > 0 {
		configName = sessions[0].ConfigName
		if sessions[0].GameConfig != nil {
			enemyWaves = sessions[0].GameConfig.EnemyWaves
		}
	}

	entries := make([]map[string]interface{}, 0, len(sessions))
	for _, info := range sessions {
		entries = append(entries, map[string]interface{}{
			"session_id":    info.ID,
			"config_name":   info.ConfigName,
			"game_state":    info.GameState,
			"clock_running": s.clocks.Running(info.ID),
			"created_at":    info.CreatedAt,
			"last_accessed": info.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_name": configName,
		"enemy_waves": enemyWaves,
		"sessions":    entries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// handleSocketAction applies an inbound WebSocket action
func (s *Server) handleSocketAction(sessionID string, action websocket.Action) error {
	ctx := context.Background()

	var (
		result *service.ActionResult
		err    error
	)
	switch action.Action {
	case "input", "move":
		result, err = s.service.Input(ctx, sessionID, action.Code)
	case "fire":
		result, err = s.service.Fire(ctx, sessionID)
	case "tick":
		result, err = s.service.Tick(ctx, sessionID, action.Kind)
	case "reset":
		state, resetErr := s.service.Reset(ctx, sessionID)
		if resetErr != nil {
			return resetErr
		}
		s.hub.BroadcastToSession(sessionID, state)
		s.refreshClock(sessionID)
		return nil
	default:
		return fmt.Errorf("unknown action %q", action.Action)
	}
	if err != nil {
		return err
	}

	s.afterAction(sessionID, result)
	return nil
}

// afterAction broadcasts a result, logs it, and re-arms a running clock
func (s *Server) afterAction(sessionID string, result *service.ActionResult) {
	if s.hub != nil {
		s.hub.BroadcastResult(sessionID, result)
	}
	s.refreshClock(sessionID)
	logAction(sessionID, result)
}

func (s *Server) startClock(sessionID string) {
	s.clocks.Start(sessionID, func(result *service.ActionResult) {
		if s.hub != nil {
			s.hub.BroadcastResult(sessionID, result)
		}
	})
}

func (s *Server) refreshClock(sessionID string) {
	if loop, ok := s.clocks.Get(sessionID); ok {
		loop.Refresh()
	}
}

// logAction prints a compact line per action for observability
func logAction(sessionID string, result *service.ActionResult) {
	state := result.GameState
	if state == nil {
		return
	}
	status := "FAIL"
	if result.Success {
		status = "OK"
	}
	types := make([]string, 0, len(result.Events))
	for _, ev := range result.Events {
		types = append(types, string(ev.Type))
	}
	fmt.Printf("[%s] session=%s player=(%d,%d) score=%d slot=%s events=%s status=%s\n",
		strings.ToUpper(result.Action), sessionID, state.Player.Pos.X, state.Player.Pos.Y,
		state.Score, state.BulletState, strings.Join(types, ","), status)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
