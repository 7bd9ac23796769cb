package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/grid-shooter/game/engine"
	"github.com/wricardo/grid-shooter/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Grid Shooter",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Grid Shooter - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Shoot the descending enemy (V) with your bullet (|) before it reaches you (@).

AVAILABLE TOOLS:
- create_session: Create new game session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Get current game state
- render_grid: Get the board as text rows
- move: Move the player (direction name or key code)
- fire: Fire a bullet straight up
- tick: Advance the bullet, the enemy, or both by one step
- reset_game: Reset to initial state
- event_history: View past events
- list_configs: List available configurations
- game_instructions: Get the rules and the symbol legend

Time only passes when you call tick, unless the session was created with a clock.`),
	)

	c.registerTools()
}

func sessionSchema(extra map[string]interface{}, required ...string) mcp.ToolInputSchema {
	props := map[string]interface{}{
		"session_id": map[string]interface{}{
			"type":        "string",
			"description": "Session ID",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"session_id"}, required...),
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config to use, e.g. classic, arena or gauntlet (optional)",
				},
				"clock": map[string]interface{}{
					"type":        "boolean",
					"description": "Advance the game in real time on the server",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionSchema(nil),
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state",
		InputSchema: sessionSchema(nil),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "render_grid",
		Description: "Render the board as text, one row per line",
		InputSchema: sessionSchema(nil),
	}, c.handleRenderGrid)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move the player one cell",
		InputSchema: sessionSchema(map[string]interface{}{
			"direction": map[string]interface{}{
				"type":        "string",
				"description": "up, down, left, right, or a key code such as 37",
			},
			"intent": map[string]interface{}{
				"type":        "string",
				"description": "Brief explanation of the intent behind this move",
			},
		}, "direction"),
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "fire",
		Description: "Fire a bullet from the cell above the player. Only one bullet may be in flight.",
		InputSchema: sessionSchema(nil),
	}, c.handleFire)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Advance game time",
		InputSchema: sessionSchema(map[string]interface{}{
			"kind": map[string]interface{}{
				"type":        "string",
				"enum":        []string{service.TickBullet, service.TickEnemy, service.TickAll},
				"description": "Which cadence to advance (default all)",
			},
			"count": map[string]interface{}{
				"type":        "integer",
				"description": "Number of ticks, up to 100",
			},
		}),
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to initial state",
		InputSchema: sessionSchema(nil),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "event_history",
		Description: "Get the event history for a session",
		InputSchema: sessionSchema(map[string]interface{}{
			"page": map[string]interface{}{
				"type":        "integer",
				"description": "Page number",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Items per page",
			},
		}),
	}, c.handleEventHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	configID, _ := args["config_id"].(string)
	clock, _ := args["clock"].(bool)

	body := map[string]interface{}{}
	if configID != "" {
		body["config_id"] = configID
	}
	if clock {
		body["clock"] = true
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		score := 0
		if s.GameState != nil {
			score = s.GameState.Score
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, Created: %s)\n",
			s.ID, s.ConfigName, score, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleRenderGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var grid service.GridView
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/grid"), nil, &grid); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%dx%d board, player at %s, score %d\n\n%s\n",
		grid.Rows, grid.Cols, grid.Player, grid.Score, strings.Join(grid.Lines, "\n"))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)

	if direction == "" {
		if code, ok := args["direction"].(float64); ok {
			direction = fmt.Sprintf("%d", int(code))
		}
	}

	var result service.ActionResult
	body := map[string]string{"code": direction}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/input"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleFire(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/fire"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	kind, _ := args["kind"].(string)
	if kind == "" {
		kind = service.TickAll
	}

	body := map[string]interface{}{"kind": kind}
	if count, ok := args["count"].(float64); ok {
		body["count"] = int(count)
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/tick"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleEventHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		waves := "endless"
		if cfg.EnemyWaves > 0 {
			waves = fmt.Sprintf("%d", cfg.EnemyWaves)
		}
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Board: %d rows x %d cols, Waves: %s\n\n",
			cfg.Name, cfg.ConfigID, cfg.Description, cfg.Rows, cfg.Cols, waves)
	}

	return mcp.NewToolResultText(b.String()), nil
}

const instructions = `Grid Shooter - Instructions

GAME OBJECTIVE:
Destroy each enemy wave with your bullet before it reaches the bottom row.

GRID LEGEND:
• @ = You (player), starts at the middle of the bottom row
• V = Enemy, enters at the middle of the top row and moves down
• | = Your bullet, moves up
• # = Wall, blocks movement and absorbs bullets
• _ = Empty cell

MOVEMENT COMMANDS:
• move with up, down, left or right
• Arrow key codes 37-40 and numpad codes 4, 8, 6, 2 also work
• Moves into walls, the enemy, or off the board are ignored

FIRING:
• fire spawns a bullet directly above you
• Only one bullet can be in flight; firing again is a no-op until it lands
• A bullet that meets the enemy destroys it and scores a point
• A bullet that leaves the top edge or hits a wall is gone

TIME:
• tick with kind bullet, enemy or all advances the game
• Sessions created with clock: true tick on their own

VICTORY CONDITIONS:
• Finite configs end after the last wave; destroy every wave to win
• Endless configs keep spawning until you stop

Good luck!`

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast Accessed: %s\n\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	return result + formatGameState(session.GameState)
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "Game state unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Player: %s\n", state.Player.Pos)
	if state.Bullet != nil {
		fmt.Fprintf(&b, "Bullet: %s (%s)\n", state.Bullet.Pos, state.BulletState)
	} else {
		fmt.Fprintf(&b, "Bullet: none (%s)\n", state.BulletState)
	}
	if state.Enemy != nil {
		fmt.Fprintf(&b, "Enemy: %s\n", state.Enemy.Pos)
	} else {
		b.WriteString("Enemy: none\n")
	}
	waves := fmt.Sprintf("%d", state.WavesSpawned)
	if state.Rules.EnemyWaves > 0 {
		waves = fmt.Sprintf("%d/%d", state.WavesSpawned, state.Rules.EnemyWaves)
	}
	fmt.Fprintf(&b, "Score: %d  Waves: %s  Ticks: %d\n", state.Score, waves, state.Ticks)
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}

	if state.GameOver {
		if state.Victory {
			b.WriteString("\n🎉 VICTORY!\n")
		} else {
			b.WriteString("\n💀 GAME OVER\n")
		}
	}

	if state.Grid != nil {
		b.WriteString("\nGrid:\n")
		for _, line := range state.Grid.Render() {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✓ %s\n", result.Action)
	} else {
		fmt.Fprintf(&b, "✗ %s had no effect\n", result.Action)
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}

	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, ev := range result.Events {
			b.WriteString(formatEvent(ev))
		}
	}
	if result.Threat != "" {
		fmt.Fprintf(&b, "\nThreat: %s\n", result.Threat)
	}
	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "Possible moves: %s\n", strings.Join(result.PossibleMoves, ", "))
	}

	if len(result.Grid) > 0 {
		b.WriteString("\nGrid:\n")
		b.WriteString(strings.Join(result.Grid, "\n"))
		b.WriteString("\n")
	}
	if result.GameOver {
		b.WriteString("\nThe game is over. Use reset_game to play again.\n")
	}
	return b.String()
}

func formatEvent(ev engine.GameEvent) string {
	line := fmt.Sprintf("  #%d tick %d %s", ev.Sequence, ev.Tick, ev.Type)
	if ev.Kind != "" {
		line += fmt.Sprintf(" [%s]", ev.Kind)
	}
	if ev.From != ev.To {
		line += fmt.Sprintf(" %s -> %s", ev.From, ev.To)
	} else {
		line += fmt.Sprintf(" at %s", ev.To)
	}
	if ev.Reason != "" {
		line += " (" + ev.Reason + ")"
	}
	return line + "\n"
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event History (Page %d/%d), Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalEvents)
	for _, ev := range history.Events {
		b.WriteString(formatEvent(ev))
	}
	if len(history.Events) == 0 {
		b.WriteString("(no events)\n")
	}
	return b.String()
}
