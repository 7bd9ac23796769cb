// Command grid-shooter runs the grid shooter game server.
//
// It supports these commands:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" – plays a session in the terminal
//  4. "export" – writes a session's event history to a Parquet file
//
// Flags control host/port, config and session storage, debug logging,
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/grid-shooter/api"
	"github.com/wricardo/grid-shooter/game/archive"
	"github.com/wricardo/grid-shooter/game/config"
	"github.com/wricardo/grid-shooter/game/service"
	"github.com/wricardo/grid-shooter/game/session"
	"github.com/wricardo/grid-shooter/transport/mcp"
	"github.com/wricardo/grid-shooter/transport/tui"
	"github.com/wricardo/grid-shooter/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Grid Shooter Server"
)

// options holds the resolved command-line settings
type options struct {
	host        string
	port        int
	configDir   string
	sessionsDir string
	databaseURL string
	debug       bool
	ngrok       bool
	ngrokAuth   string
	ngrokDomain string
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:        cmd.String("host"),
		port:        int(cmd.Int("port")),
		configDir:   cmd.String("config-dir"),
		sessionsDir: cmd.String("sessions-dir"),
		databaseURL: cmd.String("database-url"),
		debug:       cmd.Bool("debug"),
		ngrok:       cmd.Bool("ngrok"),
		ngrokAuth:   cmd.String("ngrok-auth"),
		ngrokDomain: cmd.String("ngrok-domain"),
	}
}

// services bundles everything a command needs to serve sessions
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	close       func()
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "grid-shooter",
		Usage:   "Turn-based grid shooter with REST, WebSocket, MCP and terminal frontends",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "Directory for persisted sessions when no database is configured",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection string for session persistence",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runServerCommand,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts := optionsFrom(cmd)
					setupLogging(opts, os.Stderr)
					svc, err := initializeServices(ctx, opts)
					if err != nil {
						return err
					}
					defer svc.close()
					return runStdioMCP(ctx, opts, svc.game)
				},
			},
			{
				Name:  "play",
				Usage: "Play a session in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Value: "classic",
						Usage: "Config to play",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts := optionsFrom(cmd)
					// The terminal belongs to the game
					log.SetOutput(io.Discard)
					configManager, err := config.NewManager(opts.configDir)
					if err != nil {
						return fmt.Errorf("failed to create config manager: %w", err)
					}
					svc := service.NewGameService(session.NewManager(), configManager)
					info, err := svc.CreateSession(ctx, cmd.String("config"))
					if err != nil {
						return err
					}
					return tui.Run(ctx, svc, info.ID)
				},
			},
			{
				Name:  "export",
				Usage: "Write a persisted session's event history to a Parquet file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "session",
						Usage:    "Session ID to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output file (default <session>.parquet)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts := optionsFrom(cmd)
					setupLogging(opts, os.Stderr)
					svc, err := initializeServices(ctx, opts)
					if err != nil {
						return err
					}
					defer svc.close()
					return runExport(ctx, svc.game, cmd.String("session"), cmd.String("out"))
				},
			},
		},
	}
}

// main loads the environment, then runs the selected command until a signal arrives.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogging(opts options, w io.Writer) {
	log.SetOutput(w)
	if opts.debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	setupLogging(opts, os.Stderr)
	log.Printf("Starting %s v%s (mode: server)", AppName, Version)

	svc, err := initializeServices(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.close()

	return runHTTPServer(ctx, opts, svc.game)
}

// mcpHandler serves JSON-RPC MCP messages over plain HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API at the root and the MCP proxy at /mcp
func newRouter(apiServer *api.Server, baseURL string) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, opts options, gameService service.GameService) error {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	apiServer := api.NewServer(gameService, hub)
	defer apiServer.Shutdown()

	addr := fmt.Sprintf("%s:%d", opts.host, opts.port)
	mainRouter := newRouter(apiServer, fmt.Sprintf("http://%s", addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if opts.ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, mainRouter)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		log.Printf("Received shutdown signal. Shutting down...")
	case err = <-serveErr:
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("HTTP server shutdown error: %v", shutdownErr)
	}

	wg.Wait()
	log.Println("Server stopped")
	return err
}

// runNgrokTunnel serves the router through an ngrok endpoint until ctx is done
func runNgrokTunnel(ctx context.Context, opts options, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.Printf("Using custom ngrok domain: %s", opts.ngrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// initializeServices wires session/config managers and the game service.
// It also starts background routines to prune stale sessions.
func initializeServices(ctx context.Context, opts options) (*services, error) {
	configManager, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, closePersistence, err := newPersistence(opts, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}

	routines, cancel := context.WithCancel(ctx)
	go sessionCleanupRoutine(routines, sessionManager)
	go persistenceSyncRoutine(routines, sessionManager, persistence)

	return &services{
		game:        service.NewGameService(sessionManager, configManager),
		sessions:    sessionManager,
		persistence: persistence,
		close: func() {
			cancel()
			if saved, err := sessionManager.Flush(); err != nil {
				log.Printf("Warning: Failed to flush sessions: %v", err)
			} else if saved > 0 {
				log.Printf("Flushed %d sessions with unsaved changes", saved)
			}
			closePersistence()
		},
	}, nil
}

// newPersistence picks PostgreSQL when a database URL is set and the filesystem otherwise
func newPersistence(opts options, configManager *config.Manager) (session.SessionPersistence, func(), error) {
	if opts.databaseURL != "" {
		pg, err := session.NewPostgresPersistence(opts.databaseURL, configManager)
		if err != nil {
			return nil, nil, err
		}
		log.Println("Persisting sessions to PostgreSQL")
		return pg, func() {
			if err := pg.Close(); err != nil {
				log.Printf("Warning: Failed to close database: %v", err)
			}
		}, nil
	}

	fp, err := session.NewFilePersistence(opts.sessionsDir, configManager)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Persisting sessions to %s", opts.sessionsDir)
	return fp, func() {}, nil
}

// sessionCleanupRoutine periodically drops idle sessions and finished games
// from memory. Their persisted copies stay available.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.Sweep(24*time.Hour, time.Hour); removed > 0 {
				log.Printf("Swept %d sessions from memory", removed)
			}
		}
	}
}

// persistenceSyncRoutine drops sessions from memory once their persisted copy is deleted
func persistenceSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pruned := pruneOrphans(manager, persistence)
		if pruned > 0 {
			log.Printf("Persistence sync: pruned %d orphaned sessions from memory", pruned)
		}
	}
}

func pruneOrphans(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.Evict(s.ID); err == nil {
			pruned++
			log.Printf("Pruned session %s from memory (persisted copy deleted)", s.ID)
		}
	}
	return pruned
}

// runStdioMCP runs an MCP stdio server.
// It tries to reuse an external API at the configured port; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, opts options, gameService service.GameService) error {
	baseURL := fmt.Sprintf("http://localhost:%d", opts.port)
	log.Printf("Checking for external API server at %s...", baseURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", baseURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub()
		go hub.Run()
		defer hub.Stop()

		apiServer := api.NewServer(gameService, hub)
		defer apiServer.Shutdown()

		httpServer := &http.Server{Handler: apiServer}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		log.Printf("Internal HTTP server on %s for MCP stdio", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Println("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// runExport writes the session's full event history as Parquet
func runExport(ctx context.Context, gameService service.GameService, sessionID, out string) error {
	info, err := gameService.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if out == "" {
		out = info.ID + ".parquet"
	}

	meta := archive.NewMeta(info.ID, info.ConfigName)
	events := info.GameState.EventHistory
	if err := archive.WriteFile(out, meta, events); err != nil {
		return fmt.Errorf("failed to export session %s: %w", sessionID, err)
	}

	log.Printf("Exported %d events from session %s to %s (export %s)", len(events), info.ID, out, meta.ExportID)
	return nil
}
