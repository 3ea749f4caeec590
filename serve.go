package main

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	gomcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/charmbracelet/log"

	"github.com/wricardo/lightcycle/api"
	"github.com/wricardo/lightcycle/game/config"
	"github.com/wricardo/lightcycle/game/engine"
	"github.com/wricardo/lightcycle/game/service"
	"github.com/wricardo/lightcycle/game/session"
	"github.com/wricardo/lightcycle/transport/mcp"
	"github.com/wricardo/lightcycle/transport/websocket"
)

var (
	flagPort             int
	flagTCPPort          int
	flagTickMs           int
	flagDataDir          string
	flagDBDSN            string
	flagConfigDir        string
	flagHistoryRetention int
	flagDebug            bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the game server",
	Long: `serve starts the game server: the MCP Tool Gateway (join_game, look, steer,
game_status) reachable over HTTP at /mcp and over a line-delimited TCP
socket, the read-only REST/SSE API, and the WebSocket spectator push hub.

Examples:
  lightcycle serve
  lightcycle serve --port 9000 --tcp-port 9090 --tick-ms 500
  lightcycle serve --data-dir ./data --db-dsn postgres://...`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagPort, "port", 8080, "HTTP server port (REST API, WebSocket, /mcp)")
	serveCmd.Flags().IntVar(&flagTCPPort, "tcp-port", 9090, "TCP port for the line-delimited MCP gateway (0 disables it)")
	serveCmd.Flags().IntVar(&flagTickMs, "tick-ms", 500, "Milliseconds between game ticks")
	serveCmd.Flags().StringVar(&flagDataDir, "data-dir", "data", "Directory for leaderboard.json and finished_games.json")
	serveCmd.Flags().StringVar(&flagDBDSN, "db-dsn", "", "Postgres connection string (overrides --data-dir persistence)")
	serveCmd.Flags().StringVar(&flagConfigDir, "config-dir", "course_overrides", "Directory of course override JSON files, hot-reloaded")
	serveCmd.Flags().IntVar(&flagHistoryRetention, "history-retention", 200, "Finished matches kept in finished_games.json (file persistence only)")
	serveCmd.Flags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

func newLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "lightcycle",
		ReportTimestamp: true,
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func fail(logger *log.Logger, msg string, err error) {
	if logger != nil {
		logger.Error(msg, "err", err)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	}
	os.Exit(1)
}

func runServe(cmd *cobra.Command, args []string) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}

	logger := newLogger(flagDebug)
	logger.Infof("starting %s v%s", AppName, Version)

	if err := os.MkdirAll(flagConfigDir, 0755); err != nil {
		fail(logger, "config directory unwritable", err)
	}

	catalog := engine.NewCatalog()
	cfgManager, err := config.NewManager(flagConfigDir, catalog, logger)
	if err != nil {
		fail(logger, "failed to load course overrides", err)
	}
	watchStop := make(chan struct{})
	go func() {
		if err := cfgManager.Watch(watchStop); err != nil {
			logger.Warn("course override watcher stopped", "err", err)
		}
	}()

	var persistence service.PersistenceAdapter
	if flagDBDSN != "" {
		pg, err := session.NewPostgresAdapter(flagDBDSN)
		if err != nil {
			fail(logger, "failed to connect to postgres", err)
		}
		persistence = pg
		logger.Info("persistence backend: postgres")
	} else {
		fileAdapter, err := session.NewFileAdapter(flagDataDir, flagHistoryRetention)
		if err != nil {
			fail(logger, "data directory unwritable", err)
		}
		persistence = fileAdapter
		logger.Info("persistence backend: file", "dir", flagDataDir)
	}

	if flagTickMs > 0 {
		service.SetTickInterval(time.Duration(flagTickMs) * time.Millisecond)
	}

	coord := service.NewCoordinator(catalog, persistence, logger)
	hub := websocket.NewHub(logger)
	go hub.Run()
	go pushActiveGames(coord, hub)

	apiServer := api.NewServer(coord, hub)
	mcpSessions := newMCPSessions(coord)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHTTPHandler(mcpSessions))

	addr := fmt.Sprintf(":%d", flagPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP server listening", "addr", addr)
		logger.Info("REST API", "url", fmt.Sprintf("http://localhost%s/api", addr))
		logger.Info("WebSocket", "url", fmt.Sprintf("ws://localhost%s/ws?game_id=<id>", addr))
		logger.Info("MCP endpoint", "url", fmt.Sprintf("http://localhost%s/mcp", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fail(logger, "HTTP server failed", err)
		}
	}()

	var tcpListener net.Listener
	if flagTCPPort > 0 {
		tcpListener, err = net.Listen("tcp", fmt.Sprintf(":%d", flagTCPPort))
		if err != nil {
			fail(logger, "failed to bind TCP MCP port", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("TCP MCP gateway listening", "addr", tcpListener.Addr())
			serveTCPGateway(ctx, tcpListener, coord, logger)
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	close(watchStop)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "err", err)
	}
	if tcpListener != nil {
		tcpListener.Close()
	}

	wg.Wait()
	logger.Info("server stopped")
}

// pushActiveGames drives the WebSocket spectator hub: ActiveGames is a
// read-only poll of the Coordinator, so no actor needs to know the hub
// exists. SSE clients get their own independent poll loop in api.Server.
func pushActiveGames(coord *service.Coordinator, hub *websocket.Hub) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		for _, snap := range coord.ActiveGames() {
			s := snap
			hub.BroadcastSnapshot(s.ID, &s)
		}
	}
}

// mcpSessions hands out a dedicated *mcp.Gateway per MCP session, keyed by
// the caller-supplied Mcp-Session-Id header, so concurrent agents posting
// to /mcp never share a bound player identity the way a single package-
// level Gateway would. A session's Gateway is created on its first request
// and reused for the rest of that session's calls.
type mcpSessions struct {
	coord *service.Coordinator

	mu       sync.Mutex
	gateways map[string]*mcp.Gateway
}

func newMCPSessions(coord *service.Coordinator) *mcpSessions {
	return &mcpSessions{coord: coord, gateways: make(map[string]*mcp.Gateway)}
}

func (s *mcpSessions) gatewayFor(sessionID string) *mcp.Gateway {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gateways[sessionID]
	if !ok {
		g = mcp.NewGateway(s.coord)
		s.gateways[sessionID] = g
	}
	return g
}

func newMCPSessionID() string {
	buf := make([]byte, 8)
	cryptorand.Read(buf)
	return hex.EncodeToString(buf)
}

// mcpHTTPHandler exposes an MCP server as a single JSON-RPC POST endpoint,
// the same shape the teacher's main.go mounted at /mcp. The first request
// from a caller gets a fresh session id back in the Mcp-Session-Id
// response header; later requests must echo it to reuse their bound
// player identity rather than colliding with another caller's.
func mcpHTTPHandler(sessions *mcpSessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sessionID := r.Header.Get("Mcp-Session-Id")
		if sessionID == "" {
			sessionID = newMCPSessionID()
		}
		gateway := sessions.gatewayFor(sessionID)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := gateway.MCPServer().HandleMessage(r.Context(), body)
		w.Header().Set("Mcp-Session-Id", sessionID)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		}
	}
}

// serveTCPGateway accepts TCP connections and binds each one to its own
// line-delimited MCP stdio session and its own freshly built *mcp.Gateway,
// the transport the "play" subcommand's bridge dials into — mirroring the
// original's TCP-backed tronmcp server. A fresh Gateway per connection
// means two concurrent "play" sessions never share a bound player name.
func serveTCPGateway(ctx context.Context, listener net.Listener, coord *service.Coordinator, logger *log.Logger) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Warn("TCP accept error", "err", err)
				return
			}
		}
		go func() {
			defer conn.Close()
			gateway := mcp.NewGateway(coord)
			stdioServer := gomcpserver.NewStdioServer(gateway.MCPServer())
			if err := stdioServer.Listen(ctx, conn, conn); err != nil && err != io.EOF {
				logger.Debug("TCP MCP session ended", "err", err)
			}
		}()
	}
}
