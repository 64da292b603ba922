// Command cellwar starts the Cell War game server.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket updates and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from the environment (and an optional .env file); flags
// override them. ngrok tunneling is available for easy external access
// during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/cellwar/api"
	"github.com/wricardo/cellwar/game/engine"
	"github.com/wricardo/cellwar/game/maps"
	"github.com/wricardo/cellwar/game/registry"
	"github.com/wricardo/cellwar/game/service"
	"github.com/wricardo/cellwar/transport/mcp"
	"github.com/wricardo/cellwar/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Cell War Server"
)

// Settings controls how the server starts and which services are enabled
type Settings struct {
	Host           string   `env:"CELLWAR_HOST" envDefault:"localhost"`
	Port           int      `env:"CELLWAR_PORT" envDefault:"8080"`
	MapsDir        string   `env:"CELLWAR_MAPS_DIR" envDefault:"maps"`
	LogLevel       string   `env:"CELLWAR_LOG_LEVEL" envDefault:"info"`
	Rules          string   `env:"CELLWAR_RULES" envDefault:"standard"`
	AllowedOrigins []string `env:"CELLWAR_ALLOWED_ORIGINS" envSeparator:","`

	NgrokEnabled   bool   `env:"NGROK_ENABLED"`
	NgrokAuthToken string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string `env:"NGROK_DOMAIN"`

	Debug   bool
	Version bool
	Mode    string
}

// Addr is the host:port the HTTP server binds to
func (s *Settings) Addr() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// loadSettings reads the environment first and lets command-line flags override it
func loadSettings(args []string) (*Settings, error) {
	settings := &Settings{}
	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("cellwar", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&settings.Host, "host", settings.Host, "HTTP server host")
	fs.IntVar(&settings.Port, "port", settings.Port, "HTTP server port")
	fs.StringVar(&settings.MapsDir, "maps-dir", settings.MapsDir, "Directory containing saved maps")
	fs.StringVar(&settings.LogLevel, "log-level", settings.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&settings.Rules, "rules", settings.Rules, "Default ruleset (standard, flat)")
	fs.Func("allowed-origins", "Comma-separated CORS origins (default any)", func(v string) error {
		settings.AllowedOrigins = splitList(v)
		return nil
	})
	fs.BoolVar(&settings.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&settings.Version, "version", false, "Show version information")
	fs.BoolVar(&settings.NgrokEnabled, "ngrok", settings.NgrokEnabled, "Enable ngrok tunnel")
	fs.StringVar(&settings.NgrokAuthToken, "ngrok-auth", settings.NgrokAuthToken, "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	fs.StringVar(&settings.NgrokDomain, "ngrok-domain", settings.NgrokDomain, "Custom ngrok domain (optional)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	settings.Mode = "server"
	if fs.NArg() > 0 {
		settings.Mode = fs.Arg(0)
	}
	if settings.Debug {
		settings.LogLevel = "debug"
	}
	return settings, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
	fmt.Fprintf(os.Stderr, "Available modes:\n")
	fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
	fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
	fmt.Fprintf(os.Stderr, "  mcp-stdio, mcp   Aliases for stdio-mcp\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	fmt.Fprintf(os.Stderr, "  -host, -port, -maps-dir, -log-level, -rules, -allowed-origins\n")
	fmt.Fprintf(os.Stderr, "  -debug, -version, -ngrok, -ngrok-auth, -ngrok-domain\n")
	fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
	fmt.Fprintf(os.Stderr, "  CELLWAR_HOST, CELLWAR_PORT, CELLWAR_MAPS_DIR, CELLWAR_LOG_LEVEL, CELLWAR_RULES,\n")
	fmt.Fprintf(os.Stderr, "  CELLWAR_ALLOWED_ORIGINS, NGROK_ENABLED, NGROK_AUTHTOKEN, NGROK_DOMAIN\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s                    # Run HTTP server on default port 8080\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -port 9090         # Run HTTP server on port 9090\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -rules flat        # New games use the flat ruleset by default\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s stdio-mcp          # Run MCP stdio server\n", os.Args[0])
}

// newLogger builds the process logger. It writes to stderr so stdio MCP keeps stdout.
func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger, nil
}

// main loads settings, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	settings, err := loadSettings(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(2)
	}

	if settings.Version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	log, err := newLogger(settings.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q: %v\n", settings.LogLevel, err)
		os.Exit(2)
	}

	if envErr == nil {
		log.Info("Loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		log.WithError(envErr).Warn("Error loading .env file")
	}

	log.WithFields(logrus.Fields{"version": Version, "mode": settings.Mode}).Infof("Starting %s", AppName)

	gameService, err := initializeServices(settings, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize services")
	}

	switch settings.Mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(settings, gameService, log)

	case "server", "http":
		runHTTPServer(settings, gameService, log)

	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", settings.Mode)
	}
}

// initializeServices wires the game registry, the map library and the game service
func initializeServices(settings *Settings, log logrus.FieldLogger) (service.GameService, error) {
	if _, err := engine.RulesByName(settings.Rules); err != nil {
		return nil, fmt.Errorf("invalid default rules: %w", err)
	}

	library, err := maps.NewManager(settings.MapsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create map library: %w", err)
	}

	gameService := service.NewGameService(
		registry.New(),
		library,
		service.WithLogger(log.WithField("component", "service")),
		service.WithDefaultRules(settings.Rules),
	)
	return gameService, nil
}

// newMCPHandler serves single JSON-RPC messages over HTTP POST
func newMCPHandler(mcpServer *server.MCPServer) http.HandlerFunc {
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

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRootHandler combines the API server with the /mcp endpoint
func newRootHandler(settings *Settings, gameService service.GameService, hub *websocket.Hub, log logrus.FieldLogger) http.Handler {
	apiServer := api.NewServer(gameService, hub,
		api.WithLogger(log.WithField("component", "api")),
		api.WithAllowedOrigins(settings.AllowedOrigins),
	)

	mcpClient := mcp.NewClient("http://" + settings.Addr())

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", newMCPHandler(mcpClient.GetMCPServer()))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(settings *Settings, gameService service.GameService, log *logrus.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	addr := settings.Addr()
	handler := newRootHandler(settings, gameService, hub, log)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Infof("HTTP server listening on %s", addr)
		log.Infof("REST API: http://%s/api", addr)
		log.Infof("WebSocket: ws://%s/ws?game=<game_id>", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	if settings.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, settings, handler, log)
		}()
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info("Server stopped")
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, settings *Settings, handler http.Handler, log *logrus.Logger) {
	authToken := settings.NgrokAuthToken
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		log.Warn("Ngrok enabled but no auth token provided (use -ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
		log.Infof("Using custom ngrok domain: %s", settings.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}

	ngrokURL := tun.URL()
	log.WithField("url", ngrokURL).Info("Ngrok tunnel established")
	log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	log.Infof("  WebSocket (ngrok): %s/ws?game=<game_id>", ngrokURL)
	log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.WithError(err).Error("Ngrok server error")
	}
	log.Info("Ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It reuses an API already listening on the configured address; otherwise it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(settings *Settings, gameService service.GameService, log *logrus.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	externalURL := "http://" + settings.Addr()
	log.Infof("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Infof("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Info("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.WithError(err).Fatal("Failed to get available port")
		}
		internalAddr := listener.Addr().String()

		hub := websocket.NewHub(log)
		go hub.Run(ctx)

		apiServer := api.NewServer(gameService, hub, api.WithLogger(log.WithField("component", "api")))
		httpServer := &http.Server{Handler: apiServer}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("Internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		log.Infof("Internal HTTP server on %s for MCP stdio", internalAddr)
		baseURL = "http://" + internalAddr
	}

	mcpClient := mcp.NewClient(baseURL)
	log.WithField("api", baseURL).Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.WithError(err).Fatal("MCP stdio server error")
	}
}
