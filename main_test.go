package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/wricardo/cellwar/game/service"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}

	expectedAppName := "Cell War Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

// clearEnv unsets the server's variables for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CELLWAR_HOST", "CELLWAR_PORT", "CELLWAR_MAPS_DIR", "CELLWAR_LOG_LEVEL", "CELLWAR_RULES", "CELLWAR_ALLOWED_ORIGINS", "NGROK_ENABLED", "NGROK_AUTHTOKEN", "NGROK_DOMAIN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	clearEnv(t)

	settings, err := loadSettings(nil)
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}

	if settings.Host != "localhost" || settings.Port != 8080 {
		t.Errorf("Expected localhost:8080, got %s", settings.Addr())
	}
	if settings.MapsDir != "maps" {
		t.Errorf("Expected maps dir 'maps', got %q", settings.MapsDir)
	}
	if settings.Rules != "standard" {
		t.Errorf("Expected standard rules, got %q", settings.Rules)
	}
	if settings.LogLevel != "info" {
		t.Errorf("Expected info log level, got %q", settings.LogLevel)
	}
	if settings.Mode != "server" {
		t.Errorf("Expected server mode, got %q", settings.Mode)
	}
	if len(settings.AllowedOrigins) != 0 {
		t.Errorf("Expected no origin restriction, got %v", settings.AllowedOrigins)
	}
}

func TestLoadSettings_EnvAndFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("CELLWAR_PORT", "9000")
	t.Setenv("CELLWAR_RULES", "flat")
	t.Setenv("CELLWAR_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("NGROK_ENABLED", "true")

	settings, err := loadSettings(nil)
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if settings.Port != 9000 {
		t.Errorf("Expected port from env, got %d", settings.Port)
	}
	if settings.Rules != "flat" {
		t.Errorf("Expected rules from env, got %q", settings.Rules)
	}
	if len(settings.AllowedOrigins) != 2 || settings.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("Expected two origins, got %v", settings.AllowedOrigins)
	}
	if !settings.NgrokEnabled {
		t.Error("Expected ngrok enabled from env")
	}

	settings, err = loadSettings([]string{"-port", "9090", "-rules", "standard", "-allowed-origins", " http://c.test , ", "-debug", "mcp"})
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if settings.Port != 9090 {
		t.Errorf("Expected flag to override port, got %d", settings.Port)
	}
	if settings.Rules != "standard" {
		t.Errorf("Expected flag to override rules, got %q", settings.Rules)
	}
	if len(settings.AllowedOrigins) != 1 || settings.AllowedOrigins[0] != "http://c.test" {
		t.Errorf("Expected trimmed origin list, got %v", settings.AllowedOrigins)
	}
	if settings.LogLevel != "debug" {
		t.Errorf("Expected -debug to force debug level, got %q", settings.LogLevel)
	}
	if settings.Mode != "mcp" {
		t.Errorf("Expected mode from args, got %q", settings.Mode)
	}
}

func TestLoadSettings_Errors(t *testing.T) {
	clearEnv(t)
	t.Setenv("CELLWAR_PORT", "not-a-port")
	if _, err := loadSettings(nil); err == nil {
		t.Error("Expected error for invalid CELLWAR_PORT")
	}

	os.Unsetenv("CELLWAR_PORT")
	if _, err := loadSettings([]string{"-no-such-flag"}); err == nil {
		t.Error("Expected error for unknown flag")
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("warn")
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("Expected warn level, got %s", logger.GetLevel())
	}

	if _, err := newLogger("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func testSettings(t *testing.T) *Settings {
	return &Settings{
		Host:    "localhost",
		Port:    8080,
		MapsDir: filepath.Join(t.TempDir(), "maps"),
		Rules:   "standard",
	}
}

func TestInitializeServices(t *testing.T) {
	log, _ := test.NewNullLogger()
	settings := testSettings(t)
	settings.Rules = "flat"

	gameService, err := initializeServices(settings, log)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	info, err := gameService.CreateGame(context.Background(), service.CreateGameOptions{})
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if info.Rules != "flat" {
		t.Errorf("Expected default rules to apply, got %q", info.Rules)
	}

	maps, err := gameService.ListMaps(context.Background())
	if err != nil {
		t.Fatalf("ListMaps failed: %v", err)
	}
	if len(maps) != 0 {
		t.Errorf("Expected empty map library, got %d maps", len(maps))
	}
}

func TestInitializeServices_UnknownRules(t *testing.T) {
	log, _ := test.NewNullLogger()
	settings := testSettings(t)
	settings.Rules = "chess"

	if _, err := initializeServices(settings, log); err == nil {
		t.Error("Expected error for unknown default rules")
	}
}

func TestRootHandler(t *testing.T) {
	log, _ := test.NewNullLogger()
	settings := testSettings(t)

	gameService, err := initializeServices(settings, log)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	handler := newRootHandler(settings, gameService, nil, log)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Cell War") {
		t.Errorf("Expected health text, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/mcp", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /mcp, got %d", rec.Code)
	}

	initialize := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", strings.NewReader(initialize)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /mcp, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON response, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Cell War") {
		t.Errorf("Expected server name in initialize response, got %s", rec.Body.String())
	}
}
