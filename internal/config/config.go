package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tab host.
type Config struct {
	// IPC socket; empty means the default per-process path.
	SocketPath string

	// Logging
	LogLevel string
	LogFile  string

	// Web engine (CDP); empty CDPAddress disables web tabs.
	CDPAddress string
	CDPPort    int

	// Optional read-only debug HTTP API.
	DebugAPI           bool
	DebugAPIBind       string
	DebugAPICandidates []string
	DebugAPIFallback   bool

	// Tab panel defaults.
	PanelEnabled bool
	PanelWidth   int

	// Bounds and timeouts.
	ClosedTabHistory  int
	InspectorQueueCap int
	EngineTimeoutMS   int
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		SocketPath:         getEnvOrDefault("TABHOST_SOCKET_PATH", ""),
		LogLevel:           getEnvOrDefault("TABHOST_LOG_LEVEL", "info"),
		LogFile:            getEnvOrDefault("TABHOST_LOG_FILE", "logs/tabhost.log"),
		CDPAddress:         getEnvOrDefault("TABHOST_CDP_ADDRESS", ""),
		CDPPort:            getEnvIntOrDefault("TABHOST_CDP_PORT", 9222),
		DebugAPI:           getEnvBoolOrDefault("TABHOST_DEBUG_API", false),
		DebugAPIBind:       getEnvOrDefault("TABHOST_DEBUG_API_BIND", "127.0.0.1:8189"),
		DebugAPICandidates: getEnvListOrDefault("TABHOST_DEBUG_API_CANDIDATES", []string{"127.0.0.1:8189", "127.0.0.1:8190", "127.0.0.1:8191"}),
		DebugAPIFallback:   getEnvBoolOrDefault("TABHOST_DEBUG_API_FALLBACK", true),
		PanelEnabled:       getEnvBoolOrDefault("TABHOST_PANEL_ENABLED", true),
		PanelWidth:         getEnvIntOrDefault("TABHOST_PANEL_WIDTH", 240),
		ClosedTabHistory:   getEnvIntOrDefault("TABHOST_CLOSED_TAB_HISTORY", 10),
		InspectorQueueCap:  getEnvIntOrDefault("TABHOST_INSPECTOR_QUEUE_CAP", 1024),
		EngineTimeoutMS:    getEnvIntOrDefault("TABHOST_ENGINE_TIMEOUT_MS", 15000),
	}

	return cfg, nil
}

// WebEnabled reports whether a browser endpoint is configured.
func (c *Config) WebEnabled() bool {
	return c.CDPAddress != ""
}

// GetCDPURL returns the CDP HTTP endpoint used by the web engine.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		var out []string
		for _, entry := range strings.Split(val, ",") {
			if trimmed := strings.TrimSpace(entry); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
