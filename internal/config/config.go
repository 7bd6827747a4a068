package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override file configuration.
const (
	EnvAnalyzeURL     = "PLATESCAN_ANALYZE_URL"
	EnvAnalyzeTimeout = "PLATESCAN_ANALYZE_TIMEOUT" // seconds
	EnvWebPort        = "PLATESCAN_WEB_PORT"
)

// Config holds application configuration.
type Config struct {
	// AnalyzeURL is the image analysis endpoint that receives the multipart upload.
	AnalyzeURL string `json:"analyze_url"`

	// AnalyzeTimeoutSeconds is the fixed client-side timeout for one analysis call.
	// There is no retry; a timeout is reported to the caller as ANALYZE_TIMEOUT.
	AnalyzeTimeoutSeconds int `json:"analyze_timeout_seconds"`

	// MaxUploadBytes caps the size of an image accepted by the HTTP API.
	MaxUploadBytes int64 `json:"max_upload_bytes,omitempty"`

	// WebBind and WebPort control where `platescan serve` listens.
	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`

	// AllowedOrigins lists CORS origins allowed to call the JSON API.
	// Empty means same-origin only.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections
	// for the local account store. 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "meal", "history".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AnalyzeURL:            "http://localhost:8000/analyze",
		AnalyzeTimeoutSeconds: DefaultAnalyzeTimeoutSeconds,
		MaxUploadBytes:        10 << 20,
		WebBind:               "127.0.0.1",
		WebPort:               8420,
	}
}

// DefaultAnalyzeTimeoutSeconds is the fixed analysis timeout when none is configured.
const DefaultAnalyzeTimeoutSeconds = 25

// AnalyzeTimeout returns the analysis timeout as a duration.
// A non-positive setting never means "no timeout"; it falls back to the default.
func (c *Config) AnalyzeTimeout() time.Duration {
	if c.AnalyzeTimeoutSeconds <= 0 {
		return DefaultAnalyzeTimeoutSeconds * time.Second
	}
	return time.Duration(c.AnalyzeTimeoutSeconds) * time.Second
}

// Validate rejects settings that would disable a limit or cannot be served.
func (c *Config) Validate() error {
	if c.AnalyzeTimeoutSeconds <= 0 {
		return fmt.Errorf("analyze_timeout_seconds must be positive, got %d", c.AnalyzeTimeoutSeconds)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("max_upload_bytes must not be negative, got %d", c.MaxUploadBytes)
	}
	if c.WebPort <= 0 || c.WebPort > 65535 {
		return fmt.Errorf("web_port must be a valid port, got %d", c.WebPort)
	}
	return nil
}

// LoadWithRepo loads configuration from both global (~/.platescan) and project (.platescan) directories.
// The project config is found by walking upward from startDir.
// A .env file in startDir is loaded into the environment before overrides are applied;
// variables already set in the environment win.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	envPath := filepath.Join(startDir, ".env")
	if _, statErr := os.Stat(envPath); statErr == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .platescan/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".platescan", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overrides cfg fields from PLATESCAN_* environment variables.
func ApplyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvAnalyzeURL)); v != "" {
		cfg.AnalyzeURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAnalyzeTimeout)); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return fmt.Errorf("%s must be a positive number of seconds, got %q", EnvAnalyzeTimeout, v)
		}
		cfg.AnalyzeTimeoutSeconds = secs
	}
	if v := strings.TrimSpace(os.Getenv(EnvWebPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be a valid port, got %q", EnvWebPort, v)
		}
		cfg.WebPort = port
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.AnalyzeURL = firstString(overlay.AnalyzeURL, base.AnalyzeURL)
	result.WebBind = firstString(overlay.WebBind, base.WebBind)
	result.AnalyzeTimeoutSeconds = firstInt(overlay.AnalyzeTimeoutSeconds, base.AnalyzeTimeoutSeconds)
	result.WebPort = firstInt(overlay.WebPort, base.WebPort)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.MaxUploadBytes = overlay.MaxUploadBytes
	if result.MaxUploadBytes == 0 {
		result.MaxUploadBytes = base.MaxUploadBytes
	}

	result.AllowedOrigins = mergeStringSlice(base.AllowedOrigins, overlay.AllowedOrigins)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstString(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func firstInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
