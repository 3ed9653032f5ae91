// Package server provides configuration helpers that define runtime defaults,
// validation, and the environment and file overrides for the static server.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultHost            = "localhost"
	defaultPort            = 8080
	defaultListenBacklog   = 5
	defaultMaxRequestSize  = 8192
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultRateLimitBurst  = 100
)

// RateLimitConfig defines the per-client token bucket applied to new connections.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst"`
	RefillInterval time.Duration `yaml:"refill_interval"`
}

// SiteConfig names the directories and landing page that populate the route table.
type SiteConfig struct {
	ImagesDir  string `yaml:"images_dir"`
	ScriptsDir string `yaml:"scripts_dir"`
	StylesDir  string `yaml:"styles_dir"`
	IndexFile  string `yaml:"index_file"`
}

// Config holds the server configuration settings.
type Config struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	ListenBacklog int    `yaml:"listen_backlog"`
	DebugLogging  bool   `yaml:"debug_logging"`

	// MaxRequestSize bounds the request head in bytes.
	MaxRequestSize  int           `yaml:"max_request_size"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Site      SiteConfig      `yaml:"site"`
}

func defaultSiteConfig() SiteConfig {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return SiteConfig{
		ImagesDir:  filepath.Join(cwd, "images"),
		ScriptsDir: filepath.Join(cwd, "scripts"),
		StylesDir:  filepath.Join(cwd, "styles"),
		IndexFile:  filepath.Join(cwd, "index.html"),
	}
}

func defaultConfig() Config {
	return Config{
		Host:            defaultHost,
		Port:            defaultPort,
		ListenBacklog:   defaultListenBacklog,
		DebugLogging:    true,
		MaxRequestSize:  defaultMaxRequestSize,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		RateLimit: RateLimitConfig{
			Burst:          defaultRateLimitBurst,
			RefillInterval: time.Second,
		},
		Site: defaultSiteConfig(),
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// sanitize replaces unset or non-positive values with their defaults.
func (c *Config) sanitize() {
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.ListenBacklog <= 0 {
		c.ListenBacklog = defaultListenBacklog
	}
	if c.MaxRequestSize <= 0 {
		c.MaxRequestSize = defaultMaxRequestSize
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = defaultRateLimitBurst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}

	site := defaultSiteConfig()
	if c.Site.ImagesDir == "" {
		c.Site.ImagesDir = site.ImagesDir
	}
	if c.Site.ScriptsDir == "" {
		c.Site.ScriptsDir = site.ScriptsDir
	}
	if c.Site.StylesDir == "" {
		c.Site.StylesDir = site.StylesDir
	}
	if c.Site.IndexFile == "" {
		c.Site.IndexFile = site.IndexFile
	}
}

// Validate checks the configuration for values that cannot be used.
// Port 0 asks the system for a free port.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host must not be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// Address returns the host:port pair the server binds to.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoadConfigFile reads a YAML configuration file on top of the defaults.
// Keys missing from the file keep their default values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	normalizeDurations(&doc)

	cfg := defaultConfig()
	if len(doc.Content) > 0 {
		if err := doc.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.sanitize()
	return &cfg, nil
}

// Load builds the configuration from defaults, an optional YAML file, a .env
// file in the working directory and finally environment variables. An empty
// configFile falls back to the CONFIG_FILE environment variable.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}

	cfg := NewConfig()
	if configFile != "" {
		fileCfg, err := LoadConfigFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	ApplyEnv(cfg)
	cfg.sanitize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// durationKeys lists the YAML keys holding a time.Duration.
var durationKeys = map[string]bool{
	"read_timeout":     true,
	"write_timeout":    true,
	"shutdown_timeout": true,
	"refill_interval":  true,
}

// normalizeDurations rewrites bare integers under duration keys as seconds,
// so "read_timeout: 15" means the same as READ_TIMEOUT=15.
func normalizeDurations(node *yaml.Node) {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if durationKeys[key.Value] && value.Kind == yaml.ScalarNode && value.Tag == "!!int" {
				value.Value += "s"
				value.Tag = "!!str"
			}
		}
	}
	for _, child := range node.Content {
		normalizeDurations(child)
	}
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := NewConfig()
	ApplyEnv(cfg)
	cfg.sanitize()
	return cfg
}

// ApplyEnv overrides cfg with any recognized environment variables. Values
// that fail to parse leave the current setting untouched.
func ApplyEnv(cfg *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Host = host
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = parsePort(port, cfg.Port)
	}

	if backlog := os.Getenv("LISTEN_BACKLOG"); backlog != "" {
		cfg.ListenBacklog = parseIntValue(backlog, cfg.ListenBacklog)
	}

	if debug := os.Getenv("DEBUG_LOGGING"); debug != "" {
		cfg.DebugLogging = parseBoolValue(debug, cfg.DebugLogging)
	}

	if maxSize := os.Getenv("MAX_REQUEST_SIZE"); maxSize != "" {
		cfg.MaxRequestSize = parseIntValue(maxSize, cfg.MaxRequestSize)
	}

	if timeout := os.Getenv("READ_TIMEOUT"); timeout != "" {
		cfg.ReadTimeout = parseDuration(timeout, cfg.ReadTimeout)
	}

	if timeout := os.Getenv("WRITE_TIMEOUT"); timeout != "" {
		cfg.WriteTimeout = parseDuration(timeout, cfg.WriteTimeout)
	}

	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		cfg.ShutdownTimeout = parseDuration(timeout, cfg.ShutdownTimeout)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseDuration(interval, cfg.RateLimit.RefillInterval)
	}

	if dir := os.Getenv("IMAGES_DIR"); dir != "" {
		cfg.Site.ImagesDir = dir
	}
	if dir := os.Getenv("SCRIPTS_DIR"); dir != "" {
		cfg.Site.ScriptsDir = dir
	}
	if dir := os.Getenv("STYLES_DIR"); dir != "" {
		cfg.Site.StylesDir = dir
	}
	if file := os.Getenv("INDEX_FILE"); file != "" {
		cfg.Site.IndexFile = file
	}
}

func parsePort(value string, defaultValue int) int {
	if port, err := strconv.Atoi(strings.TrimPrefix(value, ":")); err == nil && port >= 0 && port <= 65535 {
		return port
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseBoolValue(value string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return defaultValue
}

// parseDuration accepts Go duration strings ("1500ms") or whole seconds ("15").
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
