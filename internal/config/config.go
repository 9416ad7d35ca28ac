// Package config loads the server configuration from the optional .xl2times
// YAML file, a .env file, and the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/deixis/xl2times-mcp"
)

// FileName is the name of the optional YAML configuration file.
const FileName = ".xl2times"

// Default values.
const (
	DefaultCommand       = "uvx xl2times"
	DefaultTimeout       = 300 * time.Second
	DefaultMaxOutput     = 16 << 20 // 16 MB
	DefaultMaxFileSizeMB = 100
	DefaultHistory       = 32
	DefaultServerName    = "xl2times-mcp-server"
	DefaultLogLevel      = "info"
	DefaultLogMaxSizeMB  = 10
	DefaultLogRetention  = 7 // days
)

// Config holds the parsed configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version       int          `yaml:"version"`
	Command       string       `yaml:"command"`    // e.g. "uvx xl2times"
	RawTimeout    string       `yaml:"timeout"`    // e.g. "5m", "300"
	RawMaxOutput  int          `yaml:"max_output"` // bytes
	TempDir       string       `yaml:"temp_dir"`
	MaxFileSizeMB int          `yaml:"max_file_size_mb"`
	History       int          `yaml:"history"` // runs kept in memory
	Server        ServerConfig `yaml:"server"`
	Log           LogConfig    `yaml:"log"`
}

// ServerConfig controls the identity advertised over MCP.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// LogConfig controls the server's own logging.
type LogConfig struct {
	Level        string `yaml:"level"`     // debug, info, warn, error
	Format       string `yaml:"format"`    // console or json
	File         string `yaml:"file"`      // optional extra sink, rotated by size
	RawMaxSize   string `yaml:"max_size"`  // rotation size, e.g. "10MB"
	RawRetention string `yaml:"retention"` // age of rotated files kept, e.g. "7 days"
}

// MaxSizeMB returns the log file rotation size in megabytes.
func (l LogConfig) MaxSizeMB() int {
	if n, ok := parseSizeMB(l.RawMaxSize); ok {
		return n
	}
	return DefaultLogMaxSizeMB
}

// RetentionDays returns how many days rotated log files are kept.
func (l LogConfig) RetentionDays() int {
	if n, ok := parseDays(l.RawRetention); ok {
		return n
	}
	return DefaultLogRetention
}

// CommandArgv returns the argv prefix used to invoke xl2times.
func (c *Config) CommandArgv() []string {
	if argv := strings.Fields(c.Command); len(argv) > 0 {
		return argv
	}
	return strings.Fields(DefaultCommand)
}

// CommandString returns the configured command as a single string.
func (c *Config) CommandString() string {
	return strings.Join(c.CommandArgv(), " ")
}

// Timeout returns the configured timeout or the default. Plain integers
// are read as seconds.
func (c *Config) Timeout() time.Duration {
	if d, ok := parseTimeout(c.RawTimeout); ok {
		return d
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured transcript cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// MaxFileSize returns the largest artifact, in bytes, the server will read.
func (c *Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMBOrDefault()) * 1024 * 1024
}

// MaxFileSizeMBOrDefault returns the configured file size limit in megabytes.
func (c *Config) MaxFileSizeMBOrDefault() int {
	if c.MaxFileSizeMB > 0 {
		return c.MaxFileSizeMB
	}
	return DefaultMaxFileSizeMB
}

// TempDirOrDefault returns the directory holding log artifacts and run history.
func (c *Config) TempDirOrDefault() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return filepath.Join(os.TempDir(), "xl2times-mcp")
}

// LogDir returns the directory for per-run log artifacts.
func (c *Config) LogDir() string {
	return filepath.Join(c.TempDirOrDefault(), "logs")
}

// RunsDir returns the directory for persisted run results.
func (c *Config) RunsDir() string {
	return filepath.Join(c.TempDirOrDefault(), "runs")
}

// HistorySize returns how many runs are kept in memory.
func (c *Config) HistorySize() int {
	if c.History > 0 {
		return c.History
	}
	return DefaultHistory
}

// ServerName returns the advertised MCP server name.
func (c *Config) ServerName() string {
	if c.Server.Name != "" {
		return c.Server.Name
	}
	return DefaultServerName
}

// ServerVersion returns the advertised MCP server version.
func (c *Config) ServerVersion() string {
	if c.Server.Version != "" {
		return c.Server.Version
	}
	return xl2times.Version
}

// LogLevel returns the configured log level or the default.
func (c *Config) LogLevel() string {
	if c.Log.Level != "" {
		return strings.ToLower(c.Log.Level)
	}
	return DefaultLogLevel
}

// EnsureDirs creates the temp, log and run directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.TempDirOrDefault(), c.LogDir(), c.RunsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// LoadResult holds the parsed config and where it came from.
type LoadResult struct {
	Config *Config
	Path   string // .xl2times file used; empty when none was found
}

// Load builds the configuration for workspace. The .xl2times file is
// discovered by walking upward from workspace. Variables from
// workspace/.env are added to the environment without overriding it, and
// the environment takes precedence over the file.
func Load(workspace string) (*LoadResult, error) {
	cfg := &Config{}

	path, err := findConfigFile(workspace)
	if err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", FileName, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
	} else {
		path = ""
	}

	envFile := filepath.Join(workspace, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	applyEnv(cfg, os.LookupEnv)
	return &LoadResult{Config: cfg, Path: path}, nil
}

// applyEnv overlays environment variables onto cfg. Values that do not
// parse are ignored.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("XL2TIMES_COMMAND", &cfg.Command)
	str("TEMP_DIR", &cfg.TempDir)
	str("MCP_SERVER_NAME", &cfg.Server.Name)
	str("MCP_SERVER_VERSION", &cfg.Server.Version)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)

	if v, ok := lookup("LOG_MAX_SIZE"); ok {
		if _, valid := parseSizeMB(v); valid {
			cfg.Log.RawMaxSize = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup("LOG_RETENTION"); ok {
		if _, valid := parseDays(v); valid {
			cfg.Log.RawRetention = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("XL2TIMES_TIMEOUT"); ok {
		if _, valid := parseTimeout(v); valid {
			cfg.RawTimeout = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup("MAX_FILE_SIZE_MB"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.MaxFileSizeMB = n
		}
	}
}

func parseTimeout(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, false
		}
		return time.Duration(n) * time.Second, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// parseSizeMB reads sizes such as "10MB", "1 GB", "512KB" or "10" (MB),
// rounding up to whole megabytes.
func parseSizeMB(s string) (int, bool) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	mult, div := 1, 1
	switch {
	case strings.HasSuffix(s, "GB"):
		s, mult = strings.TrimSuffix(s, "GB"), 1024
	case strings.HasSuffix(s, "MB"):
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		s, div = strings.TrimSuffix(s, "KB"), 1024
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return (n*mult + div - 1) / div, true
}

// parseDays reads durations such as "7 days", "2 weeks", "7d" or "7".
func parseDays(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	num, unit := s, ""
	if i >= 0 {
		num, unit = s[:i], strings.TrimSpace(s[i:])
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case "", "d", "day", "days":
		return n, true
	case "w", "week", "weeks":
		return n * 7, true
	}
	return 0, false
}

// findConfigFile walks upward from dir looking for a .xl2times file.
func findConfigFile(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
