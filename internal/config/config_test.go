package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads, restoring them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"XL2TIMES_COMMAND", "XL2TIMES_TIMEOUT", "TEMP_DIR", "MAX_FILE_SIZE_MB",
		"MCP_SERVER_NAME", "MCP_SERVER_VERSION", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
		"LOG_MAX_SIZE", "LOG_RETENTION",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_FromWorkspace(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("version: 1\ntimeout: 10m\ncommand: xl2times --quiet\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q, want %q", res.Path, filepath.Join(dir, FileName))
	}
	if res.Config.Version != 1 {
		t.Errorf("Config.Version = %d, want 1", res.Config.Version)
	}
	if got := res.Config.Timeout(); got != 10*time.Minute {
		t.Errorf("Timeout() = %v, want 10m", got)
	}
	if got := res.Config.CommandString(); got != "xl2times --quiet" {
		t.Errorf("CommandString() = %q, want %q", got, "xl2times --quiet")
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("version: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "models", "demo")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Config.Version != 2 {
		t.Errorf("Config.Version = %d, want 2", res.Config.Version)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := res.Config
	if res.Path != "" {
		t.Errorf("Path = %q, want empty", res.Path)
	}
	if got := cfg.CommandString(); got != DefaultCommand {
		t.Errorf("CommandString() = %q, want %q", got, DefaultCommand)
	}
	if got := cfg.Timeout(); got != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", got, DefaultTimeout)
	}
	if got := cfg.MaxFileSizeMBOrDefault(); got != DefaultMaxFileSizeMB {
		t.Errorf("MaxFileSizeMBOrDefault() = %d, want %d", got, DefaultMaxFileSizeMB)
	}
	if got := cfg.ServerName(); got != DefaultServerName {
		t.Errorf("ServerName() = %q, want %q", got, DefaultServerName)
	}
	if got := cfg.LogLevel(); got != "info" {
		t.Errorf("LogLevel() = %q, want info", got)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("timeout: 10m\nmax_file_size_mb: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XL2TIMES_TIMEOUT", "600")
	t.Setenv("MAX_FILE_SIZE_MB", "200")
	t.Setenv("MCP_SERVER_NAME", "test-server")

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.Timeout(); got != 600*time.Second {
		t.Errorf("Timeout() = %v, want 10m0s", got)
	}
	if got := res.Config.MaxFileSizeMBOrDefault(); got != 200 {
		t.Errorf("MaxFileSizeMBOrDefault() = %d, want 200", got)
	}
	if got := res.Config.ServerName(); got != "test-server" {
		t.Errorf("ServerName() = %q, want test-server", got)
	}
}

func TestLoad_InvalidEnvIgnored(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("XL2TIMES_TIMEOUT", "soon")
	t.Setenv("MAX_FILE_SIZE_MB", "-3")

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.Timeout(); got != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", got, DefaultTimeout)
	}
	if got := res.Config.MaxFileSizeMBOrDefault(); got != DefaultMaxFileSizeMB {
		t.Errorf("MaxFileSizeMBOrDefault() = %d, want %d", got, DefaultMaxFileSizeMB)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("XL2TIMES_COMMAND=python -m xl2times\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	argv := res.Config.CommandArgv()
	if len(argv) != 3 || argv[0] != "python" || argv[2] != "xl2times" {
		t.Errorf("CommandArgv() = %v, want [python -m xl2times]", argv)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("timeout: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestEnsureDirs(t *testing.T) {
	cfg := &Config{TempDir: filepath.Join(t.TempDir(), "state")}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, dir := range []string{cfg.LogDir(), cfg.RunsDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}

func TestLoad_LogRotation(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("log:\n  max_size: 1GB\n  retention: 2 weeks\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.Log.MaxSizeMB(); got != 1024 {
		t.Errorf("MaxSizeMB() = %d, want 1024", got)
	}
	if got := res.Config.Log.RetentionDays(); got != 14 {
		t.Errorf("RetentionDays() = %d, want 14", got)
	}

	t.Setenv("LOG_MAX_SIZE", "5MB")
	t.Setenv("LOG_RETENTION", "3 days")
	res, err = Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.Log.MaxSizeMB(); got != 5 {
		t.Errorf("MaxSizeMB() = %d, want 5", got)
	}
	if got := res.Config.Log.RetentionDays(); got != 3 {
		t.Errorf("RetentionDays() = %d, want 3", got)
	}

	t.Setenv("LOG_MAX_SIZE", "lots")
	t.Setenv("LOG_RETENTION", "forever")
	res, err = Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.Log.MaxSizeMB(); got != 1024 {
		t.Errorf("invalid LOG_MAX_SIZE should fall back to the file: got %d", got)
	}
	if got := res.Config.Log.RetentionDays(); got != 14 {
		t.Errorf("invalid LOG_RETENTION should fall back to the file: got %d", got)
	}
}

func TestLogConfig_Defaults(t *testing.T) {
	var l LogConfig
	if got := l.MaxSizeMB(); got != DefaultLogMaxSizeMB {
		t.Errorf("MaxSizeMB() = %d, want %d", got, DefaultLogMaxSizeMB)
	}
	if got := l.RetentionDays(); got != DefaultLogRetention {
		t.Errorf("RetentionDays() = %d, want %d", got, DefaultLogRetention)
	}
	if n, ok := parseSizeMB("512KB"); !ok || n != 1 {
		t.Errorf("parseSizeMB(512KB) = %d, %v; want 1, true", n, ok)
	}
}
