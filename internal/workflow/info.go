package workflow

import (
	"context"
	"regexp"
	"runtime"
	"time"

	"github.com/deixis/xl2times-mcp/internal/runner"
)

const (
	probeTimeout   = 10 * time.Second
	probeMaxOutput = 64 << 10

	serverDescription = "MCP server for xl2times VEDA-TIMES processing"
)

// Info describes the server and the wrapped tool.
type Info struct {
	Server       ServerInfo   `json:"server"`
	XL2Times     ToolInfo     `json:"xl2times"`
	Capabilities Capabilities `json:"capabilities"`
}

// ServerInfo identifies this server.
type ServerInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Platform    string `json:"platform"`
	GoVersion   string `json:"go_version"`
}

// ToolInfo describes the configured xl2times command.
type ToolInfo struct {
	Command   string `json:"command"`
	Version   string `json:"version"`
	Timeout   int    `json:"timeout"` // seconds
	Available bool   `json:"available"`
}

// Capabilities lists what callers may ask for.
type Capabilities struct {
	SupportedFormats []string `json:"supported_formats"`
	MaxFileSizeMB    int      `json:"max_file_size_mb"`
	TempDirectory    string   `json:"temp_directory"`
	AvailableOptions []string `json:"available_options"`
}

var versionPattern = regexp.MustCompile(`\b\d+\.\d+(?:\.\d+)?\b`)

// Info probes the wrapped tool with --help and reports the result
// alongside static server metadata.
func (e *Engine) Info(ctx context.Context) *Info {
	cfg := e.Config
	info := &Info{
		Server: ServerInfo{
			Name:        cfg.ServerName(),
			Version:     cfg.ServerVersion(),
			Description: serverDescription,
			Platform:    runtime.GOOS + "/" + runtime.GOARCH,
			GoVersion:   runtime.Version(),
		},
		XL2Times: ToolInfo{
			Command: cfg.CommandString(),
			Version: "unknown",
			Timeout: int(cfg.Timeout().Seconds()),
		},
		Capabilities: Capabilities{
			SupportedFormats: SupportedFormats,
			MaxFileSizeMB:    cfg.MaxFileSizeMBOrDefault(),
			TempDirectory:    cfg.TempDirOrDefault(),
			AvailableOptions: Options,
		},
	}

	argv := append(cfg.CommandArgv(), "--help")
	res, err := e.prober().Run(ctx, argv)
	if err != nil || res.ExitCode != 0 {
		return info
	}
	info.XL2Times.Available = true
	if v := versionPattern.FindString(string(res.Output)); v != "" {
		info.XL2Times.Version = v
	}
	return info
}

// prober returns the runner used for the availability probe. Unless
// overridden it writes no log artifact and uses a short timeout.
func (e *Engine) prober() CommandRunner {
	if e.Prober != nil {
		return e.Prober
	}
	return &runner.Runner{
		Dir:       e.Workspace,
		Timeout:   probeTimeout,
		MaxOutput: probeMaxOutput,
		Logger:    e.Logger,
	}
}
