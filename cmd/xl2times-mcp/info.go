package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/deixis/xl2times-mcp/internal/workflow"
)

func newInfoCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the xl2times installation and server capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv(0)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			info := e.engine().Info(cmd.Context())
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			writeInfo(out, info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func writeInfo(w io.Writer, info *workflow.Info) {
	fmt.Fprintf(w, "%s %s (%s, %s)\n\n", info.Server.Name, info.Server.Version, info.Server.Platform, info.Server.GoVersion)

	status := "not available"
	if info.XL2Times.Available {
		status = "available, version " + info.XL2Times.Version
	}
	fmt.Fprintf(w, "xl2times:   %s\n", status)
	fmt.Fprintf(w, "  command:  %s\n", info.XL2Times.Command)
	fmt.Fprintf(w, "  timeout:  %ds\n", info.XL2Times.Timeout)
	fmt.Fprintf(w, "\nformats:    %v\n", info.Capabilities.SupportedFormats)
	fmt.Fprintf(w, "max size:   %d MB\n", info.Capabilities.MaxFileSizeMB)
	fmt.Fprintf(w, "temp dir:   %s\n", info.Capabilities.TempDirectory)
	fmt.Fprintf(w, "options:    %v\n", info.Capabilities.AvailableOptions)
}
