package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	xlmcp "github.com/deixis/xl2times-mcp/internal/mcp"
)

type serveFlags struct {
	httpAddr     string
	instructions bool
}

func newServeCommand() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server. It speaks MCP over stdio unless --http is given,
in which case it serves the streamable HTTP transport on that address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.instructions {
				_, err := fmt.Fprint(cmd.OutOrStdout(), xlmcp.Instructions)
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, flags.httpAddr)
		},
	}

	cmd.Flags().StringVar(&flags.httpAddr, "http", "", "start HTTP server on address (e.g. :9090)")
	cmd.Flags().BoolVar(&flags.instructions, "instructions", false, "print model instructions and exit")
	return cmd
}

func serve(ctx context.Context, httpAddr string) error {
	e, err := newEnv(0)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	e.log.Info("starting MCP server",
		zap.String("name", e.cfg.ServerName()),
		zap.String("version", e.cfg.ServerVersion()),
		zap.String("workspace", e.workspace),
		zap.String("command", e.cfg.CommandString()),
		zap.Duration("timeout", e.runner.Timeout),
	)

	server := xlmcp.NewServer(e.cfg, e.runner, e.store(), e.workspace, e.log)

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr, e.log)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, log *zap.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
