package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vendra-ai/vendra/internal/mcpserver"
	"github.com/vendra-ai/vendra/internal/observability"
)

func main() {
	logger := observability.InitLogger()

	logger.Info("Vendra MCP server starting...")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := observability.InitTracer(ctx, "vendra-mcp", "1.0.0")
	if err != nil {
		logger.Warn("Failed to init tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("Tracer shutdown error", "error", err)
			}
		}()
	}

	cfg := mcpserver.DefaultConfig()

	srv, err := mcpserver.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received, draining in-flight turns...")
		// The platform sends SIGKILL roughly 10s after SIGTERM; leave
		// 8s for turns to finish their DynamoDB writes.
		time.Sleep(8 * time.Second)
		logger.Info("Shutdown complete")
		os.Exit(0)
	}()

	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
