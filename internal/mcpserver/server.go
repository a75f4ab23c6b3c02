// Package mcpserver exposes the sales-call simulator as MCP tools over
// streamable HTTP.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/vendra-ai/vendra/internal/analysis"
	"github.com/vendra-ai/vendra/internal/conversation"
	"github.com/vendra-ai/vendra/internal/provider"
	"github.com/vendra-ai/vendra/internal/simstore"
)

// Config holds server configuration.
type Config struct {
	Port         int
	TableName    string
	AWSRegion    string
	Model        string // haiku, sonnet, nova-lite, or offline
	SecretPrefix string // e.g. "/vendra/mcp/"
}

// DefaultConfig returns a Config populated from environment variables.
func DefaultConfig() Config {
	port := 8000
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil && v > 0 {
		port = v
	}
	return Config{
		Port:         port,
		TableName:    envOr("DYNAMODB_TABLE", "vendra-sessions-prod"),
		AWSRegion:    envOr("AWS_REGION", "us-east-1"),
		Model:        envOr("MODEL_PROVIDER", "haiku"),
		SecretPrefix: envOr("SECRET_PREFIX", "/vendra/mcp/"),
	}
}

// Server is the MCP server for sales-call simulation.
type Server struct {
	cfg      Config
	mcp      *server.MCPServer
	handlers *Handlers
	log      *slog.Logger
}

// New creates and configures the MCP server.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	if cfg.SecretPrefix != "" {
		if err := loadSecrets(ctx, awsCfg, cfg.SecretPrefix, logger); err != nil {
			logger.Warn("Failed to load secrets from Secrets Manager, falling back to env vars",
				"error", err)
		}
	}

	store := simstore.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName)

	// "offline" runs every session against the deterministic builders,
	// useful for smoke tests without model access.
	var p provider.Provider
	if cfg.Model != "offline" {
		p, err = provider.New(cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("create provider: %w", err)
		}
	}

	engine := conversation.NewEngine(store, p, logger)
	analyzer := analysis.NewEngine(store, p, logger)
	handlers := NewHandlers(engine, analyzer, store, logger)

	mcpServer := server.NewMCPServer(
		"vendra",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	tools := ToolDefs()
	mcpServer.AddTool(tools[0], handlers.HandleStartSession)
	mcpServer.AddTool(tools[1], handlers.HandleSpeak)
	mcpServer.AddTool(tools[2], handlers.HandleEndSession)
	mcpServer.AddTool(tools[3], handlers.HandleAnalyzeSession)
	mcpServer.AddTool(tools[4], handlers.HandleListSessions)

	return &Server{
		cfg:      cfg,
		mcp:      mcpServer,
		handlers: handlers,
		log:      logger,
	}, nil
}

// Start runs the HTTP MCP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("Starting MCP server", "addr", addr, "model", s.cfg.Model)

	httpServer := server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
	)
	return httpServer.Start(addr)
}

// loadSecrets fetches API keys from Secrets Manager and sets them as env vars.
func loadSecrets(ctx context.Context, cfg aws.Config, prefix string, logger *slog.Logger) error {
	client := secretsmanager.NewFromConfig(cfg)

	secrets := map[string]string{
		"ANTHROPIC_API_KEY": prefix + "ANTHROPIC_API_KEY",
	}

	for envVar, secretID := range secrets {
		if os.Getenv(envVar) != "" {
			continue
		}

		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: &secretID,
		})
		if err != nil {
			logger.Info("Secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if result.SecretString != nil {
			os.Setenv(envVar, *result.SecretString)
			logger.Info("Loaded secret", "secret_id", secretID)
		}
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
