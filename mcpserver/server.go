package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/buildbox/config"
	"github.com/isdmx/buildbox/deployment"
	"github.com/isdmx/buildbox/logger"
	"github.com/isdmx/buildbox/queue"
)

const shutdownTimeout = 10 * time.Second

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	queue     queue.Queue
	repo      deployment.Repository
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, q queue.Queue, repo deployment.Repository) (*MCPServer, error) {
	s := &MCPServer{
		config: cfg,
		logger: logger,
		queue:  q,
		repo:   repo,
	}

	logger.Info("operator surface configured",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("queue.backend", s.config.Queue.Backend),
		zap.String("repository.backend", s.config.Repository.Backend),
	)

	s.mcpServer = server.NewMCPServer("buildbox-worker", "Build queue operator tools")

	s.registerEnqueueBuildTool()
	s.registerQueueSizeTool()
	s.registerGetDeploymentTool()

	return s, nil
}

func deploymentIDSchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"deployment_id": map[string]any{
				"type":        "string",
				"description": "Identifier of an existing deployment record",
			},
		},
		Required: []string{"deployment_id"},
	}
}

// registerEnqueueBuildTool registers the enqueue_build tool
func (s *MCPServer) registerEnqueueBuildTool() {
	tool := mcp.Tool{
		Name:        "enqueue_build",
		Description: "Queue a build for an existing deployment",
		InputSchema: deploymentIDSchema(),
	}
	s.mcpServer.AddTool(tool, s.handleEnqueueBuild)
}

// registerQueueSizeTool registers the queue_size tool
func (s *MCPServer) registerQueueSizeTool() {
	tool := mcp.Tool{
		Name:        "queue_size",
		Description: "Number of build jobs waiting in the queue",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}
	s.mcpServer.AddTool(tool, s.handleQueueSize)
}

// registerGetDeploymentTool registers the get_deployment tool
func (s *MCPServer) registerGetDeploymentTool() {
	tool := mcp.Tool{
		Name:        "get_deployment",
		Description: "Fetch a deployment record with its build status",
		InputSchema: deploymentIDSchema(),
	}
	s.mcpServer.AddTool(tool, s.handleGetDeployment)
}

// handleEnqueueBuild pushes the id of a known, unfinished deployment.
func (s *MCPServer) handleEnqueueBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("deployment_id")
	if err != nil {
		return nil, fmt.Errorf("deployment_id parameter is required: %w", err)
	}
	log := logger.ForDeployment(s.logger, id)

	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, deployment.ErrNotFound) {
			return errorResult("deployment %s not found", id), nil
		}
		log.Error("failed to load deployment", zap.Error(err))
		return errorResult("failed to load deployment: %v", err), nil
	}
	if d.Status.Terminal() {
		return errorResult("deployment %s already finished with status %s", id, d.Status), nil
	}

	if err := s.queue.Push(ctx, id); err != nil {
		log.Error("failed to enqueue build", zap.Error(err))
		return errorResult("failed to enqueue build: %v", err), nil
	}

	log.Info("build enqueued by operator")
	return textResult(fmt.Sprintf(`{"deployment_id":%q,"queued":true}`, id)), nil
}

func (s *MCPServer) handleQueueSize(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.queue.Size(ctx)
	if err != nil {
		s.logger.Error("failed to read queue size", zap.Error(err))
		return errorResult("failed to read queue size: %v", err), nil
	}
	return textResult(fmt.Sprintf(`{"size":%d}`, n)), nil
}

func (s *MCPServer) handleGetDeployment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("deployment_id")
	if err != nil {
		return nil, fmt.Errorf("deployment_id parameter is required: %w", err)
	}

	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, deployment.ErrNotFound) {
			return errorResult("deployment %s not found", id), nil
		}
		return errorResult("failed to load deployment: %v", err), nil
	}

	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode deployment: %w", err)
	}
	return textResult(string(body)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	result := textResult(fmt.Sprintf(format, args...))
	result.IsError = true
	return result
}

// ServeStdio serves the tools on stdin/stdout until ctx is cancelled.
func (s *MCPServer) ServeStdio(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio")
	return server.NewStdioServer(s.mcpServer).Listen(ctx, os.Stdin, os.Stdout)
}

// Router returns the HTTP handler: /healthz plus the MCP endpoint at /mcp.
func (s *MCPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/mcp", server.NewStreamableHTTPServer(s.mcpServer))

	return r
}

// ListenAndServe serves Router on server.http_port until ctx is cancelled.
func (s *MCPServer) ListenAndServe(ctx context.Context) error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
