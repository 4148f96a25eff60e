// Package mcp provides an MCP (Model Context Protocol) server for panelwell.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panelwell/panelwell/internal/config"
	"github.com/panelwell/panelwell/internal/ratelimit"
	"github.com/panelwell/panelwell/internal/store"
)

// Server wraps the MCP SDK server and provides panelwell-specific tools.
type Server struct {
	server       *sdk.Server
	store        *store.Store
	cfg          *config.StudyConfig
	root         string
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "panelwell")
	Version string // Server version
	Root    string // Study root directory
}

// NewServer creates a new MCP server with panelwell tools.
func NewServer(cfg *Config) (*Server, error) {
	studyConfig, err := config.Load(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to load study config: %w", err)
	}

	st, err := store.Open(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        st,
		cfg:          studyConfig,
		root:         cfg.Root,
		toolLimiters: ratelimit.NewToolLimiters(),
	}

	if err := s.registerTools(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	if err := s.registerResources(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.store.Close()

	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	return s.store.Close()
}
