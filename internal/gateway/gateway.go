// Package gateway owns the MCP client connections to Relay's three
// external backends: the issue tracker, the code host, and the work-tracker
// store. All remote access goes through Invoke — no component talks to a
// backend directly.
//
// Connections are lazy and memoized: the first use of a backend triggers at
// most one connection attempt per process, and a failure stays failed until
// Reset. Remote-side failures never surface as Go errors — they come back
// as Result{IsError: true} so callers can degrade gracefully.
package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/devrelay/relay/internal/config"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Backend identifies one of the three external systems.
type Backend string

const (
	Issues   Backend = "issues"
	CodeHost Backend = "codehost"
	Store    Backend = "store"
)

// Result is the outcome of a single tool invocation. Text carries either
// the tool's text content or, when IsError is set, diagnostic text.
type Result struct {
	Text    string
	IsError bool
}

// ToolInfo is one entry of a backend's advertised operation catalog.
type ToolInfo struct {
	Name        string
	Description string
}

// Invoker is the invocation surface the rest of Relay depends on.
// Satisfied by *Gateway and by test fakes.
type Invoker interface {
	Invoke(ctx context.Context, backend Backend, operation string, args map[string]any) (Result, error)
	ListTools(ctx context.Context, backend Backend) ([]ToolInfo, error)
}

// conn tracks one backend's connection for the process lifetime.
type conn struct {
	cfg     config.BackendConfig
	once    sync.Once
	client  *client.Client
	lastErr error
	catalog []ToolInfo
}

// Gateway multiplexes tool invocations across the configured backends.
type Gateway struct {
	mu    sync.Mutex
	conns map[Backend]*conn
}

// New creates a Gateway for the given configuration. No connections are
// opened until a backend is first used.
func New(cfg config.Config) *Gateway {
	storeCfg := cfg.Store
	if storeCfg.Command == "" && storeCfg.URL == "" {
		// Default store backend: a local sqlite MCP server over the
		// configured database file.
		storeCfg.Command = "npx"
		storeCfg.Args = []string{"-y", "mcp-sqlite", cfg.DatabasePath}
	}
	return &Gateway{
		conns: map[Backend]*conn{
			Issues:   {cfg: cfg.Issues},
			CodeHost: {cfg: cfg.CodeHost},
			Store:    {cfg: storeCfg},
		},
	}
}

func (g *Gateway) conn(backend Backend) (*conn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.conns[backend]
	if !ok {
		return nil, fmt.Errorf("gateway: unknown backend %q", backend)
	}
	return c, nil
}

// connect performs the single connection attempt for a backend.
// A prior failure is sticky: the memoized error is returned on every
// subsequent call without retrying.
func (c *conn) connect(ctx context.Context, backend Backend) {
	c.once.Do(func() {
		if c.cfg.Disabled {
			c.lastErr = fmt.Errorf("%s backend disabled", backend)
			return
		}

		var (
			mc  *client.Client
			err error
		)
		switch {
		case c.cfg.URL != "":
			mc, err = client.NewStreamableHttpClient(c.cfg.URL)
			if err == nil {
				err = mc.Start(ctx)
			}
		case c.cfg.Command != "":
			if backend == Store {
				// The sqlite MCP creates the database file; its parent
				// directory must already exist.
				for _, a := range c.cfg.Args {
					if strings.HasSuffix(a, ".db") {
						_ = os.MkdirAll(filepath.Dir(a), 0o700)
					}
				}
			}
			env := append(os.Environ(), c.cfg.Env...)
			mc, err = client.NewStdioMCPClient(c.cfg.Command, env, c.cfg.Args...)
		default:
			err = fmt.Errorf("%s backend not configured", backend)
		}
		if err != nil {
			c.lastErr = fmt.Errorf("connecting %s backend: %w", backend, err)
			return
		}

		initReq := mcp.InitializeRequest{}
		initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		initReq.Params.ClientInfo = mcp.Implementation{Name: "relay-" + string(backend), Version: "1.0.0"}
		if _, err := mc.Initialize(ctx, initReq); err != nil {
			_ = mc.Close()
			c.lastErr = fmt.Errorf("initializing %s backend: %w", backend, err)
			return
		}
		c.client = mc
	})
}

// Invoke calls a named operation on a backend. Disabled or unreachable
// backends yield Result{IsError: true}; the returned error is reserved for
// local misuse (unknown backend, or an uninitialized store backend, which
// data-integrity callers must not silently ignore).
func (g *Gateway) Invoke(ctx context.Context, backend Backend, operation string, args map[string]any) (Result, error) {
	c, err := g.conn(backend)
	if err != nil {
		return Result{}, err
	}
	c.connect(ctx, backend)
	if c.client == nil {
		if backend == Store {
			return Result{}, fmt.Errorf("gateway: store backend unavailable: %w", c.lastErr)
		}
		return Result{Text: c.lastErr.Error(), IsError: true}, nil
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = operation
	req.Params.Arguments = args
	res, err := c.client.CallTool(ctx, req)
	if err != nil {
		return Result{Text: err.Error(), IsError: true}, nil
	}
	return Result{Text: extractText(res), IsError: res.IsError}, nil
}

// ListTools returns the backend's advertised operation catalog, cached
// after the first successful listing. Unreachable backends list as empty.
func (g *Gateway) ListTools(ctx context.Context, backend Backend) ([]ToolInfo, error) {
	c, err := g.conn(backend)
	if err != nil {
		return nil, err
	}
	c.connect(ctx, backend)
	if c.client == nil {
		return nil, nil
	}
	if c.catalog != nil {
		return c.catalog, nil
	}

	res, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, nil
	}
	catalog := make([]ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		catalog = append(catalog, ToolInfo{Name: t.Name, Description: t.Description})
	}
	c.catalog = catalog
	return catalog, nil
}

// Reset tears down a backend's connection so the next use reconnects.
// The only way a failed backend comes back within a process.
func (g *Gateway) Reset(backend Backend) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.conns[backend]
	if !ok {
		return
	}
	if c.client != nil {
		_ = c.client.Close()
	}
	g.conns[backend] = &conn{cfg: c.cfg}
}

// Close shuts down all backend connections. Safe to call more than once.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.conns {
		if c.client != nil {
			_ = c.client.Close()
			c.client = nil
		}
	}
}

func extractText(res *mcp.CallToolResult) string {
	var parts []string
	for _, content := range res.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
