// Package mcp owns the Model Context Protocol session with a tool server
// subprocess and adapts its tool catalog for inference.
package mcp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/KamdynS/mcpchat", "mcp")

// State is the lifecycle state of a Session
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ServerConfig defines how to launch and talk to an MCP server
type ServerConfig struct {
	// Command to launch the MCP server (e.g. "python")
	Command string
	// Args to pass to the command (e.g. the script path)
	Args []string
	// Env is appended to the current environment
	Env []string
	// Dir is the working directory of the server process
	Dir string
	// Stderr receives the server's standard error; defaults to os.Stderr
	Stderr io.Writer

	// HandshakeTimeout bounds process start plus the initialize exchange
	HandshakeTimeout time.Duration
	// CallTimeout bounds each tools/call round trip; zero means no limit
	CallTimeout time.Duration
	// TerminateTimeout is how long Close waits for the process to exit after
	// closing its stdin before signalling it
	TerminateTimeout time.Duration

	ClientName    string
	ClientVersion string
}

// ToolDescriptor describes one tool offered by the server
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// ToolCallResult is the successful outcome of a tools/call
type ToolCallResult struct {
	Name string
	// Content is the text of all content parts, newline separated
	Content string
	// Structured is the structured content, when the tool returned one
	Structured any
}

// Session is a live MCP client session. Calls are single-flight: the
// protocol stream carries one request at a time.
type Session struct {
	cfg   ServerConfig
	state atomic.Int32

	// mu serializes requests on the session
	mu      sync.Mutex
	cs      *sdkmcp.ClientSession
	catalog []ToolDescriptor
	byName  map[string]ToolDescriptor

	done chan struct{}
	// kill terminates the server process; nil for caller-supplied transports
	kill context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// Connect launches the server process and performs the initialize handshake.
func Connect(ctx context.Context, cfg ServerConfig) (*Session, error) {
	if cfg.Command == "" {
		return nil, errors.WithMessage(ErrConnection, "empty server command")
	}
	if _, err := exec.LookPath(cfg.Command); err != nil {
		return nil, errors.WithMessagef(ErrConnection, "server command %q: %s", cfg.Command, err.Error())
	}

	// the process outlives ctx; it is killed only if the handshake does not
	// complete, or as a last resort on Close
	procCtx, kill := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	cmd.Stderr = cfg.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	transport := &sdkmcp.CommandTransport{
		Command:           cmd,
		TerminateDuration: cfg.TerminateTimeout,
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "starting",
		"command", cfg.Command,
		"args", strings.Join(cfg.Args, " "))

	s, err := connect(ctx, transport, cfg, kill)
	if err != nil {
		kill()
		return nil, err
	}
	return s, nil
}

// ConnectTransport performs the handshake over an arbitrary transport and
// fetches the tool catalog.
func ConnectTransport(ctx context.Context, transport sdkmcp.Transport, cfg ServerConfig) (*Session, error) {
	return connect(ctx, transport, cfg, nil)
}

// connect runs the handshake. When the handshake context ends before the
// session is ready, kill is called so a server that never answers cannot
// hold the caller past the deadline.
func connect(ctx context.Context, transport sdkmcp.Transport, cfg ServerConfig, kill context.CancelFunc) (*Session, error) {
	s := &Session{
		cfg:  cfg,
		done: make(chan struct{}),
		kill: kill,
	}
	s.state.Store(int32(StateInitializing))

	name := cfg.ClientName
	if name == "" {
		name = "mcpchat"
	}
	version := cfg.ClientVersion
	if version == "" {
		version = "v0.0.0"
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: name, Version: version}, nil)

	hctx := ctx
	if cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, cfg.HandshakeTimeout)
		defer cancel()
	}
	stopWatch := func() bool { return true }
	if kill != nil {
		stopWatch = context.AfterFunc(hctx, kill)
	}

	cs, err := client.Connect(hctx, transport, nil)
	if err != nil {
		s.state.Store(int32(StateClosed))
		if errors.Is(hctx.Err(), context.DeadlineExceeded) {
			return nil, errors.WithMessagef(ErrConnection, "handshake timed out after %s", cfg.HandshakeTimeout)
		}
		return nil, errors.WithMessage(ErrConnection, err.Error())
	}
	s.cs = cs
	s.state.Store(int32(StateReady))

	go func() {
		werr := cs.Wait()
		close(s.done)
		if s.State() != StateClosed {
			logger.KV(xlog.WARNING, "status", "server_disconnected", "err", werr)
		}
	}()

	if _, err := s.ListTools(hctx); err != nil {
		_ = s.Close()
		return nil, catalogError(err)
	}
	if !stopWatch() {
		// the deadline fired after the catalog arrived and the server is gone
		_ = s.Close()
		return nil, errors.WithMessagef(ErrConnection, "handshake timed out after %s", cfg.HandshakeTimeout)
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "connected",
		"tools", len(s.catalog))

	return s, nil
}

// catalogError keeps schema errors intact; any other failure to fetch the
// catalog at connect time is a connection failure.
func catalogError(err error) error {
	if errors.Is(err, ErrSchema) {
		return errors.Wrap(err, "fetch tool catalog")
	}
	return errors.WithMessage(ErrConnection, err.Error())
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) ensureReady() error {
	if st := s.State(); st != StateReady {
		return errors.WithMessagef(ErrSession, "session is %s", st)
	}
	return nil
}

// ListTools queries the server for its tools, following pagination, and
// refreshes the cached catalog.
func (s *Session) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var list []ToolDescriptor
	params := &sdkmcp.ListToolsParams{}
	for {
		res, err := s.cs.ListTools(ctx, params)
		if err != nil {
			return nil, s.callError(ctx, err, "tools/list")
		}
		for _, t := range res.Tools {
			if t == nil {
				continue
			}
			d, err := descriptorFromTool(t)
			if err != nil {
				return nil, err
			}
			list = append(list, d)
		}
		if res.NextCursor == "" {
			break
		}
		params = &sdkmcp.ListToolsParams{Cursor: res.NextCursor}
	}

	byName := make(map[string]ToolDescriptor, len(list))
	for _, d := range list {
		byName[d.Name] = d
	}
	s.catalog = list
	s.byName = byName

	return append([]ToolDescriptor(nil), list...), nil
}

// Tools returns the catalog fetched at connect time or by the last ListTools
func (s *Session) Tools() []ToolDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ToolDescriptor(nil), s.catalog...)
}

func descriptorFromTool(t *sdkmcp.Tool) (ToolDescriptor, error) {
	d := ToolDescriptor{
		Name:        t.Name,
		Description: t.Description,
	}
	if t.InputSchema == nil {
		return d, nil
	}
	raw, err := json.Marshal(t.InputSchema)
	if err != nil {
		return d, &SchemaError{Tool: t.Name, Reason: err.Error()}
	}
	if string(raw) == "null" {
		return d, nil
	}
	if err := json.Unmarshal(raw, &d.InputSchema); err != nil {
		return d, &SchemaError{Tool: t.Name, Reason: "input schema is not an object"}
	}
	return d, nil
}

// CallTool invokes the named tool and waits for its result.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; !ok {
		return nil, &ToolNotFoundError{Name: name}
	}

	if s.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
	}

	if args == nil {
		args = map[string]any{}
	}

	res, err := s.cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, s.callError(ctx, err, name)
	}

	text := contentText(res.Content)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return nil, &ToolExecutionError{Tool: name, Message: text}
	}

	return &ToolCallResult{
		Name:       name,
		Content:    text,
		Structured: res.StructuredContent,
	}, nil
}

// callError classifies a failed request. Transport loss is a session error;
// a per-call deadline or a server-side rejection of this one call is a tool
// error the conversation can recover from.
func (s *Session) callError(ctx context.Context, err error, op string) error {
	if s.transportClosed(err) {
		return errors.WithMessagef(ErrSession, "%s: transport closed: %s", op, err.Error())
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && op != "tools/list" {
			return &ToolExecutionError{Tool: op, Message: "timed out"}
		}
		return errors.Wrapf(ctxErr, "%s", op)
	}
	if op == "tools/list" {
		return errors.WithMessagef(ErrSession, "%s: %s", op, err.Error())
	}
	return &ToolExecutionError{Tool: op, Message: err.Error()}
}

// transportClosed reports whether err means the connection to the server is
// gone, as opposed to the server rejecting one request.
func (s *Session) transportClosed(err error) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	return errors.Is(err, sdkmcp.ErrConnectionClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe)
}

func contentText(content []sdkmcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *sdkmcp.TextContent:
			parts = append(parts, v.Text)
		default:
			raw, err := json.Marshal(c)
			if err == nil {
				parts = append(parts, string(raw))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// Close ends the session and terminates the server process. It is safe to
// call more than once; later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		if s.cs == nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.cs.Close(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.closeErr = errors.Wrap(err, "close mcp session")
		}
		if s.kill != nil {
			s.kill()
		}
		logger.KV(xlog.DEBUG, "status", "closed")
	})
	return s.closeErr
}
