// Command mcpchat is an interactive client that answers queries with a
// language model and the tools of an MCP server it launches.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/KamdynS/mcpchat/agent/core"
	"github.com/KamdynS/mcpchat/config"
	"github.com/KamdynS/mcpchat/lifecycle"
	"github.com/KamdynS/mcpchat/llm"
	"github.com/KamdynS/mcpchat/llm/llmfactory"
	"github.com/KamdynS/mcpchat/mcp"
	"github.com/KamdynS/mcpchat/memory"
	"github.com/KamdynS/mcpchat/memory/inmemory"
	"github.com/KamdynS/mcpchat/memory/postgres"
	"github.com/KamdynS/mcpchat/memory/redis"
	obs "github.com/KamdynS/mcpchat/observability"
	"github.com/KamdynS/mcpchat/observability/metricskey"
	"github.com/KamdynS/mcpchat/tools"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

const version = "v0.1.0"

var logger = xlog.NewPackageLogger("github.com/KamdynS/mcpchat/cmd", "mcpchat")

type options struct {
	configPath string
	model      string
	endpoint   string
	provider   string
	maxRounds  int
	logLevel   string
	version    bool
	script     string
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func realMain(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if opts.version {
		fmt.Fprintf(stdout, "mcpchat version %s\n", version)
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	setupLogging(cfg.Log, stderr)
	obs.SetMetrics(metricskey.NewRecorder())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runChat(ctx, cfg, opts.script, stdin, newConsole(stdout)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("mcpchat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	fs.StringVar(&opts.model, "model", "", "Model name, overrides config")
	fs.StringVar(&opts.endpoint, "endpoint", "", "Inference endpoint base URL, overrides config")
	fs.StringVar(&opts.provider, "provider", "", "Inference provider (openai, anthropic), overrides config")
	fs.IntVar(&opts.maxRounds, "max-rounds", 0, "Maximum inference rounds per query, overrides config")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warning, error), overrides config")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "mcpchat - MCP tool client %s\n\n", version)
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  mcpchat [flags] <path_to_server_script>")
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.version {
		return opts, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("exactly one server script path is required")
	}
	opts.script = fs.Arg(0)
	return opts, nil
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	if opts.provider != "" {
		cfg.LLM.Provider = opts.provider
	}
	if opts.endpoint != "" {
		cfg.LLM.EndpointURL = opts.endpoint
	}
	if opts.model != "" {
		cfg.LLM.ModelName = opts.model
	}
	if opts.maxRounds != 0 {
		cfg.Agent.MaxRounds = opts.maxRounds
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	cfg.ResolveAPIKey(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var logLevels = map[string]xlog.LogLevel{
	"trace":    xlog.TRACE,
	"debug":    xlog.DEBUG,
	"info":     xlog.INFO,
	"notice":   xlog.NOTICE,
	"warning":  xlog.WARNING,
	"error":    xlog.ERROR,
	"critical": xlog.CRITICAL,
}

func setupLogging(cfg config.LogConfig, w io.Writer) {
	if cfg.Format == "json" {
		xlog.SetFormatter(xlog.NewJSONFormatter(w))
	} else {
		xlog.SetFormatter(xlog.NewStringFormatter(w))
	}
	if level, ok := logLevels[strings.ToLower(cfg.Level)]; ok {
		xlog.SetGlobalLogLevel(level)
	}
}

// runChat acquires the inference client, the tool server session and the
// transcript store, then serves queries until the loop ends. Everything
// acquired is released in reverse order on return.
func runChat(ctx context.Context, cfg *config.Config, script string, stdin io.Reader, ui *console) (err error) {
	scope := lifecycle.NewScope()
	defer func() {
		if cerr := scope.Close(); cerr != nil {
			logger.KV(xlog.ERROR, "status", "cleanup_failed", "err", cerr.Error())
			if err == nil {
				err = cerr
			}
		}
	}()

	client, err := llmfactory.NewLLM(cfg.LLM)
	if err != nil {
		return err
	}
	_ = scope.Add("llm client", client.Close)

	session, err := mcp.Connect(ctx, serverConfig(cfg.Server, script))
	if err != nil {
		return err
	}
	_ = scope.Add("mcp session", session.Close)

	descs := session.Tools()
	catalog, err := mcp.Adapt(descs)
	if err != nil {
		return err
	}
	registry := tools.NewRegistry()
	if err := mcp.RegisterTools(registry, session, descs); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.Memory)
	if err != nil {
		return err
	}
	if store != nil {
		_ = scope.Add("transcript store", store.Close)
	}

	ui.Connected(registry.List())

	opts := core.Options{
		Model:    client,
		Tools:    registry,
		Catalog:  catalog,
		Retrier:  llm.NewRetrier(cfg.Retry),
		Store:    store,
		Observer: ui.observer(),
		Config: core.Config{
			MaxRounds:        cfg.Agent.MaxRounds,
			SystemPrompt:     cfg.Agent.SystemPrompt,
			InferenceTimeout: cfg.Agent.InferenceTimeout,
			ToolTimeout:      cfg.Agent.ToolTimeout,
		},
	}
	if cfg.Guardrails.Enabled() {
		opts.Guardrails = &core.SimpleGuardrails{
			DenySubstrings: cfg.Guardrails.DenySubstrings,
			DenyTools:      cfg.Guardrails.DenyTools,
			MaxInputChars:  cfg.Guardrails.MaxInputChars,
		}
	}
	orchestrator, err := core.New(opts)
	if err != nil {
		return err
	}

	return chatLoop(ctx, orchestrator, stdin, ui)
}

func serverConfig(cfg config.ServerConfig, script string) mcp.ServerConfig {
	command, args := mcp.ResolveCommand(script)
	if cfg.Command != "" {
		command, args = cfg.Command, []string{script}
	}
	return mcp.ServerConfig{
		Command:          command,
		Args:             args,
		Env:              cfg.Env,
		Dir:              cfg.Dir,
		HandshakeTimeout: cfg.HandshakeTimeout,
		CallTimeout:      cfg.CallTimeout,
		TerminateTimeout: cfg.TerminateTimeout,
		ClientName:       "mcpchat",
		ClientVersion:    version,
	}
}

// openStore returns nil when transcripts are not kept
func openStore(ctx context.Context, cfg config.MemoryConfig) (memory.ConversationStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Backend {
	case "memory":
		return inmemory.NewConversationStore(), nil
	case "redis":
		return redis.Open(ctx, cfg.RedisURL, cfg.Prefix, cfg.TTL)
	case "postgres":
		return postgres.Open(ctx, cfg.PostgresDSN, cfg.Table)
	default:
		return nil, nil
	}
}
