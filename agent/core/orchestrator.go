package core

import (
	"context"
	"slices"
	"time"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/KamdynS/mcpchat/mcp"
	"github.com/KamdynS/mcpchat/memory"
	obs "github.com/KamdynS/mcpchat/observability"
	"github.com/KamdynS/mcpchat/tools"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/KamdynS/mcpchat/agent", "core")

// Options configure an Orchestrator
type Options struct {
	// Model performs inference; required
	Model llm.Client
	// Tools dispatches tool calls by name; required when Catalog is not empty
	Tools tools.Registry
	// Catalog is offered to the model on every inference call
	Catalog []llm.Tool
	// Retrier retries transient inference failures; nil means no retries
	Retrier *llm.Retrier
	// Store receives every appended message; optional
	Store memory.ConversationStore
	// Observer receives progress notifications; optional
	Observer Observer
	// Guardrails checks queries and tool calls; optional
	Guardrails Guardrails

	Config Config
}

// Orchestrator runs the inference / tool-execution loop. A run is
// sequential: tool calls of one round execute one at a time in the order
// the model requested them.
type Orchestrator struct {
	model      llm.Client
	tools      tools.Registry
	catalog    []llm.Tool
	retrier    *llm.Retrier
	store      memory.ConversationStore
	observer   Observer
	guardrails Guardrails
	cfg        Config
}

// New validates options and returns an Orchestrator
func New(opts Options) (*Orchestrator, error) {
	if opts.Model == nil {
		return nil, errors.New("model client is required")
	}
	if len(opts.Catalog) > 0 && opts.Tools == nil {
		return nil, errors.New("tool registry is required when a tool catalog is set")
	}
	if opts.Config.MaxRounds < 0 {
		return nil, errors.Newf("invalid max rounds: %d", opts.Config.MaxRounds)
	}
	if opts.Config.MaxRounds == 0 {
		opts.Config.MaxRounds = DefaultMaxRounds
	}
	observer := opts.Observer
	if observer == nil {
		observer = ObserverFuncs{}
	}
	return &Orchestrator{
		model:      opts.Model,
		tools:      opts.Tools,
		catalog:    slices.Clone(opts.Catalog),
		retrier:    opts.Retrier,
		store:      opts.Store,
		observer:   observer,
		guardrails: opts.Guardrails,
		cfg:        opts.Config,
	}, nil
}

// run holds the state of one Run call
type run struct {
	o       *Orchestrator
	id      string
	state   State
	history []llm.Message
	result  RunResult
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	logger.KV(xlog.DEBUG, "run", r.id, "from", from, "to", to)
	r.o.observer.OnStateChange(from, to)
}

func (r *run) append(ctx context.Context, msg llm.Message) {
	r.history = append(r.history, msg)
	if r.o.store == nil {
		return
	}
	if err := r.o.store.AppendMessage(ctx, r.id, msg); err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "transcript_append_failed",
			"conversation", r.id,
			"err", err.Error())
	}
}

func (r *run) fail(span obs.Span, err error) (*RunResult, error) {
	r.transition(StateFailed)
	span.SetStatus(obs.StatusCodeError, err.Error())
	obs.MetricsImpl.RecordError(errorType(err), map[string]string{"component": "orchestrator"})
	logger.KV(xlog.ERROR,
		"run", r.id,
		"rounds", r.result.Rounds,
		"err", err.Error())
	return nil, err
}

// Run answers one query. It returns either the model's final text or an
// error; no partial answer is produced.
func (o *Orchestrator) Run(ctx context.Context, query string) (*RunResult, error) {
	r := &run{
		o:     o,
		id:    memory.NewConversationID(),
		state: StateIdle,
	}
	r.result.ConversationID = r.id

	ctx = obs.WithRunID(ctx, r.id)
	span, ctx := obs.TracerImpl.StartSpan(ctx, "agent.run")
	defer span.End()
	span.SetAttribute(obs.AttrRunID, r.id)

	obs.MetricsImpl.SetActiveRuns(1)
	defer obs.MetricsImpl.SetActiveRuns(0)

	if o.guardrails != nil {
		q, err := o.guardrails.CheckQuery(ctx, query)
		if err != nil {
			return r.fail(span, err)
		}
		query = q
	}

	if o.cfg.SystemPrompt != "" {
		r.append(ctx, llm.Message{Role: llm.RoleSystem, Content: o.cfg.SystemPrompt})
	}
	r.append(ctx, llm.Message{Role: llm.RoleUser, Content: query})
	r.transition(StateAwaitingInference)

	for {
		if err := ctx.Err(); err != nil {
			return r.fail(span, errors.Wrap(err, "run interrupted"))
		}

		r.result.Rounds++
		span.SetAttribute(obs.AttrRound, r.result.Rounds)

		res, err := o.infer(ctx, r.history)
		if err != nil {
			return r.fail(span, errors.Wrapf(err, "inference round %d", r.result.Rounds))
		}
		if res.Usage != nil {
			r.result.Usage.InputTokens += res.Usage.InputTokens
			r.result.Usage.OutputTokens += res.Usage.OutputTokens
			r.result.Usage.TotalTokens += res.Usage.TotalTokens
			r.result.Usage.Cost += res.Usage.Cost
		}

		if res.Kind == llm.ResultText {
			r.append(ctx, res.Assistant)
			r.result.Content = res.Content
			r.result.History = slices.Clone(r.history)
			r.transition(StateDone)
			span.SetStatus(obs.StatusCodeOk, "")
			logger.ContextKV(ctx, xlog.INFO,
				"status", "done",
				"rounds", r.result.Rounds,
				"tool_calls", r.result.ToolCalls)
			return &r.result, nil
		}

		if r.result.Rounds >= o.cfg.MaxRounds {
			return r.fail(span, errors.WithMessagef(ErrRoundLimitExceeded,
				"model still requested %d tool call(s) after %d rounds", len(res.Calls), r.result.Rounds))
		}

		r.append(ctx, res.Assistant)
		r.transition(StateAwaitingToolResults)

		for _, call := range res.Calls {
			tr, err := o.callTool(ctx, call)
			if err != nil {
				return r.fail(span, err)
			}
			r.result.ToolCalls++
			r.append(ctx, llm.Message{
				Role:       llm.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    tr.Content,
			})
		}

		r.transition(StateAwaitingInference)
	}
}

func (o *Orchestrator) infer(ctx context.Context, history []llm.Message) (*llm.Result, error) {
	return llm.Execute(o.retrier, ctx, func(ctx context.Context, attempt int) (*llm.Result, error) {
		if o.cfg.InferenceTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.cfg.InferenceTimeout)
			defer cancel()
		}
		// the client must not see later appends
		return llm.Infer(ctx, o.model, slices.Clone(history), o.catalog)
	})
}

// callTool executes one call. Failures of the call itself are folded into
// the result content; only errors that end the run are returned.
func (o *Orchestrator) callTool(ctx context.Context, call llm.ToolCallRequest) (ToolResult, error) {
	o.observer.OnToolCall(call)

	span, ctx := obs.TracerImpl.StartSpan(ctx, "agent.tool_call")
	defer span.End()
	span.SetAttribute(obs.AttrToolName, call.Name)
	span.SetAttribute(obs.AttrToolCallID, call.ID)

	tr := ToolResult{
		CallID:    call.ID,
		Name:      call.Name,
		Arguments: call.Arguments,
	}

	start := time.Now()
	out, err := o.execute(ctx, call)
	tr.Latency = time.Since(start)

	if err != nil {
		if fatalToolError(ctx, err) {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return tr, errors.Wrapf(err, "tool %s", call.Name)
		}
		span.SetStatus(obs.StatusCodeError, err.Error())
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_failed",
			"tool", call.Name,
			"err", err.Error())
		tr.Err = err
		tr.Content = "error: " + err.Error()
	} else {
		span.SetStatus(obs.StatusCodeOk, "")
		tr.Content = out
	}

	o.observer.OnToolResult(tr)
	return tr, nil
}

func (o *Orchestrator) execute(ctx context.Context, call llm.ToolCallRequest) (string, error) {
	if o.guardrails != nil {
		if err := o.guardrails.CheckToolCall(ctx, call); err != nil {
			return "", err
		}
	}
	if o.tools == nil {
		return "", errors.Wrapf(tools.ErrToolNotFound, "tool %q", call.Name)
	}
	if o.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.ToolTimeout)
		defer cancel()
	}
	return o.tools.Execute(ctx, call.Name, call.Arguments)
}

// fatalToolError reports whether a tool error must end the run: the
// session is gone, or the run itself was cancelled.
func fatalToolError(ctx context.Context, err error) bool {
	if errors.Is(err, mcp.ErrSession) {
		return true
	}
	return ctx.Err() != nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrRoundLimitExceeded):
		return "round_limit"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, mcp.ErrSession):
		return "session"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "interrupted"
	}
	if llmErr, ok := llm.IsLLMError(err); ok {
		return string(llmErr.Type)
	}
	return "unknown"
}

var _ Runner = (*Orchestrator)(nil)
