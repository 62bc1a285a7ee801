package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/finmesh/agent"
	"github.com/hupe1980/finmesh/classifier"
	"github.com/hupe1980/finmesh/core"
	"github.com/hupe1980/finmesh/finance"
	"github.com/hupe1980/finmesh/logging"
)

// ErrAgentExecution wraps every isolated agent failure.
var ErrAgentExecution = errors.New("agent execution failed")

// GenericFailureMessage replaces the answer when synthesis fails.
const GenericFailureMessage = "I was unable to process your query. Please try again."

// OrchestratorName is the agent name on events emitted by the engine itself.
const OrchestratorName = "orchestrator"

// Classifier maps a query to capability tags.
type Classifier interface {
	Classify(query string) core.CapabilitySet
}

// Options configures an Engine.
type Options struct {
	// Classifier defaults to the keyword classifier with default triggers.
	Classifier Classifier
	// Deps are handed to the agents of every run.
	Deps agent.Deps
	// NewSuite builds the agents of one run. Defaults to agent.NewSuite.
	NewSuite func(deps agent.Deps) *agent.Suite
	// AgentTimeout bounds each agent execution.
	AgentTimeout time.Duration
	// Sink receives events at stage boundaries. Defaults to core.NopSink.
	Sink core.EventSink
	// EventBufferSize sizes the channel returned by Invoke.
	EventBufferSize int
	Logger          logging.Logger
}

// Request is the input of one run. A nil Profile selects
// finance.DefaultProfile.
type Request struct {
	Query        string
	Profile      *finance.Profile
	Transactions []finance.Transaction
}

// AgentFailure records an agent excluded from the result.
type AgentFailure struct {
	Agent string
	Stage Stage
	Err   error
}

// Response is the outcome of a completed run.
type Response struct {
	RequestID    string
	Query        string
	Text         string
	Capabilities []core.Capability
	Plan         []Stage
	AgentsUsed   []string
	Citations    []string
	Events       []core.Event
	State        *core.State
	Failures     []AgentFailure
	// Degraded is set when synthesis failed and Text is GenericFailureMessage.
	Degraded bool
	Duration time.Duration
}

// Engine runs queries through the agent pipeline. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	classifier   Classifier
	deps         agent.Deps
	newSuite     func(agent.Deps) *agent.Suite
	agentTimeout time.Duration
	sink         core.EventSink
	bufferSize   int
	logger       logging.Logger
}

// New creates an Engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		AgentTimeout:    60 * time.Second,
		Sink:            core.NopSink{},
		EventBufferSize: 100,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Classifier == nil {
		opts.Classifier = classifier.New(classifier.DefaultTriggers())
	}
	if opts.NewSuite == nil {
		opts.NewSuite = agent.NewSuite
	}
	if opts.Sink == nil {
		opts.Sink = core.NopSink{}
	}
	if opts.AgentTimeout <= 0 {
		opts.AgentTimeout = 60 * time.Second
	}

	return &Engine{
		classifier:   opts.Classifier,
		deps:         opts.Deps,
		newSuite:     opts.NewSuite,
		agentTimeout: opts.AgentTimeout,
		sink:         opts.Sink,
		bufferSize:   opts.EventBufferSize,
		logger:       logging.OrNoOp(opts.Logger),
	}
}

// Run executes req and returns the final response. Agent failures degrade the
// response instead of failing the call; the only error returned is the
// context's when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, req Request) (*Response, error) {
	return e.run(ctx, core.NewID(), req, e.sink)
}

// run carries the mutable bookkeeping of a single request.
type run struct {
	*Engine
	id        string
	sink      core.EventSink
	suite     *agent.Suite
	published int
	failures  []AgentFailure
}

func (e *Engine) run(ctx context.Context, id string, req Request, sink core.EventSink) (resp *Response, err error) {
	start := time.Now()

	r := &run{Engine: e, id: id, sink: sink, suite: e.newSuite(e.deps)}
	defer func() {
		if err != nil {
			r.discard(ctx)
		}
	}()

	profile := req.Profile
	if profile == nil {
		profile = finance.DefaultProfile()
	}
	state := core.NewState(req.Query, profile, req.Transactions)

	caps := e.classifier.Classify(req.Query)
	plan := Plan(caps)

	r.record(state, core.NewEvent(core.EventPlan, OrchestratorName, core.StatusThinking, map[string]any{
		"stage":        string(StageRouting),
		"capabilities": caps.Strings(),
		"plan":         stageStrings(plan),
	}))
	r.flush(ctx, state)

	e.logger.Info("Query routed", "request_id", id, "capabilities", caps.String())

	for _, stage := range plan {
		switch stage {
		case StageSequential:
			state, err = r.sequential(ctx, StageSequential, state, r.suite.Shopping, r.suite.Budget, r.suite.Compliance)
		case StageFanout:
			state, err = r.fanout(ctx, state, caps)
		case StageComplianceGate:
			state, err = r.sequential(ctx, StageComplianceGate, state, r.suite.Compliance)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		r.flush(ctx, state)
	}

	final, err := r.execute(ctx, r.suite.Synthesis, state.Clone())
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	degraded := false
	if err != nil {
		r.fail(state, StageFinalize, r.suite.Synthesis.Name(), err)
		state.FinalResponse = GenericFailureMessage
		degraded = true
	} else {
		state = final
	}

	duration := time.Since(start)
	r.record(state, core.NewEvent(core.EventResult, OrchestratorName, core.StatusIdle, map[string]any{
		"stage":       string(StageDone),
		"response":    state.FinalResponse,
		"agents_used": state.AgentsUsed,
		"degraded":    degraded,
		"duration_ms": duration.Milliseconds(),
	}))
	r.flush(ctx, state)

	return &Response{
		RequestID:    id,
		Query:        req.Query,
		Text:         state.FinalResponse,
		Capabilities: caps.Slice(),
		Plan:         plan,
		AgentsUsed:   state.AgentsUsed,
		Citations:    state.Citations,
		Events:       state.Events,
		State:        state,
		Failures:     r.failures,
		Degraded:     degraded,
		Duration:     duration,
	}, nil
}

// sequential runs agents in order, each over the output of the previous one.
// A failed agent leaves the state untouched apart from its error event.
func (r *run) sequential(ctx context.Context, stage Stage, state *core.State, agents ...agent.Agent) (*core.State, error) {
	for _, a := range agents {
		next, err := r.execute(ctx, a, state.Clone())
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			r.fail(state, stage, a.Name(), err)
			continue
		}
		state = next
	}
	return state, nil
}

// fanout runs the active fan-out agents concurrently over private clones and
// merges the successful fragments in declared order.
func (r *run) fanout(ctx context.Context, state *core.State, caps core.CapabilitySet) (*core.State, error) {
	var agents []agent.Agent
	for _, c := range FanoutCapabilities {
		if caps.Has(c) {
			agents = append(agents, r.suite.For(c))
		}
	}

	fragments := make([]*core.State, len(agents))
	errs := make([]error, len(agents))

	// Siblings keep running when one fails, so no errgroup.WithContext.
	var g errgroup.Group
	for i, a := range agents {
		g.Go(func() error {
			fragments[i], errs[i] = r.execute(ctx, a, state.Clone())
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	for i, err := range errs {
		if err == nil {
			continue
		}
		// The failed agent contributes only its error event.
		fragments[i] = state.Clone()
		r.fail(fragments[i], StageFanout, agents[i].Name(), err)
	}

	merged, err := core.Merge(state, fragments...)
	if err != nil {
		r.logger.Warn("Fan-out merge conflict", "request_id", r.id, "error", err)
	}
	return merged, nil
}

// execute runs one agent with the per-agent timeout, recovering panics. On
// success the agent's events are appended to the returned state.
func (r *run) execute(ctx context.Context, a agent.Agent, st *core.State) (out *core.State, err error) {
	actx, cancel := context.WithTimeout(ctx, r.agentTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("%w: %s: panic: %v", ErrAgentExecution, a.Name(), rec)
		}
		logging.LogAgentRun(r.logger, a.Name(), time.Since(start), err)
	}()

	out, err = a.Execute(actx, st)
	events := a.DrainEvents()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAgentExecution, a.Name(), err)
	}
	if out == nil {
		out = st
	}

	r.record(out, events...)

	return out, nil
}

func (r *run) fail(state *core.State, stage Stage, name string, err error) {
	r.failures = append(r.failures, AgentFailure{Agent: name, Stage: stage, Err: err})
	r.record(state, core.NewErrorEvent(name, err))
}

// record stamps events with the request ID and appends them to state.
func (r *run) record(state *core.State, events ...core.Event) {
	for i := range events {
		events[i].RequestID = r.id
	}
	state.AddEvents(events...)
}

// discard asks the sink to withdraw the events already published for a
// cancelled request.
func (r *run) discard(ctx context.Context) {
	d, ok := r.sink.(core.Discarder)
	if !ok || r.published == 0 {
		return
	}
	if err := d.Discard(context.WithoutCancel(ctx), r.id); err != nil {
		r.logger.Warn("Event sink could not discard events", "request_id", r.id, "error", err)
	}
}

// flush forwards events not yet published to the sink.
func (r *run) flush(ctx context.Context, state *core.State) {
	for _, ev := range state.Events[r.published:] {
		if err := r.sink.Publish(ctx, ev); err != nil {
			r.logger.Warn("Event sink rejected event", "request_id", r.id, "event", ev.ID, "error", err)
			break
		}
	}
	r.published = len(state.Events)
}
