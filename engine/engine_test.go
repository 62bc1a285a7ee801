package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/finmesh/agent"
	"github.com/hupe1980/finmesh/core"
	"github.com/hupe1980/finmesh/internal/testutil"
)

type stubAgent struct {
	name string
	fn   func(ctx context.Context, st *core.State) (*core.State, error)
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) Kind() agent.Kind { return "stub" }

func (s *stubAgent) DrainEvents() []core.Event { return nil }

func (s *stubAgent) Execute(ctx context.Context, st *core.State) (*core.State, error) {
	return s.fn(ctx, st)
}

func withSuite(patch func(s *agent.Suite)) func(o *Options) {
	return func(o *Options) {
		o.NewSuite = func(deps agent.Deps) *agent.Suite {
			s := agent.NewSuite(deps)
			patch(s)
			return s
		}
	}
}

// delayedAgent runs the wrapped agent after a pause and records when it
// finished.
type delayedAgent struct {
	agent.Agent
	delay    time.Duration
	finished func(name string)
}

func (d *delayedAgent) Execute(ctx context.Context, st *core.State) (*core.State, error) {
	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	out, err := d.Agent.Execute(ctx, st)
	d.finished(d.Name())
	return out, err
}

func firstAppearance(evs []core.Event) []string {
	var out []string
	for _, e := range evs {
		if len(out) == 0 || out[len(out)-1] != e.Agent {
			out = append(out, e.Agent)
		}
	}
	return out
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		caps []core.Capability
		want []Stage
	}{
		{"shopping", []core.Capability{core.CapabilityShopping}, []Stage{StageRouting, StageSequential, StageFinalize, StageDone}},
		{"shopping wins", []core.Capability{core.CapabilityShopping, core.CapabilityBudget}, []Stage{StageRouting, StageSequential, StageFinalize, StageDone}},
		{"spending", []core.Capability{core.CapabilityTransaction, core.CapabilityBudget}, []Stage{StageRouting, StageFanout, StageComplianceGate, StageFinalize, StageDone}},
		{"research only", []core.Capability{core.CapabilityDocumentResearch}, []Stage{StageRouting, StageFanout, StageFinalize, StageDone}},
		{"compliance only", []core.Capability{core.CapabilityCompliance}, []Stage{StageRouting, StageComplianceGate, StageFinalize, StageDone}},
		{"general", []core.Capability{core.CapabilityGeneral}, []Stage{StageRouting, StageFinalize, StageDone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(core.NewCapabilitySet(tt.caps...)))
		})
	}
}

func TestRunShoppingPipeline(t *testing.T) {
	resp, err := New().Run(context.Background(), Request{Query: "find me the cheapest phone under my budget"})
	require.NoError(t, err)

	assert.Equal(t, []core.Capability{core.CapabilityShopping}, resp.Capabilities)
	assert.Equal(t, []Stage{StageRouting, StageSequential, StageFinalize, StageDone}, resp.Plan)
	assert.Equal(t, []string{agent.ShoppingAgentName, agent.BudgetAgentName, agent.ComplianceAgentName, agent.SynthesisAgentName}, resp.AgentsUsed)
	assert.False(t, resp.Degraded)
	assert.Empty(t, resp.Failures)

	st := resp.State
	require.NotNil(t, st.Shopping)
	assert.True(t, st.Shopping.Demo)
	assert.NotEmpty(t, st.Shopping.Quotes)

	cheapest, ok := st.Shopping.Cheapest()
	require.True(t, ok)
	require.NotNil(t, st.Affordability)
	assert.InDelta(t, cheapest.Price, st.Affordability.Amount, 0.001)
	assert.NotEmpty(t, st.ComplianceAnalysis)
	assert.Contains(t, resp.Text, "Shopping Intelligence:")
}

func TestRunSpendingFanout(t *testing.T) {
	stream := &core.Stream{}
	eng := New(func(o *Options) { o.Sink = stream })

	txns := testutil.NewTransactionBuilder().
		At(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)).
		Debit("Swiggy", "food", 450).
		Debit("Uber", "transport", 1200).
		Build()
	resp, err := eng.Run(context.Background(), Request{Query: "what's my spending this month", Transactions: txns})
	require.NoError(t, err)

	assert.True(t, core.NewCapabilitySet(resp.Capabilities...).HasAny(core.CapabilityTransaction))
	assert.Contains(t, resp.Capabilities, core.CapabilityBudget)
	assert.Equal(t, []Stage{StageRouting, StageFanout, StageComplianceGate, StageFinalize, StageDone}, resp.Plan)
	assert.Equal(t, []string{agent.TransactionAgentName, agent.BudgetAgentName, agent.ComplianceAgentName, agent.SynthesisAgentName}, resp.AgentsUsed)

	require.NotEmpty(t, resp.Events)
	assert.Equal(t, []string{
		OrchestratorName,
		agent.TransactionAgentName,
		agent.BudgetAgentName,
		agent.ComplianceAgentName,
		agent.SynthesisAgentName,
		OrchestratorName,
	}, firstAppearance(resp.Events))

	for _, ev := range resp.Events {
		assert.Equal(t, resp.RequestID, ev.RequestID)
	}
	assert.Equal(t, resp.Events, stream.Events())

	assert.NotEmpty(t, resp.State.TransactionAnalysis)
	assert.NotEmpty(t, resp.State.BudgetAnalysis)
	assert.Contains(t, resp.Text, "Transaction Intelligence:")
}

func TestFanoutKeepsDeclaredOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	finished := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, name)
	}

	eng := New(withSuite(func(s *agent.Suite) {
		s.Transaction = &delayedAgent{Agent: s.Transaction, delay: 100 * time.Millisecond, finished: finished}
		s.Budget = &delayedAgent{Agent: s.Budget, finished: finished}
	}))

	resp, err := eng.Run(context.Background(), Request{Query: "what's my spending this month"})
	require.NoError(t, err)

	require.Equal(t, []string{agent.BudgetAgentName, agent.TransactionAgentName}, order, "budget completes first")
	assert.Equal(t, []string{agent.TransactionAgentName, agent.BudgetAgentName, agent.ComplianceAgentName, agent.SynthesisAgentName}, resp.AgentsUsed)
	assert.Equal(t, []string{
		OrchestratorName,
		agent.TransactionAgentName,
		agent.BudgetAgentName,
		agent.ComplianceAgentName,
		agent.SynthesisAgentName,
		OrchestratorName,
	}, firstAppearance(resp.Events))
}

func TestFanoutIsolatesFailures(t *testing.T) {
	eng := New(withSuite(func(s *agent.Suite) {
		s.Budget = &stubAgent{name: agent.BudgetAgentName, fn: func(context.Context, *core.State) (*core.State, error) {
			panic("boom")
		}}
	}))

	resp, err := eng.Run(context.Background(), Request{Query: "what's my spending this month"})
	require.NoError(t, err)

	require.Len(t, resp.Failures, 1)
	assert.Equal(t, agent.BudgetAgentName, resp.Failures[0].Agent)
	assert.Equal(t, StageFanout, resp.Failures[0].Stage)
	assert.ErrorIs(t, resp.Failures[0].Err, ErrAgentExecution)

	assert.Empty(t, resp.State.BudgetAnalysis)
	assert.NotEmpty(t, resp.State.TransactionAnalysis)
	assert.NotContains(t, resp.AgentsUsed, agent.BudgetAgentName)
	assert.False(t, resp.Degraded)

	var errorEvents int
	for _, ev := range resp.Events {
		if ev.Kind == core.EventError {
			errorEvents++
			assert.Equal(t, agent.BudgetAgentName, ev.Agent)
		}
	}
	assert.Equal(t, 1, errorEvents)
}

func TestSequentialIsolatesFailures(t *testing.T) {
	eng := New(withSuite(func(s *agent.Suite) {
		s.Budget = &stubAgent{name: agent.BudgetAgentName, fn: func(_ context.Context, st *core.State) (*core.State, error) {
			st.BudgetAnalysis = "partial"
			return nil, errors.New("ledger offline")
		}}
	}))

	resp, err := eng.Run(context.Background(), Request{Query: "find me the cheapest phone"})
	require.NoError(t, err)

	require.Len(t, resp.Failures, 1)
	assert.Equal(t, StageSequential, resp.Failures[0].Stage)
	assert.Empty(t, resp.State.BudgetAnalysis)
	assert.NotNil(t, resp.State.Shopping)
	assert.Contains(t, resp.AgentsUsed, agent.ComplianceAgentName)
}

func TestAgentTimeout(t *testing.T) {
	eng := New(
		func(o *Options) { o.AgentTimeout = 20 * time.Millisecond },
		withSuite(func(s *agent.Suite) {
			s.Transaction = &stubAgent{name: agent.TransactionAgentName, fn: func(ctx context.Context, _ *core.State) (*core.State, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}}
		}),
	)

	resp, err := eng.Run(context.Background(), Request{Query: "list my transactions"})
	require.NoError(t, err)
	require.Len(t, resp.Failures, 1)
	assert.ErrorIs(t, resp.Failures[0].Err, context.DeadlineExceeded)
	assert.NotEmpty(t, resp.Text)
}

func TestFinalizeFailureIsGeneric(t *testing.T) {
	eng := New(withSuite(func(s *agent.Suite) {
		s.Synthesis = &stubAgent{name: agent.SynthesisAgentName, fn: func(context.Context, *core.State) (*core.State, error) {
			return nil, errors.New("connection refused at 10.0.0.7")
		}}
	}))

	resp, err := eng.Run(context.Background(), Request{Query: "hello"})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, GenericFailureMessage, resp.Text)
	assert.NotContains(t, resp.Text, "10.0.0.7")
}

func TestGeneralQuery(t *testing.T) {
	resp, err := New().Run(context.Background(), Request{Query: "hello there"})
	require.NoError(t, err)
	assert.Equal(t, []core.Capability{core.CapabilityGeneral}, resp.Capabilities)
	assert.Equal(t, agent.UnavailableMessage, resp.Text)
	assert.Equal(t, []string{agent.SynthesisAgentName}, resp.AgentsUsed)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := New().Run(ctx, Request{Query: "what's my spending this month"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, resp)
}

func TestInvokeSync(t *testing.T) {
	id, events, err := New().InvokeSync(context.Background(), Request{Query: "find me the cheapest phone under my budget"})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	for _, ev := range events {
		assert.Equal(t, id, ev.RequestID)
	}

	last := events[len(events)-1]
	assert.Equal(t, OrchestratorName, last.Agent)
	assert.Equal(t, core.EventResult, last.Kind)
	assert.NotEmpty(t, last.Payload["response"])
}

func TestInvokeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := &core.Stream{}
	_, eventsCh, errorsCh := New(func(o *Options) { o.Sink = stream }).Invoke(ctx, Request{Query: "hello"})
	for range eventsCh {
	}
	assert.ErrorIs(t, <-errorsCh, context.Canceled)
	assert.Zero(t, stream.Len())
}

// countingStream remembers how many events were ever published.
type countingStream struct {
	core.Stream
	published atomic.Int32
}

func (c *countingStream) Publish(ctx context.Context, ev core.Event) error {
	c.published.Add(1)
	return c.Stream.Publish(ctx, ev)
}

func TestCancelledRunDiscardsPublishedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &countingStream{}
	eng := New(func(o *Options) { o.Sink = sink }, withSuite(func(s *agent.Suite) {
		s.Transaction = &stubAgent{name: agent.TransactionAgentName, fn: func(ctx context.Context, _ *core.State) (*core.State, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}}
	}))

	resp, err := eng.Run(ctx, Request{Query: "what's my spending this month"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, resp)
	assert.Positive(t, sink.published.Load(), "routing events were streamed before the cancel")
	assert.Zero(t, sink.Len())
}
