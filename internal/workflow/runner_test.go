package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolflow/internal/value"
)

// call records a single tool invocation.
type call struct {
	Tool   string
	Params map[string]value.Value
}

// mockExecutor records invocations and returns configured results.
type mockExecutor struct {
	mu sync.Mutex
	// Calls records every invocation in order.
	Calls []call
	// Results maps tool name to the values returned on successive calls.
	Results map[string][]value.Value
	// FailOn makes the named tool return Err.
	FailOn string
	Err    error
	// Block makes the named tool wait for context cancellation.
	Block string
}

func (m *mockExecutor) Execute(ctx context.Context, tool string, params map[string]value.Value) (value.Value, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call{Tool: tool, Params: params})
	var result value.Value
	if queued := m.Results[tool]; len(queued) > 0 {
		result = queued[0]
		m.Results[tool] = queued[1:]
	} else {
		result = value.String("ok:" + tool)
	}
	m.mu.Unlock()

	if tool == m.Block {
		<-ctx.Done()
		return value.Value{}, ctx.Err()
	}
	if tool == m.FailOn {
		return value.Value{}, m.Err
	}
	return result, nil
}

func (m *mockExecutor) tools() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.Calls {
		out = append(out, c.Tool)
	}
	return out
}

func newTestRunner(exec *mockExecutor) *Runner {
	return NewRunner(NewRegistry(), exec)
}

func TestRun_UnknownWorkflow(t *testing.T) {
	exec := &mockExecutor{}
	runner := newTestRunner(exec)

	results, err := runner.Run(context.Background(), "missing", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownWorkflow))
	assert.Contains(t, err.Error(), "missing")
	assert.Nil(t, results)
	assert.Empty(t, exec.Calls, "no tool may run for an unknown workflow")
}

func TestRun_InvokesStepsInOrder(t *testing.T) {
	exec := &mockExecutor{}
	runner := newTestRunner(exec)
	runner.Register("independent", []Step{
		{Tool: "a", Params: map[string]value.Value{}},
		{Tool: "b", Params: map[string]value.Value{}},
		{Tool: "c"},
	})

	results, err := runner.Run(context.Background(), "independent", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, exec.tools())
	assert.Len(t, results, 3)
	assert.True(t, value.String("ok:b").Equal(results["b"]))
}

func TestRun_ParameterResolution(t *testing.T) {
	tests := []struct {
		name    string
		steps   []Step
		ctx     Context
		results map[string][]value.Value
		// wantParams are the params expected for the last step.
		wantParams map[string]value.Value
	}{
		{
			name:       "literal passes unchanged",
			steps:      []Step{{Tool: "get_calendar_events", Params: map[string]value.Value{"days": value.Int(1)}}},
			wantParams: map[string]value.Value{"days": value.Int(1)},
		},
		{
			name:       "placeholder resolves from context",
			steps:      []Step{{Tool: "search", Params: map[string]value.Value{"query": value.String("{query}")}}},
			ctx:        Context{"query": value.String("rust")},
			wantParams: map[string]value.Value{"query": value.String("rust")},
		},
		{
			name: "placeholder resolves from earlier tool result",
			steps: []Step{
				{Tool: "A", Params: map[string]value.Value{}},
				{Tool: "B", Params: map[string]value.Value{"x": value.String("{A}")}},
			},
			results:    map[string][]value.Value{"A": {value.Int(42)}},
			wantParams: map[string]value.Value{"x": value.Int(42)},
		},
		{
			name: "context wins over earlier result",
			steps: []Step{
				{Tool: "A"},
				{Tool: "B", Params: map[string]value.Value{"x": value.String("{A}")}},
			},
			ctx:        Context{"A": value.String("from-context")},
			wantParams: map[string]value.Value{"x": value.String("from-context")},
		},
		{
			name: "unresolved placeholder is omitted",
			steps: []Step{{Tool: "summarize_papers", Params: map[string]value.Value{
				"papers": value.String("{arxiv_results}"),
				"limit":  value.Int(3),
			}}},
			wantParams: map[string]value.Value{"limit": value.Int(3)},
		},
		{
			name: "strings that are not placeholders stay literal",
			steps: []Step{{Tool: "t", Params: map[string]value.Value{
				"open":   value.String("{query"),
				"close":  value.String("query}"),
				"inner":  value.String("a {query} b"),
				"nested": value.Map(map[string]value.Value{"q": value.String("{query}")}),
			}}},
			ctx: Context{"query": value.String("rust")},
			wantParams: map[string]value.Value{
				"open":   value.String("{query"),
				"close":  value.String("query}"),
				"inner":  value.String("a {query} b"),
				"nested": value.Map(map[string]value.Value{"q": value.String("{query}")}),
			},
		},
		{
			name:       "resolved placeholder is not resolved again",
			steps:      []Step{{Tool: "t", Params: map[string]value.Value{"x": value.String("{a}")}}},
			ctx:        Context{"a": value.String("{b}"), "b": value.String("deep")},
			wantParams: map[string]value.Value{"x": value.String("{b}")},
		},
		{
			name:       "empty braces look up the empty identifier",
			steps:      []Step{{Tool: "t", Params: map[string]value.Value{"x": value.String("{}")}}},
			ctx:        Context{"": value.String("blank")},
			wantParams: map[string]value.Value{"x": value.String("blank")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{Results: tt.results}
			if exec.Results == nil {
				exec.Results = map[string][]value.Value{}
			}
			runner := newTestRunner(exec)
			runner.Register("wf", tt.steps)

			_, err := runner.Run(context.Background(), "wf", tt.ctx)
			require.NoError(t, err)

			require.Len(t, exec.Calls, len(tt.steps))
			got := exec.Calls[len(exec.Calls)-1].Params
			require.Len(t, got, len(tt.wantParams))
			for k, want := range tt.wantParams {
				gv, ok := got[k]
				require.True(t, ok, "missing param %q", k)
				assert.True(t, want.Equal(gv), "param %q = %s, want %s", k, gv, want)
			}
		})
	}
}

func TestRun_SameToolTwiceLastWriteWins(t *testing.T) {
	exec := &mockExecutor{Results: map[string][]value.Value{
		"A": {value.String("first"), value.String("second")},
	}}
	runner := newTestRunner(exec)
	runner.Register("twice", []Step{
		{Tool: "A"},
		{Tool: "B", Params: map[string]value.Value{"prev": value.String("{A}")}},
		{Tool: "A"},
	})

	results, err := runner.Run(context.Background(), "twice", nil)

	require.NoError(t, err)
	assert.True(t, value.String("second").Equal(results["A"]))
	assert.True(t, value.String("first").Equal(exec.Calls[1].Params["prev"]),
		"B sees the result recorded before it ran")
}

func TestRun_ToolFailureStopsRun(t *testing.T) {
	toolErr := errors.New("coverage service unavailable")
	exec := &mockExecutor{FailOn: "check_code_coverage", Err: toolErr}
	runner := NewRunner(NewDefaultRegistry(), exec)

	results, err := runner.Run(context.Background(), DeployChecklist, nil)

	require.Error(t, err)
	assert.Same(t, toolErr, err, "tool errors are returned unwrapped")
	assert.Nil(t, results, "partial results are discarded")
	assert.Equal(t, []string{"run_tests", "check_code_coverage"}, exec.tools())
}

func TestRun_ReRegisterReplacesSteps(t *testing.T) {
	exec := &mockExecutor{}
	runner := newTestRunner(exec)
	runner.Register("wf", []Step{{Tool: "old1"}, {Tool: "old2"}})
	runner.Register("wf", []Step{{Tool: "new"}})

	results, err := runner.Run(context.Background(), "wf", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, exec.tools())
	assert.Len(t, results, 1)
}

func TestRun_StrictModeFailsOnUnresolvedPlaceholder(t *testing.T) {
	exec := &mockExecutor{}
	runner := NewRunner(NewDefaultRegistry(), exec)
	runner.SetStrict(true)

	_, err := runner.Run(context.Background(), ResearchAssistant, Context{"query": value.String("rust")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedPlaceholder))

	var perr *UnresolvedPlaceholderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ResearchAssistant, perr.Workflow)
	assert.Equal(t, 2, perr.StepIndex)
	assert.Equal(t, "summarize_papers", perr.Tool)
	assert.Equal(t, "papers", perr.Param)
	assert.Equal(t, "arxiv_results", perr.Identifier)

	assert.Equal(t, []string{"search_arxiv"}, exec.tools(), "the failing step's tool is not invoked")
}

func TestRun_ResearchAssistantDefaultOmitsMissing(t *testing.T) {
	exec := &mockExecutor{}
	runner := NewRunner(NewDefaultRegistry(), exec)

	results, err := runner.Run(context.Background(), ResearchAssistant, Context{"query": value.String("rust")})

	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.True(t, value.String("rust").Equal(exec.Calls[0].Params["query"]))
	assert.Empty(t, exec.Calls[1].Params)
}

func TestRun_StepTimeout(t *testing.T) {
	exec := &mockExecutor{Block: "slow"}
	runner := newTestRunner(exec)
	runner.SetStepTimeout(20 * time.Millisecond)
	runner.Register("wf", []Step{{Tool: "slow"}, {Tool: "after"}})

	_, err := runner.Run(context.Background(), "wf", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, []string{"slow"}, exec.tools())
}

func TestRun_CancelledContext(t *testing.T) {
	exec := &mockExecutor{}
	runner := NewRunner(NewDefaultRegistry(), exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, MorningBriefing, nil)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, exec.Calls)
}

func TestRun_ProgressCallback(t *testing.T) {
	exec := &mockExecutor{}
	runner := NewRunner(NewDefaultRegistry(), exec)

	type progress struct {
		index, total int
		tool         string
	}
	var got []progress
	runner.SetProgressCallback(func(stepIndex, totalSteps int, tool string) {
		got = append(got, progress{stepIndex, totalSteps, tool})
	})

	_, err := runner.Run(context.Background(), MorningBriefing, nil)

	require.NoError(t, err)
	assert.Equal(t, []progress{
		{1, 4, "get_calendar_events"},
		{2, 4, "check_github_notifications"},
		{3, 4, "get_weather"},
		{4, 4, "check_ci_status"},
	}, got)
}

func TestRun_ContextIsNotMutated(t *testing.T) {
	exec := &mockExecutor{}
	runner := newTestRunner(exec)
	runner.Register("wf", []Step{{Tool: "query"}, {Tool: "next", Params: map[string]value.Value{"q": value.String("{query}")}}})

	wctx := Context{"query": value.String("rust")}
	_, err := runner.Run(context.Background(), "wf", wctx)

	require.NoError(t, err)
	assert.Len(t, wctx, 1)
	assert.True(t, value.String("rust").Equal(wctx["query"]))
	assert.True(t, value.String("rust").Equal(exec.Calls[1].Params["q"]))
}

func TestRun_ConcurrentRunsAreIndependent(t *testing.T) {
	exec := ToolExecutorFunc(func(_ context.Context, tool string, params map[string]value.Value) (value.Value, error) {
		if tool == "echo" {
			return params["v"], nil
		}
		return params["in"], nil
	})
	runner := NewRunner(NewRegistry(), exec)
	runner.Register("wf", []Step{
		{Tool: "echo", Params: map[string]value.Value{"v": value.String("{v}")}},
		{Tool: "copy", Params: map[string]value.Value{"in": value.String("{echo}")}},
	})

	var wg sync.WaitGroup
	errs := make([]error, 20)
	outs := make([]ResultSet, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = runner.Run(context.Background(), "wf", Context{"v": value.Int(i)})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		require.NoError(t, errs[i])
		assert.True(t, value.Int(i).Equal(outs[i]["copy"]), "run %d got %s", i, outs[i]["copy"])
	}
}
