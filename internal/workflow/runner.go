package workflow

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"toolflow/internal/logging"
	"toolflow/internal/tracing"
	"toolflow/internal/value"
)

// Runner executes registered workflows through a [ToolExecutor].
//
// Runner holds no per-run state, so any number of Run calls may proceed
// concurrently; each gets its own [ResultSet]. Use [NewRunner] to create an
// instance and the Set* methods to configure optional behavior before use.
type Runner struct {
	registry    *Registry
	executor    ToolExecutor
	strict      bool
	stepTimeout time.Duration
	progress    ProgressCallback
	logger      *zap.SugaredLogger
}

// NewRunner creates a Runner over registry that invokes tools via executor.
// A nil registry is replaced by an empty one.
func NewRunner(registry *Registry, executor ToolExecutor) *Runner {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Runner{
		registry: registry,
		executor: executor,
		logger:   logging.Nop(),
	}
}

// Registry returns the registry the runner reads definitions from.
func (r *Runner) Registry() *Registry { return r.registry }

// SetStrict makes unresolved placeholders fail the run with an
// [UnresolvedPlaceholderError] instead of being silently omitted.
func (r *Runner) SetStrict(strict bool) { r.strict = strict }

// SetStepTimeout bounds each tool invocation. Zero disables the bound.
// A step that times out fails the run like any other tool failure.
func (r *Runner) SetStepTimeout(d time.Duration) { r.stepTimeout = d }

// SetProgressCallback configures a callback invoked before each step.
func (r *Runner) SetProgressCallback(cb ProgressCallback) { r.progress = cb }

// SetLogger configures the logger. A nil logger discards output.
func (r *Runner) SetLogger(logger *zap.SugaredLogger) {
	if logger == nil {
		logger = logging.Nop()
	}
	r.logger = logger
}

// Register stores or replaces a workflow definition. See [Registry.Register].
func (r *Runner) Register(name string, steps []Step) {
	r.registry.Register(name, steps)
}

// Run executes the workflow registered under name with the given context.
//
// Steps run strictly in order. Each step's parameters are resolved against
// wctx and the results recorded so far, the tool is invoked, and its result is
// stored under the tool name, replacing any earlier result for that tool.
//
// Run returns an error wrapping [ErrUnknownWorkflow] before any step executes
// if name is not registered. If a tool fails, that error is returned as is,
// no later step runs, and the partial results are discarded.
func (r *Runner) Run(ctx context.Context, name string, wctx Context) (ResultSet, error) {
	steps, ok := r.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkflow, name)
	}

	runID := uuid.NewString()
	log := r.logger.With("workflow", name, "run_id", runID)

	ctx, span := tracing.StartSpan(ctx, "workflow.run")
	span.WithAttributes(map[string]string{"workflow": name, "run_id": runID}).WithInt("steps", len(steps))

	started := time.Now()
	log.Debugw("workflow started", "steps", len(steps))

	results, err := r.runSteps(ctx, log, name, steps, wctx)
	tracing.EndSpan(span, err)
	if err != nil {
		log.Warnw("workflow failed", "error", err, "elapsed", time.Since(started))
		return nil, err
	}

	log.Infow("workflow completed", "steps", len(steps), "elapsed", time.Since(started))
	return results, nil
}

func (r *Runner) runSteps(ctx context.Context, log *zap.SugaredLogger, name string, steps []Step, wctx Context) (ResultSet, error) {
	results := make(ResultSet, len(steps))
	total := len(steps)

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		params, missing := resolveParams(step.Params, wctx, results)
		if len(missing) > 0 {
			if r.strict {
				sort.Slice(missing, func(a, b int) bool { return missing[a].param < missing[b].param })
				return nil, &UnresolvedPlaceholderError{
					Workflow:   name,
					StepIndex:  i + 1,
					Tool:       step.Tool,
					Param:      missing[0].param,
					Identifier: missing[0].identifier,
				}
			}
			for _, m := range missing {
				log.Debugw("placeholder unresolved, parameter omitted",
					"step", i+1, "tool", step.Tool, "param", m.param, "identifier", m.identifier)
			}
		}

		if r.progress != nil {
			r.progress(i+1, total, step.Tool)
		}

		result, err := r.invoke(ctx, i+1, step.Tool, params)
		if err != nil {
			log.Debugw("step failed", "step", i+1, "tool", step.Tool, "error", err)
			return nil, err
		}
		results[step.Tool] = result
		log.Debugw("step completed", "step", i+1, "tool", step.Tool)
	}

	return results, nil
}

// invoke calls the executor for one step inside its own span and, when
// configured, its own deadline.
func (r *Runner) invoke(ctx context.Context, index int, tool string, params map[string]value.Value) (value.Value, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.step")
	span.WithAttributes(map[string]string{"tool": tool, "step": strconv.Itoa(index)})

	if r.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.stepTimeout)
		defer cancel()
	}

	result, err := r.executor.Execute(ctx, tool, params)
	tracing.EndSpan(span, err)
	return result, err
}
