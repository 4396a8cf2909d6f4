// Package scheduler executes a build task graph with bounded parallelism,
// skipping tasks whose outputs are current.
package scheduler

import (
	"context"
	"errors"
	"runtime"
	"time"

	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

// Scheduler manages the execution of tasks in the dependency graph.
type Scheduler struct {
	hasher    ports.Hasher
	telemetry ports.Telemetry
}

// NewScheduler creates a new Scheduler.
func NewScheduler(hasher ports.Hasher, telemetry ports.Telemetry) *Scheduler {
	return &Scheduler{
		hasher:    hasher,
		telemetry: telemetry,
	}
}

// Options carry the per-build collaborators and settings of a single run.
type Options struct {
	Executor ports.TaskExecutor
	Oracle   ports.UpToDateChecker
	// Store enables the input-hash fallback when set.
	Store ports.BuildInfoStore
	// Parallelism bounds concurrently running tasks. Zero means one per CPU.
	Parallelism int
	// Force runs every task regardless of the oracle and the build-info store.
	Force bool
}

// Report describes the outcome of a run.
type Report struct {
	Statuses map[string]domain.TaskStatus
	// Executed lists the tasks that actually ran, in completion order.
	Executed []string
	Duration time.Duration
}

// Count returns the number of tasks that ended in status.
func (r *Report) Count(status domain.TaskStatus) int {
	n := 0
	for _, s := range r.Statuses {
		if s == status {
			n++
		}
	}
	return n
}

// Run validates g and executes it. Independent branches keep running after a
// failure and every failure is returned, joined, as a *domain.TaskError. A
// fatal failure cancels the run: running tasks are interrupted and nothing
// new is started.
func (s *Scheduler) Run(ctx context.Context, g *domain.Graph, opts Options) (*Report, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	state := s.newRunState(ctx, g, opts)
	defer state.cancel()

	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil {
			// Cancelled: drop unstarted work and drain the running tasks.
			state.ready = nil
			if state.active > 0 {
				state.handleResult(<-state.resultsCh)
			}
			continue
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	state.blockRemaining()
	if err := ctx.Err(); err != nil {
		state.errs = errors.Join(state.errs, err)
	}

	state.report.Duration = time.Since(start)
	return state.report, state.errs
}

type result struct {
	task   domain.InternedString
	status domain.TaskStatus
	err    error
}

type schedulerRunState struct {
	graph       *domain.Graph
	inDegree    map[domain.InternedString]int
	ready       []domain.InternedString
	active      int
	resultsCh   chan result
	errs        error
	ctx         context.Context
	cancel      context.CancelFunc
	parallelism int
	opts        Options
	report      *Report
	s           *Scheduler
}

func (s *Scheduler) newRunState(ctx context.Context, g *domain.Graph, opts Options) *schedulerRunState {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	inDegree := make(map[domain.InternedString]int, g.TaskCount())
	statuses := make(map[string]domain.TaskStatus, g.TaskCount())
	var ready []domain.InternedString
	for task := range g.Walk() {
		n := len(g.DependenciesOf(task.Name))
		inDegree[task.Name] = n
		statuses[task.Name.String()] = domain.TaskStatusPending
		if n == 0 {
			ready = append(ready, task.Name)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	return &schedulerRunState{
		graph:       g,
		inDegree:    inDegree,
		ready:       ready,
		resultsCh:   make(chan result, parallelism),
		ctx:         runCtx,
		cancel:      cancel,
		parallelism: parallelism,
		opts:        opts,
		report:      &Report{Statuses: statuses},
		s:           s,
	}
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		name := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.report.Statuses[name.String()] = domain.TaskStatusRunning

		task, _ := state.graph.GetTask(name)
		go func(t domain.Task) {
			status, err := state.runTask(state.ctx, &t)
			state.resultsCh <- result{task: t.Name, status: status, err: err}
		}(task)
	}
}

func (state *schedulerRunState) runTask(ctx context.Context, task *domain.Task) (domain.TaskStatus, error) {
	ctx, vertex := state.s.telemetry.Record(ctx, task.Name.String())

	if !state.opts.Force && state.outputsCurrent(task) {
		vertex.Cached()
		vertex.Complete(nil)
		return domain.TaskStatusUpToDate, nil
	}

	var inputHash string
	var hashErr error
	if state.opts.Store != nil {
		inputHash, hashErr = state.s.hasher.ComputeInputHash(task)
	}
	if !state.opts.Force && hashErr == nil && state.contentUnchanged(task, inputHash) {
		vertex.Cached()
		vertex.Complete(nil)
		return domain.TaskStatusUpToDate, nil
	}

	if err := state.opts.Executor.Execute(ctx, task); err != nil {
		vertex.Complete(err)
		return domain.TaskStatusFailed, err
	}

	err := state.recordBuildInfo(task, inputHash, hashErr)
	vertex.Complete(err)
	if err != nil {
		return domain.TaskStatusFailed, err
	}
	return domain.TaskStatusCompleted, nil
}

// outputsCurrent asks the oracle about every declared output. A task without
// outputs always runs.
func (state *schedulerRunState) outputsCurrent(task *domain.Task) bool {
	if len(task.Outputs) == 0 {
		return false
	}
	sources := task.Sources()
	for _, out := range task.Outputs {
		if !state.opts.Oracle.IsUpToDate(sources, out.String()) {
			return false
		}
	}
	return true
}

// contentUnchanged is the fallback for tasks that are stale by timestamp only:
// when the inputs hash to what the last successful run recorded and the
// outputs are still the ones it produced, the outputs are stamped current
// instead of being rebuilt.
func (state *schedulerRunState) contentUnchanged(task *domain.Task, inputHash string) bool {
	if state.opts.Store == nil || len(task.Outputs) == 0 {
		return false
	}
	info, err := state.opts.Store.Get(task.Name.String())
	if err != nil || info == nil || info.InputHash != inputHash {
		return false
	}
	outputHash, err := state.s.hasher.ComputeOutputHash(task.OutputPaths())
	if err != nil || outputHash != info.OutputHash {
		return false
	}
	for _, out := range task.OutputPaths() {
		if err := state.opts.Oracle.MarkCurrent(out); err != nil {
			return false
		}
	}
	return true
}

func (state *schedulerRunState) recordBuildInfo(task *domain.Task, inputHash string, hashErr error) error {
	if state.opts.Store == nil || len(task.Outputs) == 0 {
		return nil
	}
	if hashErr != nil {
		// Inputs may be produced by the task's own tool run; hash them now.
		var err error
		if inputHash, err = state.s.hasher.ComputeInputHash(task); err != nil {
			return zerr.Wrap(err, domain.ErrInputHashComputationFailed.Error())
		}
	}
	outputHash, err := state.s.hasher.ComputeOutputHash(task.OutputPaths())
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to hash task outputs"), "task", task.Name.String())
	}
	return state.opts.Store.Put(domain.BuildInfo{
		TaskName:   task.Name.String(),
		InputHash:  inputHash,
		OutputHash: outputHash,
		Timestamp:  time.Now(),
	})
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--
	name := res.task.String()
	state.report.Statuses[name] = res.status

	if res.err != nil {
		state.errs = errors.Join(state.errs, &domain.TaskError{Task: name, Err: res.err})
		if domain.IsFatal(res.err) {
			state.cancel()
		}
		return
	}

	if res.status == domain.TaskStatusCompleted {
		state.report.Executed = append(state.report.Executed, name)
	}
	for _, dep := range state.graph.Dependents(res.task) {
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}

// blockRemaining marks every task that never reached a terminal state. These
// are the dependents of failed tasks and, after a cancellation, everything
// that was not started.
func (state *schedulerRunState) blockRemaining() {
	for name, status := range state.report.Statuses {
		if !status.IsTerminal() {
			state.report.Statuses[name] = domain.TaskStatusBlocked
		}
	}
}
