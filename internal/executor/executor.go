// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/dag"
	"github.com/vk/abiforge/internal/events"
	"github.com/vk/abiforge/internal/taskstore"
)

// DefaultWorkers is used when a non-positive worker count is given.
const DefaultWorkers = 4

// ErrSkipped is the cause recorded on tasks whose prerequisite failed.
var ErrSkipped = errors.New("skipped due to upstream failure")

// Summary counts task outcomes of one Execute call.
type Summary struct {
	Succeeded int
	CacheHits int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithRunner assigns the runner for a task kind.
func WithRunner(kind dag.Kind, r Runner) Option {
	return func(e *Executor) { e.runners[kind] = r }
}

// WithFallback sets the runner for kinds without a dedicated one.
func WithFallback(r Runner) Option {
	return func(e *Executor) { e.fallback = r }
}

// WithPublisher sets the observer of task transitions.
func WithPublisher(p events.Publisher) Option {
	return func(e *Executor) { e.publisher = p }
}

// Executor runs the tasks in a graph concurrently.
type Executor struct {
	graph      *dag.Graph
	store      taskstore.Store
	numWorkers int
	runners    map[dag.Kind]Runner
	fallback   Runner
	publisher  events.Publisher

	nodes     map[string]*node
	wg        sync.WaitGroup
	cacheHits atomic.Int32
}

// node is the per-run scheduling state of a graph task.
type node struct {
	task     *dag.Task
	depCount atomic.Int32
	skipOnce sync.Once
	doneOnce sync.Once
}

// New creates a new graph executor.
func New(graph *dag.Graph, store taskstore.Store, numWorkers int, opts ...Option) *Executor {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	e := &Executor{
		graph:      graph,
		store:      store,
		numWorkers: numWorkers,
		runners:    make(map[dag.Kind]Runner),
		fallback:   Passthrough,
		publisher:  events.LogPublisher{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every task in the graph and returns an error naming each
// failed task if any failed. Cancelling ctx skips tasks not yet started.
func (e *Executor) Execute(ctx context.Context) (*Summary, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	tasks := e.graph.Tasks()
	e.cacheHits.Store(0)
	e.nodes = make(map[string]*node, len(tasks))
	for _, t := range tasks {
		deps, err := e.graph.Dependencies(t.ID)
		if err != nil {
			return nil, err
		}
		n := &node{task: t}
		n.depCount.Store(int32(len(deps)))
		e.nodes[t.ID.String()] = n
		if err := e.store.SetStatus(ctx, t.ID, taskstore.StatusPending); err != nil {
			return nil, err
		}
	}

	readyChan := make(chan *node, len(tasks))
	rootCount := 0
	for _, t := range tasks {
		n := e.nodes[t.ID.String()]
		if n.depCount.Load() == 0 {
			readyChan <- n
			rootCount++
		}
	}
	logger.Debug("Found all root tasks.", "count", rootCount, "total", len(tasks))

	e.wg.Add(len(tasks))
	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	e.wg.Wait()
	close(readyChan)

	summary, err := e.summarize(ctx, tasks)
	summary.Duration = time.Since(start)
	logger.Debug("All tasks completed.", "succeeded", summary.Succeeded, "cache_hits", summary.CacheHits, "failed", summary.Failed, "skipped", summary.Skipped)
	return summary, err
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *node, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for n := range readyChan {
		taskCtx := ctxlog.With(ctx, "task", n.task.ID.String(), "workerID", workerID)
		workerLogger := ctxlog.FromContext(taskCtx)

		if err := ctx.Err(); err != nil {
			e.skip(taskCtx, n, err)
			e.skipDependents(taskCtx, n)
			continue
		}

		e.setStatus(taskCtx, n, taskstore.StatusRunning, false, nil)
		outcome, err := e.runnerFor(n.task.Kind).Run(taskCtx, n.task)
		if err != nil {
			workerLogger.Error("❌ Task failed.", "error", err)
			e.finish(taskCtx, n, taskstore.StatusFailed, false, err)
			e.skipDependents(taskCtx, n)
			continue
		}

		if outcome.CacheHit {
			e.cacheHits.Add(1)
			workerLogger.Info("✅ Task up to date.")
		} else {
			workerLogger.Info("✅ Task finished.")
		}

		// A task is terminal before any dependent is unlocked.
		dependents, derr := e.graph.Dependents(n.task.ID)
		if derr != nil {
			workerLogger.Error("Failed to get dependents for completed task.", "error", derr)
		}
		e.finish(taskCtx, n, taskstore.StatusSucceeded, outcome.CacheHit, nil)
		for _, id := range dependents {
			dep := e.nodes[id.String()]
			if dep.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent task.", "dependent", id.String())
				readyChan <- dep
			}
		}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

func (e *Executor) runnerFor(kind dag.Kind) Runner {
	if r, ok := e.runners[kind]; ok {
		return r
	}
	return e.fallback
}

// finish records a terminal status and releases the node's WaitGroup slot.
func (e *Executor) finish(ctx context.Context, n *node, status taskstore.Status, cacheHit bool, err error) {
	n.doneOnce.Do(func() {
		e.setStatus(ctx, n, status, cacheHit, err)
		e.wg.Done()
	})
}

// skip marks a node as skipped exactly once. It reports whether this call did it.
func (e *Executor) skip(ctx context.Context, n *node, cause error) bool {
	var skipped bool
	n.skipOnce.Do(func() {
		e.finish(ctx, n, taskstore.StatusSkipped, false, cause)
		skipped = true
	})
	return skipped
}

// skipDependents recursively marks all downstream tasks as skipped.
func (e *Executor) skipDependents(ctx context.Context, n *node) {
	logger := ctxlog.FromContext(ctx)

	dependents, err := e.graph.Dependents(n.task.ID)
	if err != nil {
		logger.Error("Failed to get dependents while skipping tasks.", "error", err)
		return
	}
	for _, id := range dependents {
		dep := e.nodes[id.String()]
		cause := fmt.Errorf("%w: %s", ErrSkipped, n.task.ID)
		if e.skip(ctx, dep, cause) {
			logger.Warn("Skipping dependent task due to upstream failure.", "dependent", id.String())
			e.skipDependents(ctx, dep)
		}
	}
}

func (e *Executor) setStatus(ctx context.Context, n *node, status taskstore.Status, cacheHit bool, taskErr error) {
	logger := ctxlog.FromContext(ctx)
	id := n.task.ID
	if err := e.store.SetStatus(ctx, id, status); err != nil {
		logger.Error("Failed to record task status.", "status", status, "error", err)
	}
	if cacheHit {
		if err := e.store.MarkCacheHit(ctx, id); err != nil {
			logger.Error("Failed to record cache hit.", "error", err)
		}
	}
	ev := events.Event{Task: id.String(), Kind: string(n.task.Kind), Status: string(status), CacheHit: cacheHit, Time: time.Now()}
	if taskErr != nil {
		if err := e.store.SetError(ctx, id, taskErr); err != nil {
			logger.Error("Failed to record task error.", "error", err)
		}
		ev.Error = taskErr.Error()
	}
	e.publisher.Publish(ctx, ev)
}

// summarize counts outcomes and builds the root-cause error. Skipped tasks
// are symptoms and are not reported as causes.
func (e *Executor) summarize(ctx context.Context, tasks []*dag.Task) (*Summary, error) {
	s := &Summary{}
	var failed []string
	var causes []error
	for _, t := range tasks {
		status, _ := e.store.GetStatus(ctx, t.ID)
		switch status {
		case taskstore.StatusSucceeded:
			s.Succeeded++
		case taskstore.StatusFailed:
			s.Failed++
			failed = append(failed, t.ID.String())
			if taskErr, _ := e.store.GetError(ctx, t.ID); taskErr != nil {
				causes = append(causes, taskErr)
			}
		case taskstore.StatusSkipped:
			s.Skipped++
		}
	}
	s.CacheHits = int(e.cacheHits.Load())

	if len(failed) > 0 {
		return s, fmt.Errorf("build failed for %s: %w", strings.Join(failed, ", "), errors.Join(causes...))
	}
	if err := ctx.Err(); err != nil && s.Skipped > 0 {
		return s, fmt.Errorf("build cancelled: %w", err)
	}
	return s, nil
}
