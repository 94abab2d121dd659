// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vk/abiforge/internal/ctxlog"
)

// EventTaskState is the event name used for task transitions.
const EventTaskState = "task_state"

// Event is one task state transition.
type Event struct {
	Task     string    `json:"task"`
	Kind     string    `json:"kind"`
	Status   string    `json:"status"`
	CacheHit bool      `json:"cache_hit,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// Publisher receives task transitions. Publish must not block the build and
// must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
	Close() error
}

// LogPublisher writes every event to the context logger at debug level.
type LogPublisher struct{}

// Publish implements Publisher.
func (LogPublisher) Publish(ctx context.Context, ev Event) {
	ctxlog.FromContext(ctx).Debug("Task state changed.", "task", ev.Task, "kind", ev.Kind, "status", ev.Status, "cache_hit", ev.CacheHit)
}

// Close implements Publisher.
func (LogPublisher) Close() error { return nil }

// Fanout forwards every event to each publisher in order.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(ctx context.Context, ev Event) {
	for _, p := range f {
		p.Publish(ctx, ev)
	}
}

// Close closes every publisher and joins their errors.
func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// ForTask returns the statuses recorded for one task, in order.
func (r *Recorder) ForTask(task string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Task == task {
			out = append(out, ev.Status)
		}
	}
	return out
}
