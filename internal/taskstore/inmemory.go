// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package taskstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vk/abiforge/internal/nodeid"
)

// InMemory is an ephemeral implementation of Store backed by sync.Map, which
// suits the write-heavy, independent-key access pattern of parallel workers.
type InMemory struct {
	states    sync.Map // Key: task ID string, Value: Status
	errors    sync.Map // Key: task ID string, Value: error
	cacheHits sync.Map // Key: task ID string, Value: struct{}
	updated   sync.Map // Key: task ID string, Value: time.Time
	now       func() time.Time
}

// NewInMemory creates a new, empty in-memory task state store.
func NewInMemory() *InMemory {
	return &InMemory{now: time.Now}
}

func (s *InMemory) touch(key string) {
	s.updated.Store(key, s.now())
}

// SetStatus updates the execution status of a specific task.
func (s *InMemory) SetStatus(_ context.Context, id nodeid.Address, status Status) error {
	key := id.String()
	s.states.Store(key, status)
	s.touch(key)
	return nil
}

// GetStatus retrieves the execution status of a specific task.
func (s *InMemory) GetStatus(_ context.Context, id nodeid.Address) (Status, error) {
	status, ok := s.states.Load(id.String())
	if !ok {
		return StatusPending, nil
	}
	return status.(Status), nil
}

// MarkCacheHit flags the task as satisfied from the incremental cache.
func (s *InMemory) MarkCacheHit(_ context.Context, id nodeid.Address) error {
	key := id.String()
	s.cacheHits.Store(key, struct{}{})
	s.touch(key)
	return nil
}

// SetError records the failure error of a task.
func (s *InMemory) SetError(_ context.Context, id nodeid.Address, taskErr error) error {
	key := id.String()
	s.errors.Store(key, taskErr)
	s.touch(key)
	return nil
}

// GetError retrieves the recorded error of a failed task.
func (s *InMemory) GetError(_ context.Context, id nodeid.Address) (error, error) {
	err, ok := s.errors.Load(id.String())
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}

// Snapshot returns one record per task that has a status, sorted by ID.
func (s *InMemory) Snapshot(_ context.Context) []Record {
	var out []Record
	s.states.Range(func(k, v any) bool {
		key := k.(string)
		rec := Record{ID: key, Status: v.(Status)}
		if _, ok := s.cacheHits.Load(key); ok {
			rec.CacheHit = true
		}
		if err, ok := s.errors.Load(key); ok {
			rec.Error = err.(error).Error()
		}
		if ts, ok := s.updated.Load(key); ok {
			rec.Updated = ts.(time.Time)
		}
		out = append(out, rec)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
