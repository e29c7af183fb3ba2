package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RoleTable caches the role name -> id mapping in process so role checks
// stay off the database on the request path. The table is reloaded once
// its age exceeds the refresh interval; concurrent reloads collapse into
// a single store call.
type RoleTable struct {
	store    RoleStore
	interval time.Duration
	nowFunc  func() time.Time

	mu       sync.RWMutex
	byName   map[string]int64
	loadedAt time.Time

	group singleflight.Group
}

// NewRoleTable returns a RoleTable refreshing at the given interval.
func NewRoleTable(store RoleStore, interval time.Duration) *RoleTable {
	return &RoleTable{
		store:    store,
		interval: interval,
		nowFunc:  time.Now,
	}
}

// ID resolves a role name to its identifier, refreshing the table first
// when it is stale.
func (t *RoleTable) ID(ctx context.Context, name string) (int64, error) {
	t.mu.RLock()
	fresh := t.byName != nil && t.nowFunc().Sub(t.loadedAt) < t.interval
	id, ok := t.byName[name]
	t.mu.RUnlock()

	if fresh {
		if !ok {
			return 0, fmt.Errorf("role %q: %w", name, ErrNotFound)
		}
		return id, nil
	}

	_, err, _ := t.group.Do("refresh", func() (interface{}, error) {
		roles, loadErr := t.store.RoleIDsByName(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		t.mu.Lock()
		t.byName = roles
		t.loadedAt = t.nowFunc()
		t.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		// keep serving a stale table rather than failing the request
		t.mu.RLock()
		id, ok = t.byName[name]
		t.mu.RUnlock()
		if ok {
			return id, nil
		}
		return 0, err
	}

	t.mu.RLock()
	id, ok = t.byName[name]
	t.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("role %q: %w", name, ErrNotFound)
	}
	return id, nil
}
