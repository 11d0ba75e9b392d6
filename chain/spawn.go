package chain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TaskHandle is the opaque handle spec.md §6 says Submit returns for the
// spawned background (async-phase) task.
type TaskHandle interface {
	// ID uniquely identifies this background task, e.g. for correlating log
	// lines emitted by the async phase with the Submit call that started it.
	ID() uuid.UUID
	// Wait blocks until the task completes. It is provided for tests and
	// for hosts that want to join on the async phase; spec.md's own
	// contract never requires a caller to wait.
	Wait() error
}

// TaskSpawner is the task-spawning collaborator spec.md §6 names:
// spawn(fn) returning an opaque handle.
type TaskSpawner interface {
	Spawn(ctx context.Context, fn func(ctx context.Context) error) TaskHandle
}

type errgroupSpawner struct{}

// NewGoroutineSpawner returns the default TaskSpawner: one goroutine per
// Spawn call, supervised by a golang.org/x/sync/errgroup.Group so a panic
// inside fn is recovered and surfaced through TaskHandle.Wait as an error
// rather than crashing the host process. Grounded on
// internal/check/dnsbl/dnsbl.go's use of errgroup.Group to run concurrent
// blocklist lookups and collect the first failure.
func NewGoroutineSpawner() TaskSpawner {
	return errgroupSpawner{}
}

type errgroupHandle struct {
	id    uuid.UUID
	group *errgroup.Group
}

func (h errgroupHandle) ID() uuid.UUID { return h.id }

func (h errgroupHandle) Wait() error {
	return h.group.Wait()
}

func (s errgroupSpawner) Spawn(parent context.Context, fn func(ctx context.Context) error) TaskHandle {
	group, ctx := errgroup.WithContext(parent)
	group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("chain: async task panicked: %v", r)
			}
		}()
		return fn(ctx)
	})
	return errgroupHandle{id: uuid.New(), group: group}
}
