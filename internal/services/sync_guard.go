package services

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/imagerate-backend/internal/clients/redis"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
)

// RunLock excludes concurrent reconciliation runs. Acquire fails fast
// instead of waiting.
type RunLock interface {
	Acquire(ctx context.Context) (release func(), err error)
}

var errRunInFlight = errors.New("sync already running")

type localRunLock struct {
	mu sync.Mutex
}

// NewLocalRunLock guards a single process.
func NewLocalRunLock() RunLock { return &localRunLock{} }

func (l *localRunLock) Acquire(context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, errRunInFlight
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}

var _ RunLock = (*redis.Lock)(nil)

// syncGuard collapses identical in-process calls and holds the run lock for
// the duration of the run.
type syncGuard struct {
	group singleflight.Group
	lock  RunLock
}

func newSyncGuard(lock RunLock) *syncGuard {
	if lock == nil {
		lock = NewLocalRunLock()
	}
	return &syncGuard{lock: lock}
}

func (g *syncGuard) do(ctx context.Context, key string, fn func(ctx context.Context) (*types.SyncReport, error)) (*types.SyncReport, error) {
	v, err, _ := g.group.Do(key, func() (interface{}, error) {
		release, err := g.lock.Acquire(ctx)
		if err != nil {
			if errors.Is(err, errRunInFlight) || errors.Is(err, redis.ErrLockHeld) {
				return nil, domainagg.NewError(domainagg.CodeConflict, "sync.guard", "a catalog sync is already running", err)
			}
			return nil, domainagg.NewError(domainagg.CodeInternal, "sync.guard", "acquire sync lock", err)
		}
		defer release()
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	report, _ := v.(*types.SyncReport)
	return report, nil
}
