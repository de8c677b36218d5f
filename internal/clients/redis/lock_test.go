package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

func TestLockExclusive(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis lock tests")
	}
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	ctx := context.Background()
	cfg := LockConfig{Addr: addr, Key: "imagerate:test:" + uuid.NewString(), TTL: 3 * time.Second}

	a, err := NewLock(ctx, log, cfg)
	if err != nil {
		t.Fatalf("NewLock: %v", err)
	}
	defer a.Close()
	b, err := NewLock(ctx, log, cfg)
	if err != nil {
		t.Fatalf("NewLock(b): %v", err)
	}
	defer b.Close()

	release, err := a.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := b.Acquire(ctx); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("Acquire(b): want ErrLockHeld got=%v", err)
	}
	release()
	release()

	releaseB, err := b.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire(b) after release: %v", err)
	}
	releaseB()
}

func TestNewLockRequiresAddr(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	if _, err := NewLock(context.Background(), log, LockConfig{}); err == nil {
		t.Fatalf("expected error for missing addr")
	}
}
