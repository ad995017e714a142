package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryStore struct {
	values map[string]any
	ttls   map[string]time.Duration
	err    error
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) LockKey(name string) string { return "km:lock:" + name }

func TestRedisLockClaimsEachFireTimeOnce(t *testing.T) {
	store := &memoryStore{values: map[string]any{}, ttls: map[string]time.Duration{}}
	a, err := NewRedisLock(store, 0)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	b, _ := NewRedisLock(store, 0)

	ctx := context.Background()
	fire := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if ok, err := a.Claim(ctx, "daily", fire); err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	if ok, _ := b.Claim(ctx, "daily", fire); ok {
		t.Fatal("second instance claimed the same fire time")
	}
	if ok, _ := b.Claim(ctx, "daily", fire.Add(24*time.Hour)); !ok {
		t.Fatal("next fire time should be claimable")
	}

	key := "km:lock:cron:daily:" + "1772442000"
	if store.values[key] == nil {
		t.Fatalf("expected key %s, got %v", key, store.values)
	}
	if store.ttls[key] != defaultClaimTTL {
		t.Fatalf("expected default ttl, got %s", store.ttls[key])
	}
}

func TestRedisLockPropagatesErrors(t *testing.T) {
	store := &memoryStore{err: errors.New("down")}
	lock, _ := NewRedisLock(store, time.Minute)
	if _, err := lock.Claim(context.Background(), "daily", time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewRedisLock(nil, 0); err == nil {
		t.Fatal("expected nil client error")
	}
}
