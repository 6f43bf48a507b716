package otter

import "testing"

func TestEngine_AcquireReleaseReusesRuntime(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.PoolSize = 2
	e := NewEngine(cfg, NoCapabilities())
	key := DeployKey{ID: "site-a", Version: "v1"}

	r1, err := e.Acquire(key)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	e.Release(key, r1)

	stats, err := e.PoolStats(key)
	if err != nil {
		t.Fatalf("PoolStats error: %v", err)
	}
	if stats.Idle != 1 {
		t.Errorf("Idle = %d, want 1 after release", stats.Idle)
	}

	r2, err := e.Acquire(key)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if r2 != r1 {
		t.Error("expected Acquire to reuse the released Runtime")
	}
}

func TestEngine_InvalidateDropsIdlePool(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.PoolSize = 2
	e := NewEngine(cfg, NoCapabilities())
	key := DeployKey{ID: "site-b", Version: "v1"}

	r, _ := e.Acquire(key)
	e.Release(key, r)
	e.Invalidate(key)

	if _, err := e.PoolStats(key); err == nil {
		t.Error("expected PoolStats to error after Invalidate")
	}

	r2, err := e.Acquire(key)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if r2 == r {
		t.Error("expected a fresh Runtime after Invalidate, got the old one")
	}
}

func TestEngine_AcquireBeyondPoolSizeStillSucceeds(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.PoolSize = 1
	e := NewEngine(cfg, NoCapabilities())
	key := DeployKey{ID: "site-c", Version: "v1"}

	r1, err := e.Acquire(key)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	r2, err := e.Acquire(key)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if r1 == r2 {
		t.Error("expected two distinct Runtimes when pool has no idle entries")
	}
}
