package otter

import (
	"fmt"
	"sync"
)

// DeployKey identifies a single deployment's pool of warm Runtimes,
// generalized from the teacher's poolKey{SiteID, DeployKey} pair to a
// single opaque identity since this library has no notion of "site".
type DeployKey struct {
	ID      string
	Version string
}

// deployPool wraps a slice of idle Runtimes behind a mutex and an
// invalidation flag, mirroring the teacher's sitePool.isValid/markInvalid
// so a deploy can be hot-swapped (new script version) without racing
// in-flight Eval calls against a pool mid-teardown.
type deployPool struct {
	mu      sync.Mutex
	idle    []*Runtime
	created int
	invalid bool
}

func (p *deployPool) isValid() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.invalid
}

func (p *deployPool) markInvalid() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalid = true
}

// Engine manages pools of warm Runtime instances keyed by DeployKey,
// reusing compiled, initialized runtimes across Eval calls the way the
// teacher's Engine reuses QuickJS VM pools across requests for the same
// site/deploy (spec.md §13 "otter.Engine manages a pool of otter.Runtime
// instances... reusing warm runtimes across eval calls instead of
// constructing one per call").
type Engine struct {
	config EngineConfig
	caps   Capabilities

	mu    sync.Mutex // serializes pool creation/invalidation, like the teacher's poolMu
	pools map[DeployKey]*deployPool
}

// NewEngine creates an Engine with the given configuration and default
// capability bundle applied to every Runtime it constructs.
func NewEngine(cfg EngineConfig, caps Capabilities) *Engine {
	return &Engine{
		config: cfg,
		caps:   caps,
		pools:  make(map[DeployKey]*deployPool),
	}
}

func (e *Engine) getOrCreatePool(key DeployKey) *deployPool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pools[key]
	if ok && p.isValid() {
		return p
	}
	p = &deployPool{}
	e.pools[key] = p
	return p
}

// Acquire returns a warm Runtime for key, creating one if the pool is
// empty or has not yet reached EngineConfig.PoolSize, or blocks-free
// allocates a fresh one beyond the pool size cap (bounded reuse, not a
// hard admission limit — spec.md has no queuing model for this).
func (e *Engine) Acquire(key DeployKey) (*Runtime, error) {
	p := e.getOrCreatePool(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.idle); n > 0 {
		r := p.idle[n-1]
		p.idle = p.idle[:n-1]
		return r, nil
	}
	if p.created >= e.config.PoolSize && e.config.PoolSize > 0 {
		// Pool is saturated; still serve the request with a fresh,
		// non-pooled Runtime rather than refusing it outright.
		return New(Config{Capabilities: e.caps, EngineConfig: e.config}), nil
	}
	p.created++
	return New(Config{Capabilities: e.caps, EngineConfig: e.config}), nil
}

// Release returns a Runtime to key's idle pool for reuse. Callers must
// not touch r again after calling Release.
func (e *Engine) Release(key DeployKey, r *Runtime) {
	e.mu.Lock()
	p, ok := e.pools[key]
	e.mu.Unlock()
	if !ok || !p.isValid() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) >= e.config.PoolSize && e.config.PoolSize > 0 {
		return // drop it; already have enough idle runtimes warmed
	}
	p.idle = append(p.idle, r)
}

// Invalidate marks key's pool stale: in-flight Runtimes finish normally,
// but Acquire never again hands one back out and the idle list is
// dropped so a subsequent Acquire builds fresh Runtimes against the new
// deploy, mirroring the teacher's markInvalid+dispose-on-next-lookup.
func (e *Engine) Invalidate(key DeployKey) {
	e.mu.Lock()
	p, ok := e.pools[key]
	if ok {
		delete(e.pools, key)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	p.markInvalid()
	p.mu.Lock()
	p.idle = nil
	p.mu.Unlock()
}

// PoolStats reports the current idle/created counts for a deploy, for
// debug_snapshot()-style introspection.
type PoolStats struct {
	Idle    int
	Created int
}

func (e *Engine) PoolStats(key DeployKey) (PoolStats, error) {
	e.mu.Lock()
	p, ok := e.pools[key]
	e.mu.Unlock()
	if !ok {
		return PoolStats{}, fmt.Errorf("otter: no pool for deploy %+v", key)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Idle: len(p.idle), Created: p.created}, nil
}
