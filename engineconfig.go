package otter

// EngineConfig holds runtime configuration shared by every Runtime an
// Engine pools. Carried unchanged in spirit from the teacher's
// engineconfig.go, generalized to a runtime-agnostic config: the
// application-level fields the teacher's config.WorkerConfig mixed in
// (log retention, data directory) are omitted since they belong to a
// host application, not this library.
type EngineConfig struct {
	// PoolSize is the number of warm Runtime instances kept per deploy
	// identity.
	PoolSize int

	// MemoryLimitMB is a per-Runtime heap budget in megabytes. No code in
	// this module reads it, so no heap limit is enforced.
	MemoryLimitMB int

	// ExecutionTimeoutMS bounds a single eval call's wall-clock time
	// before the interpreter's interrupt flag is set.
	ExecutionTimeoutMS int

	// MaxFetchRequests, FetchTimeoutSec and MaxResponseBytes are limits
	// for outbound fetch() calls (count per eval, seconds per request,
	// bytes per response body). This module installs no fetch() and no
	// code reads these fields.
	MaxFetchRequests int

	FetchTimeoutSec int

	MaxResponseBytes int

	// MaxScriptSizeKB caps the source size accepted by Compile.
	MaxScriptSizeKB int
}

// DefaultEngineConfig returns the conservative defaults a freshly
// constructed Engine uses when no EngineConfig is supplied.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PoolSize:           4,
		MemoryLimitMB:      64,
		ExecutionTimeoutMS: 5000,
		MaxFetchRequests:   16,
		FetchTimeoutSec:    10,
		MaxResponseBytes:   10 << 20,
		MaxScriptSizeKB:    512,
	}
}
