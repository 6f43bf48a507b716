package otter

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// Snapshot is a best-effort debug_snapshot() (spec.md §5/§7: "latest
// source_url, ip, frame depth; for watchdogs and panics"). The VM's
// dispatch loop does not expose a live instruction pointer or frame depth,
// so the snapshot carries no IP or frame-depth field: SourceURL and
// FunctionCount describe the most recently compiled module (empty/zero
// before the first eval), alongside pending-task, uptime and heap figures.
type Snapshot struct {
	SourceURL     string
	FunctionCount int
	PendingTasks  bool
	Uptime        time.Duration
	HeapAlloc     uint64
}

// String renders the snapshot the way a watchdog log line would, using
// go-humanize for byte counts and durations.
func (s Snapshot) String() string {
	return fmt.Sprintf("source=%s functions=%d pending=%v uptime=%s heap=%s",
		s.SourceURL, s.FunctionCount, s.PendingTasks,
		humanize.RelTime(time.Now().Add(-s.Uptime), time.Now(), "", ""),
		humanize.Bytes(s.HeapAlloc))
}

var processStart = time.Now()

// DebugSnapshot captures the runtime's current state for panic/watchdog
// reporting.
func (r *Runtime) DebugSnapshot() Snapshot {
	var mod string
	var fnCount int
	if m := r.rt.Module(); m != nil {
		mod = m.SourceURL
		fnCount = len(m.Functions)
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Snapshot{
		SourceURL:     mod,
		FunctionCount: fnCount,
		PendingTasks:  r.loop.HasPendingTasks(),
		Uptime:        time.Since(processStart),
		HeapAlloc:     ms.HeapAlloc,
	}
}
