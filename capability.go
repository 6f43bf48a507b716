package otter

import (
	"net"
	"path/filepath"
	"strings"
)

// Capabilities is the permission predicate bundle every host op consults
// before touching the outside world (spec.md §4.7 "capability gating":
// read(path), write(path), env(key), net(host|unix), spawn(cmd)). A zero
// value denies everything, matching spec.md's secure-by-default posture.
type Capabilities struct {
	ReadPaths  []string // glob-style prefixes allowed for filesystem reads
	WritePaths []string
	EnvKeys    []string // allowed env var names; "*" allows all
	NetHosts   []string // allowed "host" or "host:port" targets; "*" allows all
	NetUnix    []string // allowed unix socket paths
	SpawnCmds  []string // allowed executable names for spawn ops
}

// NoCapabilities denies every capability, the default for a freshly
// constructed Runtime until the embedder opts in.
func NoCapabilities() Capabilities { return Capabilities{} }

func matchesAny(patterns []string, candidate string) bool {
	for _, p := range patterns {
		if p == "*" {
			return true
		}
		if p == candidate {
			return true
		}
		if ok, _ := filepath.Match(p, candidate); ok {
			return true
		}
		if strings.HasSuffix(p, "/") && strings.HasPrefix(candidate, p) {
			return true
		}
	}
	return false
}

// CanRead reports whether path is allowed for filesystem reads.
func (c Capabilities) CanRead(path string) bool { return matchesAny(c.ReadPaths, path) }

// CanWrite reports whether path is allowed for filesystem writes.
func (c Capabilities) CanWrite(path string) bool { return matchesAny(c.WritePaths, path) }

// CanEnv reports whether key is allowed for env lookups.
func (c Capabilities) CanEnv(key string) bool { return matchesAny(c.EnvKeys, key) }

// CanNet reports whether a "host" or "host:port" target is allowed.
func (c Capabilities) CanNet(hostport string) bool {
	if matchesAny(c.NetHosts, hostport) {
		return true
	}
	host, _, err := net.SplitHostPort(hostport)
	if err == nil && matchesAny(c.NetHosts, host) {
		return true
	}
	return false
}

// CanNetUnix reports whether a unix socket path is allowed.
func (c Capabilities) CanNetUnix(path string) bool { return matchesAny(c.NetUnix, path) }

// CanSpawn reports whether an executable name is allowed.
func (c Capabilities) CanSpawn(cmd string) bool { return matchesAny(c.SpawnCmds, cmd) }
