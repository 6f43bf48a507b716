package otter

import "testing"

func TestCapabilities_NoCapabilitiesDeniesEverything(t *testing.T) {
	c := NoCapabilities()
	if c.CanRead("/etc/passwd") || c.CanWrite("/tmp/x") || c.CanEnv("PATH") ||
		c.CanNet("example.com:443") || c.CanNetUnix("/var/run/x.sock") || c.CanSpawn("ls") {
		t.Error("NoCapabilities should deny every check")
	}
}

func TestCapabilities_ExactAndWildcardMatch(t *testing.T) {
	c := Capabilities{
		ReadPaths: []string{"/srv/data/*"},
		EnvKeys:   []string{"*"},
		NetHosts:  []string{"api.example.com"},
	}
	if !c.CanRead("/srv/data/file.txt") {
		t.Error("expected glob read match")
	}
	if c.CanRead("/etc/passwd") {
		t.Error("expected /etc/passwd to be denied")
	}
	if !c.CanEnv("ANYTHING") {
		t.Error("expected wildcard env match")
	}
	if !c.CanNet("api.example.com:443") {
		t.Error("expected host match to ignore the port")
	}
	if c.CanNet("evil.example.com:443") {
		t.Error("expected non-listed host to be denied")
	}
}
