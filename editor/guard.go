package editor

import "sync"

// UnloadGuard lets an editor ask the host to warn before navigation while it
// holds unsaved changes. Register returns the function that removes the
// probe; controllers call it on Close.
type UnloadGuard interface {
	Register(key string, unsaved func() bool) (unregister func())
}

// GuardRegistry is an in-process UnloadGuard. Hosts query ShouldWarn before
// letting the user leave the scope identified by key.
type GuardRegistry struct {
	mu     sync.Mutex
	probes map[string]map[uint64]func() bool
	next   uint64
}

// NewGuardRegistry returns an empty registry.
func NewGuardRegistry() *GuardRegistry {
	return &GuardRegistry{probes: make(map[string]map[uint64]func() bool)}
}

// Register adds a probe under key.
func (g *GuardRegistry) Register(key string, unsaved func() bool) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	id := g.next
	if g.probes[key] == nil {
		g.probes[key] = make(map[uint64]func() bool)
	}
	g.probes[key][id] = unsaved
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.probes[key], id)
			if len(g.probes[key]) == 0 {
				delete(g.probes, key)
			}
		})
	}
}

// ShouldWarn reports whether any probe under key has unsaved changes.
func (g *GuardRegistry) ShouldWarn(key string) bool {
	g.mu.Lock()
	probes := make([]func() bool, 0, len(g.probes[key]))
	for _, p := range g.probes[key] {
		probes = append(probes, p)
	}
	g.mu.Unlock()
	for _, p := range probes {
		if p() {
			return true
		}
	}
	return false
}

// Len returns the number of registered probes across all keys.
func (g *GuardRegistry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, m := range g.probes {
		n += len(m)
	}
	return n
}
