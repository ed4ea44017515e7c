package crossdb

import (
	"fmt"
	"sync"
)

// Registry for backend plugins. A plugin registers its Builder from init,
// the same way database/sql drivers do.
var (
	backendsMu sync.RWMutex
	backends   map[string]Builder
)

// Register makes a backend available under the given name. Registering two
// builders under one name panics, as does a nil builder.
func Register(name string, build Builder) {
	if build == nil {
		panic("crossdb: Register builder is nil")
	}
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if backends == nil {
		backends = make(map[string]Builder)
	}
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("crossdb: Register called twice for backend %q", name))
	}
	backends[name] = build
}

// Deregister removes the builder registered under name.
func Deregister(name string) {
	backendsMu.Lock()
	if backends != nil {
		delete(backends, name)
	}
	backendsMu.Unlock()
}

// Backends lists the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

func lookupBackend(name string) (Builder, bool) {
	backendsMu.RLock()
	build, ok := backends[name]
	backendsMu.RUnlock()
	return build, ok
}
