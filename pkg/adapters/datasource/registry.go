package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a driver factory available to Open. Driver subpackages
// call it from init; importing a subpackage is what enables its driver.
func Register(f Factory) {
	if f == nil {
		panic("datasource: Register called with nil factory")
	}
	name := f.Driver()
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[name]; dup {
		panic("datasource: Register called twice for driver " + name)
	}
	factories[name] = f
}

// SupportedDrivers returns the registered driver names, sorted.
func SupportedDrivers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open validates the config and hands it to the matching driver factory.
// The returned Conn belongs to the caller and must be closed when the
// request ends.
func Open(ctx context.Context, cfg *ConnectionConfig, logger *zap.Logger) (Conn, error) {
	if cfg == nil {
		return nil, fmt.Errorf("connection config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Driver]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q (supported: %s)",
			cfg.Driver, strings.Join(SupportedDrivers(), ", "))
	}
	return f.Open(ctx, cfg, logger)
}
