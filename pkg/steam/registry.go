package steam

import (
	"fmt"
	"sort"
	"sync"
)

// Driver bundles the two halves of a session driver: credential
// login and connection establishment.
type Driver interface {
	Authenticator
	Connector
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver makes a session driver selectable by name. It
// panics when the name is already taken, which points at double
// wiring rather than a runtime condition.
func RegisterDriver(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("steam: nil driver registered as " + name)
	}
	if _, dup := drivers[name]; dup {
		panic("steam: driver " + name + " registered twice")
	}
	drivers[name] = driver
}

// LookupDriver returns the driver registered under name.
func LookupDriver(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	driver, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("unknown session driver %q (registered: %v)", name, driverNames())
	}
	return driver, nil
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	return driverNames()
}

func driverNames() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
