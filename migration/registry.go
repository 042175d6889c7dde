/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Direction of a migration run.
type Direction string

// Directions of a migration run.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Migration is a single executable change unit.
type Migration interface {
	// Version returns the unit's numeric version matching its change-unit file.
	Version() int64

	// Name returns the unit's descriptive name matching its change-unit file.
	Name() string

	// Up applies the unit.
	Up(ctx context.Context, manager *SchemaManager) error

	// Down reverts the unit.
	Down(ctx context.Context, manager *SchemaManager) error
}

// funcMigration adapts a pair of functions to the Migration interface.
type funcMigration struct {
	version int64
	name    string
	up      func(ctx context.Context, manager *SchemaManager) error
	down    func(ctx context.Context, manager *SchemaManager) error
}

func (m *funcMigration) Version() int64 { return m.version }
func (m *funcMigration) Name() string   { return m.name }

func (m *funcMigration) Up(ctx context.Context, manager *SchemaManager) error {
	if m.up == nil {
		return nil
	}
	return m.up(ctx, manager)
}

func (m *funcMigration) Down(ctx context.Context, manager *SchemaManager) error {
	if m.down == nil {
		return fmt.Errorf("migration m%d_%s has no down step", m.version, m.name)
	}
	return m.down(ctx, manager)
}

// NewMigration builds a Migration from a pair of functions.
// A nil down makes the unit irreversible: reverting it returns an error.
func NewMigration(version int64, name string, up, down func(ctx context.Context, manager *SchemaManager) error) Migration {
	return &funcMigration{version: version, name: name, up: up, down: down}
}

// Registry holds the executable units known to the process, keyed by version.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	units map[int64]Migration
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[int64]Migration)}
}

// Register adds a unit to the registry.
// Registering a second unit for the same version returns an AlreadyRegisteredError.
func (r *Registry) Register(m Migration) error {
	version := m.Version()
	if version <= 0 {
		return fmt.Errorf("migration version must be positive, got %d", version)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.units[version]; ok {
		return &AlreadyRegisteredError{Version: version, Name: existing.Name()}
	}
	r.units[version] = m
	return nil
}

// MustRegister is like Register but panics on error.
// Intended for package-level registration of statically known units.
func (r *Registry) MustRegister(migrations ...Migration) {
	for _, m := range migrations {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// Get returns the unit registered for the version.
// A version with no registered unit yields a MissingFileError.
func (r *Registry) Get(version int64) (Migration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.units[version]
	if !ok {
		return nil, &MissingFileError{Version: version}
	}
	return m, nil
}

// IsRegistered reports whether a unit is registered for the version.
func (r *Registry) IsRegistered(version int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.units[version]
	return ok
}

// Versions returns all registered versions in ascending order.
func (r *Registry) Versions() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	versions := make([]int64, 0, len(r.units))
	for version := range r.units {
		versions = append(versions, version)
	}
	slices.Sort(versions)
	return versions
}

// Unregister removes the unit registered for the version and reports whether it existed.
func (r *Registry) Unregister(version int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.units[version]
	delete(r.units, version)
	return ok
}

// Clear removes all registered units.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = make(map[int64]Migration)
}

// Execute runs the unit registered for the version in the passed direction.
// An error from the unit itself is wrapped in an ExecutionFailedError.
func (r *Registry) Execute(ctx context.Context, version int64, manager *SchemaManager, direction Direction) error {
	m, err := r.Get(version)
	if err != nil {
		return err
	}
	switch direction {
	case DirectionUp:
		err = m.Up(ctx, manager)
	case DirectionDown:
		err = m.Down(ctx, manager)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil {
		return &ExecutionFailedError{Version: version, Name: m.Name(), Err: err}
	}
	return nil
}
