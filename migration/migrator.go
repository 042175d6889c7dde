/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-migratekit"
)

// NoLimit runs all pending units when passed as the steps argument of Up.
const NoLimit = 0

// Migrator reconciles change-unit files against the migration state table and
// applies or reverts units under the cross-process migration lock.
type Migrator struct {
	db       *sql.DB
	dialect  migratekit.Dialect
	dir      string
	registry *Registry
	store    *StateStore
	lock     *LockCoordinator
	logger   log.FieldLogger
	metrics  *migratekit.PrometheusMetrics
	ext      string
}

type migratorOptions struct {
	tableName   string
	lockTimeout time.Duration
	metrics     *migratekit.PrometheusMetrics
	ext         string
}

// MigratorOption is an option for the Migrator.
type MigratorOption func(o *migratorOptions)

// WithStateTableName overrides the name of the migration state table.
func WithStateTableName(tableName string) MigratorOption {
	return func(o *migratorOptions) {
		o.tableName = tableName
	}
}

// WithLockTimeout overrides the bound on waiting for the migration lock.
func WithLockTimeout(timeout time.Duration) MigratorOption {
	return func(o *migratorOptions) {
		o.lockTimeout = timeout
	}
}

// WithMetrics makes the Migrator report execution durations and failures.
func WithMetrics(metrics *migratekit.PrometheusMetrics) MigratorOption {
	return func(o *migratorOptions) {
		o.metrics = metrics
	}
}

// WithMigrationFileExtension overrides the extension change-unit files carry.
func WithMigrationFileExtension(ext string) MigratorOption {
	return func(o *migratorOptions) {
		o.ext = ext
	}
}

// NewMigrator creates a new Migrator discovering change units in migrationsDir
// and executing them through the passed registry.
func NewMigrator(
	db *sql.DB, dialect migratekit.Dialect, migrationsDir string, registry *Registry,
	logger log.FieldLogger, options ...MigratorOption,
) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	opts := migratorOptions{tableName: DefaultTableName, lockTimeout: DefaultLockTimeout, ext: DefaultFileExtension}
	for _, opt := range options {
		opt(&opts)
	}

	store, err := NewStateStore(db, dialect, WithTableName(opts.tableName))
	if err != nil {
		return nil, err
	}
	return &Migrator{
		db:       db,
		dialect:  dialect,
		dir:      migrationsDir,
		registry: registry,
		store:    store,
		lock:     NewLockCoordinator(store, logger, opts.lockTimeout),
		logger:   logger,
		metrics:  opts.metrics,
		ext:      opts.ext,
	}, nil
}

// Status reconciles discovered change units against the state table.
// It initializes the state table on first use, fails with a
// ChecksumMismatchError when an applied unit's file was modified and with a
// MissingFileError when an applied version has no file on disk.
func (m *Migrator) Status(ctx context.Context) (*Status, error) {
	if err := m.store.Initialize(ctx); err != nil {
		return nil, err
	}
	units, err := DiscoverChangeUnits(m.dir, WithFileExtension(m.ext))
	if err != nil {
		return nil, err
	}
	applied, err := m.store.QueryApplied(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile(units, applied)
}

func reconcile(units []ChangeUnit, applied []AppliedRecord) (*Status, error) {
	appliedByVersion := make(map[int64]AppliedRecord, len(applied))
	for _, rec := range applied {
		appliedByVersion[rec.Version] = rec
	}

	status := &Status{}
	discovered := make(map[int64]struct{}, len(units))
	for _, unit := range units {
		discovered[unit.Version] = struct{}{}
		rec, ok := appliedByVersion[unit.Version]
		if !ok {
			status.Pending = append(status.Pending, PendingChange{
				Version:  unit.Version,
				Name:     unit.Name,
				Path:     unit.Path,
				Checksum: unit.Checksum,
			})
			continue
		}
		if rec.Checksum != unit.Checksum {
			return nil, &ChecksumMismatchError{
				Version: unit.Version,
				Name:    unit.Name,
				Stored:  rec.Checksum,
				Current: unit.Checksum,
			}
		}
		status.Applied = append(status.Applied, rec)
	}
	for _, rec := range applied {
		if _, ok := discovered[rec.Version]; !ok {
			return nil, &MissingFileError{Version: rec.Version, Name: rec.Name}
		}
	}
	return status, nil
}

// ValidateChecksums verifies that every applied unit's file still matches its
// stored checksum and that no applied version lost its file.
func (m *Migrator) ValidateChecksums(ctx context.Context) error {
	_, err := m.Status(ctx)
	return err
}

// UnitInfo describes a single migration version.
// Exactly one of Applied and Pending is set.
type UnitInfo struct {
	Version int64
	Name    string
	Applied *AppliedRecord
	Pending *PendingChange
}

// Info returns the state of a single version.
// A version that is neither applied nor pending yields an InvalidVersionError.
func (m *Migrator) Info(ctx context.Context, version int64) (*UnitInfo, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	for i := range status.Applied {
		if status.Applied[i].Version == version {
			rec := status.Applied[i]
			return &UnitInfo{Version: version, Name: rec.Name, Applied: &rec}, nil
		}
	}
	for i := range status.Pending {
		if status.Pending[i].Version == version {
			p := status.Pending[i]
			return &UnitInfo{Version: version, Name: p.Name, Pending: &p}, nil
		}
	}
	return nil, &InvalidVersionError{Version: version}
}

// PlanUp returns the pending units an Up with the same steps would apply,
// in execution order. It takes no lock and does not touch the state table
// beyond reading it.
func (m *Migrator) PlanUp(ctx context.Context, steps int) ([]PendingChange, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return limitPending(status.Pending, steps), nil
}

// PlanDown returns the applied units a Down with the same steps would revert,
// in execution order (newest first). It takes no lock.
func (m *Migrator) PlanDown(ctx context.Context, steps int) ([]AppliedRecord, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	return limitApplied(status.Applied, steps), nil
}

func limitPending(pending []PendingChange, steps int) []PendingChange {
	if steps > 0 && steps < len(pending) {
		pending = pending[:steps]
	}
	return pending
}

func limitApplied(applied []AppliedRecord, steps int) []AppliedRecord {
	reverted := make([]AppliedRecord, len(applied))
	copy(reverted, applied)
	slices.Reverse(reverted)
	if steps <= 0 {
		steps = 1
	}
	if steps < len(reverted) {
		reverted = reverted[:steps]
	}
	return reverted
}

// Up applies pending units in ascending version order under the migration
// lock, at most steps of them (NoLimit applies all). Each unit is recorded in
// the state table right after it succeeds; the run stops at the first failure,
// keeping the records of units that already succeeded.
func (m *Migrator) Up(ctx context.Context, steps int) (int, error) {
	var count int
	err := m.lock.WithLock(ctx, func(ctx context.Context) error {
		status, err := m.Status(ctx)
		if err != nil {
			return err
		}
		pending := limitPending(status.Pending, steps)
		if len(pending) == 0 {
			m.logger.Info("no pending migrations")
			return nil
		}

		manager := NewSchemaManager(m.db, m.dialect)
		for _, p := range pending {
			started := time.Now()
			execErr := m.registry.Execute(ctx, p.Version, manager, DirectionUp)
			elapsed := time.Since(started)
			if m.metrics != nil {
				m.metrics.ObserveExecution(string(DirectionUp), elapsed, execErr)
			}
			if execErr != nil {
				return execErr
			}
			ms := elapsed.Milliseconds()
			rec := AppliedRecord{
				Version:         p.Version,
				Name:            p.Name,
				Checksum:        p.Checksum,
				AppliedAt:       time.Now().UTC(),
				ExecutionTimeMs: &ms,
				Success:         true,
			}
			if err = m.store.Insert(ctx, m.db, rec); err != nil {
				if m.store.IsDuplicateKeyError(err) {
					return &AlreadyAppliedError{Version: p.Version, Name: p.Name}
				}
				return err
			}
			count++
			m.logger.Info(fmt.Sprintf("applied migration m%d_%s in %dms", p.Version, p.Name, ms))
		}
		return nil
	})
	return count, err
}

// Down reverts applied units in strict reverse-application order under the
// migration lock, at most steps of them (steps <= 0 reverts one). Each unit's
// record is deleted right after its revert succeeds; the run stops at the
// first failure.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	var count int
	err := m.lock.WithLock(ctx, func(ctx context.Context) error {
		status, err := m.Status(ctx)
		if err != nil {
			return err
		}
		reverted := limitApplied(status.Applied, steps)
		if len(reverted) == 0 {
			m.logger.Info("no applied migrations to revert")
			return nil
		}

		manager := NewSchemaManager(m.db, m.dialect)
		for _, rec := range reverted {
			started := time.Now()
			execErr := m.registry.Execute(ctx, rec.Version, manager, DirectionDown)
			elapsed := time.Since(started)
			if m.metrics != nil {
				m.metrics.ObserveExecution(string(DirectionDown), elapsed, execErr)
			}
			if execErr != nil {
				return execErr
			}
			if _, err = m.store.Delete(ctx, m.db, rec.Version); err != nil {
				return err
			}
			count++
			m.logger.Info(fmt.Sprintf("reverted migration m%d_%s in %dms", rec.Version, rec.Name, elapsed.Milliseconds()))
		}
		return nil
	})
	return count, err
}

// RunStartupMigrations is a convenience for services that migrate on boot:
// it builds a Migrator and applies all pending units, returning how many were applied.
func RunStartupMigrations(
	ctx context.Context, db *sql.DB, dialect migratekit.Dialect, migrationsDir string,
	registry *Registry, logger log.FieldLogger, options ...MigratorOption,
) (int, error) {
	migrator, err := NewMigrator(db, dialect, migrationsDir, registry, logger, options...)
	if err != nil {
		return 0, err
	}
	return migrator.Up(ctx, NoLimit)
}
