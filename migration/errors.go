/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for lock state transitions.
var (
	// ErrLockAlreadyHeld is returned when the lock record already exists in the state table.
	ErrLockAlreadyHeld = errors.New("migration lock already held")
	// ErrLockNotHeld is returned when releasing a lock whose record no longer exists.
	ErrLockNotHeld = errors.New("migration lock not held")
)

// ChecksumMismatchError means a change unit's file was modified after the unit
// was applied to the database. It is fatal: status, up and down all refuse to
// proceed until the file is restored.
type ChecksumMismatchError struct {
	Version int64
	Name    string
	Stored  string
	Current string
}

// Error implements the error interface.
func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("migration m%d_%s was modified after being applied (stored checksum %s, current %s)",
		e.Version, e.Name, e.Stored, e.Current)
}

// MissingFileError means a version recorded as applied has no corresponding
// change-unit file, or a version has no registered executable unit.
type MissingFileError struct {
	Version int64
	Name    string
}

// Error implements the error interface.
func (e *MissingFileError) Error() string {
	return fmt.Sprintf("no change unit found for applied migration m%d_%s", e.Version, e.Name)
}

// AlreadyRegisteredError means a second unit was registered for a version
// already present in the registry. This is an in-process conflict, distinct
// from AlreadyAppliedError which is a database-level condition.
type AlreadyRegisteredError struct {
	Version int64
	Name    string
}

// Error implements the error interface.
func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("migration m%d_%s is already registered", e.Version, e.Name)
}

// AlreadyAppliedError means the state table already contains a record for the version.
type AlreadyAppliedError struct {
	Version int64
	Name    string
}

// Error implements the error interface.
func (e *AlreadyAppliedError) Error() string {
	return fmt.Sprintf("migration m%d_%s has already been applied", e.Version, e.Name)
}

// LockTimeoutError means lock acquisition did not succeed within its bound.
// The caller should retry later; another process is likely running migrations.
type LockTimeoutError struct {
	Timeout time.Duration
}

// Error implements the error interface.
func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("failed to acquire migration lock within %s: another process may be running migrations", e.Timeout)
}

// ExecutionFailedError means a unit's apply or revert returned an error.
type ExecutionFailedError struct {
	Version int64
	Name    string
	Err     error
}

// Error implements the error interface.
func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("migration m%d_%s failed: %v", e.Version, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionFailedError) Unwrap() error {
	return e.Err
}

// InvalidVersionError means the requested version is not known as either an
// applied or a pending migration.
type InvalidVersionError struct {
	Version int64
}

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("unknown migration version %d", e.Version)
}

// InvalidNameError means a change-unit filename does not match the
// m<14-digit-version>_<name>.<ext> convention.
type InvalidNameError struct {
	Filename string
}

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("migration filename %q does not match the m<14-digit-version>_<name> convention", e.Filename)
}

// DuplicateVersionError means two change-unit files share one version.
// This is a fatal configuration error surfaced before any execution.
type DuplicateVersionError struct {
	Version int64
	Paths   [2]string
}

// Error implements the error interface.
func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("duplicate migration version %d: %s and %s", e.Version, e.Paths[0], e.Paths[1])
}
