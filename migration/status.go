/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import "time"

// AppliedRecord is a row of the migration state table describing one applied change unit.
type AppliedRecord struct {
	Version  int64
	Name     string
	Checksum string

	// AppliedAt is the moment the unit finished applying, in UTC.
	AppliedAt time.Time

	// ExecutionTimeMs is the wall-clock duration of the apply in milliseconds,
	// nil for records written before timing was recorded.
	ExecutionTimeMs *int64

	Success bool
}

// PendingChange is a discovered change unit that has not been applied yet.
type PendingChange struct {
	Version  int64
	Name     string
	Path     string
	Checksum string
}

// Status is the three-way reconciliation of discovered change units against
// the state table. Both slices are ordered by ascending version.
type Status struct {
	Applied []AppliedRecord
	Pending []PendingChange
}

// IsUpToDate reports whether no pending change units remain.
func (s *Status) IsUpToDate() bool {
	return len(s.Pending) == 0
}

// LatestAppliedVersion returns the highest applied version, if any unit has been applied.
func (s *Status) LatestAppliedVersion() (int64, bool) {
	if len(s.Applied) == 0 {
		return 0, false
	}
	return s.Applied[len(s.Applied)-1].Version, true
}

// NextPendingVersion returns the lowest pending version, if any unit is pending.
func (s *Status) NextPendingVersion() (int64, bool) {
	if len(s.Pending) == 0 {
		return 0, false
	}
	return s.Pending[0].Version, true
}
