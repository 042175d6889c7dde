/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	upMarker   = "-- +up"
	downMarker = "-- +down"
)

// sqlFileMigration is a Migration whose up and down statements come from a
// single change-unit file split into "-- +up" and "-- +down" sections.
type sqlFileMigration struct {
	version   int64
	name      string
	upStmts   []string
	downStmts []string
}

func (m *sqlFileMigration) Version() int64 { return m.version }
func (m *sqlFileMigration) Name() string   { return m.name }

func (m *sqlFileMigration) Up(ctx context.Context, manager *SchemaManager) error {
	for _, stmt := range m.upStmts {
		if err := manager.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *sqlFileMigration) Down(ctx context.Context, manager *SchemaManager) error {
	if len(m.downStmts) == 0 {
		return fmt.Errorf("migration m%d_%s has no down section", m.version, m.name)
	}
	for _, stmt := range m.downStmts {
		if err := manager.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadSQLMigrations turns discovered change units into executable Migrations
// by parsing their files. Statements before the first marker belong to the up
// section; a file without a down section produces an irreversible unit.
func LoadSQLMigrations(units []ChangeUnit) ([]Migration, error) {
	migrations := make([]Migration, 0, len(units))
	for _, unit := range units {
		content, err := os.ReadFile(unit.Path)
		if err != nil {
			return nil, fmt.Errorf("read change unit %q: %w", unit.Path, err)
		}
		upSQL, downSQL := parseSections(string(content))
		migrations = append(migrations, &sqlFileMigration{
			version:   unit.Version,
			name:      unit.Name,
			upStmts:   parseSQL(upSQL),
			downStmts: parseSQL(downSQL),
		})
	}
	return migrations, nil
}

// RegisterSQLMigrations discovers change units in dir, parses them and
// registers the resulting units in the registry.
func RegisterSQLMigrations(registry *Registry, dir string, options ...DiscoverOption) error {
	units, err := DiscoverChangeUnits(dir, options...)
	if err != nil {
		return err
	}
	migrations, err := LoadSQLMigrations(units)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if err := registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// parseSections splits file content into the up and down sections.
func parseSections(content string) (upSQL, downSQL string) {
	var up, down strings.Builder
	current := &up
	for _, line := range strings.Split(content, "\n") {
		switch strings.ToLower(strings.TrimSpace(line)) {
		case upMarker:
			current = &up
			continue
		case downMarker:
			current = &down
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	return up.String(), down.String()
}

// parseSQL splits SQL content into individual statements.
// This is a simple implementation that splits on semicolons.
// A more sophisticated parser could handle edge cases like semicolons in strings.
func parseSQL(content string) []string {
	var statements []string
	var currentStmt strings.Builder

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}

		currentStmt.WriteString(line)
		currentStmt.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(currentStmt.String())
			if stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			currentStmt.Reset()
		}
	}

	if currentStmt.Len() > 0 {
		stmt := strings.TrimSpace(currentStmt.String())
		if stmt != "" && stmt != ";" {
			statements = append(statements, stmt)
		}
	}

	return statements
}
