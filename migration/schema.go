/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/acronis/go-migratekit"
)

// SchemaManager is the handle migrations receive to change the database schema.
// It borrows an executor for the duration of a run; the same handle serves
// both apply and revert. Raw Exec covers anything the DDL helpers do not.
type SchemaManager struct {
	executor SQLExecutor
	dialect  migratekit.Dialect
}

// NewSchemaManager creates a new SchemaManager over the passed executor.
func NewSchemaManager(executor SQLExecutor, dialect migratekit.Dialect) *SchemaManager {
	return &SchemaManager{executor: executor, dialect: dialect}
}

// Dialect returns the dialect the manager builds DDL for.
func (m *SchemaManager) Dialect() migratekit.Dialect {
	return m.dialect
}

// Executor returns the underlying executor for statements
// the helpers cannot express.
func (m *SchemaManager) Executor() SQLExecutor {
	return m.executor
}

// Exec runs a raw SQL statement.
func (m *SchemaManager) Exec(ctx context.Context, query string, args ...interface{}) error {
	if _, err := m.executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec %q: %w", query, err)
	}
	return nil
}

// ColumnSpec describes one column of a table being created or altered.
// Type is dialect-specific SQL and passed through verbatim.
type ColumnSpec struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
	Default    string
	References string
}

func (c ColumnSpec) build(sb *strings.Builder) {
	sb.WriteString(c.Name)
	sb.WriteString(" ")
	sb.WriteString(c.Type)
	if c.NotNull {
		sb.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(c.Default)
	}
	if c.PrimaryKey {
		sb.WriteString(" PRIMARY KEY")
	}
	if c.References != "" {
		sb.WriteString(" REFERENCES ")
		sb.WriteString(c.References)
	}
}

// CreateTable creates a table with the passed columns.
func (m *SchemaManager) CreateTable(ctx context.Context, tableName string, columns ...ColumnSpec) error {
	if len(columns) == 0 {
		return fmt.Errorf("create table %s: no columns", tableName)
	}
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(tableName)
	sb.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		col.build(&sb)
	}
	sb.WriteString(")")
	return m.Exec(ctx, sb.String())
}

// DropTable drops a table.
func (m *SchemaManager) DropTable(ctx context.Context, tableName string) error {
	return m.Exec(ctx, "DROP TABLE "+tableName)
}

// AddColumn adds a column to an existing table.
func (m *SchemaManager) AddColumn(ctx context.Context, tableName string, column ColumnSpec) error {
	var sb strings.Builder
	sb.WriteString("ALTER TABLE ")
	sb.WriteString(tableName)
	sb.WriteString(" ADD COLUMN ")
	column.build(&sb)
	return m.Exec(ctx, sb.String())
}

// DropColumn drops a column from an existing table.
func (m *SchemaManager) DropColumn(ctx context.Context, tableName, columnName string) error {
	return m.Exec(ctx, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", tableName, columnName))
}

// CreateIndex creates an index on the passed columns.
func (m *SchemaManager) CreateIndex(ctx context.Context, indexName, tableName string, columnNames ...string) error {
	if len(columnNames) == 0 {
		return fmt.Errorf("create index %s: no columns", indexName)
	}
	return m.Exec(ctx, fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		indexName, tableName, strings.Join(columnNames, ", ")))
}

// CreateUniqueIndex creates a unique index on the passed columns.
func (m *SchemaManager) CreateUniqueIndex(ctx context.Context, indexName, tableName string, columnNames ...string) error {
	if len(columnNames) == 0 {
		return fmt.Errorf("create unique index %s: no columns", indexName)
	}
	return m.Exec(ctx, fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)",
		indexName, tableName, strings.Join(columnNames, ", ")))
}

// DropIndex drops an index. MySQL and MSSQL scope indexes to their table,
// so the table name is always required.
func (m *SchemaManager) DropIndex(ctx context.Context, indexName, tableName string) error {
	switch m.dialect {
	case migratekit.DialectMySQL:
		return m.Exec(ctx, fmt.Sprintf("DROP INDEX %s ON %s", indexName, tableName))
	case migratekit.DialectMSSQL:
		return m.Exec(ctx, fmt.Sprintf("DROP INDEX %s.%s", tableName, indexName))
	}
	return m.Exec(ctx, "DROP INDEX "+indexName)
}
