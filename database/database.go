package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT,
		phone_number TEXT,
		linked_id INTEGER REFERENCES contacts(id),
		link_precedence TEXT NOT NULL DEFAULT 'primary',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_phone_number ON contacts(phone_number);`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_linked_id ON contacts(linked_id);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id BIGSERIAL PRIMARY KEY,
		email TEXT,
		phone_number TEXT,
		linked_id BIGINT REFERENCES contacts(id),
		link_precedence TEXT NOT NULL DEFAULT 'primary' CHECK (link_precedence IN ('primary', 'secondary')),
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_phone_number ON contacts(phone_number);`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_linked_id ON contacts(linked_id);`,
}

// statementBuilder picks the placeholder style the driver understands
func statementBuilder(driver string) sq.StatementBuilderType {
	if driver == DriverPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// InitDB opens a database/sql handle for the given driver and ensures the
// contacts schema exists
func InitDB(driver, dataSourceName string, logger *zap.Logger) (*sql.DB, error) {
	var schema []string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// enable write-ahead Logging for better concurrency
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			logger.Warn("failed to set WAL mode", zap.Error(err))
		}
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create contacts schema: %w", err)
		}
	}

	logger.Info("database initialized successfully", zap.String("driver", driver))
	return db, nil
}
