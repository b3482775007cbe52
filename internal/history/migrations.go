package history

import (
	"fmt"
)

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// runMigrations executes database schema migrations.
func (s *Store) runMigrations() error {
	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
		{version: 2, name: "status_columns", up: s.migration002StatusColumns},
	}

	for _, m := range migrations {
		if version < m.version {
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}

			if err := s.setMigrationVersion(m); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Store) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)

	return err
}

func (s *Store) getCurrentMigrationVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

func (s *Store) setMigrationVersion(m migration) error {
	_, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name)

	return err
}

// migration001InitialSchema creates the studies and trials tables.
func (s *Store) migration001InitialSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS studies (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			dataset TEXT NOT NULL,
			fold INTEGER NOT NULL,
			algorithm TEXT NOT NULL,
			seed INTEGER NOT NULL,
			runs INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			best_loss REAL
		)
	`); err != nil {
		return fmt.Errorf("failed to create studies table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trials (
			study_id TEXT NOT NULL REFERENCES studies(id),
			number INTEGER NOT NULL,
			params TEXT NOT NULL,
			loss REAL NOT NULL,
			run_accuracies TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			PRIMARY KEY (study_id, number)
		)
	`); err != nil {
		return fmt.Errorf("failed to create trials table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_studies_started
		ON studies(started_at DESC)
	`); err != nil {
		return fmt.Errorf("failed to create studies index: %w", err)
	}

	return nil
}

// migration002StatusColumns tracks whether studies and trials failed.
func (s *Store) migration002StatusColumns() error {
	stmts := []string{
		`ALTER TABLE studies ADD COLUMN status TEXT NOT NULL DEFAULT 'running'`,
		`ALTER TABLE studies ADD COLUMN error TEXT NOT NULL DEFAULT ''`,
		`UPDATE studies SET status = 'done' WHERE finished_at IS NOT NULL`,
		`ALTER TABLE trials ADD COLUMN status TEXT NOT NULL DEFAULT 'ok'`,
		`ALTER TABLE trials ADD COLUMN error TEXT NOT NULL DEFAULT ''`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to add status columns: %w", err)
		}
	}

	return nil
}
