// Package casefile stores fraud-alert cases in SQLite. Unlike the journal,
// entries here are mutably addressed after append: a verification call may
// later update a case's status and outcome, keyed by its security identifier.
package casefile

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding fraud cases.
type Store struct {
	db    *sql.DB
	clock Clock
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Open opens (or creates) the case database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "cases.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db, clock: realClock{}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't
// been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

const caseColumns = `id, user_name, security_identifier, security_question, security_answer,
	card_ending, status, transaction_amount, transaction_name, transaction_time,
	transaction_category, transaction_source, transaction_location, outcome,
	created_at, updated_at`

// Insert adds a new case. Status defaults to pending_review.
func (s *Store) Insert(c Case) error {
	status := c.Status
	if status == "" {
		status = StatusPendingReview
	}
	now := s.clock.Now().UTC().Format(time.RFC3339)
	createdAt := now
	if !c.CreatedAt.IsZero() {
		createdAt = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO fraud_cases (user_name, security_identifier, security_question, security_answer,
			card_ending, status, transaction_amount, transaction_name, transaction_time,
			transaction_category, transaction_source, transaction_location, outcome, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserName, c.SecurityIdentifier, c.SecurityQuestion, c.SecurityAnswer,
		c.CardEnding, status, c.TransactionAmount, c.TransactionName, c.TransactionTime,
		c.TransactionCategory, c.TransactionSource, c.TransactionLocation, c.Outcome,
		createdAt, now,
	)
	return err
}

// GetByIdentifier returns the unique case with the given security
// identifier, or ErrNotFound.
func (s *Store) GetByIdentifier(securityIdentifier string) (Case, error) {
	row := s.db.QueryRow(
		`SELECT `+caseColumns+` FROM fraud_cases WHERE security_identifier = ?`,
		securityIdentifier,
	)
	return scanCase(row)
}

// SearchByName returns all cases whose user name contains the query,
// case-insensitively, in insertion order. Names are not unique; callers must
// disambiguate via the security identifier before updating.
func (s *Store) SearchByName(name string) ([]Case, error) {
	rows, err := s.db.Query(
		`SELECT `+caseColumns+` FROM fraud_cases WHERE user_name LIKE ? COLLATE NOCASE ORDER BY id ASC`,
		"%"+name+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// List returns up to limit cases in insertion order.
func (s *Store) List(limit int) ([]Case, error) {
	rows, err := s.db.Query(`SELECT `+caseColumns+` FROM fraud_cases ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// UpdateOutcome sets the status and outcome of the case with the given
// security identifier, bumping updated_at. Returns ErrNotFound if absent.
func (s *Store) UpdateOutcome(securityIdentifier, status, outcome string) error {
	now := s.clock.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE fraud_cases SET status = ?, outcome = ?, updated_at = ? WHERE security_identifier = ?`,
		status, outcome, now, securityIdentifier,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored cases.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM fraud_cases`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (Case, error) {
	var c Case
	var createdAt, updatedAt string
	err := row.Scan(
		&c.ID, &c.UserName, &c.SecurityIdentifier, &c.SecurityQuestion, &c.SecurityAnswer,
		&c.CardEnding, &c.Status, &c.TransactionAmount, &c.TransactionName, &c.TransactionTime,
		&c.TransactionCategory, &c.TransactionSource, &c.TransactionLocation, &c.Outcome,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return Case{}, ErrNotFound
	}
	if err != nil {
		return Case{}, err
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Case{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Case{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return c, nil
}
