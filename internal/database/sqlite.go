package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecotermo/internal/database/migrations"
	"ecotermo/internal/eco"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements eco.Store on a single SQLite table of JSON
// documents, and keeps the operation log alongside.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens a SQLite store.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{
		db:   db,
		path: path,
	}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is its own database, and SQLite has a
	// single writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Document operations

func (s *SQLiteStore) GetAll(ctx context.Context, collection string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, body FROM documents WHERE collection = ?", collection)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make(map[string][]byte)
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", collection, err)
		}
		docs[id] = body
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}
	return docs, nil
}

// BatchWrite applies all ops in one transaction.
func (s *SQLiteStore) BatchWrite(ctx context.Context, ops []eco.WriteOp) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, op := range ops {
		collection, id, ok := eco.SplitPath(op.Path)
		if !ok {
			return fmt.Errorf("invalid document path %q", op.Path)
		}

		switch op.Kind {
		case eco.WriteSet:
			_, err = tx.ExecContext(ctx, `INSERT INTO documents (collection, id, body, updated_at) VALUES (?, ?, ?, ?)
				ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
				collection, id, op.Value, now)
		case eco.WriteDelete:
			_, err = tx.ExecContext(ctx, "DELETE FROM documents WHERE collection = ? AND id = ?", collection, id)
		default:
			return fmt.Errorf("unknown write kind %q for %s", op.Kind, op.Path)
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", op.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, path string) error {
	collection, id, ok := eco.SplitPath(path)
	if !ok {
		return fmt.Errorf("invalid document path %q", path)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = ? AND id = ?", collection, id); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Operation tracking

// Operation is one entry of the operation log.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
}

func (s *SQLiteStore) CreateOperation(operation string, parameters string) (*Operation, error) {
	op := &Operation{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  time.Now().UTC(),
		Status:     "running",
	}
	res, err := s.db.Exec("INSERT INTO operations (operation, parameters, started_at, status) VALUES (?, ?, ?, ?)",
		op.Operation, op.Parameters, op.StartedAt, op.Status)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	if op.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return op, nil
}

func (s *SQLiteStore) FinishOperation(id int64, status string) error {
	res, err := s.db.Exec("UPDATE operations SET finished_at = ?, status = ? WHERE id = ?", time.Now().UTC(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteStore) ListOperations(limit int) ([]*Operation, error) {
	rows, err := s.db.Query(`SELECT id, operation, parameters, started_at, finished_at, status
		FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op := &Operation{}
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &op.FinishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteStore) MaxOperationID() (int64, error) {
	var id int64
	err := s.db.QueryRow("SELECT COALESCE(MAX(id), 0) FROM operations").Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// Migrate brings the schema up to date.
func (s *SQLiteStore) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements eco.Store interface
var _ eco.Store = (*SQLiteStore)(nil)
