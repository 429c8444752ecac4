package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens the database at dsn and creates the tables.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db)
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database. Call CreateTables before use.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTables creates the documents and backups tables.
func (s *SQLiteStore) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			data       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);

		CREATE TABLE IF NOT EXISTS backups (
			backup_id   TEXT NOT NULL,
			collection  TEXT NOT NULL,
			id          TEXT NOT NULL,
			name        TEXT NOT NULL DEFAULT '',
			data        TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			backed_up_at TEXT NOT NULL,
			PRIMARY KEY (collection, backup_id)
		);

		CREATE INDEX IF NOT EXISTS idx_backups_document
			ON backups (collection, id, backed_up_at);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, collection string, doc Document) (Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := checkKey(collection, doc.ID); err != nil {
		return Document{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	var prev *Document
	existing, err := loadDoc(ctx, tx, collection, doc.ID)
	switch {
	case err == nil:
		prev = &existing
		if _, err := insertBackup(ctx, tx, collection, existing, now); err != nil {
			return Document{}, err
		}
	case !errors.Is(err, ErrNotFound):
		return Document{}, err
	}

	doc, err = prepare(doc, prev, now)
	if err != nil {
		return Document{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, name, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			name = excluded.name, data = excluded.data, updated_at = excluded.updated_at`,
		collection, doc.ID, doc.Name, string(doc.Data), formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt))
	if err != nil {
		return Document{}, fmt.Errorf("saving %s/%s: %w", collection, doc.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return Document{}, fmt.Errorf("committing %s/%s: %w", collection, doc.ID, err)
	}
	return doc, nil
}

func (s *SQLiteStore) Load(ctx context.Context, collection, id string) (Document, error) {
	if err := checkKey(collection, id); err != nil {
		return Document{}, err
	}
	return loadDoc(ctx, s.db, collection, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadDoc(ctx context.Context, q queryer, collection, id string) (Document, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, data, created_at, updated_at
		FROM documents WHERE collection = ? AND id = ?`, collection, id)
	doc, err := scanDoc(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("loading %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDoc(sc scanner) (Document, error) {
	var (
		doc                  Document
		data                 string
		createdAt, updatedAt string
	)
	if err := sc.Scan(&doc.ID, &doc.Name, &data, &createdAt, &updatedAt); err != nil {
		return Document{}, err
	}
	doc.Data = []byte(data)
	var err error
	if doc.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Document{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if doc.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return Document{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return doc, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func insertBackup(ctx context.Context, tx *sql.Tx, collection string, doc Document, at time.Time) (string, error) {
	id := backupID(doc.ID, at)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO backups (backup_id, collection, id, name, data, created_at, updated_at, backed_up_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, collection, doc.ID, doc.Name, string(doc.Data),
		formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt), formatTime(at))
	if err != nil {
		return "", fmt.Errorf("backing up %s/%s: %w", collection, doc.ID, err)
	}
	return id, nil
}

var sortColumns = map[string]string{
	"":            "created_at",
	SortByCreated: "created_at",
	SortByUpdated: "updated_at",
	SortByName:    "name COLLATE NOCASE",
}

func (s *SQLiteStore) List(ctx context.Context, collection string, opts ListOptions) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = sortColumns[""]
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}

	conditions := []string{"collection = ?"}
	args := []any{collection}
	if name, ok := opts.Filter["name"]; ok {
		conditions = append(conditions, "name = ?")
		args = append(args, name)
	}

	query := fmt.Sprintf(`
		SELECT id, name, data, created_at, updated_at
		FROM documents
		WHERE %s
		ORDER BY %s %s, id %s`, strings.Join(conditions, " AND "), column, dir, dir)
	docs, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	// data field filters and the limit run in Go so every backend compares
	// JSON values the same way.
	return applyList(docs, opts), nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := loadDoc(ctx, tx, collection, id)
	if err != nil {
		return err
	}
	if _, err := insertBackup(ctx, tx, collection, doc, s.now().UTC()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Exists(ctx context.Context, collection, id string) (bool, error) {
	if err := checkKey(collection, id); err != nil {
		return false, err
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking %s/%s: %w", collection, id, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Backup(ctx context.Context, collection, id string) (string, error) {
	if err := checkKey(collection, id); err != nil {
		return "", err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := loadDoc(ctx, tx, collection, id)
	if err != nil {
		return "", err
	}
	backup, err := insertBackup(ctx, tx, collection, doc, s.now().UTC())
	if err != nil {
		return "", err
	}
	return backup, tx.Commit()
}

// Backups returns the backed up versions of id, oldest first.
func (s *SQLiteStore) Backups(ctx context.Context, collection, id string) ([]Document, error) {
	docs, err := s.query(ctx, `
		SELECT id, name, data, created_at, updated_at
		FROM backups
		WHERE collection = ? AND id = ?
		ORDER BY backed_up_at ASC`, collection, id)
	if err != nil {
		return nil, fmt.Errorf("listing backups of %s/%s: %w", collection, id, err)
	}
	return docs, nil
}

func (s *SQLiteStore) Search(ctx context.Context, collection, query string) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	docs, err := s.query(ctx, `
		SELECT id, name, data, created_at, updated_at
		FROM documents
		WHERE collection = ?
			AND (lower(name) LIKE ? ESCAPE '\' OR lower(data) LIKE ? ESCAPE '\')
		ORDER BY updated_at DESC, id DESC`, collection, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", collection, err)
	}
	return docs, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
