// Package sqlite persists project records in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/project"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
// Databases created with another version are rejected, never migrated in place.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const projectColumns = `id, title, source_video_path, video_metadata, extracted_frames, transcript, created_at, updated_at`

// Store manages project persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the project database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	// Check if schema_version table exists (indicates an initialized database)
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		// New database: create schema
		return s.createSchema(ctx)
	}

	// Existing database: verify version
	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}

	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Create inserts a new project record.
func (s *Store) Create(ctx context.Context, p *project.Project) error {
	metadata, err := marshalMetadata(p.Metadata)
	if err != nil {
		return &project.PersistError{Op: "create", Err: err}
	}
	frames, err := marshalFrames(p.Frames)
	if err != nil {
		return &project.PersistError{Op: "create", Err: err}
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Title,
		p.SourceVideoPath,
		metadata,
		frames,
		nullableString(p.Transcript),
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
		p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &project.PersistError{Op: "create", Err: err}
	}
	return nil
}

// Get returns the project with the given id, or project.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*project.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, project.ErrNotFound
	}
	if err != nil {
		return nil, &project.PersistError{Op: "get", Err: err}
	}
	return p, nil
}

// List returns all projects, newest first.
func (s *Store) List(ctx context.Context) ([]*project.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, &project.PersistError{Op: "list", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var projects []*project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, &project.PersistError{Op: "list", Err: err}
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &project.PersistError{Op: "list", Err: err}
	}
	return projects, nil
}

// UpdateMetadata replaces the project's video metadata blob.
func (s *Store) UpdateMetadata(ctx context.Context, id string, md *project.VideoMetadata) error {
	metadata, err := marshalMetadata(md)
	if err != nil {
		return &project.PersistError{Op: "update metadata", Err: err}
	}
	return s.update(ctx, "update metadata", id,
		`UPDATE projects SET video_metadata = ?, updated_at = ? WHERE id = ?`, metadata)
}

// ReplaceFrames replaces the project's frame list wholesale.
func (s *Store) ReplaceFrames(ctx context.Context, id string, frames []frame.ExtractedFrame) error {
	if frames == nil {
		frames = []frame.ExtractedFrame{}
	}
	data, err := marshalFrames(frames)
	if err != nil {
		return &project.PersistError{Op: "replace frames", Err: err}
	}
	return s.update(ctx, "replace frames", id,
		`UPDATE projects SET extracted_frames = ?, updated_at = ? WHERE id = ?`, data)
}

// SetTranscript stores the project's transcript.
func (s *Store) SetTranscript(ctx context.Context, id string, transcript string) error {
	return s.update(ctx, "set transcript", id,
		`UPDATE projects SET transcript = ?, updated_at = ? WHERE id = ?`, nullableString(transcript))
}

// update runs a single-column UPDATE and maps a zero row count to ErrNotFound.
func (s *Store) update(ctx context.Context, op, id, query string, value any) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, query, value, now, id)
	if err != nil {
		return &project.PersistError{Op: op, Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &project.PersistError{Op: op, Err: err}
	}
	if affected == 0 {
		return project.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*project.Project, error) {
	var (
		p          project.Project
		metadata   sql.NullString
		frames     sql.NullString
		transcript sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&p.ID, &p.Title, &p.SourceVideoPath, &metadata, &frames, &transcript, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if metadata.Valid {
		md, err := project.ParseVideoMetadata([]byte(metadata.String))
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ID, err)
		}
		p.Metadata = md
	}
	if frames.Valid {
		parsed, err := project.ParseFrames([]byte(frames.String))
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ID, err)
		}
		p.Frames = parsed
	}
	if transcript.Valid {
		p.Transcript = transcript.String
	}
	p.CreatedAt = parseTimeString(createdAt)
	p.UpdatedAt = parseTimeString(updatedAt)

	return &p, nil
}

func marshalMetadata(md *project.VideoMetadata) (any, error) {
	if md == nil {
		return nil, nil
	}
	if err := md.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encode video metadata: %w", err)
	}
	return string(data), nil
}

func marshalFrames(frames []frame.ExtractedFrame) (any, error) {
	if frames == nil {
		return nil, nil
	}
	data, err := json.Marshal(frames)
	if err != nil {
		return nil, fmt.Errorf("encode frame list: %w", err)
	}
	return string(data), nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

var _ project.Store = (*Store)(nil)
