// Package catalog keeps a SQLite ledger of sweeps and the artifacts they wrote.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Sweep statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// defaultListLimit caps listings when no limit is given.
const defaultListLimit = 50

// ErrNotFound is returned when a sweep does not exist.
var ErrNotFound = errors.New("not found")

// Sweep is one recorded sweep.
type Sweep struct {
	ID            string    `json:"id" yaml:"id"`
	StartedAt     time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
	Status        string    `json:"status" yaml:"status"`
	Directories   int       `json:"directories" yaml:"directories"`
	Archives      int       `json:"archives" yaml:"archives"`
	FilesArchived int       `json:"files_archived" yaml:"files_archived"`
	FilesDisposed int       `json:"files_disposed" yaml:"files_disposed"`
	MarkersReaped int       `json:"markers_reaped" yaml:"markers_reaped"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Artifact is one committed (or reused) archive.
type Artifact struct {
	SweepID     string    `json:"sweep_id" yaml:"sweep_id"`
	Name        string    `json:"name" yaml:"name"`
	Location    string    `json:"location" yaml:"location"`
	SourceDir   string    `json:"source_dir" yaml:"source_dir"`
	Project     string    `json:"project" yaml:"project"`
	SubIdentity string    `json:"sub_identity,omitempty" yaml:"sub_identity,omitempty"`
	Day         string    `json:"day" yaml:"day"`
	Files       int       `json:"files" yaml:"files"`
	Bytes       int64     `json:"bytes" yaml:"bytes"`
	SHA256      string    `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Reused      bool      `json:"reused" yaml:"reused"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Catalog is the SQLite-backed ledger.
type Catalog struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	// One writer; keeps SQLite from returning SQLITE_BUSY to ourselves.
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("enable wal: %w", err)
	}

	c := &Catalog{db: db}

	err = c.migrate()
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	return c, nil
}

// Close releases the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Ping checks that the database is still usable.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// currentSchemaVersion is bumped whenever the schema changes.
const currentSchemaVersion = 1

func (c *Catalog) migrate() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int

	err = c.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = c.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`)
		if err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}

		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	migrations := []func() error{
		c.migrateV1,
	}

	for i := version; i < len(migrations) && i < currentSchemaVersion; i++ {
		err = migrations[i]()
		if err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}

		_, err = c.db.Exec(`UPDATE schema_version SET version = ?`, i+1)
		if err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

func (c *Catalog) migrateV1() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS sweeps (
	id             TEXT PRIMARY KEY,
	started_at     TEXT NOT NULL,
	finished_at    TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	directories    INTEGER NOT NULL DEFAULT 0,
	archives       INTEGER NOT NULL DEFAULT 0,
	files_archived INTEGER NOT NULL DEFAULT 0,
	files_disposed INTEGER NOT NULL DEFAULT 0,
	markers_reaped INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS artifacts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sweep_id     TEXT NOT NULL,
	name         TEXT NOT NULL,
	location     TEXT NOT NULL,
	source_dir   TEXT NOT NULL,
	project      TEXT NOT NULL,
	sub_identity TEXT NOT NULL DEFAULT '',
	day          TEXT NOT NULL,
	files        INTEGER NOT NULL,
	bytes        INTEGER NOT NULL,
	sha256       TEXT NOT NULL DEFAULT '',
	reused       INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_project_day ON artifacts(project, day);
CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at);`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	return nil
}

// BeginSweep records a started sweep.
func (c *Catalog) BeginSweep(ctx context.Context, s Sweep) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO sweeps (id, started_at, status) VALUES (?, ?, ?)`,
		s.ID, formatTime(s.StartedAt), StatusRunning)
	if err != nil {
		return fmt.Errorf("insert sweep: %w", err)
	}

	return nil
}

// FinishSweep stores the final counters and status of a sweep.
func (c *Catalog) FinishSweep(ctx context.Context, s Sweep) error {
	res, err := c.db.ExecContext(ctx, `
UPDATE sweeps SET finished_at = ?, status = ?, directories = ?, archives = ?,
	files_archived = ?, files_disposed = ?, markers_reaped = ?, error = ?
WHERE id = ?`,
		formatTime(s.FinishedAt), s.Status, s.Directories, s.Archives,
		s.FilesArchived, s.FilesDisposed, s.MarkersReaped, s.Error, s.ID)
	if err != nil {
		return fmt.Errorf("update sweep: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("sweep %s: %w", s.ID, ErrNotFound)
	}

	return nil
}

// RecordArtifact appends an artifact row.
func (c *Catalog) RecordArtifact(ctx context.Context, a Artifact) error {
	_, err := c.db.ExecContext(ctx, `
INSERT INTO artifacts (sweep_id, name, location, source_dir, project, sub_identity, day, files, bytes, sha256, reused, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.SweepID, a.Name, a.Location, a.SourceDir, a.Project, a.SubIdentity, a.Day,
		a.Files, a.Bytes, a.SHA256, a.Reused, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}

	return nil
}

// ArtifactFilter narrows artifact listings.
type ArtifactFilter struct {
	Project string
	Limit   int
}

// Artifacts lists artifacts, newest first.
func (c *Catalog) Artifacts(ctx context.Context, filter ArtifactFilter) ([]Artifact, error) {
	query := `SELECT sweep_id, name, location, source_dir, project, sub_identity, day, files, bytes, sha256, reused, created_at
FROM artifacts`

	var args []any

	if filter.Project != "" {
		query += ` WHERE project = ?`

		args = append(args, filter.Project)
	}

	query += ` ORDER BY id DESC LIMIT ?`

	args = append(args, limitOrDefault(filter.Limit))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact

	for rows.Next() {
		var (
			a       Artifact
			created string
		)

		err = rows.Scan(&a.SweepID, &a.Name, &a.Location, &a.SourceDir, &a.Project, &a.SubIdentity,
			&a.Day, &a.Files, &a.Bytes, &a.SHA256, &a.Reused, &created)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}

		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}

	return out, rows.Err()
}

// Sweeps lists recorded sweeps, newest first.
func (c *Catalog) Sweeps(ctx context.Context, limit int) ([]Sweep, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT id, started_at, finished_at, status, directories, archives, files_archived, files_disposed, markers_reaped, error
FROM sweeps ORDER BY started_at DESC, rowid DESC LIMIT ?`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("query sweeps: %w", err)
	}
	defer rows.Close()

	var out []Sweep

	for rows.Next() {
		var (
			s                 Sweep
			started, finished string
		)

		err = rows.Scan(&s.ID, &started, &finished, &s.Status, &s.Directories, &s.Archives,
			&s.FilesArchived, &s.FilesDisposed, &s.MarkersReaped, &s.Error)
		if err != nil {
			return nil, fmt.Errorf("scan sweep: %w", err)
		}

		s.StartedAt = parseTime(started)
		s.FinishedAt = parseTime(finished)
		out = append(out, s)
	}

	return out, rows.Err()
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}

	return limit
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
