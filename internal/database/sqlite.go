// Package database provides SQLite implementation of the Store interface.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evidencecheck/attest/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS assessments (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			flags TEXT NOT NULL,
			verdict TEXT NOT NULL,
			model_analysis TEXT,
			media TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_project ON assessments(project_id)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			geofence TEXT,
			location_hint TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prior_hashes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			phash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prior_hashes_project ON prior_hashes(project_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveAssessment persists a completed trust assessment.
func (s *SQLiteStore) SaveAssessment(ctx context.Context, a *models.TrustAssessment) error {
	flags, err := json.Marshal(a.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}
	media, err := json.Marshal(a.Media)
	if err != nil {
		return fmt.Errorf("failed to marshal media: %w", err)
	}

	var modelJSON sql.NullString
	if a.Model != nil {
		b, err := json.Marshal(a.Model)
		if err != nil {
			return fmt.Errorf("failed to marshal model analysis: %w", err)
		}
		modelJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (id, project_id, score, flags, verdict, model_analysis, media, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.Score, string(flags), string(a.Verdict), modelJSON, string(media), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}
	return nil
}

// GetAssessment returns an assessment by ID, or nil if not found.
func (s *SQLiteStore) GetAssessment(ctx context.Context, id string) (*models.TrustAssessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, score, flags, verdict, model_analysis, media, created_at
		 FROM assessments WHERE id = ?`, id)
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// ListAssessments returns assessments newest first, optionally filtered by project.
func (s *SQLiteStore) ListAssessments(ctx context.Context, projectID string, limit, offset int) ([]*models.TrustAssessment, error) {
	query := `SELECT id, project_id, score, flags, verdict, model_analysis, media, created_at
		 FROM assessments`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	var out []*models.TrustAssessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*models.TrustAssessment, error) {
	var a models.TrustAssessment
	var flags, media string
	var modelJSON sql.NullString
	var verdict string

	err := row.Scan(&a.ID, &a.ProjectID, &a.Score, &flags, &verdict, &modelJSON, &media, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Verdict = models.Verdict(verdict)

	if err := json.Unmarshal([]byte(flags), &a.Flags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
	}
	if err := json.Unmarshal([]byte(media), &a.Media); err != nil {
		return nil, fmt.Errorf("failed to unmarshal media: %w", err)
	}
	if modelJSON.Valid {
		var m models.ModelAnalysis
		if err := json.Unmarshal([]byte(modelJSON.String), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal model analysis: %w", err)
		}
		a.Model = &m
	}
	return &a, nil
}

// UpsertProject creates or updates a project record.
func (s *SQLiteStore) UpsertProject(ctx context.Context, p *models.ProjectRecord) error {
	var geofence sql.NullString
	if len(p.Geofence) > 0 {
		b, err := json.Marshal(p.Geofence)
		if err != nil {
			return fmt.Errorf("failed to marshal geofence: %w", err)
		}
		geofence = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, geofence, location_hint, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, geofence=excluded.geofence,
		   location_hint=excluded.location_hint`,
		p.ID, p.Name, geofence, p.LocationHint, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	return nil
}

// GetProject returns a project by ID, or nil if not found.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*models.ProjectRecord, error) {
	var p models.ProjectRecord
	var geofence, hint sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, geofence, location_hint, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &geofence, &hint, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if geofence.Valid {
		if err := json.Unmarshal([]byte(geofence.String), &p.Geofence); err != nil {
			return nil, fmt.Errorf("failed to unmarshal geofence: %w", err)
		}
	}
	p.LocationHint = hint.String
	return &p, nil
}

// AppendPriorHashes records perceptual hashes after an assessment is persisted.
func (s *SQLiteStore) AppendPriorHashes(ctx context.Context, projectID string, hashes []string) error {
	now := time.Now().UTC()
	for _, h := range hashes {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO prior_hashes (project_id, phash, created_at) VALUES (?, ?, ?)`,
			projectID, h, now); err != nil {
			return fmt.Errorf("failed to append prior hash: %w", err)
		}
	}
	return nil
}

// PriorHashes returns the most recent perceptual hashes for a project,
// newest first, bounded by window.
func (s *SQLiteStore) PriorHashes(ctx context.Context, projectID string, window int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phash FROM prior_hashes WHERE project_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, projectID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to query prior hashes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
