// Package database provides the data access layer.
package database

import (
	"context"

	"github.com/evidencecheck/attest/internal/models"
)

// Store defines the interface for data persistence. It doubles as the project
// registry consulted by the scoring pipeline: geofences and the rolling
// prior-hash window live here.
type Store interface {
	// Assessments
	SaveAssessment(ctx context.Context, a *models.TrustAssessment) error
	GetAssessment(ctx context.Context, id string) (*models.TrustAssessment, error)
	ListAssessments(ctx context.Context, projectID string, limit, offset int) ([]*models.TrustAssessment, error)

	// Projects
	UpsertProject(ctx context.Context, p *models.ProjectRecord) error
	GetProject(ctx context.Context, id string) (*models.ProjectRecord, error)

	// Prior-hash window (most recent first)
	AppendPriorHashes(ctx context.Context, projectID string, hashes []string) error
	PriorHashes(ctx context.Context, projectID string, window int) ([]string, error)

	// Lifecycle
	Close() error
	Migrate() error
}
