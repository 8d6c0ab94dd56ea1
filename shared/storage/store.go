// Package storage persists analyzed sessions for trend display and coaching history.
package storage

import (
	"context"

	"kick-analyzer/internal/models"
)

// Store is the persistence collaborator of the pipeline
type Store interface {
	// Save assigns an ID when the record has none and returns the stored record
	Save(ctx context.Context, record *models.SessionRecord) (*models.SessionRecord, error)
	// GetRecent returns up to limit records, newest first
	GetRecent(ctx context.Context, limit int) ([]*models.SessionRecord, error)
}
