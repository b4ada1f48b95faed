package repository

import (
	"context"

	"github.com/mollysec/molly/internal/domain/entity"
)

// FindingRepository persists security findings.
type FindingRepository interface {
	// Create stores a new finding and returns it with its assigned ID.
	// The referenced scan must exist.
	Create(ctx context.Context, finding *entity.Finding) (*entity.Finding, error)

	// FindByScanID returns all findings recorded for the given scan.
	FindByScanID(ctx context.Context, scanID uint) ([]*entity.Finding, error)

	// FindByHostID returns all findings recorded against the given host.
	FindByHostID(ctx context.Context, hostID uint) ([]*entity.Finding, error)
}
