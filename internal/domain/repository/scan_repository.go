package repository

import (
	"context"

	"github.com/mollysec/molly/internal/domain/entity"
)

// ScanRepository persists scan sessions.
type ScanRepository interface {
	// Create stores a new scan and returns it with its assigned ID.
	// Session names are unique; duplicates return an already-exists error.
	Create(ctx context.Context, scan *entity.Scan) (*entity.Scan, error)

	// Update persists the current state of an existing scan.
	Update(ctx context.Context, scan *entity.Scan) error

	// FindByID returns the scan with the given ID.
	FindByID(ctx context.Context, id uint) (*entity.Scan, error)

	// FindBySessionName returns the scan with the given session name.
	FindBySessionName(ctx context.Context, sessionName string) (*entity.Scan, error)

	// FindAll returns all scans, most recently started first.
	FindAll(ctx context.Context) ([]*entity.Scan, error)
}
