package repository

import (
	"context"

	"github.com/mollysec/molly/internal/domain/entity"
)

// HostRepository persists hosts discovered by scans.
type HostRepository interface {
	// Create stores a new host and returns it with its assigned ID.
	// The referenced scan must exist.
	Create(ctx context.Context, host *entity.Host) (*entity.Host, error)

	// FindByScanID returns all hosts discovered by the given scan.
	FindByScanID(ctx context.Context, scanID uint) ([]*entity.Host, error)

	// FindByIPAndScanID returns the host with the given IP within a scan.
	FindByIPAndScanID(ctx context.Context, ipAddress string, scanID uint) (*entity.Host, error)
}
