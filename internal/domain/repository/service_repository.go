package repository

import (
	"context"

	"github.com/mollysec/molly/internal/domain/entity"
)

// ServiceRepository persists services detected on hosts.
type ServiceRepository interface {
	// Create stores a new service and returns it with its assigned ID.
	// The referenced host must exist.
	Create(ctx context.Context, service *entity.Service) (*entity.Service, error)

	// FindByID returns the service with the given ID.
	FindByID(ctx context.Context, id uint) (*entity.Service, error)

	// FindByHostID returns all services detected on the given host.
	FindByHostID(ctx context.Context, hostID uint) ([]*entity.Service, error)

	// FindByPortAndHostID returns the service on the given port of a host.
	FindByPortAndHostID(ctx context.Context, port int, hostID uint) (*entity.Service, error)
}
