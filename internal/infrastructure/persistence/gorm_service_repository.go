package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mollysec/molly/internal/domain/entity"
	"github.com/mollysec/molly/internal/domain/repository"
	"github.com/mollysec/molly/internal/infrastructure/persistence/models"
	domainErrors "github.com/mollysec/molly/pkg/errors"
)

// GormServiceRepository is the GORM implementation of the service repository.
type GormServiceRepository struct {
	db *gorm.DB
}

// NewGormServiceRepository creates a GORM service repository.
func NewGormServiceRepository(db *gorm.DB) repository.ServiceRepository {
	return &GormServiceRepository{
		db: db,
	}
}

// Create stores a new service and returns it with its assigned ID.
func (r *GormServiceRepository) Create(ctx context.Context, service *entity.Service) (*entity.Service, error) {
	model := r.toModel(service)
	model.ID = 0

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, domainErrors.NewInvalidInputError("service references a host that does not exist")
		}
		return nil, domainErrors.NewInternalError("failed to create service: " + err.Error())
	}

	return r.toEntity(model), nil
}

// FindByID returns the service with the given ID.
func (r *GormServiceRepository) FindByID(ctx context.Context, id uint) (*entity.Service, error) {
	var model models.ServiceModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("service not found")
		}
		return nil, domainErrors.NewInternalError("failed to find service: " + err.Error())
	}
	return r.toEntity(&model), nil
}

// FindByHostID returns all services detected on the given host.
func (r *GormServiceRepository) FindByHostID(ctx context.Context, hostID uint) ([]*entity.Service, error) {
	var serviceModels []models.ServiceModel
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("port asc").
		Find(&serviceModels).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to find services: " + err.Error())
	}

	services := make([]*entity.Service, 0, len(serviceModels))
	for i := range serviceModels {
		services = append(services, r.toEntity(&serviceModels[i]))
	}
	return services, nil
}

// FindByPortAndHostID returns the service on the given port of a host.
func (r *GormServiceRepository) FindByPortAndHostID(ctx context.Context, port int, hostID uint) (*entity.Service, error) {
	var model models.ServiceModel
	err := r.db.WithContext(ctx).
		First(&model, "port = ? AND host_id = ?", port, hostID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("service not found")
		}
		return nil, domainErrors.NewInternalError("failed to find service: " + err.Error())
	}
	return r.toEntity(&model), nil
}

func (r *GormServiceRepository) toModel(service *entity.Service) *models.ServiceModel {
	return &models.ServiceModel{
		ID:          service.ID(),
		HostID:      service.HostID(),
		Port:        service.Port(),
		Protocol:    service.Protocol(),
		ServiceName: service.Name(),
		Version:     service.Version(),
		State:       service.State(),
	}
}

func (r *GormServiceRepository) toEntity(model *models.ServiceModel) *entity.Service {
	return entity.ReconstructService(
		model.ID,
		model.HostID,
		model.Port,
		model.Protocol,
		model.ServiceName,
		model.Version,
		model.State,
	)
}
