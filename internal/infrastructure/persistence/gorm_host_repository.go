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

// GormHostRepository is the GORM implementation of the host repository.
type GormHostRepository struct {
	db *gorm.DB
}

// NewGormHostRepository creates a GORM host repository.
func NewGormHostRepository(db *gorm.DB) repository.HostRepository {
	return &GormHostRepository{
		db: db,
	}
}

// Create stores a new host and returns it with its assigned ID.
func (r *GormHostRepository) Create(ctx context.Context, host *entity.Host) (*entity.Host, error) {
	model := r.toModel(host)
	model.ID = 0

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, domainErrors.NewInvalidInputError("host references a scan that does not exist")
		}
		return nil, domainErrors.NewInternalError("failed to create host: " + err.Error())
	}

	return r.toEntity(model), nil
}

// FindByScanID returns all hosts discovered by the given scan.
func (r *GormHostRepository) FindByScanID(ctx context.Context, scanID uint) ([]*entity.Host, error) {
	var hostModels []models.HostModel
	err := r.db.WithContext(ctx).
		Where("scan_id = ?", scanID).
		Order("id asc").
		Find(&hostModels).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to find hosts: " + err.Error())
	}

	hosts := make([]*entity.Host, 0, len(hostModels))
	for i := range hostModels {
		hosts = append(hosts, r.toEntity(&hostModels[i]))
	}
	return hosts, nil
}

// FindByIPAndScanID returns the host with the given IP within a scan.
func (r *GormHostRepository) FindByIPAndScanID(ctx context.Context, ipAddress string, scanID uint) (*entity.Host, error) {
	var model models.HostModel
	err := r.db.WithContext(ctx).
		First(&model, "ip_address = ? AND scan_id = ?", ipAddress, scanID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("host not found")
		}
		return nil, domainErrors.NewInternalError("failed to find host: " + err.Error())
	}
	return r.toEntity(&model), nil
}

func (r *GormHostRepository) toModel(host *entity.Host) *models.HostModel {
	return &models.HostModel{
		ID:        host.ID(),
		ScanID:    host.ScanID(),
		IPAddress: host.IPAddress(),
		Hostname:  host.Hostname(),
		OS:        host.OS(),
	}
}

func (r *GormHostRepository) toEntity(model *models.HostModel) *entity.Host {
	return entity.ReconstructHost(
		model.ID,
		model.ScanID,
		model.IPAddress,
		model.Hostname,
		model.OS,
	)
}
