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

// GormScanRepository is the GORM implementation of the scan repository.
type GormScanRepository struct {
	db *gorm.DB
}

// NewGormScanRepository creates a GORM scan repository.
func NewGormScanRepository(db *gorm.DB) repository.ScanRepository {
	return &GormScanRepository{
		db: db,
	}
}

// Create stores a new scan and returns it with its assigned ID.
func (r *GormScanRepository) Create(ctx context.Context, scan *entity.Scan) (*entity.Scan, error) {
	model := r.toModel(scan)
	model.ID = 0

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domainErrors.NewAlreadyExistsError("scan session name already exists: " + scan.SessionName())
		}
		return nil, domainErrors.NewInternalError("failed to create scan: " + err.Error())
	}

	return r.toEntity(model), nil
}

// Update persists the current state of an existing scan.
// Terminal scans never return to in_progress.
func (r *GormScanRepository) Update(ctx context.Context, scan *entity.Scan) error {
	var current models.ScanModel
	if err := r.db.WithContext(ctx).First(&current, scan.ID()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainErrors.NewNotFoundError("scan not found")
		}
		return domainErrors.NewInternalError("failed to load scan: " + err.Error())
	}

	if !entity.ScanStatus(current.Status).CanTransitionTo(scan.Status()) {
		return domainErrors.NewInvalidInputError("scan status cannot move from " + current.Status + " back to " + string(scan.Status()))
	}

	model := r.toModel(scan)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to update scan: " + err.Error())
	}
	return nil
}

// FindByID returns the scan with the given ID.
func (r *GormScanRepository) FindByID(ctx context.Context, id uint) (*entity.Scan, error) {
	var model models.ScanModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("scan not found")
		}
		return nil, domainErrors.NewInternalError("failed to find scan: " + err.Error())
	}
	return r.toEntity(&model), nil
}

// FindBySessionName returns the scan with the given session name.
func (r *GormScanRepository) FindBySessionName(ctx context.Context, sessionName string) (*entity.Scan, error) {
	var model models.ScanModel
	if err := r.db.WithContext(ctx).First(&model, "session_name = ?", sessionName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("scan not found")
		}
		return nil, domainErrors.NewInternalError("failed to find scan: " + err.Error())
	}
	return r.toEntity(&model), nil
}

// FindAll returns all scans, most recently started first.
func (r *GormScanRepository) FindAll(ctx context.Context) ([]*entity.Scan, error) {
	var scanModels []models.ScanModel
	err := r.db.WithContext(ctx).
		Order("start_time desc").
		Find(&scanModels).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to list scans: " + err.Error())
	}

	scans := make([]*entity.Scan, 0, len(scanModels))
	for i := range scanModels {
		scans = append(scans, r.toEntity(&scanModels[i]))
	}
	return scans, nil
}

func (r *GormScanRepository) toModel(scan *entity.Scan) *models.ScanModel {
	return &models.ScanModel{
		ID:          scan.ID(),
		SessionName: scan.SessionName(),
		ScanType:    scan.ScanType(),
		Target:      scan.Target(),
		StartTime:   scan.StartTime(),
		EndTime:     scan.EndTime(),
		Status:      string(scan.Status()),
		Summary:     scan.Summary(),
		ResultsPath: scan.ResultsPath(),
	}
}

func (r *GormScanRepository) toEntity(model *models.ScanModel) *entity.Scan {
	return entity.ReconstructScan(
		model.ID,
		model.SessionName,
		model.ScanType,
		model.Target,
		model.StartTime,
		model.EndTime,
		entity.ScanStatus(model.Status),
		model.Summary,
		model.ResultsPath,
	)
}
