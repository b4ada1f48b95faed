package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/mollysec/molly/internal/domain/entity"
	"github.com/mollysec/molly/internal/domain/repository"
	"github.com/mollysec/molly/internal/domain/valueobject"
	"github.com/mollysec/molly/internal/infrastructure/persistence/models"
	domainErrors "github.com/mollysec/molly/pkg/errors"
)

// GormFindingRepository is the GORM implementation of the finding repository.
type GormFindingRepository struct {
	db *gorm.DB
}

// NewGormFindingRepository creates a GORM finding repository.
func NewGormFindingRepository(db *gorm.DB) repository.FindingRepository {
	return &GormFindingRepository{
		db: db,
	}
}

// Create stores a new finding and returns it with its assigned ID.
func (r *GormFindingRepository) Create(ctx context.Context, finding *entity.Finding) (*entity.Finding, error) {
	model, err := r.toModel(finding)
	if err != nil {
		return nil, err
	}
	model.ID = 0

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, domainErrors.NewInvalidInputError("finding references a scan, host or service that does not exist")
		}
		return nil, domainErrors.NewInternalError("failed to create finding: " + err.Error())
	}

	return r.toEntity(model), nil
}

// FindByScanID returns all findings recorded for the given scan.
func (r *GormFindingRepository) FindByScanID(ctx context.Context, scanID uint) ([]*entity.Finding, error) {
	var findingModels []models.FindingModel
	err := r.db.WithContext(ctx).
		Where("scan_id = ?", scanID).
		Order("id asc").
		Find(&findingModels).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to find findings: " + err.Error())
	}

	findings := make([]*entity.Finding, 0, len(findingModels))
	for i := range findingModels {
		findings = append(findings, r.toEntity(&findingModels[i]))
	}
	return findings, nil
}

// FindByHostID returns all findings recorded against the given host.
func (r *GormFindingRepository) FindByHostID(ctx context.Context, hostID uint) ([]*entity.Finding, error) {
	var findingModels []models.FindingModel
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("id asc").
		Find(&findingModels).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to find findings: " + err.Error())
	}

	findings := make([]*entity.Finding, 0, len(findingModels))
	for i := range findingModels {
		findings = append(findings, r.toEntity(&findingModels[i]))
	}
	return findings, nil
}

func (r *GormFindingRepository) toModel(finding *entity.Finding) (*models.FindingModel, error) {
	details := ""
	if finding.Details() != nil {
		detailsBytes, err := json.Marshal(finding.Details())
		if err != nil {
			return nil, domainErrors.NewInternalError("failed to marshal finding details: " + err.Error())
		}
		details = string(detailsBytes)
	}

	return &models.FindingModel{
		ID:             finding.ID(),
		ScanID:         finding.ScanID(),
		HostID:         finding.HostID(),
		ServiceID:      finding.ServiceID(),
		FindingType:    finding.FindingType(),
		Title:          finding.Title(),
		Description:    finding.Description(),
		Severity:       finding.Severity().String(),
		Recommendation: finding.Recommendation(),
		Details:        details,
		Timestamp:      finding.Timestamp(),
	}, nil
}

func (r *GormFindingRepository) toEntity(model *models.FindingModel) *entity.Finding {
	var details map[string]interface{}
	if model.Details != "" {
		if err := json.Unmarshal([]byte(model.Details), &details); err != nil {
			// A corrupt blob is surfaced in place of the payload rather
			// than failing the whole read.
			details = map[string]interface{}{"error": "invalid encoded details"}
		}
	}

	return entity.ReconstructFinding(
		model.ID,
		model.ScanID,
		model.HostID,
		model.ServiceID,
		model.FindingType,
		model.Title,
		model.Description,
		valueobject.Severity(model.Severity),
		model.Recommendation,
		details,
		model.Timestamp,
	)
}
