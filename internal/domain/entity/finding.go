package entity

import (
	"time"

	"github.com/mollysec/molly/internal/domain/valueobject"
)

// Finding is a security finding attached to a scan, optionally tied to a
// specific host and service. Details carries arbitrary structured evidence.
type Finding struct {
	id             uint
	scanID         uint
	hostID         *uint
	serviceID      *uint
	findingType    string
	title          string
	description    string
	severity       valueobject.Severity
	recommendation string
	details        map[string]interface{}
	timestamp      time.Time
}

// NewFinding creates a finding for the given scan.
// An empty severity defaults to Informational.
func NewFinding(scanID uint, hostID, serviceID *uint, findingType, title, description string, severity valueobject.Severity, recommendation string, details map[string]interface{}) (*Finding, error) {
	if scanID == 0 {
		return nil, ErrInvalidScanID
	}
	if findingType == "" {
		return nil, ErrInvalidFindingType
	}
	if title == "" {
		return nil, ErrInvalidFindingTitle
	}
	if severity == "" {
		severity = valueobject.SeverityInformational
	}

	return &Finding{
		scanID:         scanID,
		hostID:         hostID,
		serviceID:      serviceID,
		findingType:    findingType,
		title:          title,
		description:    description,
		severity:       severity,
		recommendation: recommendation,
		details:        details,
		timestamp:      time.Now(),
	}, nil
}

// ReconstructFinding rebuilds a finding from persisted state.
func ReconstructFinding(id, scanID uint, hostID, serviceID *uint, findingType, title, description string, severity valueobject.Severity, recommendation string, details map[string]interface{}, timestamp time.Time) *Finding {
	return &Finding{
		id:             id,
		scanID:         scanID,
		hostID:         hostID,
		serviceID:      serviceID,
		findingType:    findingType,
		title:          title,
		description:    description,
		severity:       severity,
		recommendation: recommendation,
		details:        details,
		timestamp:      timestamp,
	}
}

// ID returns the finding ID.
func (f *Finding) ID() uint {
	return f.id
}

// ScanID returns the ID of the owning scan.
func (f *Finding) ScanID() uint {
	return f.scanID
}

// HostID returns the associated host ID, or nil.
func (f *Finding) HostID() *uint {
	return f.hostID
}

// ServiceID returns the associated service ID, or nil.
func (f *Finding) ServiceID() *uint {
	return f.serviceID
}

// FindingType returns the finding category (vulnerability, info).
func (f *Finding) FindingType() string {
	return f.findingType
}

// Title returns the finding title.
func (f *Finding) Title() string {
	return f.title
}

// Description returns the finding description.
func (f *Finding) Description() string {
	return f.description
}

// Severity returns the finding severity.
func (f *Finding) Severity() valueobject.Severity {
	return f.severity
}

// Recommendation returns the suggested mitigation.
func (f *Finding) Recommendation() string {
	return f.recommendation
}

// Details returns structured evidence attached to the finding.
func (f *Finding) Details() map[string]interface{} {
	return f.details
}

// Timestamp returns when the finding was recorded.
func (f *Finding) Timestamp() time.Time {
	return f.timestamp
}
