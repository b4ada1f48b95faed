package entity

import "time"

// ScanStatus is the lifecycle state of a scan session.
type ScanStatus string

const (
	ScanStatusInProgress ScanStatus = "in_progress"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
)

// IsTerminal reports whether the status is final.
func (s ScanStatus) IsTerminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed
}

// CanTransitionTo reports whether a status change is allowed.
// Terminal statuses never return to in_progress.
func (s ScanStatus) CanTransitionTo(next ScanStatus) bool {
	if s.IsTerminal() && next == ScanStatusInProgress {
		return false
	}
	return true
}

// Scan is a scan session: one named run of a scan against a target.
type Scan struct {
	id          uint
	sessionName string
	scanType    string
	target      string
	startTime   time.Time
	endTime     *time.Time
	status      ScanStatus
	summary     string
	resultsPath string
}

// NewScan creates a scan session in the in_progress state.
func NewScan(sessionName, scanType, target string) (*Scan, error) {
	if sessionName == "" {
		return nil, ErrInvalidSessionName
	}
	if scanType == "" {
		return nil, ErrInvalidScanType
	}
	if target == "" {
		return nil, ErrInvalidTarget
	}

	return &Scan{
		sessionName: sessionName,
		scanType:    scanType,
		target:      target,
		startTime:   time.Now(),
		status:      ScanStatusInProgress,
	}, nil
}

// ReconstructScan rebuilds a scan from persisted state.
func ReconstructScan(id uint, sessionName, scanType, target string, startTime time.Time, endTime *time.Time, status ScanStatus, summary, resultsPath string) *Scan {
	return &Scan{
		id:          id,
		sessionName: sessionName,
		scanType:    scanType,
		target:      target,
		startTime:   startTime,
		endTime:     endTime,
		status:      status,
		summary:     summary,
		resultsPath: resultsPath,
	}
}

// ID returns the scan ID.
func (s *Scan) ID() uint {
	return s.id
}

// SessionName returns the unique session name.
func (s *Scan) SessionName() string {
	return s.sessionName
}

// ScanType returns the scan type label.
func (s *Scan) ScanType() string {
	return s.scanType
}

// Target returns the scan target (IP, hostname or CIDR range).
func (s *Scan) Target() string {
	return s.target
}

// StartTime returns when the scan started.
func (s *Scan) StartTime() time.Time {
	return s.startTime
}

// EndTime returns when the scan reached a terminal status, or nil.
func (s *Scan) EndTime() *time.Time {
	return s.endTime
}

// Status returns the current lifecycle status.
func (s *Scan) Status() ScanStatus {
	return s.status
}

// Summary returns the conversational summary, if one was generated.
func (s *Scan) Summary() string {
	return s.summary
}

// ResultsPath returns the path of the generated report, if any.
func (s *Scan) ResultsPath() string {
	return s.resultsPath
}

// Complete marks the scan completed with the given summary.
func (s *Scan) Complete(summary string) error {
	if !s.status.CanTransitionTo(ScanStatusCompleted) {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	s.status = ScanStatusCompleted
	s.endTime = &now
	if summary != "" {
		s.summary = summary
	}
	return nil
}

// Fail marks the scan failed with the given summary.
func (s *Scan) Fail(summary string) error {
	if !s.status.CanTransitionTo(ScanStatusFailed) {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	s.status = ScanStatusFailed
	s.endTime = &now
	if summary != "" {
		s.summary = summary
	}
	return nil
}

// SetResultsPath records where the generated report was written.
func (s *Scan) SetResultsPath(path string) {
	s.resultsPath = path
}

// SetSummary replaces the conversational summary.
func (s *Scan) SetSummary(summary string) {
	s.summary = summary
}
