package valueobject

// Severity classifies the impact of a security finding.
// Values outside the known scale are kept verbatim and sort last.
type Severity string

const (
	SeverityCritical      Severity = "Critical"
	SeverityHigh          Severity = "High"
	SeverityMedium        Severity = "Medium"
	SeverityLow           Severity = "Low"
	SeverityInformational Severity = "Informational"
)

// Rank returns the sort rank of the severity, most severe first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 1
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 4
	case SeverityInformational:
		return 5
	default:
		return 99
	}
}

// String returns the severity label.
func (s Severity) String() string {
	return string(s)
}
