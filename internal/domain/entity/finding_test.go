package entity

import (
	"testing"

	"github.com/mollysec/molly/internal/domain/valueobject"
)

func TestNewFinding_DefaultsSeverityToInformational(t *testing.T) {
	finding, err := NewFinding(1, nil, nil, "vulnerability", "title", "desc", "", "", nil)
	if err != nil {
		t.Fatalf("NewFinding failed: %v", err)
	}
	if finding.Severity() != valueobject.SeverityInformational {
		t.Errorf("severity: got %q, want %q", finding.Severity(), valueobject.SeverityInformational)
	}
}

func TestNewFinding_Validation(t *testing.T) {
	if _, err := NewFinding(0, nil, nil, "vulnerability", "title", "", "", "", nil); err != ErrInvalidScanID {
		t.Errorf("zero scan id: got %v, want %v", err, ErrInvalidScanID)
	}
	if _, err := NewFinding(1, nil, nil, "", "title", "", "", "", nil); err != ErrInvalidFindingType {
		t.Errorf("empty type: got %v, want %v", err, ErrInvalidFindingType)
	}
	if _, err := NewFinding(1, nil, nil, "vulnerability", "", "", "", "", nil); err != ErrInvalidFindingTitle {
		t.Errorf("empty title: got %v, want %v", err, ErrInvalidFindingTitle)
	}
}

func TestNewFinding_KeepsUnknownSeverityVerbatim(t *testing.T) {
	finding, err := NewFinding(1, nil, nil, "vulnerability", "title", "", "Catastrophic", "", nil)
	if err != nil {
		t.Fatalf("NewFinding failed: %v", err)
	}
	if finding.Severity().String() != "Catastrophic" {
		t.Errorf("severity: got %q, want %q", finding.Severity(), "Catastrophic")
	}
	if finding.Severity().Rank() != 99 {
		t.Errorf("unknown severity rank: got %d, want 99", finding.Severity().Rank())
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	order := []valueobject.Severity{
		valueobject.SeverityCritical,
		valueobject.SeverityHigh,
		valueobject.SeverityMedium,
		valueobject.SeverityLow,
		valueobject.SeverityInformational,
	}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("rank of %q (%d) should precede %q (%d)",
				order[i-1], order[i-1].Rank(), order[i], order[i].Rank())
		}
	}
}
