package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/valueobject"
)

// stubSource maps CPE names to canned results and records every query.
type stubSource struct {
	results map[string][]valueobject.CVESummary
	errs    map[string]error
	calls   []string
}

func (s *stubSource) Search(ctx context.Context, cpeName string) ([]valueobject.CVESummary, error) {
	s.calls = append(s.calls, cpeName)
	if err, ok := s.errs[cpeName]; ok {
		return nil, err
	}
	return s.results[cpeName], nil
}

func TestResolve_GenericFallback(t *testing.T) {
	exact := "cpe:2.3:a:openbsd:openssh:5.3p1:*:*:*:*:*:*:*"
	generic := "cpe:2.3:a:openbsd:openssh:5.3:*:*:*:*:*:*:*"

	source := &stubSource{
		results: map[string][]valueobject.CVESummary{
			generic: {{CVEID: "CVE-2010-4478"}, {CVEID: "CVE-2010-5107"}},
		},
	}
	resolver := NewCVEResolver(source, zap.NewNop())

	got := resolver.Resolve(context.Background(), "openssh", "5.3p1 Debian 3ubuntu7")
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[0].CVEID != "CVE-2010-4478" {
		t.Errorf("first cve: got %q", got[0].CVEID)
	}

	if len(source.calls) != 2 {
		t.Fatalf("expected 2 lookups, got %d: %v", len(source.calls), source.calls)
	}
	if source.calls[0] != exact {
		t.Errorf("first lookup: got %q, want %q", source.calls[0], exact)
	}
	if source.calls[1] != generic {
		t.Errorf("second lookup: got %q, want %q", source.calls[1], generic)
	}
}

func TestResolve_FirstNonEmptyWins(t *testing.T) {
	exact := "cpe:2.3:a:nginx:nginx:1.18.0:*:*:*:*:*:*:*"
	source := &stubSource{
		results: map[string][]valueobject.CVESummary{
			exact: {{CVEID: "CVE-2021-23017"}},
		},
	}
	resolver := NewCVEResolver(source, zap.NewNop())

	got := resolver.Resolve(context.Background(), "nginx", "1.18.0")
	if len(got) != 1 || got[0].CVEID != "CVE-2021-23017" {
		t.Fatalf("unexpected result: %v", got)
	}
	if len(source.calls) != 1 {
		t.Errorf("expected a single lookup, got %v", source.calls)
	}
}

func TestResolve_SkipsIdenticalGeneric(t *testing.T) {
	source := &stubSource{}
	resolver := NewCVEResolver(source, zap.NewNop())

	// A two-component version truncates to itself, so only one CPE is tried.
	resolver.Resolve(context.Background(), "mysql", "5.7")
	if len(source.calls) != 1 {
		t.Fatalf("expected 1 lookup, got %d: %v", len(source.calls), source.calls)
	}
}

func TestResolve_SourceErrorFallsThrough(t *testing.T) {
	exact := "cpe:2.3:a:openbsd:openssh:7.6p1:*:*:*:*:*:*:*"
	generic := "cpe:2.3:a:openbsd:openssh:7.6:*:*:*:*:*:*:*"
	source := &stubSource{
		errs: map[string]error{exact: errors.New("connection refused")},
		results: map[string][]valueobject.CVESummary{
			generic: {{CVEID: "CVE-2018-15473"}},
		},
	}
	resolver := NewCVEResolver(source, zap.NewNop())

	got := resolver.Resolve(context.Background(), "ssh", "OpenSSH 7.6p1")
	if len(got) != 1 || got[0].CVEID != "CVE-2018-15473" {
		t.Fatalf("expected the generic lookup to rescue the resolve, got %v", got)
	}
}

func TestResolve_AllAttemptsFailReturnsEmpty(t *testing.T) {
	source := &stubSource{
		errs: map[string]error{
			"cpe:2.3:a:nginx:nginx:1.18.0:*:*:*:*:*:*:*": errors.New("timeout"),
			"cpe:2.3:a:nginx:nginx:1.18:*:*:*:*:*:*:*":   errors.New("timeout"),
		},
	}
	resolver := NewCVEResolver(source, zap.NewNop())

	if got := resolver.Resolve(context.Background(), "nginx", "1.18.0"); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestResolve_UnbuildableCPEDoesNotQuery(t *testing.T) {
	source := &stubSource{}
	resolver := NewCVEResolver(source, zap.NewNop())

	if got := resolver.Resolve(context.Background(), "http", "N/A"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if len(source.calls) != 0 {
		t.Errorf("expected no lookups, got %v", source.calls)
	}
}
