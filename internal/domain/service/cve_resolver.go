package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/valueobject"
)

// VulnerabilitySource queries an external vulnerability database by CPE name.
// It decouples the resolver from the concrete NVD client.
type VulnerabilitySource interface {
	Search(ctx context.Context, cpeName string) ([]valueobject.CVESummary, error)
}

// CVEResolver correlates a discovered service banner with known
// vulnerability records.
type CVEResolver struct {
	source VulnerabilitySource
	logger *zap.Logger
}

// NewCVEResolver creates a resolver backed by the given vulnerability source.
func NewCVEResolver(source VulnerabilitySource, logger *zap.Logger) *CVEResolver {
	return &CVEResolver{source: source, logger: logger}
}

// Resolve looks up vulnerabilities for a service name and version. The
// exact-version CPE is tried first, then the generic one when it differs;
// the first non-empty result wins. Lookups are best effort: a source
// failure never propagates, it degrades to an empty result.
func (r *CVEResolver) Resolve(ctx context.Context, serviceName, version string) []valueobject.CVESummary {
	var attempts []string
	if exact, ok := BuildCPE(serviceName, version, false); ok {
		attempts = append(attempts, exact)
	}
	if generic, ok := BuildCPE(serviceName, version, true); ok {
		if len(attempts) == 0 || attempts[0] != generic {
			attempts = append(attempts, generic)
		}
	}
	if len(attempts) == 0 {
		r.logger.Debug("no CPE could be built for service",
			zap.String("service", serviceName),
			zap.String("version", version))
		return nil
	}

	for _, cpe := range attempts {
		summaries, err := r.source.Search(ctx, cpe)
		if err != nil {
			r.logger.Warn("CVE lookup failed",
				zap.String("cpe", cpe),
				zap.Error(err))
			continue
		}
		if len(summaries) == 0 {
			r.logger.Debug("no vulnerability records for CPE", zap.String("cpe", cpe))
			continue
		}

		ids := make([]string, len(summaries))
		for i, s := range summaries {
			ids[i] = s.CVEID
		}
		r.logger.Info("CVEs found for service",
			zap.String("service", serviceName),
			zap.String("version", version),
			zap.String("cpe", cpe),
			zap.Strings("cve_ids", ids))
		return summaries
	}
	return nil
}
