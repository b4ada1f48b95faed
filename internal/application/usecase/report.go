package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/mollysec/molly/pkg/errors"

	"github.com/mollysec/molly/internal/domain/entity"
	"github.com/mollysec/molly/internal/domain/repository"
	"github.com/mollysec/molly/internal/domain/service"
	"go.uber.org/zap"
)

const reportTimestampLayout = "20060102_150405"

// ReportComposer renders persisted scan data into markdown bodies.
type ReportComposer interface {
	NetworkScanSummary(scan *entity.Scan, hosts []*entity.Host, servicesByHost map[string][]*entity.Service) string
	DetailedHostReport(host *entity.Host, services []*entity.Service, findings []*entity.Finding) string
}

// ReportRenderer turns a markdown body into a stored PDF and returns
// the absolute path of the document. A non-empty hostIP selects the
// per-host directory layout.
type ReportRenderer interface {
	Generate(markdown, filename, sessionName, hostIP string) (string, error)
}

// ReportUseCase retrieves persisted scan results for the chat and
// produces the PDF reports.
type ReportUseCase struct {
	scans    repository.ScanRepository
	hosts    repository.HostRepository
	services repository.ServiceRepository
	findings repository.FindingRepository

	composer ReportComposer
	renderer ReportRenderer
	activity *service.ActivityTracker
	logger   *zap.Logger
}

// NewReportUseCase creates the report use-case.
func NewReportUseCase(
	scans repository.ScanRepository,
	hosts repository.HostRepository,
	services repository.ServiceRepository,
	findings repository.FindingRepository,
	composer ReportComposer,
	renderer ReportRenderer,
	activity *service.ActivityTracker,
	logger *zap.Logger,
) *ReportUseCase {
	return &ReportUseCase{
		scans:    scans,
		hosts:    hosts,
		services: services,
		findings: findings,
		composer: composer,
		renderer: renderer,
		activity: activity,
		logger:   logger,
	}
}

// Results retrieves a stored scan by ID or session name, injects it
// into the chat and returns the model's conversational summary. A scan
// that cannot be resolved returns fixed Spanish prose, not an error.
func (uc *ReportUseCase) Results(ctx context.Context, conv *service.ConversationContext, scanID uint, sessionName string) (string, error) {
	scan, err := uc.resolveScan(ctx, scanID, sessionName)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "No se encontraron resultados para el escaneo solicitado. Por favor, verifica el ID o nombre.", nil
		}
		return "", err
	}

	hosts, err := uc.hosts.FindByScanID(ctx, scan.ID())
	if err != nil {
		return "", err
	}

	servicesByHost := make(map[string][]*entity.Service, len(hosts))
	for _, host := range hosts {
		svcs, err := uc.services.FindByHostID(ctx, host.ID())
		if err != nil {
			return "", err
		}
		servicesByHost[host.IPAddress()] = svcs
	}

	findings, err := uc.findings.FindByScanID(ctx, scan.ID())
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(formatScanResults(scan, hosts, servicesByHost, findings), "", "  ")
	if err != nil {
		return "", err
	}

	reply, err := conv.InjectToolResult(ctx, map[string]interface{}{
		"action_completed": "get_scan_results",
		"data":             string(data),
	}, "He recuperado los detalles del escaneo. Por favor, genera un resumen conversacional de estos resultados para el usuario.")
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "Resultados recuperados, pero la IA no generó un resumen de seguimiento.", nil
	}
	return reply, nil
}

// GenerateNetworkSummary renders the network summary PDF for a
// finished scan and records its path on the scan row.
func (uc *ReportUseCase) GenerateNetworkSummary(ctx context.Context, scanID uint) (string, error) {
	scan, err := uc.scans.FindByID(ctx, scanID)
	if err != nil {
		return "", err
	}

	hosts, err := uc.hosts.FindByScanID(ctx, scan.ID())
	if err != nil {
		return "", err
	}

	servicesByHost := make(map[string][]*entity.Service, len(hosts))
	for _, host := range hosts {
		svcs, err := uc.services.FindByHostID(ctx, host.ID())
		if err != nil {
			return "", err
		}
		servicesByHost[host.IPAddress()] = svcs
	}

	markdown := uc.composer.NetworkScanSummary(scan, hosts, servicesByHost)
	filename := fmt.Sprintf("network_summary_%s.pdf", time.Now().Format(reportTimestampLayout))

	path, err := uc.renderer.Generate(markdown, filename, scan.SessionName(), "")
	if err != nil {
		return "", err
	}

	scan.SetResultsPath(path)
	if err := uc.scans.Update(ctx, scan); err != nil {
		return "", err
	}

	uc.logger.Info("Network summary report generated",
		zap.Uint("scan_id", scan.ID()),
		zap.String("path", path),
	)
	return path, nil
}

// GenerateDetailedHostReport renders the per-host PDF for a host of a
// stored session. A missing session or host returns a not-found error.
func (uc *ReportUseCase) GenerateDetailedHostReport(ctx context.Context, hostIP, sessionName string) (string, error) {
	scan, err := uc.scans.FindBySessionName(ctx, sessionName)
	if err != nil {
		return "", err
	}

	host, err := uc.hosts.FindByIPAndScanID(ctx, hostIP, scan.ID())
	if err != nil {
		return "", err
	}
	uc.activity.SetCurrentHost(host.ID(), host.IPAddress())

	svcs, err := uc.services.FindByHostID(ctx, host.ID())
	if err != nil {
		return "", err
	}
	findings, err := uc.findings.FindByHostID(ctx, host.ID())
	if err != nil {
		return "", err
	}

	markdown := uc.composer.DetailedHostReport(host, svcs, findings)
	filename := fmt.Sprintf("detailed_report_%s_%s.pdf",
		ipToUnderscores(hostIP), time.Now().Format(reportTimestampLayout))

	path, err := uc.renderer.Generate(markdown, filename, sessionName, hostIP)
	if err != nil {
		return "", err
	}

	uc.logger.Info("Detailed host report generated",
		zap.Uint("scan_id", scan.ID()),
		zap.String("host_ip", hostIP),
		zap.String("path", path),
	)
	return path, nil
}

// ipToUnderscores makes an IP address usable inside file names.
func ipToUnderscores(ip string) string {
	return strings.ReplaceAll(ip, ".", "_")
}

// resolveScan finds a scan by ID when one was given, otherwise by
// session name. Neither given means nothing to resolve.
func (uc *ReportUseCase) resolveScan(ctx context.Context, scanID uint, sessionName string) (*entity.Scan, error) {
	if scanID != 0 {
		return uc.scans.FindByID(ctx, scanID)
	}
	if sessionName != "" {
		return uc.scans.FindBySessionName(ctx, sessionName)
	}
	return nil, apperrors.NewNotFoundError("no scan reference given")
}

// formatScanResults shapes stored rows into the payload injected for
// the model. The stored summary is withheld so the model writes a
// fresh narrative instead of echoing the old one.
func formatScanResults(scan *entity.Scan, hosts []*entity.Host, servicesByHost map[string][]*entity.Service, findings []*entity.Finding) map[string]interface{} {
	var endTime interface{}
	if t := scan.EndTime(); t != nil {
		endTime = t.Format("2006-01-02 15:04:05")
	}

	hostsPayload := make([]map[string]interface{}, 0, len(hosts))
	for _, h := range hosts {
		hostsPayload = append(hostsPayload, map[string]interface{}{
			"ip_address": h.IPAddress(),
			"hostname":   h.Hostname(),
		})
	}

	servicesPayload := make(map[string][]map[string]interface{}, len(servicesByHost))
	for ip, svcs := range servicesByHost {
		rows := make([]map[string]interface{}, 0, len(svcs))
		for _, s := range svcs {
			rows = append(rows, map[string]interface{}{
				"port":         s.Port(),
				"service_name": s.Name(),
				"version":      s.Version(),
			})
		}
		servicesPayload[ip] = rows
	}

	findingsPayload := make([]map[string]interface{}, 0, len(findings))
	for _, f := range findings {
		findingsPayload = append(findingsPayload, map[string]interface{}{
			"title":       f.Title(),
			"severity":    f.Severity().String(),
			"description": f.Description(),
		})
	}

	return map[string]interface{}{
		"scan_details": map[string]interface{}{
			"id":           scan.ID(),
			"session_name": scan.SessionName(),
			"scan_type":    scan.ScanType(),
			"target":       scan.Target(),
			"start_time":   scan.StartTime().Format("2006-01-02 15:04:05"),
			"end_time":     endTime,
			"status":       string(scan.Status()),
			"results_path": scan.ResultsPath(),
		},
		"hosts":            hostsPayload,
		"services_by_host": servicesPayload,
		"findings":         findingsPayload,
	}
}
