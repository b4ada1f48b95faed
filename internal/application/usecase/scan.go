package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mollysec/molly/internal/domain/entity"
	"github.com/mollysec/molly/internal/domain/repository"
	"github.com/mollysec/molly/internal/domain/service"
	"github.com/mollysec/molly/internal/domain/valueobject"
	"github.com/mollysec/molly/internal/infrastructure/command"
	"github.com/mollysec/molly/pkg/safego"
	"go.uber.org/zap"
)

// Scanner runs a network scan and reports the process outcome. The
// result is never nil: launch failures and timeouts come back as
// non-zero exit codes.
type Scanner interface {
	Scan(ctx context.Context, target, profileName, ports string) *command.Result
	Command(target, profileName, ports string) string
}

// CVEService resolves published vulnerability records for a service
// banner. An empty slice means nothing usable was found; lookup
// failures are swallowed by the resolver and logged there.
type CVEService interface {
	Resolve(ctx context.Context, serviceName, version string) []valueobject.CVESummary
}

// ScanUseCase runs the network scan pipeline: execute the scanner,
// persist what it discovered, enrich services with CVE records and
// model analysis, and feed the aggregate back into the chat so the
// model can narrate it.
type ScanUseCase struct {
	scans    repository.ScanRepository
	hosts    repository.HostRepository
	services repository.ServiceRepository
	findings repository.FindingRepository

	scanner          Scanner
	cves             CVEService
	activity         *service.ActivityTracker
	analysisTemplate string
	maxParallel      int
	logger           *zap.Logger
}

// NewScanUseCase creates the scan pipeline use-case. analysisTemplate
// is the response-requirements text for per-service banner analysis;
// maxParallel bounds concurrent CVE lookups.
func NewScanUseCase(
	scans repository.ScanRepository,
	hosts repository.HostRepository,
	services repository.ServiceRepository,
	findings repository.FindingRepository,
	scanner Scanner,
	cves CVEService,
	activity *service.ActivityTracker,
	analysisTemplate string,
	maxParallel int,
	logger *zap.Logger,
) *ScanUseCase {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &ScanUseCase{
		scans:            scans,
		hosts:            hosts,
		services:         services,
		findings:         findings,
		scanner:          scanner,
		cves:             cves,
		activity:         activity,
		analysisTemplate: analysisTemplate,
		maxParallel:      maxParallel,
		logger:           logger,
	}
}

// ScanOutcome is what the pipeline hands back to the dispatcher.
type ScanOutcome struct {
	ScanID      uint
	SessionName string
	HostsFound  int
	Summary     string
	Failed      bool
	// Response is the prose shown to the user: the model's scan
	// narrative on success, its failure acknowledgement otherwise.
	Response string
}

// discoveredService pairs a persisted service with its host for the
// enrichment phases.
type discoveredService struct {
	host *entity.Host
	svc  *entity.Service
}

// vulnerabilityReply is the JSON schema the banner-analysis prompt
// asks the model for.
type vulnerabilityReply struct {
	Vulnerability string   `json:"vulnerability"`
	Impact        string   `json:"impact"`
	Mitigations   []string `json:"mitigations"`
}

// Execute runs one full scan session against target. The chat context
// is held by the caller for the whole call, so every model turn in the
// pipeline lands in the same history.
func (uc *ScanUseCase) Execute(ctx context.Context, conv *service.ConversationContext, target, sessionName, profileName string) (*ScanOutcome, error) {
	// 1. Create the scan session row.
	scan, err := entity.NewScan(sessionName, "Network Scan", target)
	if err != nil {
		return nil, err
	}
	scan, err = uc.scans.Create(ctx, scan)
	if err != nil {
		uc.logger.Error("Failed to create scan session",
			zap.String("session_name", sessionName), zap.Error(err))
		return nil, err
	}

	uc.activity.StartScan(scan.ID(), sessionName, "Network Scan", target)
	uc.logger.Info("Scan session started",
		zap.Uint("scan_id", scan.ID()),
		zap.String("session_name", sessionName),
		zap.String("target", target),
		zap.String("profile", profileName),
	)

	// 2. Run the scanner.
	result := uc.scanner.Scan(ctx, target, profileName, "")
	if result.ExitCode != 0 {
		return uc.failScan(ctx, conv, scan, target, result)
	}

	// 3. Parse the raw output and persist hosts and services.
	parsed := service.ParseNmapOutput(result.Stdout)
	discovered, err := uc.persistHosts(ctx, scan, parsed)
	if err != nil {
		return nil, err
	}

	// Enrichment and the aggregate payload follow one fixed order.
	sort.Slice(discovered, func(i, j int) bool {
		if discovered[i].host.IPAddress() != discovered[j].host.IPAddress() {
			return discovered[i].host.IPAddress() < discovered[j].host.IPAddress()
		}
		return discovered[i].svc.Port() < discovered[j].svc.Port()
	})

	// 4. CVE lookups per distinct service banner, bounded parallel.
	cvesByService := uc.resolveCVEs(ctx, discovered)

	// 5. Banner analysis per service. These share the chat history, so
	// they run serially in payload order.
	vulnerabilities, err := uc.analyzeBanners(ctx, conv, scan, discovered, cvesByService)
	if err != nil {
		return nil, uc.failWithModelError(ctx, scan, err)
	}

	// 6. Inject the aggregate into the chat and ask for a narrative.
	hostsFound := len(parsed)
	toolOutput := uc.buildToolOutput(scan.ID(), target, result.Stdout, discovered, parsed, cvesByService, vulnerabilities)

	followUp := fmt.Sprintf("El escaneo de red en %s ha finalizado. Se han procesado los hallazgos de vulnerabilidades y se han buscado CVEs para los servicios descubiertos. Por favor, genera un resumen conversacional y útil para el usuario, destacando los hosts, servicios, cualquier vulnerabilidad detectada (incluyendo los CVEs si se encontraron) y sus mitigaciones. Si se encontraron CVEs, menciona que el usuario puede preguntar sobre ellos por su ID (ej. '¿Qué es CVE-2007-2768?').", target)

	summary, err := conv.InjectToolResult(ctx, toolOutput, followUp)
	if err != nil {
		return nil, uc.failWithModelError(ctx, scan, err)
	}
	if summary == "" {
		summary = fmt.Sprintf("El escaneo de %s ha finalizado y se encontraron %d hosts, pero no pude generar un resumen detallado con la IA.", target, hostsFound)
	}

	// 7. Close the session.
	if err := scan.Complete(summary); err != nil {
		return nil, err
	}
	if err := uc.scans.Update(ctx, scan); err != nil {
		uc.logger.Error("Failed to mark scan completed",
			zap.Uint("scan_id", scan.ID()), zap.Error(err))
		return nil, err
	}

	uc.logger.Info("Scan pipeline finished",
		zap.Uint("scan_id", scan.ID()),
		zap.Int("hosts_found", hostsFound),
		zap.Int("services_found", len(discovered)),
		zap.Int("findings", len(vulnerabilities)),
	)

	return &ScanOutcome{
		ScanID:      scan.ID(),
		SessionName: sessionName,
		HostsFound:  hostsFound,
		Summary:     summary,
		Response:    summary,
	}, nil
}

// failScan closes the session after a scanner failure and lets the
// model acknowledge it in the chat.
func (uc *ScanUseCase) failScan(ctx context.Context, conv *service.ConversationContext, scan *entity.Scan, target string, result *command.Result) (*ScanOutcome, error) {
	errorSummary := fmt.Sprintf("El escaneo Nmap falló para %s: %s", target, strings.TrimSpace(result.Stderr))
	uc.logger.Error("Scanner exited with failure",
		zap.Uint("scan_id", scan.ID()),
		zap.String("target", target),
		zap.Int("exit_code", result.ExitCode),
		zap.Bool("timed_out", result.TimedOut),
	)

	if err := scan.Fail(errorSummary); err != nil {
		return nil, err
	}
	if err := uc.scans.Update(ctx, scan); err != nil {
		return nil, err
	}

	followUp := fmt.Sprintf("El escaneo en %s falló. ¿Cómo puedo ayudarte con esto? Necesito un nuevo objetivo o un tipo de análisis diferente.", target)
	reply, err := conv.InjectToolResult(ctx, map[string]interface{}{
		"action": "start_network_scan_failed",
		"target": target,
		"error":  strings.TrimSpace(result.Stderr),
	}, followUp)
	if err != nil {
		return nil, err
	}
	if reply == "" {
		reply = errorSummary
	}

	return &ScanOutcome{
		ScanID:      scan.ID(),
		SessionName: scan.SessionName(),
		Summary:     errorSummary,
		Failed:      true,
		Response:    reply,
	}, nil
}

// failWithModelError marks the scan failed when a model call inside
// the pipeline breaks, keeping whatever was already persisted.
func (uc *ScanUseCase) failWithModelError(ctx context.Context, scan *entity.Scan, cause error) error {
	if err := scan.Fail(cause.Error()); err == nil {
		if err := uc.scans.Update(ctx, scan); err != nil {
			uc.logger.Error("Failed to mark scan failed",
				zap.Uint("scan_id", scan.ID()), zap.Error(err))
		}
	}
	return cause
}

// persistHosts stores every parsed host and its ports, feeding the
// activity tracker as rows are assigned IDs.
func (uc *ScanUseCase) persistHosts(ctx context.Context, scan *entity.Scan, parsed []service.ParsedHost) ([]discoveredService, error) {
	var discovered []discoveredService
	for _, ph := range parsed {
		host, err := entity.NewHost(scan.ID(), ph.IPAddress, ph.Hostname, ph.OS)
		if err != nil {
			return nil, err
		}
		host, err = uc.hosts.Create(ctx, host)
		if err != nil {
			uc.logger.Error("Failed to persist host",
				zap.String("ip_address", ph.IPAddress), zap.Error(err))
			return nil, err
		}
		uc.activity.AddHost(host.IPAddress(), host.ID())

		for _, pp := range ph.Ports {
			svc, err := entity.NewService(host.ID(), pp.Port, pp.Protocol, pp.ServiceName, pp.Version, pp.State)
			if err != nil {
				return nil, err
			}
			svc, err = uc.services.Create(ctx, svc)
			if err != nil {
				uc.logger.Error("Failed to persist service",
					zap.String("ip_address", host.IPAddress()),
					zap.Int("port", pp.Port),
					zap.Error(err))
				return nil, err
			}
			uc.activity.AddService(host.IPAddress(), svc.Port(), svc.Name(), svc.ID())
			discovered = append(discovered, discoveredService{host: host, svc: svc})
		}
	}
	return discovered, nil
}

// resolveCVEs looks up vulnerability records for every distinct
// service banner with a usable version. Lookups run on a bounded pool;
// the resolver applies NVD rate limiting underneath.
func (uc *ScanUseCase) resolveCVEs(ctx context.Context, discovered []discoveredService) map[string][]valueobject.CVESummary {
	type lookup struct {
		key     string
		name    string
		version string
	}

	seen := make(map[string]bool)
	var lookups []lookup
	for _, d := range discovered {
		name, version := d.svc.Name(), d.svc.Version()
		if name == "" || name == "unknown" || version == "" || version == "N/A" {
			continue
		}
		key := name + " " + version
		if seen[key] {
			continue
		}
		seen[key] = true
		lookups = append(lookups, lookup{key: key, name: name, version: version})
	}
	if len(lookups) == 0 {
		return map[string][]valueobject.CVESummary{}
	}

	found := make(map[string][]valueobject.CVESummary)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, uc.maxParallel)

	for _, l := range lookups {
		wg.Add(1)
		go func(l lookup) {
			defer wg.Done()
			defer safego.Handle(uc.logger, "cve-lookup")
			sem <- struct{}{}
			defer func() { <-sem }()

			if summaries := uc.cves.Resolve(ctx, l.name, l.version); len(summaries) > 0 {
				mu.Lock()
				found[l.key] = summaries
				mu.Unlock()
			}
		}(l)
	}
	wg.Wait()

	uc.logger.Info("CVE enrichment finished",
		zap.Int("services_checked", len(lookups)),
		zap.Int("services_with_cves", len(found)),
	)
	return found
}

// analyzeBanners asks the model for a structured vulnerability
// assessment per service and persists each valid reply as a finding.
// Replies that do not decode to the expected schema are skipped.
func (uc *ScanUseCase) analyzeBanners(ctx context.Context, conv *service.ConversationContext, scan *entity.Scan, discovered []discoveredService, cvesByService map[string][]valueobject.CVESummary) ([]map[string]interface{}, error) {
	var vulnerabilities []map[string]interface{}

	for _, d := range discovered {
		objective := fmt.Sprintf("Analizar el banner/versión del servicio %s en puerto %d para posibles vulnerabilidades.", d.svc.Name(), d.svc.Port())
		inputData := fmt.Sprintf("Servicio: %s\nPuerto: %d\nProtocolo: %s\nVersión: %s\nEstado: %s",
			d.svc.Name(), d.svc.Port(), d.svc.Protocol(), d.svc.Version(), d.svc.State())

		reply, intent, err := conv.Ask(ctx, objective, "Información de servicio/banner", inputData, uc.analysisTemplate)
		if err != nil {
			return nil, err
		}
		if intent != nil {
			uc.logger.Warn("Banner analysis returned an action instead of an assessment",
				zap.String("action", intent.Action),
				zap.String("service", d.svc.Name()),
				zap.Int("port", d.svc.Port()),
			)
			continue
		}

		assessment, ok := parseVulnerabilityReply(reply)
		if !ok {
			uc.logger.Warn("Banner analysis reply did not match the expected schema",
				zap.String("service", d.svc.Name()),
				zap.Int("port", d.svc.Port()),
			)
			continue
		}

		finding, err := uc.persistFinding(ctx, scan.ID(), d, reply, assessment, cvesByService[d.svc.Name()+" "+d.svc.Version()])
		if err != nil {
			return nil, err
		}

		vulnerabilities = append(vulnerabilities, map[string]interface{}{
			"vulnerability":  finding.Description(),
			"impact":         finding.Severity().String(),
			"recommendation": finding.Recommendation(),
			"target_host":    d.host.IPAddress(),
			"target_service": fmt.Sprintf("%s:%d", d.svc.Name(), d.svc.Port()),
		})
	}

	return vulnerabilities, nil
}

// persistFinding stores one banner-analysis result as a finding row.
// CVE records resolved for the same service banner ride along in the
// details blob so stored findings reference their CVE IDs.
func (uc *ScanUseCase) persistFinding(ctx context.Context, scanID uint, d discoveredService, rawReply string, assessment *vulnerabilityReply, cveRecords []valueobject.CVESummary) (*entity.Finding, error) {
	hostID := d.host.ID()
	serviceID := d.svc.ID()

	details := map[string]interface{}{
		"ai_raw_response": rawReply,
		"service_info": map[string]interface{}{
			"id":           d.svc.ID(),
			"port":         d.svc.Port(),
			"protocol":     d.svc.Protocol(),
			"service_name": d.svc.Name(),
			"version":      d.svc.Version(),
			"state":        d.svc.State(),
		},
		"host_info": map[string]interface{}{
			"id":         d.host.ID(),
			"ip_address": d.host.IPAddress(),
			"hostname":   d.host.Hostname(),
			"os_info":    d.host.OS(),
		},
	}
	if len(cveRecords) > 0 {
		details["cve_info"] = cveRecords
	}

	finding, err := entity.NewFinding(
		scanID,
		&hostID,
		&serviceID,
		"vulnerability",
		fmt.Sprintf("Vulnerabilidad Detectada: %s", assessment.Vulnerability),
		assessment.Vulnerability,
		valueobject.Severity(assessment.Impact),
		strings.Join(assessment.Mitigations, "\n"),
		details,
	)
	if err != nil {
		return nil, err
	}

	finding, err = uc.findings.Create(ctx, finding)
	if err != nil {
		uc.logger.Error("Failed to persist finding",
			zap.String("ip_address", d.host.IPAddress()),
			zap.Int("port", d.svc.Port()),
			zap.Error(err))
		return nil, err
	}
	return finding, nil
}

// buildToolOutput assembles the aggregate payload injected into the
// chat after a completed scan.
func (uc *ScanUseCase) buildToolOutput(scanID uint, target, rawOutput string, discovered []discoveredService, parsed []service.ParsedHost, cvesByService map[string][]valueobject.CVESummary, vulnerabilities []map[string]interface{}) map[string]interface{} {
	portsByIP := make(map[string][]int)
	for _, d := range discovered {
		ip := d.host.IPAddress()
		portsByIP[ip] = append(portsByIP[ip], d.svc.Port())
	}

	ips := make([]string, 0, len(parsed))
	for _, ph := range parsed {
		ips = append(ips, ph.IPAddress)
	}
	sort.Strings(ips)

	hostsPayload := make([]map[string]interface{}, 0, len(ips))
	for _, ip := range ips {
		ports := portsByIP[ip]
		sort.Ints(ports)
		if ports == nil {
			ports = []int{}
		}
		hostsPayload = append(hostsPayload, map[string]interface{}{
			"ip":    ip,
			"ports": ports,
		})
	}

	if vulnerabilities == nil {
		vulnerabilities = []map[string]interface{}{}
	}

	return map[string]interface{}{
		"action_completed":  "start_network_scan",
		"target":            target,
		"scan_id":           scanID,
		"hosts_found_count": len(parsed),
		"nmap_raw_output":   rawOutput,
		"parsed_data_summary": map[string]interface{}{
			"hosts":                 hostsPayload,
			"cves_found_by_service": cvesByService,
		},
		"vulnerabilities_found": vulnerabilities,
	}
}

// parseVulnerabilityReply decodes the model's banner-analysis reply,
// tolerating a fenced code block around the JSON. All three schema
// keys must be present; a partial object is not an assessment.
func parseVulnerabilityReply(reply string) (*vulnerabilityReply, bool) {
	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "```json") && strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(trimmed[len("```json") : len(trimmed)-3])
	} else if strings.HasPrefix(trimmed, "```") && strings.HasSuffix(trimmed, "```") && len(trimmed) > 6 {
		trimmed = strings.TrimSpace(trimmed[3 : len(trimmed)-3])
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, false
	}
	for _, key := range []string{"vulnerability", "impact", "mitigations"} {
		if _, ok := fields[key]; !ok {
			return nil, false
		}
	}

	var assessment vulnerabilityReply
	if err := json.Unmarshal([]byte(trimmed), &assessment); err != nil {
		return nil, false
	}
	return &assessment, true
}
