package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/entity"
	"github.com/mollysec/molly/internal/domain/service"
	"github.com/mollysec/molly/internal/domain/valueobject"
	"github.com/mollysec/molly/internal/infrastructure/command"
	"github.com/mollysec/molly/internal/infrastructure/persistence"
)

// scriptedLLM returns canned replies in order and records every request.
type scriptedLLM struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []*service.LLMRequest
}

func (s *scriptedLLM) Generate(ctx context.Context, req *service.LLMRequest) (*service.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	reply := "ok"
	if len(s.replies) > 0 {
		reply = s.replies[0]
		s.replies = s.replies[1:]
	}
	return &service.LLMResponse{Content: reply, ModelUsed: req.Model}, nil
}

func (s *scriptedLLM) sentContent(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.requests[i]
	return req.Messages[len(req.Messages)-1].Content
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// fakeScanner returns a canned process result and records the call.
type fakeScanner struct {
	result  *command.Result
	target  string
	profile string
}

func (f *fakeScanner) Scan(ctx context.Context, target, profileName, ports string) *command.Result {
	f.target = target
	f.profile = profileName
	return f.result
}

func (f *fakeScanner) Command(target, profileName, ports string) string {
	return "nmap -T4 -sS -sV " + target
}

// fakeCVEService resolves canned summaries keyed by "name version".
type fakeCVEService struct {
	mu    sync.Mutex
	byKey map[string][]valueobject.CVESummary
	calls []string
}

func (f *fakeCVEService) Resolve(ctx context.Context, serviceName, version string) []valueobject.CVESummary {
	f.mu.Lock()
	f.calls = append(f.calls, serviceName+" "+version)
	f.mu.Unlock()
	return f.byKey[serviceName+" "+version]
}

type fakeComposer struct{}

func (fakeComposer) NetworkScanSummary(scan *entity.Scan, hosts []*entity.Host, servicesByHost map[string][]*entity.Service) string {
	return "# Resumen de Escaneo de Red - Sesión: " + scan.SessionName()
}

func (fakeComposer) DetailedHostReport(host *entity.Host, services []*entity.Service, findings []*entity.Finding) string {
	return "# Informe Detallado del Host: " + host.IPAddress()
}

type renderCall struct {
	filename    string
	sessionName string
	hostIP      string
}

type fakeRenderer struct {
	err   error
	calls []renderCall
}

func (f *fakeRenderer) Generate(markdown, filename, sessionName, hostIP string) (string, error) {
	f.calls = append(f.calls, renderCall{filename: filename, sessionName: sessionName, hostIP: hostIP})
	if f.err != nil {
		return "", f.err
	}
	return "/reports/" + sessionName + "/" + filename, nil
}

type testEnv struct {
	store    *persistence.MemoryStore
	scanner  *fakeScanner
	cves     *fakeCVEService
	renderer *fakeRenderer
	activity *service.ActivityTracker
	orch     *Orchestrator
}

func newTestEnv(client service.LLMClient, scanner *fakeScanner, cves *fakeCVEService) *testEnv {
	logger := zap.NewNop()
	store := persistence.NewMemoryStore()
	renderer := &fakeRenderer{}
	activity := service.NewActivityTracker(logger)
	registry := service.NewChatRegistry(client, "Eres Molly.", nil, "gemini-2.5-flash", logger)

	scanUC := NewScanUseCase(
		store.Scans(), store.Hosts(), store.Services(), store.Findings(),
		scanner, cves, activity,
		"Analiza el servicio y responde únicamente en JSON.",
		2, logger,
	)
	reportUC := NewReportUseCase(
		store.Scans(), store.Hosts(), store.Services(), store.Findings(),
		fakeComposer{}, renderer, activity, logger,
	)

	return &testEnv{
		store:    store,
		scanner:  scanner,
		cves:     cves,
		renderer: renderer,
		activity: activity,
		orch:     NewOrchestrator(registry, scanUC, reportUC, "default_scan", logger),
	}
}

const scanOutputOneHost = `
Nmap scan report for 192.168.1.10
Host is up (0.00050s latency).
PORT     STATE SERVICE VERSION
21/tcp   open  ftp     vsftpd 2.3.4
80/tcp   open  http    Apache httpd 2.4.52
OS details: Linux 4.15 - 5.10

Nmap done: 1 IP address (1 host up) scanned in 2.50 seconds
`

func intentReply(body string) string {
	return "```json\n" + body + "\n```"
}

func TestHandleQuery_ScanHappyPath(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "start_network_scan", "parameters": {"target": "192.168.1.0/24"}}`),
		intentReply(`{"vulnerability": "vsftpd 2.3.4 contiene una puerta trasera conocida", "impact": "Critical", "mitigations": ["Actualizar vsftpd a la última versión"]}`),
		"El servicio http parece actualizado y sin vulnerabilidades conocidas.",
		"Entendido, resultados recibidos.",
		"Se encontró 1 host con un servicio FTP vulnerable.",
	}}
	scanner := &fakeScanner{result: &command.Result{Stdout: scanOutputOneHost, ExitCode: 0}}
	cves := &fakeCVEService{byKey: map[string][]valueobject.CVESummary{
		"ftp vsftpd 2.3.4": {{CVEID: "CVE-2011-2523", Description: "vsftpd backdoor", CVSSScore: 9.8, CVSSSeverity: "CRITICAL"}},
	}}
	env := newTestEnv(llm, scanner, cves)

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "escanea la red 192.168.1.0/24")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}

	if res.Response != "Se encontró 1 host con un servicio FTP vulnerable." {
		t.Errorf("response = %q", res.Response)
	}
	if res.ScanID == nil {
		t.Fatal("scan id not returned")
	}
	if !strings.Contains(res.PDFPath, "network_summary_") {
		t.Errorf("pdf path = %q", res.PDFPath)
	}
	if scanner.target != "192.168.1.0/24" || scanner.profile != "default_scan" {
		t.Errorf("scanner called with target=%q profile=%q", scanner.target, scanner.profile)
	}

	scan, err := env.store.Scans().FindByID(context.Background(), *res.ScanID)
	if err != nil {
		t.Fatalf("scan not stored: %v", err)
	}
	if scan.Status() != entity.ScanStatusCompleted {
		t.Errorf("status = %q, want completed", scan.Status())
	}
	if scan.Summary() != res.Response {
		t.Errorf("summary = %q", scan.Summary())
	}
	if scan.ResultsPath() != res.PDFPath {
		t.Errorf("results path = %q, want %q", scan.ResultsPath(), res.PDFPath)
	}
	if !strings.HasPrefix(scan.SessionName(), "Escaneo_IA_192_168_1_0_24_") {
		t.Errorf("session name = %q", scan.SessionName())
	}

	hosts, _ := env.store.Hosts().FindByScanID(context.Background(), scan.ID())
	if len(hosts) != 1 {
		t.Fatalf("hosts stored = %d, want 1", len(hosts))
	}
	svcs, _ := env.store.Services().FindByHostID(context.Background(), hosts[0].ID())
	if len(svcs) != 2 {
		t.Fatalf("services stored = %d, want 2", len(svcs))
	}

	findings, _ := env.store.Findings().FindByScanID(context.Background(), scan.ID())
	if len(findings) != 1 {
		t.Fatalf("findings stored = %d, want 1", len(findings))
	}
	f := findings[0]
	if f.Title() != "Vulnerabilidad Detectada: vsftpd 2.3.4 contiene una puerta trasera conocida" {
		t.Errorf("finding title = %q", f.Title())
	}
	if f.Severity() != valueobject.SeverityCritical {
		t.Errorf("finding severity = %q", f.Severity())
	}
	if f.Recommendation() != "Actualizar vsftpd a la última versión" {
		t.Errorf("finding recommendation = %q", f.Recommendation())
	}
	if f.ServiceID() == nil || f.HostID() == nil {
		t.Error("finding not linked to host and service")
	}
	cveInfo, ok := f.Details()["cve_info"].([]valueobject.CVESummary)
	if !ok || len(cveInfo) != 1 || cveInfo[0].CVEID != "CVE-2011-2523" {
		t.Errorf("finding details cve_info = %v", f.Details()["cve_info"])
	}

	// Banner asks follow port order: ftp on 21 before http on 80.
	firstBanner := llm.sentContent(1)
	if !strings.Contains(firstBanner, "Puerto: 21") || !strings.Contains(firstBanner, "Servicio: ftp") {
		t.Errorf("first banner ask:\n%s", firstBanner)
	}

	injected := llm.sentContent(3)
	for _, want := range []string{
		`"action_completed": "start_network_scan"`,
		"CVE-2011-2523",
		"vulnerabilities_found",
		`"hosts_found_count": 1`,
	} {
		if !strings.Contains(injected, want) {
			t.Errorf("injected payload missing %q", want)
		}
	}

	if llm.callCount() != 5 {
		t.Errorf("llm calls = %d, want 5", llm.callCount())
	}
}

func TestHandleQuery_MissingTargetAsksForClarification(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "start_network_scan", "parameters": {}}`),
		"¿Qué dirección IP o rango de red quieres que escanee?",
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "haz un escaneo")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if res.Response != "¿Qué dirección IP o rango de red quieres que escanee?" {
		t.Errorf("response = %q", res.Response)
	}
	if res.ScanID != nil {
		t.Error("no scan should have started")
	}

	scans, _ := env.store.Scans().FindAll(context.Background())
	if len(scans) != 0 {
		t.Errorf("scan rows = %d, want 0", len(scans))
	}

	clarification := llm.sentContent(1)
	if !strings.Contains(clarification, "Error de comando: target faltante") {
		t.Errorf("clarification ask not framed as missing target:\n%s", clarification)
	}
}

func TestHandleQuery_ScannerFailureMarksScanFailed(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "start_network_scan", "parameters": {"target": "10.0.0.9"}}`),
		"Entendido.",
		"El escaneo falló porque el host no respondió. ¿Quieres intentar con otro objetivo?",
	}}
	scanner := &fakeScanner{result: &command.Result{Stderr: "Failed: host unreachable", ExitCode: 1}}
	env := newTestEnv(llm, scanner, &fakeCVEService{})

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "escanea 10.0.0.9")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if res.Response != "El escaneo falló porque el host no respondió. ¿Quieres intentar con otro objetivo?" {
		t.Errorf("response = %q", res.Response)
	}
	if res.PDFPath != "" {
		t.Errorf("no pdf expected, got %q", res.PDFPath)
	}
	if res.ScanID == nil {
		t.Fatal("failed scan should still be referenced")
	}

	scan, _ := env.store.Scans().FindByID(context.Background(), *res.ScanID)
	if scan.Status() != entity.ScanStatusFailed {
		t.Errorf("status = %q, want failed", scan.Status())
	}
	if !strings.Contains(scan.Summary(), "host unreachable") {
		t.Errorf("summary = %q", scan.Summary())
	}

	hosts, _ := env.store.Hosts().FindByScanID(context.Background(), scan.ID())
	if len(hosts) != 0 {
		t.Errorf("hosts stored after failure = %d, want 0", len(hosts))
	}
}

func TestHandleQuery_ScannerTimeoutMarksScanFailed(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "start_network_scan", "parameters": {"target": "172.16.0.0/16"}}`),
		"Entendido.",
		"El escaneo tardó demasiado y fue cancelado.",
	}}
	scanner := &fakeScanner{result: &command.Result{
		Stderr:   "timeout expired after 300s",
		ExitCode: -1,
		TimedOut: true,
	}}
	env := newTestEnv(llm, scanner, &fakeCVEService{})

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "escanea toda la red 172.16.0.0/16")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}

	scan, _ := env.store.Scans().FindByID(context.Background(), *res.ScanID)
	if scan.Status() != entity.ScanStatusFailed {
		t.Errorf("status = %q, want failed", scan.Status())
	}
	if !strings.Contains(scan.Summary(), "timeout expired") {
		t.Errorf("summary = %q", scan.Summary())
	}
}

func TestHandleQuery_DuplicateSessionName(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "start_network_scan", "parameters": {"target": "10.0.0.1", "session_name": "Auditoria_Q3"}}`),
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	seed, _ := entity.NewScan("Auditoria_Q3", "Network Scan", "10.0.0.1")
	if _, err := env.store.Scans().Create(context.Background(), seed); err != nil {
		t.Fatalf("seeding scan: %v", err)
	}

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "repite la auditoría")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if res.Response != "No se pudo crear la sesión de escaneo." {
		t.Errorf("response = %q", res.Response)
	}
}

func TestHandleQuery_GeneralQuestionGetsProse(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"Puedo explicarlo.",
		"El puerto 22 corresponde al servicio SSH, usado para administración remota.",
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "¿qué es el puerto 22?")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if res.Response != "El puerto 22 corresponde al servicio SSH, usado para administración remota." {
		t.Errorf("response = %q", res.Response)
	}

	general := llm.sentContent(1)
	if !strings.Contains(general, "Responder a la pregunta general del usuario.") {
		t.Errorf("general ask framing missing:\n%s", general)
	}
}

func TestHandleQuery_UnknownActionIsRejected(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "reboot_host", "parameters": {"target": "10.0.0.1"}}`),
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "reinicia el servidor")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	want := "La IA sugirió una acción ('reboot_host') que aún no puedo ejecutar. Por favor, intenta de nuevo o haz una pregunta diferente."
	if res.Response != want {
		t.Errorf("response = %q", res.Response)
	}
}

func TestHandleQuery_QuotaErrorSurfacesFixedMessage(t *testing.T) {
	llm := &scriptedLLM{err: &service.LLMError{
		Kind:     service.ErrKindQuota,
		Message:  "429 resource exhausted",
		Provider: "gemini",
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "hola")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if res.Response != msgQuotaExceeded {
		t.Errorf("response = %q", res.Response)
	}
}

func TestHandleQuery_BlockedQuerySurfacesFixedMessage(t *testing.T) {
	llm := &scriptedLLM{err: &service.LLMError{
		Kind:     service.ErrKindBlocked,
		Message:  "blocked by safety settings",
		Provider: "gemini",
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "algo prohibido")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if res.Response != msgBlockedQuery {
		t.Errorf("response = %q", res.Response)
	}
}

func TestHandleQuery_RetrievesStoredScanResults(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "get_scan_results", "parameters": {"session_name": "Auditoria_Q3"}}`),
		"Recibido.",
		"Aquí está el resumen del escaneo anterior: un host con SSH expuesto.",
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	seedScanData(t, env.store, "Auditoria_Q3")

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "muéstrame la auditoría Q3")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if res.Response != "Aquí está el resumen del escaneo anterior: un host con SSH expuesto." {
		t.Errorf("response = %q", res.Response)
	}

	injected := llm.sentContent(1)
	for _, want := range []string{`"action_completed": "get_scan_results"`, "OpenSSH 8.9", "192.168.1.10"} {
		if !strings.Contains(injected, want) {
			t.Errorf("injected results missing %q", want)
		}
	}
}

func TestHandleQuery_ScanResultsNotFound(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "get_scan_results", "parameters": {"session_name": "No_Existe"}}`),
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "muéstrame ese escaneo")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if res.Response != "No se encontraron resultados para el escaneo solicitado. Por favor, verifica el ID o nombre." {
		t.Errorf("response = %q", res.Response)
	}
	if llm.callCount() != 1 {
		t.Errorf("llm calls = %d, want 1 (nothing to inject)", llm.callCount())
	}
}

func TestHandleQuery_DetailedHostReport(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "generate_detailed_host_report", "parameters": {"host_ip": "192.168.1.10", "session_name": "Auditoria_Q3"}}`),
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	seedScanData(t, env.store, "Auditoria_Q3")

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "genera el informe de 192.168.1.10")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if !strings.HasPrefix(res.Response, "Informe detallado para 192.168.1.10 en la sesión 'Auditoria_Q3' generado exitosamente: ") {
		t.Errorf("response = %q", res.Response)
	}
	if res.PDFPath == "" {
		t.Error("pdf path not returned")
	}

	if len(env.renderer.calls) != 1 {
		t.Fatalf("renderer calls = %d, want 1", len(env.renderer.calls))
	}
	call := env.renderer.calls[0]
	if call.hostIP != "192.168.1.10" {
		t.Errorf("renderer host ip = %q", call.hostIP)
	}
	if !strings.HasPrefix(call.filename, "detailed_report_192_168_1_10_") {
		t.Errorf("renderer filename = %q", call.filename)
	}
}

func TestHandleQuery_DetailedHostReportMissingParams(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "generate_detailed_host_report", "parameters": {"host_ip": "192.168.1.10"}}`),
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "genera el informe")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if res.Response != "Por favor, especifica tanto la IP del host como el nombre de la sesión para generar el informe detallado." {
		t.Errorf("response = %q", res.Response)
	}
}

func TestHandleQuery_DetailedHostReportUnknownHost(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		intentReply(`{"action": "generate_detailed_host_report", "parameters": {"host_ip": "10.9.9.9", "session_name": "Auditoria_Q3"}}`),
	}}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	seedScanData(t, env.store, "Auditoria_Q3")

	res, err := env.orch.HandleQuery(context.Background(), "chat-1", "genera el informe de 10.9.9.9")
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	want := "No se pudo generar el informe detallado para 10.9.9.9 en la sesión 'Auditoria_Q3'. Verifica que el host exista en esa sesión."
	if res.Response != want {
		t.Errorf("response = %q", res.Response)
	}
}

func TestHandleQuery_ConcurrentChatsDoNotInterleave(t *testing.T) {
	llm := &scriptedLLM{}
	env := newTestEnv(llm, &fakeScanner{result: &command.Result{ExitCode: 0}}, &fakeCVEService{})

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for _, chatID := range []string{"chat-a", "chat-b", "chat-a", "chat-b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := env.orch.HandleQuery(context.Background(), id, "¿qué es nmap?"); err != nil {
				errs <- err
			}
		}(chatID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent query failed: %v", err)
	}
}

// seedScanData stores one completed scan with a host, a service and a
// finding under the given session name.
func seedScanData(t *testing.T, store *persistence.MemoryStore, sessionName string) {
	t.Helper()
	ctx := context.Background()

	scan, err := entity.NewScan(sessionName, "Network Scan", "192.168.1.0/24")
	if err != nil {
		t.Fatalf("seed scan: %v", err)
	}
	scan, err = store.Scans().Create(ctx, scan)
	if err != nil {
		t.Fatalf("seed scan: %v", err)
	}

	host, err := entity.NewHost(scan.ID(), "192.168.1.10", "srv01.local", "Linux 5.15")
	if err != nil {
		t.Fatalf("seed host: %v", err)
	}
	host, err = store.Hosts().Create(ctx, host)
	if err != nil {
		t.Fatalf("seed host: %v", err)
	}

	svc, err := entity.NewService(host.ID(), 22, "tcp", "ssh", "OpenSSH 8.9", "open")
	if err != nil {
		t.Fatalf("seed service: %v", err)
	}
	svc, err = store.Services().Create(ctx, svc)
	if err != nil {
		t.Fatalf("seed service: %v", err)
	}

	hostID := host.ID()
	svcID := svc.ID()
	finding, err := entity.NewFinding(scan.ID(), &hostID, &svcID, "vulnerability",
		"Vulnerabilidad Detectada: SSH con autenticación por contraseña",
		"SSH permite autenticación por contraseña", valueobject.SeverityMedium,
		"Deshabilitar la autenticación por contraseña", nil)
	if err != nil {
		t.Fatalf("seed finding: %v", err)
	}
	if _, err := store.Findings().Create(ctx, finding); err != nil {
		t.Fatalf("seed finding: %v", err)
	}

	if err := scan.Complete("Escaneo completado."); err != nil {
		t.Fatalf("seed scan completion: %v", err)
	}
	if err := store.Scans().Update(ctx, scan); err != nil {
		t.Fatalf("seed scan completion: %v", err)
	}
}
