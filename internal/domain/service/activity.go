package service

import (
	"sync"

	"go.uber.org/zap"
)

// DiscoveredHost is one host found by the scan in progress.
type DiscoveredHost struct {
	IPAddress string `json:"ip_address"`
	HostID    uint   `json:"host_db_id"`
}

// DiscoveredService is one open service found on a discovered host.
type DiscoveredService struct {
	Port        int    `json:"port"`
	ServiceName string `json:"service_name"`
	ServiceID   uint   `json:"service_db_id"`
}

// ScanInfo describes the scan the activity tracker currently points at.
// Fields are nil when no scan has been started yet.
type ScanInfo struct {
	ScanID      *uint   `json:"scan_id"`
	SessionName *string `json:"session_name"`
	ScanType    *string `json:"scan_type"`
	Target      *string `json:"target"`
}

// ActivityTracker holds the operational context of the most recent scan:
// which scan is running, which host is under analysis, and what has been
// discovered so far. The HTTP status endpoints read it while a pipeline
// writes it, so all access goes through the mutex.
type ActivityTracker struct {
	mu sync.RWMutex

	scanID      *uint
	sessionName string
	scanType    string
	target      string

	currentHostID *uint
	currentHostIP string

	hosts    []DiscoveredHost
	services map[string][]DiscoveredService

	logger *zap.Logger
}

// NewActivityTracker creates an empty tracker with no active scan.
func NewActivityTracker(logger *zap.Logger) *ActivityTracker {
	return &ActivityTracker{
		services: make(map[string][]DiscoveredService),
		logger:   logger,
	}
}

// StartScan points the tracker at a new scan and discards the host and
// service context of any previous one.
func (t *ActivityTracker) StartScan(scanID uint, sessionName, scanType, target string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := scanID
	t.scanID = &id
	t.sessionName = sessionName
	t.scanType = scanType
	t.target = target

	t.currentHostID = nil
	t.currentHostIP = ""
	t.hosts = nil
	t.services = make(map[string][]DiscoveredService)

	t.logger.Info("Scan session started",
		zap.Uint("scan_id", scanID),
		zap.String("session_name", sessionName),
		zap.String("target", target),
	)
}

// SetCurrentHost records the host currently being analyzed in detail.
func (t *ActivityTracker) SetCurrentHost(hostID uint, ipAddress string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := hostID
	t.currentHostID = &id
	t.currentHostIP = ipAddress
}

// AddHost records a discovered host. Duplicate entries are ignored.
func (t *ActivityTracker) AddHost(ipAddress string, hostID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, h := range t.hosts {
		if h.IPAddress == ipAddress && h.HostID == hostID {
			return
		}
	}
	t.hosts = append(t.hosts, DiscoveredHost{IPAddress: ipAddress, HostID: hostID})
	t.logger.Debug("Host added to scan session",
		zap.String("ip_address", ipAddress),
		zap.Uint("host_id", hostID),
	)
}

// AddService records a discovered service for a host. Duplicates are ignored.
func (t *ActivityTracker) AddService(ipAddress string, port int, serviceName string, serviceID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	svc := DiscoveredService{Port: port, ServiceName: serviceName, ServiceID: serviceID}
	for _, s := range t.services[ipAddress] {
		if s == svc {
			return
		}
	}
	t.services[ipAddress] = append(t.services[ipAddress], svc)
}

// Clear forgets the active scan and everything discovered in it.
func (t *ActivityTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.scanID = nil
	t.sessionName = ""
	t.scanType = ""
	t.target = ""
	t.currentHostID = nil
	t.currentHostIP = ""
	t.hosts = nil
	t.services = make(map[string][]DiscoveredService)
}

// CurrentScanInfo returns the active scan context. All fields are nil when
// no scan has run since startup; the status endpoints serialize that as-is.
func (t *ActivityTracker) CurrentScanInfo() ScanInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info := ScanInfo{}
	if t.scanID != nil {
		id := *t.scanID
		info.ScanID = &id
		name, scanType, target := t.sessionName, t.scanType, t.target
		info.SessionName = &name
		info.ScanType = &scanType
		info.Target = &target
	}
	return info
}

// ActiveSessionName returns the session name of the active scan, or "".
func (t *ActivityTracker) ActiveSessionName() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessionName
}

// IsActive reports whether a scan has been started and not cleared.
func (t *ActivityTracker) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scanID != nil
}

// Hosts returns a copy of the discovered host list.
func (t *ActivityTracker) Hosts() []DiscoveredHost {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]DiscoveredHost, len(t.hosts))
	copy(out, t.hosts)
	return out
}

// ServicesForHost returns a copy of the services discovered on one host.
func (t *ActivityTracker) ServicesForHost(ipAddress string) []DiscoveredService {
	t.mu.RLock()
	defer t.mu.RUnlock()

	svcs := t.services[ipAddress]
	out := make([]DiscoveredService, len(svcs))
	copy(out, svcs)
	return out
}
