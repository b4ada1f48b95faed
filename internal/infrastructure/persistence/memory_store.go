package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/mollysec/molly/internal/domain/entity"
	"github.com/mollysec/molly/internal/domain/repository"
	domainErrors "github.com/mollysec/molly/pkg/errors"
)

// MemoryStore is an in-memory implementation of all scan repositories,
// used for development and tests. It enforces the same invariants as the
// database-backed repositories: unique session names, referential
// integrity and forward-only scan status transitions.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   map[string]uint
	scans    map[uint]*entity.Scan
	hosts    map[uint]*entity.Host
	services map[uint]*entity.Service
	findings map[uint]*entity.Finding
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   make(map[string]uint),
		scans:    make(map[uint]*entity.Scan),
		hosts:    make(map[uint]*entity.Host),
		services: make(map[uint]*entity.Service),
		findings: make(map[uint]*entity.Finding),
	}
}

func (s *MemoryStore) allocID(table string) uint {
	s.nextID[table]++
	return s.nextID[table]
}

// Scans returns the scan repository view of the store.
func (s *MemoryStore) Scans() repository.ScanRepository {
	return &memoryScanRepository{store: s}
}

// Hosts returns the host repository view of the store.
func (s *MemoryStore) Hosts() repository.HostRepository {
	return &memoryHostRepository{store: s}
}

// Services returns the service repository view of the store.
func (s *MemoryStore) Services() repository.ServiceRepository {
	return &memoryServiceRepository{store: s}
}

// Findings returns the finding repository view of the store.
func (s *MemoryStore) Findings() repository.FindingRepository {
	return &memoryFindingRepository{store: s}
}

type memoryScanRepository struct {
	store *MemoryStore
}

func (r *memoryScanRepository) Create(ctx context.Context, scan *entity.Scan) (*entity.Scan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.scans {
		if existing.SessionName() == scan.SessionName() {
			return nil, domainErrors.NewAlreadyExistsError("scan session name already exists: " + scan.SessionName())
		}
	}

	id := r.store.allocID("scans")
	stored := entity.ReconstructScan(id, scan.SessionName(), scan.ScanType(), scan.Target(),
		scan.StartTime(), scan.EndTime(), scan.Status(), scan.Summary(), scan.ResultsPath())
	r.store.scans[id] = stored
	return stored, nil
}

func (r *memoryScanRepository) Update(ctx context.Context, scan *entity.Scan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.scans[scan.ID()]
	if !ok {
		return domainErrors.NewNotFoundError("scan not found")
	}
	if !current.Status().CanTransitionTo(scan.Status()) {
		return domainErrors.NewInvalidInputError("scan status cannot move from " + string(current.Status()) + " back to " + string(scan.Status()))
	}

	r.store.scans[scan.ID()] = entity.ReconstructScan(scan.ID(), scan.SessionName(), scan.ScanType(),
		scan.Target(), scan.StartTime(), scan.EndTime(), scan.Status(), scan.Summary(), scan.ResultsPath())
	return nil
}

func (r *memoryScanRepository) FindByID(ctx context.Context, id uint) (*entity.Scan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	scan, ok := r.store.scans[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("scan not found")
	}
	return scan, nil
}

func (r *memoryScanRepository) FindBySessionName(ctx context.Context, sessionName string) (*entity.Scan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, scan := range r.store.scans {
		if scan.SessionName() == sessionName {
			return scan, nil
		}
	}
	return nil, domainErrors.NewNotFoundError("scan not found")
}

func (r *memoryScanRepository) FindAll(ctx context.Context) ([]*entity.Scan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	scans := make([]*entity.Scan, 0, len(r.store.scans))
	for _, scan := range r.store.scans {
		scans = append(scans, scan)
	}
	sort.Slice(scans, func(i, j int) bool {
		return scans[i].StartTime().After(scans[j].StartTime())
	})
	return scans, nil
}

type memoryHostRepository struct {
	store *MemoryStore
}

func (r *memoryHostRepository) Create(ctx context.Context, host *entity.Host) (*entity.Host, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.scans[host.ScanID()]; !ok {
		return nil, domainErrors.NewInvalidInputError("host references a scan that does not exist")
	}

	id := r.store.allocID("hosts")
	stored := entity.ReconstructHost(id, host.ScanID(), host.IPAddress(), host.Hostname(), host.OS())
	r.store.hosts[id] = stored
	return stored, nil
}

func (r *memoryHostRepository) FindByScanID(ctx context.Context, scanID uint) ([]*entity.Host, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	hosts := make([]*entity.Host, 0)
	for _, host := range r.store.hosts {
		if host.ScanID() == scanID {
			hosts = append(hosts, host)
		}
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].ID() < hosts[j].ID() })
	return hosts, nil
}

func (r *memoryHostRepository) FindByIPAndScanID(ctx context.Context, ipAddress string, scanID uint) (*entity.Host, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, host := range r.store.hosts {
		if host.ScanID() == scanID && host.IPAddress() == ipAddress {
			return host, nil
		}
	}
	return nil, domainErrors.NewNotFoundError("host not found")
}

type memoryServiceRepository struct {
	store *MemoryStore
}

func (r *memoryServiceRepository) Create(ctx context.Context, service *entity.Service) (*entity.Service, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.hosts[service.HostID()]; !ok {
		return nil, domainErrors.NewInvalidInputError("service references a host that does not exist")
	}

	id := r.store.allocID("services")
	stored := entity.ReconstructService(id, service.HostID(), service.Port(), service.Protocol(),
		service.Name(), service.Version(), service.State())
	r.store.services[id] = stored
	return stored, nil
}

func (r *memoryServiceRepository) FindByID(ctx context.Context, id uint) (*entity.Service, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	service, ok := r.store.services[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("service not found")
	}
	return service, nil
}

func (r *memoryServiceRepository) FindByHostID(ctx context.Context, hostID uint) ([]*entity.Service, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	services := make([]*entity.Service, 0)
	for _, service := range r.store.services {
		if service.HostID() == hostID {
			services = append(services, service)
		}
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Port() < services[j].Port() })
	return services, nil
}

func (r *memoryServiceRepository) FindByPortAndHostID(ctx context.Context, port int, hostID uint) (*entity.Service, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, service := range r.store.services {
		if service.HostID() == hostID && service.Port() == port {
			return service, nil
		}
	}
	return nil, domainErrors.NewNotFoundError("service not found")
}

type memoryFindingRepository struct {
	store *MemoryStore
}

func (r *memoryFindingRepository) Create(ctx context.Context, finding *entity.Finding) (*entity.Finding, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.scans[finding.ScanID()]; !ok {
		return nil, domainErrors.NewInvalidInputError("finding references a scan that does not exist")
	}
	if finding.HostID() != nil {
		if _, ok := r.store.hosts[*finding.HostID()]; !ok {
			return nil, domainErrors.NewInvalidInputError("finding references a host that does not exist")
		}
	}
	if finding.ServiceID() != nil {
		if _, ok := r.store.services[*finding.ServiceID()]; !ok {
			return nil, domainErrors.NewInvalidInputError("finding references a service that does not exist")
		}
	}

	id := r.store.allocID("findings")
	stored := entity.ReconstructFinding(id, finding.ScanID(), finding.HostID(), finding.ServiceID(),
		finding.FindingType(), finding.Title(), finding.Description(), finding.Severity(),
		finding.Recommendation(), finding.Details(), finding.Timestamp())
	r.store.findings[id] = stored
	return stored, nil
}

func (r *memoryFindingRepository) FindByScanID(ctx context.Context, scanID uint) ([]*entity.Finding, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	findings := make([]*entity.Finding, 0)
	for _, finding := range r.store.findings {
		if finding.ScanID() == scanID {
			findings = append(findings, finding)
		}
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].ID() < findings[j].ID() })
	return findings, nil
}

func (r *memoryFindingRepository) FindByHostID(ctx context.Context, hostID uint) ([]*entity.Finding, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	findings := make([]*entity.Finding, 0)
	for _, finding := range r.store.findings {
		if finding.HostID() != nil && *finding.HostID() == hostID {
			findings = append(findings, finding)
		}
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].ID() < findings[j].ID() })
	return findings, nil
}
