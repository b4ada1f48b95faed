package entity

// Service is an open network service detected on a host.
type Service struct {
	id       uint
	hostID   uint
	port     int
	protocol string
	name     string
	version  string
	state    string
}

// NewService creates a detected service on the given host.
func NewService(hostID uint, port int, protocol, name, version, state string) (*Service, error) {
	if hostID == 0 {
		return nil, ErrInvalidHostID
	}
	if port <= 0 || port > 65535 {
		return nil, ErrInvalidPort
	}
	if protocol == "" {
		return nil, ErrInvalidProtocol
	}

	return &Service{
		hostID:   hostID,
		port:     port,
		protocol: protocol,
		name:     name,
		version:  version,
		state:    state,
	}, nil
}

// ReconstructService rebuilds a service from persisted state.
func ReconstructService(id, hostID uint, port int, protocol, name, version, state string) *Service {
	return &Service{
		id:       id,
		hostID:   hostID,
		port:     port,
		protocol: protocol,
		name:     name,
		version:  version,
		state:    state,
	}
}

// ID returns the service ID.
func (s *Service) ID() uint {
	return s.id
}

// HostID returns the ID of the owning host.
func (s *Service) HostID() uint {
	return s.hostID
}

// Port returns the port number.
func (s *Service) Port() int {
	return s.port
}

// Protocol returns the transport protocol (tcp, udp).
func (s *Service) Protocol() string {
	return s.protocol
}

// Name returns the detected service name.
func (s *Service) Name() string {
	return s.name
}

// Version returns the detected product version banner.
func (s *Service) Version() string {
	return s.version
}

// State returns the nmap port state (open, filtered).
func (s *Service) State() string {
	return s.state
}
