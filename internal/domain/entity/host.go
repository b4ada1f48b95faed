package entity

// Host is a live host discovered by a scan.
type Host struct {
	id        uint
	scanID    uint
	ipAddress string
	hostname  string
	os        string
}

// NewHost creates a host discovered within the given scan.
func NewHost(scanID uint, ipAddress, hostname, os string) (*Host, error) {
	if scanID == 0 {
		return nil, ErrInvalidScanID
	}
	if ipAddress == "" {
		return nil, ErrInvalidIPAddress
	}
	if hostname == "" {
		hostname = ipAddress
	}

	return &Host{
		scanID:    scanID,
		ipAddress: ipAddress,
		hostname:  hostname,
		os:        os,
	}, nil
}

// ReconstructHost rebuilds a host from persisted state.
func ReconstructHost(id, scanID uint, ipAddress, hostname, os string) *Host {
	return &Host{
		id:        id,
		scanID:    scanID,
		ipAddress: ipAddress,
		hostname:  hostname,
		os:        os,
	}
}

// ID returns the host ID.
func (h *Host) ID() uint {
	return h.id
}

// ScanID returns the ID of the owning scan.
func (h *Host) ScanID() uint {
	return h.scanID
}

// IPAddress returns the host IP address.
func (h *Host) IPAddress() string {
	return h.ipAddress
}

// Hostname returns the resolved hostname, or the IP when none resolved.
func (h *Host) Hostname() string {
	return h.hostname
}

// OS returns the detected operating system description.
func (h *Host) OS() string {
	return h.os
}
