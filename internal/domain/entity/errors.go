package entity

import "errors"

var (
	// Scan errors
	ErrInvalidSessionName      = errors.New("invalid session name")
	ErrInvalidScanType         = errors.New("invalid scan type")
	ErrInvalidTarget           = errors.New("invalid target")
	ErrInvalidStatusTransition = errors.New("invalid scan status transition")

	// Host errors
	ErrInvalidScanID    = errors.New("invalid scan id")
	ErrInvalidIPAddress = errors.New("invalid ip address")

	// Service errors
	ErrInvalidHostID   = errors.New("invalid host id")
	ErrInvalidPort     = errors.New("invalid port")
	ErrInvalidProtocol = errors.New("invalid protocol")

	// Finding errors
	ErrInvalidFindingType  = errors.New("invalid finding type")
	ErrInvalidFindingTitle = errors.New("invalid finding title")
)
