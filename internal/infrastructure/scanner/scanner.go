package scanner

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/infrastructure/command"
)

// NmapScanner builds and runs nmap commands from the profile catalog.
type NmapScanner struct {
	nmapPath string
	profiles *ProfileStore
	executor *command.Executor
	logger   *zap.Logger
}

// NewNmapScanner creates an nmap scanner.
func NewNmapScanner(nmapPath string, profiles *ProfileStore, executor *command.Executor, logger *zap.Logger) *NmapScanner {
	if nmapPath == "" {
		nmapPath = "nmap"
	}
	return &NmapScanner{
		nmapPath: nmapPath,
		profiles: profiles,
		executor: executor,
		logger:   logger,
	}
}

// Command returns the full command line for a scan, for logging and
// operator visibility.
func (s *NmapScanner) Command(target, profileName, ports string) string {
	argv := append([]string{s.nmapPath}, s.args(target, profileName, ports)...)
	return strings.Join(argv, " ")
}

// Scan runs nmap against the target using the named profile.
// Failures are encoded in the result's exit code.
func (s *NmapScanner) Scan(ctx context.Context, target, profileName, ports string) *command.Result {
	args := s.args(target, profileName, ports)

	s.logger.Info("Starting nmap scan",
		zap.String("target", target),
		zap.String("profile", profileName),
		zap.String("ports", ports),
	)

	return s.executor.Run(ctx, s.nmapPath, args)
}

// Profiles exposes the profile catalog.
func (s *NmapScanner) Profiles() *ProfileStore {
	return s.profiles
}

func (s *NmapScanner) args(target, profileName, ports string) []string {
	args := s.profiles.BuildArgs(profileName, ports)
	return append(args, target)
}
