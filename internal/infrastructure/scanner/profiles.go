package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mollysec/molly/pkg/safego"
)

// Profile is a named nmap argument set.
type Profile struct {
	Description string   `yaml:"description"`
	Args        []string `yaml:"args"`
}

// profilesFile is the on-disk YAML layout of the profile catalog.
type profilesFile struct {
	BaseArgs     []string           `yaml:"base_args"`
	FallbackArgs []string           `yaml:"fallback_args"`
	Profiles     map[string]Profile `yaml:"profiles"`
}

// ProfileStore holds the nmap scan profiles. It starts from the built-in
// catalog, overlays the YAML file at path when present, and hot-reloads
// the file on change.
type ProfileStore struct {
	path    string
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu           sync.RWMutex
	baseArgs     []string
	fallbackArgs []string
	profiles     map[string]Profile
}

// defaultProfiles returns the built-in scan profile catalog.
func defaultProfiles() profilesFile {
	return profilesFile{
		BaseArgs:     []string{"-T4"},
		FallbackArgs: []string{"-sS", "-sV"},
		Profiles: map[string]Profile{
			"default_scan": {
				Description: "SYN scan with service and OS detection, tuned for fast local networks",
				Args: []string{
					"-sS", "-sV", "-O",
					"--min-rate", "500", "--max-rate", "1000",
					"--min-rtt-timeout", "100ms", "--max-rtt-timeout", "1000ms",
					"--initial-rtt-timeout", "500ms",
					"--open",
				},
			},
			"os_detection": {
				Description: "OS fingerprinting only",
				Args:        []string{"-O"},
			},
			"full_tcp_udp_scan": {
				Description: "TCP and UDP sweep over the well-known port range",
				Args:        []string{"-sS", "-sU", "-p", "1-1024", "--max-rate", "500", "--open"},
			},
			"vulnerability_script_scan": {
				Description: "Service detection plus the NSE vuln script set",
				Args:        []string{"-sV", "-sC", "--script", "vuln"},
			},
		},
	}
}

// NewProfileStore creates a profile store backed by the YAML file at path.
// A missing file is not an error; the built-in catalog applies.
func NewProfileStore(path string, logger *zap.Logger) (*ProfileStore, error) {
	store := &ProfileStore{
		path:   path,
		logger: logger,
	}
	store.apply(defaultProfiles())

	if path != "" {
		if err := store.Load(); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			logger.Info("Profile file not found, using built-in catalog",
				zap.String("path", path),
			)
		}
	}

	return store, nil
}

// Load re-reads the YAML profile file and replaces the catalog.
func (s *ProfileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse profiles file: %w", err)
	}

	// Missing sections in the file keep their built-in values.
	defaults := defaultProfiles()
	if file.BaseArgs == nil {
		file.BaseArgs = defaults.BaseArgs
	}
	if file.FallbackArgs == nil {
		file.FallbackArgs = defaults.FallbackArgs
	}
	if file.Profiles == nil {
		file.Profiles = defaults.Profiles
	}

	s.apply(file)
	s.logger.Info("Scan profiles loaded",
		zap.String("path", s.path),
		zap.Int("profiles", len(file.Profiles)),
	)
	return nil
}

func (s *ProfileStore) apply(file profilesFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseArgs = file.BaseArgs
	s.fallbackArgs = file.FallbackArgs
	s.profiles = file.Profiles
}

// StartWatching hot-reloads the profile file when it changes on disk.
// Editors replace files by rename, so the parent directory is watched
// and events are filtered by file name.
func (s *ProfileStore) StartWatching(done <-chan struct{}) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	s.watcher = watcher

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch profiles dir: %w", err)
	}

	safego.Go(s.logger, "profile-watcher", func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.handleWatchEvent(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("Profile watcher error", zap.Error(err))
			}
		}
	})

	s.logger.Info("Scan profile hot-reload watching started",
		zap.String("path", s.path),
	)
	return nil
}

func (s *ProfileStore) handleWatchEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != filepath.Base(s.path) {
		return
	}

	switch {
	case event.Op&fsnotify.Write == fsnotify.Write,
		event.Op&fsnotify.Create == fsnotify.Create:
		s.logger.Info("Scan profiles changed, reloading")
		if err := s.Load(); err != nil {
			s.logger.Error("Failed to reload scan profiles", zap.Error(err))
		}

	case event.Op&fsnotify.Remove == fsnotify.Remove:
		s.logger.Info("Scan profile file removed, restoring built-in catalog")
		s.apply(defaultProfiles())
	}
}

// Close stops the file watcher.
func (s *ProfileStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// BuildArgs assembles the nmap arguments for a profile. Unknown profile
// names get the fallback argument set; a non-empty ports spec appends a
// -p selector. The target is not included.
func (s *ProfileStore) BuildArgs(profileName, ports string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	args := make([]string, 0, 16)
	args = append(args, s.baseArgs...)

	if profile, ok := s.profiles[profileName]; ok {
		args = append(args, profile.Args...)
	} else {
		args = append(args, s.fallbackArgs...)
	}

	if ports != "" {
		args = append(args, "-p", ports)
	}

	return args
}

// Names returns the known profile names, sorted.
func (s *ProfileStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
