package scanner

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewProfileStore_BuiltInCatalog(t *testing.T) {
	store, err := NewProfileStore("", zap.NewNop())
	if err != nil {
		t.Fatalf("NewProfileStore failed: %v", err)
	}

	names := store.Names()
	want := []string{"default_scan", "full_tcp_udp_scan", "os_detection", "vulnerability_script_scan"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Names() = %v, want %v", names, want)
	}
}

func TestNewProfileStore_MissingFileUsesBuiltIns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")
	store, err := NewProfileStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if len(store.Names()) != 4 {
		t.Errorf("profiles = %v", store.Names())
	}
}

func TestBuildArgs_KnownProfile(t *testing.T) {
	store, err := NewProfileStore("", zap.NewNop())
	if err != nil {
		t.Fatalf("NewProfileStore failed: %v", err)
	}

	args := store.BuildArgs("os_detection", "")
	want := []string{"-T4", "-O"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("BuildArgs = %v, want %v", args, want)
	}
}

func TestBuildArgs_UnknownProfileFallsBack(t *testing.T) {
	store, err := NewProfileStore("", zap.NewNop())
	if err != nil {
		t.Fatalf("NewProfileStore failed: %v", err)
	}

	args := store.BuildArgs("no_such_profile", "")
	want := []string{"-T4", "-sS", "-sV"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("BuildArgs = %v, want %v", args, want)
	}
}

func TestBuildArgs_AppendsPortSelector(t *testing.T) {
	store, err := NewProfileStore("", zap.NewNop())
	if err != nil {
		t.Fatalf("NewProfileStore failed: %v", err)
	}

	args := store.BuildArgs("os_detection", "22,80,443")
	want := []string{"-T4", "-O", "-p", "22,80,443"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("BuildArgs = %v, want %v", args, want)
	}
}

const customProfilesYAML = `
base_args: ["-T3"]
profiles:
  quick_ping:
    description: "Ping sweep only"
    args: ["-sn"]
`

func TestLoad_OverlaysFileAndKeepsMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(customProfilesYAML), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	store, err := NewProfileStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewProfileStore failed: %v", err)
	}

	// The file replaces base args and the profile map wholesale.
	args := store.BuildArgs("quick_ping", "")
	want := []string{"-T3", "-sn"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("BuildArgs = %v, want %v", args, want)
	}

	// fallback_args was absent from the file, so the built-in set applies.
	args = store.BuildArgs("default_scan", "")
	want = []string{"-T3", "-sS", "-sV"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("fallback BuildArgs = %v, want %v", args, want)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte("profiles: [not a map"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := NewProfileStore(path, zap.NewNop()); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestStartWatching_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")

	store, err := NewProfileStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewProfileStore failed: %v", err)
	}

	done := make(chan struct{})
	defer close(done)
	if err := store.StartWatching(done); err != nil {
		t.Fatalf("StartWatching failed: %v", err)
	}
	defer store.Close()

	if err := os.WriteFile(path, []byte(customProfilesYAML), 0o644); err != nil {
		t.Fatalf("writing profiles file: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, name := range store.Names() {
			if name == "quick_ping" {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("profile catalog not reloaded, names = %v", store.Names())
}

func TestNmapScannerCommand(t *testing.T) {
	store, err := NewProfileStore("", zap.NewNop())
	if err != nil {
		t.Fatalf("NewProfileStore failed: %v", err)
	}
	s := NewNmapScanner("", store, nil, zap.NewNop())

	got := s.Command("192.168.1.0/24", "os_detection", "")
	if got != "nmap -T4 -O 192.168.1.0/24" {
		t.Errorf("Command = %q", got)
	}
}
