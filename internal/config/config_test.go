package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// An empty file keeps defaults without picking up a config.yaml
	// from the working directory.
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Profiles.UseEphemeralUsers {
		t.Error("use_ephemeral_users must default to false")
	}
	if !cfg.Spoof.BackupOriginalProperties {
		t.Error("backup_original_properties must default to true")
	}
	if !cfg.Spoof.SpoofFingerprint || !cfg.Spoof.SpoofSerial ||
		!cfg.Spoof.SpoofDeviceIdentity || !cfg.Spoof.SpoofVersionProps {
		t.Error("all spoof property groups must default to enabled")
	}
	if cfg.Profiles.DefaultMaxUsers != 4 {
		t.Errorf("default_max_users = %d, want 4", cfg.Profiles.DefaultMaxUsers)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `profiles:
  use_ephemeral_users: true
spoof:
  spoof_serial: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.Profiles.UseEphemeralUsers {
		t.Error("use_ephemeral_users override not applied")
	}
	if cfg.Spoof.SpoofSerial {
		t.Error("spoof_serial override not applied")
	}
	if !cfg.Spoof.SpoofFingerprint {
		t.Error("untouched group toggles keep their defaults")
	}
}
