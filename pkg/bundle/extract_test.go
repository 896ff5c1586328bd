package bundle

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeTestBundle(t *testing.T, manifest string, entries map[string][]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "app.xapk")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	if manifest != "" {
		mw, err := w.Create("manifest.json")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := mw.Write([]byte(manifest)); err != nil {
			t.Fatal(err)
		}
	}
	for name, data := range entries {
		ew, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ew.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestExtractBundle(t *testing.T) {
	manifest := `{
		"package_name": "com.example.game",
		"name": "Example Game",
		"version_code": "120",
		"version_name": "1.2.0",
		"min_sdk_version": "26",
		"split_apks": [
			{"file": "base.apk", "id": "base"},
			{"file": "config.arm64_v8a.apk", "id": "config.arm64_v8a"}
		],
		"expansions": [
			{"file": "main.120.com.example.game.obb", "install_path": "Android/obb/com.example.game/main.120.com.example.game.obb"}
		]
	}`

	path := writeTestBundle(t, manifest, map[string][]byte{
		"base.apk":                      []byte("base"),
		"config.arm64_v8a.apk":          []byte("abi"),
		"config.xxhdpi.apk":             []byte("dpi"),
		"main.120.com.example.game.obb": []byte("obbdata"),
	})

	b, err := Extract(path, t.TempDir())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	defer b.Cleanup()

	if b.PackageID != "com.example.game" {
		t.Errorf("PackageID = %q", b.PackageID)
	}
	if b.VersionCode != 120 || b.VersionName != "1.2.0" {
		t.Errorf("version = %d/%q", b.VersionCode, b.VersionName)
	}
	if b.MinSDK != 26 {
		t.Errorf("MinSDK = %d", b.MinSDK)
	}

	if len(b.Splits) != 3 {
		t.Fatalf("got %d splits, want 3", len(b.Splits))
	}
	base, ok := b.Base()
	if !ok || base.Name != "base.apk" {
		t.Errorf("base = %q (found %v)", base.Name, ok)
	}

	if len(b.OBBs) != 1 {
		t.Fatalf("got %d OBBs, want 1", len(b.OBBs))
	}
	if b.OBBs[0].InstallPath == "" {
		t.Error("OBB install path should come from the manifest")
	}

	for _, s := range b.Splits {
		if _, err := os.Stat(s.Path); err != nil {
			t.Errorf("split %s not extracted: %v", s.Name, err)
		}
	}
}

func TestExtractRejectsEmptyBundle(t *testing.T) {
	path := writeTestBundle(t, "", map[string][]byte{
		"readme.txt": []byte("nothing here"),
	})

	if _, err := Extract(path, t.TempDir()); err == nil {
		t.Error("expected error for bundle without APKs")
	}
}

func TestExtractCleanup(t *testing.T) {
	manifest := `{"package_name": "com.example.app"}`
	path := writeTestBundle(t, manifest, map[string][]byte{
		"base.apk": []byte("base"),
	})

	b, err := Extract(path, t.TempDir())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if err := b.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(b.ExtractDir); !os.IsNotExist(err) {
		t.Error("extraction directory should be removed")
	}
}
