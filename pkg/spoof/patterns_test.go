package spoof

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCatalogYAMLMergesOverDefaults(t *testing.T) {
	path := writeCatalog(t, "patterns.yaml", `
manufacturers:
  fairphone:
    brand: Fairphone
    manufacturer: Fairphone
    serial_pattern: "FP{8}"
    incremental_style: numeric
    devices:
      - model: FP5
        device: FP5
        product: FP5
android_versions:
  "15":
    release: "15"
    sdk: 35
    build_prefix: AP4A
`)

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	if _, ok := cat.Manufacturers["fairphone"]; !ok {
		t.Error("loaded manufacturer missing")
	}
	if _, ok := cat.Manufacturers["samsung"]; !ok {
		t.Error("default manufacturers must survive the merge")
	}
	if cat.AndroidVersions["15"].SDK != 35 {
		t.Errorf("SDK = %d, want 35", cat.AndroidVersions["15"].SDK)
	}

	gen := NewGenerator(cat, 7)
	id, err := gen.Generate("fairphone", "15")
	if err != nil {
		t.Fatalf("Generate from loaded catalog: %v", err)
	}
	if len(id.Serial) != 10 || id.Serial[:2] != "FP" {
		t.Errorf("serial %q does not match FP{8}", id.Serial)
	}
}

func TestLoadCatalogHonorsEmptyPropsList(t *testing.T) {
	path := writeCatalog(t, "patterns.yaml", `
props_to_spoof: []
`)

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	if got := cat.SpoofProps(); len(got) != 0 {
		t.Errorf("explicitly empty props_to_spoof must stay empty, got %v", got)
	}
}

func TestLoadCatalogTOML(t *testing.T) {
	path := writeCatalog(t, "patterns.toml", `
props_to_spoof = ["ro.product.model"]

[manufacturers.sony]
brand = "Sony"
manufacturer = "Sony"
serial_pattern = "{7}"
incremental_style = "numeric"

[[manufacturers.sony.devices]]
model = "XQ-DQ54"
device = "pdx234"
product = "pdx234"
`)

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	if _, ok := cat.Manufacturers["sony"]; !ok {
		t.Error("TOML manufacturer missing")
	}
	props := cat.SpoofProps()
	if len(props) != 1 || props[0] != "ro.product.model" {
		t.Errorf("SpoofProps = %v", props)
	}
}

func TestLoadCatalogBadExtension(t *testing.T) {
	path := writeCatalog(t, "patterns.json", `{}`)

	if _, err := LoadCatalog(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestDefaultCatalogComplete(t *testing.T) {
	cat := DefaultCatalog()

	for _, m := range []string{"samsung", "google", "xiaomi", "oneplus", "oppo"} {
		pat, ok := cat.Manufacturers[m]
		if !ok {
			t.Errorf("manufacturer %s missing from default catalog", m)
			continue
		}
		if len(pat.Devices) == 0 || pat.SerialPattern == "" {
			t.Errorf("manufacturer %s is incomplete", m)
		}
	}

	for _, v := range []string{"10", "11", "12", "13", "14"} {
		if _, ok := cat.AndroidVersions[v]; !ok {
			t.Errorf("Android version %s missing from default catalog", v)
		}
	}
}
