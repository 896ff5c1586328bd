package bundle

import (
	"testing"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
)

func arm64Device() *adb.DeviceProfile {
	return &adb.DeviceProfile{
		DeviceID: "dev1",
		SDK:      33,
		ABIs:     []string{"arm64-v8a", "armeabi-v7a", "armeabi"},
		Density:  420, // xxhdpi
		Locale:   "en-US",
	}
}

func testBundle(names ...string) *Bundle {
	b := &Bundle{PackageID: "com.example.app"}
	for _, name := range names {
		kind, qual := classifySplit(name)
		b.Splits = append(b.Splits, SplitFile{
			Path:      "/tmp/" + name,
			Name:      name,
			Kind:      kind,
			Qualifier: qual,
			Size:      100,
		})
	}
	return b
}

func selectedNames(sel Selection) map[string]bool {
	names := make(map[string]bool)
	for _, f := range sel.Files {
		names[f.Name] = true
	}
	return names
}

func TestSelectMatchesDeviceConfiguration(t *testing.T) {
	b := testBundle(
		"base.apk",
		"config.arm64_v8a.apk",
		"config.x86.apk",
		"config.xxhdpi.apk",
		"config.ldpi.apk",
		"config.en.apk",
	)

	sel, err := Select(b, arm64Device())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	got := selectedNames(sel)
	for _, want := range []string{"base.apk", "config.arm64_v8a.apk", "config.xxhdpi.apk", "config.en.apk"} {
		if !got[want] {
			t.Errorf("missing expected split %s", want)
		}
	}
	for _, reject := range []string{"config.x86.apk", "config.ldpi.apk"} {
		if got[reject] {
			t.Errorf("split %s must not be selected", reject)
		}
	}

	if len(sel.Skipped) != 2 {
		t.Errorf("skipped %d splits, want 2", len(sel.Skipped))
	}
	if sel.Files[0].Name != "base.apk" {
		t.Errorf("first selected file = %s, want base.apk", sel.Files[0].Name)
	}
}

func TestSelectNodpiFallback(t *testing.T) {
	b := testBundle("base.apk", "config.nodpi.apk", "config.mdpi.apk")

	sel, err := Select(b, arm64Device())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	got := selectedNames(sel)
	if !got["config.nodpi.apk"] {
		t.Error("nodpi split should be selected when no density bucket matches")
	}
	if got["config.mdpi.apk"] {
		t.Error("mdpi split must not be selected on an xxhdpi device")
	}
}

func TestSelectNodpiSkippedWhenBucketMatches(t *testing.T) {
	b := testBundle("base.apk", "config.nodpi.apk", "config.xxhdpi.apk")

	sel, err := Select(b, arm64Device())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	got := selectedNames(sel)
	if !got["config.xxhdpi.apk"] || got["config.nodpi.apk"] {
		t.Errorf("selected = %v, want xxhdpi only", got)
	}
}

func TestSelectKeepsUnknownSplits(t *testing.T) {
	b := testBundle("base.apk", "feature_assets.apk")

	sel, err := Select(b, arm64Device())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if !selectedNames(sel)["feature_assets.apk"] {
		t.Error("unknown splits must be kept")
	}
}

func TestSelectWarnsOnNoABIMatch(t *testing.T) {
	b := testBundle("base.apk", "config.x86.apk")

	sel, err := Select(b, arm64Device())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if len(sel.Warnings) == 0 {
		t.Error("expected a warning when no ABI split matches the device")
	}
}

func TestSelectNoBase(t *testing.T) {
	b := testBundle("config.en.apk")

	if _, err := Select(b, arm64Device()); err == nil {
		t.Error("expected error for bundle without base APK")
	}
}

func TestSelectOrdersBaseFirstThenByName(t *testing.T) {
	b := testBundle(
		"base.apk",
		"config.zz.apk",
		"config.xxhdpi.apk",
		"config.arm64_v8a.apk",
		"config.en.apk",
	)

	sel, err := Select(b, arm64Device())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if sel.Files[0].Name != "base.apk" {
		t.Fatalf("first file = %s, want base.apk", sel.Files[0].Name)
	}
	for i := 2; i < len(sel.Files); i++ {
		if sel.Files[i-1].Name > sel.Files[i].Name {
			t.Errorf("splits out of order: %s before %s", sel.Files[i-1].Name, sel.Files[i].Name)
		}
	}
}
