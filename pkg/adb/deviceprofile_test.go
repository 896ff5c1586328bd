package adb_test

import (
	"context"
	"testing"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb/adbtest"
)

func TestReadDeviceProfile(t *testing.T) {
	fake := adbtest.New()
	fake.Stdout("getprop ro.build.version.sdk", "33\n")
	fake.Stdout("getprop ro.build.version.release", "13\n")
	fake.Stdout("getprop ro.product.brand", "google\n")
	fake.Stdout("getprop ro.product.manufacturer", "Google\n")
	fake.Stdout("getprop ro.product.model", "Pixel 6\n")
	fake.Stdout("getprop ro.product.name", "oriole\n")
	fake.Stdout("getprop ro.product.cpu.abilist", "arm64-v8a,armeabi-v7a,armeabi\n")
	fake.Stdout("wm density", "Physical density: 420\n")
	fake.Stdout("getprop persist.sys.locale", "en-US\n")

	profile, err := adb.ReadDeviceProfile(context.Background(), fake, "dev1")
	if err != nil {
		t.Fatalf("ReadDeviceProfile: %v", err)
	}

	if profile.SDK != 33 || profile.Release != "13" {
		t.Errorf("SDK/Release = %d/%s, want 33/13", profile.SDK, profile.Release)
	}
	if len(profile.ABIs) != 3 || profile.ABIs[0] != "arm64-v8a" {
		t.Errorf("ABIs = %v", profile.ABIs)
	}
	if profile.Density != 420 {
		t.Errorf("Density = %d, want 420", profile.Density)
	}
	if profile.Language() != "en" {
		t.Errorf("Language = %q, want en", profile.Language())
	}
}

func TestReadDeviceProfileOverrideDensity(t *testing.T) {
	fake := adbtest.New()
	fake.Stdout("getprop ro.build.version.sdk", "34\n")
	fake.Stdout("wm density", "Physical density: 420\nOverride density: 560\n")
	fake.Stdout("getprop ro.product.cpu.abilist", "arm64-v8a\n")

	profile, err := adb.ReadDeviceProfile(context.Background(), fake, "dev1")
	if err != nil {
		t.Fatalf("ReadDeviceProfile: %v", err)
	}

	if profile.Density != 560 {
		t.Errorf("Density = %d, want override 560", profile.Density)
	}
}

func TestDPIBucket(t *testing.T) {
	tests := []struct {
		density int
		want    string
	}{
		{0, "nodpi"},
		{120, "ldpi"},
		{160, "mdpi"},
		{213, "tvdpi"},
		{240, "hdpi"},
		{320, "xhdpi"},
		{420, "xxhdpi"},
		{480, "xxhdpi"},
		{640, "xxxhdpi"},
		{720, "nodpi"},
	}

	for _, tt := range tests {
		p := adb.DeviceProfile{Density: tt.density}
		if got := p.DPIBucket(); got != tt.want {
			t.Errorf("DPIBucket(%d) = %q, want %q", tt.density, got, tt.want)
		}
	}
}
