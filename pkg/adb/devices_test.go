package adb_test

import (
	"context"
	"testing"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb/adbtest"
)

const devicesOutput = `List of devices attached
emulator-5554          device product:sdk_gphone64_x86_64 model:sdk_gphone64_x86_64 device:emu64x transport_id:1
R58M12ABCDE            unauthorized transport_id:2
192.168.1.20:5555      offline transport_id:3
`

func TestListDevices(t *testing.T) {
	fake := adbtest.New()
	fake.Stdout("devices -l", devicesOutput)
	fake.Stdout("getprop ro.build.version.sdk", "33\n")
	fake.Stdout("getprop ro.build.version.release", "13\n")
	fake.Stdout("getprop ro.product.manufacturer", "Google\n")
	fake.Stdout("getprop ro.product.brand", "google\n")

	devices, err := adb.ListDevices(context.Background(), fake)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}

	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}

	emu := devices[0]
	if !emu.IsEmulator {
		t.Error("emulator-5554 should be flagged as emulator")
	}
	if emu.Model != "sdk_gphone64_x86_64" || emu.AndroidAPI != 33 {
		t.Errorf("model/api = %q/%d", emu.Model, emu.AndroidAPI)
	}

	if devices[1].Status != "unauthorized" {
		t.Errorf("second device status = %q", devices[1].Status)
	}
	if devices[1].AndroidAPI != 0 {
		t.Error("offline/unauthorized devices must not be enriched")
	}
}

func TestGetDeviceStatus(t *testing.T) {
	fake := adbtest.New()
	fake.Stdout("devices -l", devicesOutput)

	status, err := adb.GetDeviceStatus(context.Background(), fake)
	if err != nil {
		t.Fatalf("GetDeviceStatus: %v", err)
	}

	if len(status.Online) != 1 || len(status.Unauthorized) != 1 || len(status.Offline) != 1 {
		t.Errorf("online/unauthorized/offline = %d/%d/%d",
			len(status.Online), len(status.Unauthorized), len(status.Offline))
	}
	if status.Total != 3 {
		t.Errorf("Total = %d, want 3", status.Total)
	}
}

func TestValidateOnline(t *testing.T) {
	fake := adbtest.New()
	fake.Stdout("devices -l", devicesOutput)

	ctx := context.Background()
	if err := adb.ValidateOnline(ctx, fake, "emulator-5554"); err != nil {
		t.Errorf("online device: %v", err)
	}
	if err := adb.ValidateOnline(ctx, fake, "R58M12ABCDE"); err == nil {
		t.Error("unauthorized device must fail validation")
	}
	if err := adb.ValidateOnline(ctx, fake, "missing"); err == nil {
		t.Error("unknown device must fail validation")
	}
}
