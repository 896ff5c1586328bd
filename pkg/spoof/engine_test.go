package spoof_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb/adbtest"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/spoof"
)

func newEngine(fake *adbtest.Runner) *spoof.Engine {
	e := spoof.NewEngine(fake, zerolog.Nop())
	e.Settle = 0
	return e
}

func TestSetBacksUpAndVerifies(t *testing.T) {
	fake := adbtest.New()
	// Two stable backup reads, then the post-write read-back.
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "OldModel\n"})
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "OldModel\n"})
	fake.Stdout("getprop ro.product.model", "Pixel 8 Pro\n")

	engine := newEngine(fake)
	res, err := engine.Set(context.Background(), "dev1", "ro.product.model", "Pixel 8 Pro")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	if !res.CommandOK || !res.Verified {
		t.Errorf("CommandOK/Verified = %v/%v, want true/true", res.CommandOK, res.Verified)
	}
	if res.Strategy != "resetprop" {
		t.Errorf("Strategy = %q, want plain resetprop", res.Strategy)
	}

	backups := engine.Backups("dev1")
	if backups["ro.product.model"] != "OldModel" {
		t.Errorf("backup = %q, want OldModel", backups["ro.product.model"])
	}
}

func TestSetSkipsUsageTextStrategy(t *testing.T) {
	fake := adbtest.New()
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "Old\n"})
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "Old\n"})
	// Plain resetprop prints usage on this build; -n works.
	fake.On("resetprop ro.product.model", adb.Result{Stdout: "usage: resetprop [options] NAME VALUE\n"})
	fake.Stdout("getprop ro.product.model", "NewModel\n")

	engine := newEngine(fake)
	res, err := engine.Set(context.Background(), "dev1", "ro.product.model", "NewModel")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	if res.Strategy != "resetprop -n" {
		t.Errorf("Strategy = %q, want resetprop -n", res.Strategy)
	}
	if !fake.Saw("resetprop -n ro.product.model") {
		t.Error("expected -n strategy to be attempted")
	}
}

func TestSetFailsWithoutVerification(t *testing.T) {
	fake := adbtest.New()
	// Every read returns the old value; resetprop silently has no effect.
	fake.Stdout("getprop ro.product.model", "Old\n")

	engine := newEngine(fake)
	_, err := engine.Set(context.Background(), "dev1", "ro.product.model", "New")
	if err == nil {
		t.Fatal("expected error when the value never reads back")
	}
}

func TestSetUnverifiedAllowedWhenNotRequired(t *testing.T) {
	fake := adbtest.New()
	fake.Stdout("getprop ro.product.model", "Old\n")

	engine := newEngine(fake)
	engine.RequireVerification = false

	res, err := engine.Set(context.Background(), "dev1", "ro.product.model", "New")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !res.CommandOK || res.Verified {
		t.Errorf("CommandOK/Verified = %v/%v, want true/false", res.CommandOK, res.Verified)
	}
}

func TestSetRejectsInvalidValue(t *testing.T) {
	engine := newEngine(adbtest.New())

	_, err := engine.Set(context.Background(), "dev1", "ro.build.fingerprint", "not a fingerprint")
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRestoreWritesOriginal(t *testing.T) {
	fake := adbtest.New()
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "Old\n"})
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "Old\n"})
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "New\n"}) // post-set verify
	fake.Stdout("getprop ro.product.model", "Old\n")                     // post-restore verify

	engine := newEngine(fake)
	ctx := context.Background()

	if _, err := engine.Set(ctx, "dev1", "ro.product.model", "New"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := engine.Restore(ctx, "dev1", "ro.product.model"); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if len(engine.Backups("dev1")) != 0 {
		t.Error("restored property should leave no backup behind")
	}
}

func TestRestoreUnsetOriginalDeletes(t *testing.T) {
	fake := adbtest.New()
	// Property did not exist before the spoof.
	fake.OnOnce("getprop ro.miui.ui.version.name", adb.Result{Stdout: "\n"})
	fake.OnOnce("getprop ro.miui.ui.version.name", adb.Result{Stdout: "\n"})
	fake.Stdout("getprop ro.miui.ui.version.name", "V14\n")

	engine := newEngine(fake)
	ctx := context.Background()

	if _, err := engine.Set(ctx, "dev1", "ro.miui.ui.version.name", "V14"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := engine.Restore(ctx, "dev1", "ro.miui.ui.version.name"); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if !fake.Saw("resetprop --delete ro.miui.ui.version.name") {
		t.Error("restoring an originally-unset property should delete it")
	}
}

func TestRestoreWithoutBackupFails(t *testing.T) {
	engine := newEngine(adbtest.New())

	if err := engine.Restore(context.Background(), "dev1", "ro.product.model"); err == nil {
		t.Fatal("restore without backup must fail, never guess")
	}
}

func TestRestoreAllCountsAndClears(t *testing.T) {
	fake := adbtest.New()
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "OldModel\n"})
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "OldModel\n"})
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "NewModel\n"})
	fake.Stdout("getprop ro.product.model", "OldModel\n")
	fake.OnOnce("getprop ro.product.brand", adb.Result{Stdout: "oldbrand\n"})
	fake.OnOnce("getprop ro.product.brand", adb.Result{Stdout: "oldbrand\n"})
	fake.OnOnce("getprop ro.product.brand", adb.Result{Stdout: "newbrand\n"})
	fake.Stdout("getprop ro.product.brand", "oldbrand\n")

	engine := newEngine(fake)
	ctx := context.Background()

	if _, err := engine.Set(ctx, "dev1", "ro.product.model", "NewModel"); err != nil {
		t.Fatalf("Set model: %v", err)
	}
	if _, err := engine.Set(ctx, "dev1", "ro.product.brand", "newbrand"); err != nil {
		t.Fatalf("Set brand: %v", err)
	}

	restored, err := engine.RestoreAll(ctx, "dev1")
	if err != nil {
		t.Fatalf("RestoreAll: %v", err)
	}
	if restored != 2 {
		t.Errorf("restored = %d, want 2", restored)
	}
	if len(engine.Backups("dev1")) != 0 {
		t.Error("RestoreAll should clear all backups")
	}
}

func TestRandomizeAndroidID(t *testing.T) {
	fake := adbtest.New()
	fake.Stdout("settings --user 0 get secure android_id", "3f1a9b2c4d5e6f70\n")

	engine := newEngine(fake)
	got, err := engine.RandomizeAndroidID(context.Background(), "dev1", 0, "3f1a9b2c4d5e6f70")
	if err != nil {
		t.Fatalf("RandomizeAndroidID: %v", err)
	}
	if got != "3f1a9b2c4d5e6f70" {
		t.Errorf("got %q", got)
	}
	if !fake.Saw("settings --user 0 put secure android_id 3f1a9b2c4d5e6f70") {
		t.Error("expected settings put invocation")
	}
}

func TestUserLimitRaiseAndRestore(t *testing.T) {
	fake := adbtest.New()
	fake.Stdout("settings get global user_switcher_max_users", "null\n")
	fake.Stdout("getprop fw.max_users", "\n")

	engine := newEngine(fake)
	ctx := context.Background()

	if err := engine.RaiseUserLimit(ctx, "dev1", 8); err != nil {
		t.Fatalf("RaiseUserLimit: %v", err)
	}
	if !fake.Saw("settings put global user_switcher_max_users 8") {
		t.Error("expected user_switcher_max_users write")
	}
	if !fake.Saw("resetprop -n fw.max_users 8") {
		t.Error("expected fw.max_users write")
	}

	if err := engine.RestoreUserLimit(ctx, "dev1"); err != nil {
		t.Fatalf("RestoreUserLimit: %v", err)
	}
	if !fake.Saw("settings delete global user_switcher_max_users") {
		t.Error("an originally-unset setting should be deleted on restore")
	}
	if !fake.Saw("resetprop --delete fw.max_users") {
		t.Error("an originally-unset fw.max_users should be deleted on restore")
	}
}

func TestBackupDisabledSkipsRecordingAndRefusesRestore(t *testing.T) {
	fake := adbtest.New()
	fake.Stdout("getprop ro.product.model", "NewModel\n")

	engine := newEngine(fake)
	engine.BackupEnabled = false

	ctx := context.Background()
	if _, err := engine.Set(ctx, "dev1", "ro.product.model", "NewModel"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(engine.Backups("dev1")) != 0 {
		t.Error("backup recorded while backups are disabled")
	}
	if err := engine.Restore(ctx, "dev1", "ro.product.model"); err == nil {
		t.Error("Restore succeeded without a recorded original")
	}
}

func TestRestoreAllWithoutBackupsDeletesCandidates(t *testing.T) {
	fake := adbtest.New()
	fake.Stdout("resetprop --delete", "")

	engine := newEngine(fake)
	engine.BackupEnabled = false
	engine.CandidateProps = []string{"ro.product.model", "ro.serialno"}

	deleted, err := engine.RestoreAll(context.Background(), "dev1")
	if err != nil {
		t.Fatalf("RestoreAll: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if !fake.Saw("resetprop --delete ro.serialno") {
		t.Errorf("candidate not deleted: %v", fake.CallLines())
	}
}

func TestSeedBackupsDoesNotClobber(t *testing.T) {
	engine := newEngine(adbtest.New())
	engine.SeedBackups("dev1", map[string]string{"ro.product.model": "FromDisk"})
	engine.SeedBackups("dev1", map[string]string{
		"ro.product.model": "Stale",
		"ro.serialno":      "R58M123",
	})

	backups := engine.Backups("dev1")
	if backups["ro.product.model"] != "FromDisk" {
		t.Errorf("seeded value clobbered: %q", backups["ro.product.model"])
	}
	if backups["ro.serialno"] != "R58M123" {
		t.Errorf("new seed missing: %q", backups["ro.serialno"])
	}
}

func TestBackupKeepsFirstReadWhenUnstable(t *testing.T) {
	fake := adbtest.New()
	// The two backup reads disagree; the first one is recorded and the
	// write still goes ahead.
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "First\n"})
	fake.OnOnce("getprop ro.product.model", adb.Result{Stdout: "Second\n"})
	fake.Stdout("getprop ro.product.model", "NewModel\n")

	engine := newEngine(fake)
	res, err := engine.Set(context.Background(), "dev1", "ro.product.model", "NewModel")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	if !res.Verified {
		t.Error("write should proceed despite unstable backup reads")
	}
	if !fake.Saw("resetprop ro.product.model NewModel") {
		t.Error("resetprop should run after the backup")
	}
	if got := engine.Backups("dev1")["ro.product.model"]; got != "First" {
		t.Errorf("backup = %q, want the first read", got)
	}
}

func TestApplyPartialFailureReturnsError(t *testing.T) {
	fake := adbtest.New()
	// Serial reads back, model never changes.
	fake.Stdout("getprop ro.serialno", "R12345678\n")
	fake.Stdout("getprop ro.product.model", "Old\n")

	engine := newEngine(fake)
	id := &spoof.Identity{Props: map[string]string{
		"ro.serialno":      "R12345678",
		"ro.product.model": "Pixel 8 Pro",
	}}

	report, err := engine.Apply(context.Background(), "dev1", id)
	if err == nil {
		t.Fatal("expected error when any property fails")
	}
	if report == nil {
		t.Fatal("report must accompany the error")
	}
	if len(report.Failed) != 1 || report.Failed[0] != "ro.product.model" {
		t.Errorf("Failed = %v, want [ro.product.model]", report.Failed)
	}
	if report.Applied != 1 {
		t.Errorf("Applied = %d, want 1", report.Applied)
	}
}

func TestCheckCapabilities(t *testing.T) {
	tests := []struct {
		name    string
		caps    adb.Capabilities
		wantErr bool
	}{
		{"rooted with resetprop", adb.Capabilities{Root: true, Resetprop: true}, false},
		{"no root", adb.Capabilities{Root: false, Resetprop: true}, true},
		{"no resetprop", adb.Capabilities{Root: true, Resetprop: false}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := spoof.CheckCapabilities(tt.caps)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckCapabilities = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
