package installer

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/bundle"
)

// pushOBBs places the bundle's expansion files under the package's OBB
// directory for the target user. It stops on the first failed push and
// returns the number of files placed so far.
func (o *Orchestrator) pushOBBs(ctx context.Context, deviceID string, b *bundle.Bundle) (int, error) {
	uid := o.opts.TargetUser
	if uid < 0 {
		uid = 0
	}
	baseDir := fmt.Sprintf("/storage/emulated/%d/Android/obb/%s", uid, b.PackageID)

	dirs := map[string]struct{}{}
	targets := make([]string, len(b.OBBs))
	for i, obb := range b.OBBs {
		remote := path.Join(baseDir, obb.Name)
		if obb.InstallPath != "" {
			p := strings.TrimPrefix(obb.InstallPath, "/")
			remote = fmt.Sprintf("/storage/emulated/%d/%s", uid, p)
		}
		targets[i] = remote
		dirs[path.Dir(remote)] = struct{}{}
	}

	for dir := range dirs {
		if err := o.ensureRemoteDir(ctx, deviceID, dir); err != nil {
			return 0, err
		}
	}

	pushed := 0
	for i, obb := range b.OBBs {
		o.log.Info().Str("device", deviceID).Str("obb", obb.Name).
			Str("target", targets[i]).Msg("pushing expansion file")

		res := o.runner.Run(ctx, deviceID, []string{"push", obb.LocalPath, targets[i]},
			adb.DefaultOptions(o.opts.PushTimeout))
		if !res.OK() {
			o.reporter.Add(res.Combined())
			return pushed, apkerrors.NewInstallError("OBB_PUSH_FAILED",
				fmt.Sprintf("failed to push %s: %s", obb.Name, res.Combined())).
				WithSuggestion("Push the expansion file manually with adb push")
		}
		pushed++
	}

	return pushed, nil
}

// ensureRemoteDir creates the directory on the device, escalating to
// root when the unprivileged shell cannot.
func (o *Orchestrator) ensureRemoteDir(ctx context.Context, deviceID, dir string) error {
	argv := []string{"mkdir", "-p", dir}
	res := o.runner.Shell(ctx, deviceID, argv, adb.DefaultOptions(30*time.Second))
	if res.OK() {
		return nil
	}

	opts := adb.DefaultOptions(30 * time.Second)
	opts.AsRoot = true
	res = o.runner.Shell(ctx, deviceID, argv, opts)
	if !res.OK() {
		return apkerrors.NewInstallError("OBB_DIR_FAILED",
			fmt.Sprintf("cannot create %s: %s", dir, res.Combined()))
	}
	return nil
}
