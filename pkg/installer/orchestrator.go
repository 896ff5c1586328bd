package installer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/apk"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/bundle"
)

// Prompter answers the interactive questions an installation can raise.
type Prompter interface {
	// ConfirmUninstall asks whether the conflicting existing package may
	// be uninstalled.
	ConfirmUninstall(packageID string, reason string) bool
}

// StaticPrompter answers every question with a fixed value; used for
// non-interactive runs and the always/never conflict policies.
type StaticPrompter bool

func (p StaticPrompter) ConfirmUninstall(string, string) bool { return bool(p) }

// Options controls one installation.
type Options struct {
	TargetUser         int // -1 installs for all users
	GrantPermissions   bool
	AllowDowngrade     bool
	ConflictResolution string // ask, always, never
	RetryMissingSplits bool
	InstallTimeout     time.Duration
	PushTimeout        time.Duration
	CleanupExtraction  bool
	WorkDir            string
}

// DefaultInstallOptions match a non-interactive invocation with the
// stock timeouts.
func DefaultInstallOptions() Options {
	return Options{
		TargetUser:         -1,
		ConflictResolution: "ask",
		RetryMissingSplits: true,
		InstallTimeout:     900 * time.Second,
		PushTimeout:        600 * time.Second,
		CleanupExtraction:  true,
	}
}

// Result describes a finished installation.
type Result struct {
	Outcome             Outcome       `json:"outcome"`
	PackageID           string        `json:"package_id"`
	Attempts            int           `json:"attempts"`
	UsedFullSplitSet    bool          `json:"used_full_split_set"`
	UninstalledConflict bool          `json:"uninstalled_conflict"`
	OBBsPushed          int           `json:"obbs_pushed"`
	Output              string        `json:"output,omitempty"`
	Warnings            []string      `json:"warnings,omitempty"`
	Duration            time.Duration `json:"duration"`
}

// Orchestrator runs installations end to end: bundle extraction, split
// selection, install with retries, and OBB placement.
type Orchestrator struct {
	runner   adb.Runner
	log      zerolog.Logger
	prompter Prompter
	reporter *apkerrors.Reporter
	opts     Options
}

// New returns an Orchestrator. A nil prompter declines all uninstalls.
func New(runner adb.Runner, log zerolog.Logger, prompter Prompter, opts Options) *Orchestrator {
	if prompter == nil {
		prompter = StaticPrompter(false)
	}
	if opts.InstallTimeout <= 0 {
		opts.InstallTimeout = 900 * time.Second
	}
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = 600 * time.Second
	}
	return &Orchestrator{
		runner:   runner,
		log:      log,
		prompter: prompter,
		reporter: apkerrors.NewReporter(),
		opts:     opts,
	}
}

// Diagnostics returns hints gathered from failures during this run.
func (o *Orchestrator) Diagnostics() []string {
	return o.reporter.Hints()
}

// Install installs a plain APK or a split bundle on the device.
func (o *Orchestrator) Install(ctx context.Context, deviceID, path string) (*Result, error) {
	start := time.Now()

	var result *Result
	var err error
	if bundle.IsBundle(path) {
		result, err = o.installBundle(ctx, deviceID, path)
	} else {
		result, err = o.installAPK(ctx, deviceID, path)
	}

	if result != nil {
		result.Duration = time.Since(start)
	}
	return result, err
}

func (o *Orchestrator) installAPK(ctx context.Context, deviceID, path string) (*Result, error) {
	info, err := apk.Parse(path)
	if err != nil {
		return &Result{Outcome: OutcomeInvalidAPK}, err
	}

	result := &Result{PackageID: info.PackageID}
	o.log.Info().Str("device", deviceID).Str("package", info.PackageID).
		Str("path", path).Msg("installing APK")

	err = o.installFiles(ctx, deviceID, result, []string{path}, nil)
	return result, err
}

func (o *Orchestrator) installBundle(ctx context.Context, deviceID, path string) (*Result, error) {
	b, err := bundle.Extract(path, o.opts.WorkDir)
	if err != nil {
		return &Result{Outcome: OutcomeInvalidAPK}, err
	}
	if o.opts.CleanupExtraction {
		defer b.Cleanup()
	}

	profile, err := adb.ReadDeviceProfile(ctx, o.runner, deviceID)
	if err != nil {
		return &Result{Outcome: OutcomeGeneralFailure, PackageID: b.PackageID}, err
	}

	sel, err := bundle.Select(b, profile)
	if err != nil {
		return &Result{Outcome: OutcomeInvalidAPK, PackageID: b.PackageID}, err
	}

	result := &Result{PackageID: b.PackageID, Warnings: sel.Warnings}
	o.log.Info().Str("device", deviceID).Str("package", b.PackageID).
		Int("selected", len(sel.Files)).Int("skipped", len(sel.Skipped)).
		Msg("installing bundle")

	if err := o.installFiles(ctx, deviceID, result, sel.Paths(), b.AllPaths()); err != nil {
		return result, err
	}

	if len(b.OBBs) > 0 {
		pushed, err := o.pushOBBs(ctx, deviceID, b)
		result.OBBsPushed = pushed
		if err != nil {
			// The app is installed; missing OBBs degrade it but do not
			// undo the install.
			result.Warnings = append(result.Warnings, err.Error())
			o.log.Warn().Err(err).Str("package", b.PackageID).Msg("OBB push incomplete")
		}
	}

	return result, nil
}

// installFiles runs the install with up to one conflict-resolution retry
// and one broadened missing-split retry. fullSet is the complete split
// list for the missing-split retry; nil for plain APKs.
func (o *Orchestrator) installFiles(ctx context.Context, deviceID string, result *Result, paths, fullSet []string) error {
	files := paths
	conflictRetried := false
	splitRetried := false

	for {
		result.Attempts++
		res := o.runInstall(ctx, deviceID, files)
		result.Output = res.Combined()
		cls := classifyOutput(result.Output, res.TimedOut())

		switch {
		case cls.outcome == OutcomeSuccess:
			result.Outcome = OutcomeSuccess
			return nil

		case cls.conflict != "" && !conflictRetried && result.Attempts == 1:
			conflictRetried = true
			outcome, err := o.resolveConflict(ctx, deviceID, result, cls)
			if err != nil {
				result.Outcome = outcome
				return err
			}
			continue

		case cls.outcome == OutcomeMissingSplit && !splitRetried &&
			o.opts.RetryMissingSplits && len(fullSet) > len(files):
			splitRetried = true
			files = fullSet
			result.UsedFullSplitSet = true
			o.log.Warn().Str("device", deviceID).Str("package", result.PackageID).
				Msg("missing split reported, retrying with all bundle files")
			continue

		default:
			result.Outcome = cls.outcome
			o.reporter.Add(result.Output)
			return o.outcomeError(cls, result.Output)
		}
	}
}

// resolveConflict uninstalls the existing package when policy allows and
// reports the outcome to use if resolution fails.
func (o *Orchestrator) resolveConflict(ctx context.Context, deviceID string, result *Result, cls classification) (Outcome, error) {
	allowed := false
	switch o.opts.ConflictResolution {
	case "always":
		allowed = true
	case "never":
		allowed = false
	default:
		allowed = o.prompter.ConfirmUninstall(result.PackageID, string(cls.conflict))
	}

	if !allowed {
		return OutcomeUserSkippedUninstall, apkerrors.NewInstallError(string(cls.conflict),
			"existing installation conflicts and uninstall was declined")
	}

	o.log.Info().Str("device", deviceID).Str("package", result.PackageID).
		Str("conflict", string(cls.conflict)).Msg("uninstalling conflicting package")

	args := []string{"uninstall"}
	if o.opts.TargetUser >= 0 {
		args = append(args, "--user", strconv.Itoa(o.opts.TargetUser))
	}
	args = append(args, result.PackageID)

	res := o.runner.Run(ctx, deviceID, args, adb.DefaultOptions(120*time.Second))
	if !res.OK() && !uninstallMoot(res.Combined()) {
		o.reporter.Add(res.Combined())
		return OutcomeUninstallFailed, apkerrors.NewInstallError("UNINSTALL_FAILED",
			"failed to uninstall conflicting package: "+res.Combined())
	}

	result.UninstalledConflict = true
	return OutcomeSuccess, nil
}

// uninstallMoot reports pm outputs that mean the package was not there
// to uninstall, which still clears the conflict for the retry.
func uninstallMoot(output string) bool {
	lower := strings.ToLower(output)
	for _, frag := range []string{"not installed for", "unknown package"} {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) runInstall(ctx context.Context, deviceID string, files []string) adb.Result {
	var args []string
	if len(files) > 1 {
		args = []string{"install-multiple", "-r"}
	} else {
		args = []string{"install", "-r"}
	}

	if o.opts.GrantPermissions {
		args = append(args, "-g")
	}
	if o.opts.AllowDowngrade {
		args = append(args, "-d")
	}
	if o.opts.TargetUser >= 0 {
		args = append(args, "--user", strconv.Itoa(o.opts.TargetUser))
	}

	args = append(args, files...)

	return o.runner.Run(ctx, deviceID, args, adb.DefaultOptions(o.opts.InstallTimeout))
}

func (o *Orchestrator) outcomeError(cls classification, output string) error {
	code := cls.code
	if code == "" {
		code = cls.outcome.String()
	}

	switch cls.outcome {
	case OutcomeTimeout:
		return apkerrors.NewTimeoutError(code, "installation timed out")
	case OutcomeInsufficientStorage:
		return apkerrors.NewInstallError(code, "not enough storage on the device").
			WithSuggestion("Free space on the device and retry")
	case OutcomeInvalidAPK:
		return apkerrors.NewInstallError(code, "the APK was rejected as invalid").
			WithSuggestion("Re-download the file and verify it is not corrupted")
	case OutcomeMissingSplit:
		return apkerrors.NewInstallError(code, "the device requires splits that were not provided")
	default:
		return apkerrors.NewInstallError(code, fmt.Sprintf("installation failed: %s", output))
	}
}
