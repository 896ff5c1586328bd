package spoof

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
)

// SetResult describes one property write attempt.
type SetResult struct {
	Property  string `json:"property"`
	Value     string `json:"value"`
	CommandOK bool   `json:"command_ok"`
	Verified  bool   `json:"verified"`
	Strategy  string `json:"strategy"` // resetprop flags that succeeded
	Output    string `json:"output,omitempty"`
}

// ApplyReport summarizes applying a full identity.
type ApplyReport struct {
	Results  []SetResult `json:"results"`
	Applied  int         `json:"applied"`
	Verified int         `json:"verified"`
	Failed   []string    `json:"failed,omitempty"`
}

type userLimitBackup struct {
	switcherSetting string // "" means the setting was unset
	fwMaxUsers      string
	taken           bool
}

// Engine writes and restores device properties. Backups are per device
// and taken before the first write to each property.
type Engine struct {
	runner adb.Runner
	log    zerolog.Logger

	// RequireVerification makes Set fail when the written value does not
	// read back, even if resetprop exited zero.
	RequireVerification bool

	// BackupEnabled records originals before the first write to each
	// property. When disabled, Restore refuses per-property restores and
	// RestoreAll degrades to deleting every candidate property.
	BackupEnabled bool

	// CandidateProps is the full list of properties this engine may
	// touch; RestoreAll sweeps it when backups are disabled.
	CandidateProps []string

	// Settle is the pause between a property write and its read-back.
	Settle time.Duration

	// Timeout bounds each property read or write.
	Timeout time.Duration

	mu         sync.Mutex
	backups    map[string]map[string]string
	userLimits map[string]userLimitBackup
}

// NewEngine returns an Engine with verification required and the default
// write settle delay.
func NewEngine(runner adb.Runner, log zerolog.Logger) *Engine {
	return &Engine{
		runner:              runner,
		log:                 log,
		RequireVerification: true,
		BackupEnabled:       true,
		CandidateProps:      DefaultSpoofProps,
		Settle:              200 * time.Millisecond,
		Timeout:             10 * time.Second,
		backups:             make(map[string]map[string]string),
		userLimits:          make(map[string]userLimitBackup),
	}
}

// Backup records the current value of a property once per device. Calling
// it again for the same property is a no-op, so later writes never
// clobber the true original.
func (e *Engine) Backup(ctx context.Context, deviceID, prop string) error {
	if !e.BackupEnabled {
		return nil
	}

	e.mu.Lock()
	if _, ok := e.backups[deviceID][prop]; ok {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	value, err := e.readProp(ctx, deviceID, prop)
	if err != nil {
		return err
	}

	// Verification read: a flaky transport must not poison the backup.
	check, err := e.readProp(ctx, deviceID, prop)
	if err != nil {
		return err
	}
	if check != value {
		e.log.Warn().Str("device", deviceID).Str("prop", prop).
			Str("first", value).Str("second", check).
			Msg("property changed between backup reads, keeping first")
	}

	e.mu.Lock()
	if e.backups[deviceID] == nil {
		e.backups[deviceID] = make(map[string]string)
	}
	e.backups[deviceID][prop] = value
	e.mu.Unlock()

	e.log.Debug().Str("device", deviceID).Str("prop", prop).Str("original", value).Msg("property backed up")
	return nil
}

// SeedBackups loads previously recorded originals, for restores in a
// later run. Existing entries win over seeded ones.
func (e *Engine) SeedBackups(deviceID string, originals map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backups[deviceID] == nil {
		e.backups[deviceID] = make(map[string]string, len(originals))
	}
	for prop, value := range originals {
		if _, ok := e.backups[deviceID][prop]; !ok {
			e.backups[deviceID][prop] = value
		}
	}
}

// Backups returns a copy of the recorded originals for a device.
func (e *Engine) Backups(deviceID string) map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]string, len(e.backups[deviceID]))
	for k, v := range e.backups[deviceID] {
		out[k] = v
	}
	return out
}

// CheckCapabilities verifies the device can take property writes: root
// access and a resetprop binary. Callers gate Apply on this so an
// unsupported device fails up front instead of half way through an
// identity.
func CheckCapabilities(caps adb.Capabilities) error {
	if !caps.Root {
		return apkerrors.NewCapabilityError("NO_ROOT",
			"property spoofing needs root access on the device").
			WithSuggestion("Root the device, or run without spoofing")
	}
	if !caps.Resetprop {
		return apkerrors.NewCapabilityError("NO_RESETPROP",
			"resetprop was not found on the device").
			WithSuggestion("Install Magisk, which ships resetprop")
	}
	return nil
}

var setStrategies = [][]string{
	{},
	{"-n"},
	{"--force"},
}

// Set writes a property via resetprop, backing up the original first.
// Three invocation styles are tried in order; a style whose output looks
// like resetprop usage text is treated as unsupported and skipped.
func (e *Engine) Set(ctx context.Context, deviceID, prop, value string) (SetResult, error) {
	result := SetResult{Property: prop, Value: value}

	if err := ValidateProp(prop, value); err != nil {
		return result, err
	}
	if err := e.Backup(ctx, deviceID, prop); err != nil {
		return result, err
	}

	for _, flags := range setStrategies {
		argv := append(append([]string{"resetprop"}, flags...), prop, value)
		res := e.runner.Shell(ctx, deviceID, argv, adb.Options{Timeout: e.Timeout, AsRoot: true})
		result.Output = res.Combined()

		if looksLikeUsage(result.Output) {
			continue
		}
		if !res.OK() {
			continue
		}
		result.CommandOK = true
		result.Strategy = strings.TrimSpace("resetprop " + strings.Join(flags, " "))

		if e.Settle > 0 {
			select {
			case <-time.After(e.Settle):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		current, err := e.readProp(ctx, deviceID, prop)
		if err == nil && current == value {
			result.Verified = true
			e.log.Debug().Str("device", deviceID).Str("prop", prop).
				Str("strategy", result.Strategy).Msg("property set and verified")
			return result, nil
		}
	}

	if result.CommandOK && !e.RequireVerification {
		e.log.Warn().Str("device", deviceID).Str("prop", prop).Msg("property set but not verified")
		return result, nil
	}

	err := apkerrors.NewDeviceError("PROP_SET_FAILED",
		fmt.Sprintf("failed to set %s: %s", prop, result.Output)).
		WithSuggestion("Verify the device is rooted and resetprop is available").
		WithSuggestion("Some ro.* properties cannot be changed on this device")
	if result.CommandOK {
		err = err.WithContext("detail", "resetprop succeeded but the value did not read back")
	}
	return result, err
}

// Apply writes every property of an identity and reports per-property
// results. It keeps going after individual failures so a partial apply
// is visible (and restorable) as a whole, but any failed property makes
// the overall apply an error.
func (e *Engine) Apply(ctx context.Context, deviceID string, id *Identity) (*ApplyReport, error) {
	if err := ValidateIdentity(id); err != nil {
		return nil, err
	}

	report := &ApplyReport{}
	for _, prop := range orderedProps(id.Props) {
		res, err := e.Set(ctx, deviceID, prop, id.Props[prop])
		report.Results = append(report.Results, res)
		if err != nil {
			report.Failed = append(report.Failed, prop)
			e.log.Error().Err(err).Str("device", deviceID).Str("prop", prop).Msg("property apply failed")
			continue
		}
		report.Applied++
		if res.Verified {
			report.Verified++
		}
	}

	if len(report.Failed) > 0 {
		return report, apkerrors.NewDeviceError("SPOOF_FAILED",
			fmt.Sprintf("%d of %d properties could not be applied: %s",
				len(report.Failed), len(report.Results), strings.Join(report.Failed, ", "))).
			WithSuggestion("Run the doctor command to check root and resetprop availability").
			WithSuggestion("Run the restore command to roll back the properties that were applied")
	}

	return report, nil
}

// Restore writes the backed-up original of a property. Restoring a
// property that was never backed up is an error, never a guess.
func (e *Engine) Restore(ctx context.Context, deviceID, prop string) error {
	if !e.BackupEnabled {
		return apkerrors.NewConfigurationError("BACKUPS_DISABLED",
			"cannot restore "+prop+" without a recorded original")
	}

	e.mu.Lock()
	original, ok := e.backups[deviceID][prop]
	e.mu.Unlock()

	if !ok {
		return apkerrors.NewNotFoundError("NO_BACKUP",
			"no backup recorded for property "+prop)
	}

	if original == "" {
		// Property did not exist before; best effort delete.
		res := e.runner.Shell(ctx, deviceID, []string{"resetprop", "--delete", prop},
			adb.Options{Timeout: e.Timeout, AsRoot: true})
		if !res.OK() {
			e.log.Warn().Str("device", deviceID).Str("prop", prop).
				Str("output", res.Combined()).Msg("delete of originally-unset property failed")
		}
	} else {
		if err := e.writeRaw(ctx, deviceID, prop, original); err != nil {
			return err
		}
	}

	e.mu.Lock()
	delete(e.backups[deviceID], prop)
	e.mu.Unlock()

	return nil
}

// RestoreAll restores every backed-up property and the user limit, and
// returns how many properties were restored. Individual failures do not
// stop the sweep; the first error is returned at the end.
func (e *Engine) RestoreAll(ctx context.Context, deviceID string) (int, error) {
	if !e.BackupEnabled {
		return e.deleteCandidates(ctx, deviceID)
	}

	props := make([]string, 0)
	e.mu.Lock()
	for prop := range e.backups[deviceID] {
		props = append(props, prop)
	}
	e.mu.Unlock()

	restored := 0
	var firstErr error
	for _, prop := range props {
		if err := e.Restore(ctx, deviceID, prop); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		restored++
	}

	if err := e.RestoreUserLimit(ctx, deviceID); err != nil && firstErr == nil {
		firstErr = err
	}

	return restored, firstErr
}

// deleteCandidates removes every property the engine might have touched.
// Without backups there is no original to put back, so deletion is the
// closest restore available.
func (e *Engine) deleteCandidates(ctx context.Context, deviceID string) (int, error) {
	deleted := 0
	for _, prop := range e.CandidateProps {
		res := e.runner.Shell(ctx, deviceID, []string{"resetprop", "--delete", prop},
			adb.Options{Timeout: e.Timeout, AsRoot: true})
		if res.OK() {
			deleted++
			continue
		}
		e.log.Warn().Str("device", deviceID).Str("prop", prop).
			Str("output", res.Combined()).Msg("candidate delete failed")
	}

	if err := e.RestoreUserLimit(ctx, deviceID); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// writeRaw sets a property without validation or backup, for restores.
func (e *Engine) writeRaw(ctx context.Context, deviceID, prop, value string) error {
	var lastOutput string
	for _, flags := range setStrategies {
		argv := append(append([]string{"resetprop"}, flags...), prop, value)
		res := e.runner.Shell(ctx, deviceID, argv, adb.Options{Timeout: e.Timeout, AsRoot: true})
		lastOutput = res.Combined()
		if looksLikeUsage(lastOutput) || !res.OK() {
			continue
		}

		current, err := e.readProp(ctx, deviceID, prop)
		if err == nil && current == value {
			return nil
		}
	}

	return apkerrors.NewDeviceError("PROP_RESTORE_FAILED",
		fmt.Sprintf("failed to restore %s: %s", prop, lastOutput))
}

// RandomizeAndroidID writes a random 16-hex-digit Android ID for the
// given user and returns the new value.
func (e *Engine) RandomizeAndroidID(ctx context.Context, deviceID string, userID int, newID string) (string, error) {
	if newID == "" {
		return "", apkerrors.NewValidationError("ANDROID_ID_EMPTY", "generated Android ID is empty")
	}

	argv := []string{"settings", "--user", fmt.Sprint(userID), "put", "secure", "android_id", newID}
	res := e.runner.Shell(ctx, deviceID, argv, adb.Options{Timeout: e.Timeout})
	if !res.OK() {
		return "", apkerrors.NewDeviceError("ANDROID_ID_SET_FAILED",
			"failed to set android_id: "+res.Combined())
	}

	check := e.runner.Shell(ctx, deviceID,
		[]string{"settings", "--user", fmt.Sprint(userID), "get", "secure", "android_id"},
		adb.Options{Timeout: e.Timeout})
	if !check.OK() || strings.TrimSpace(check.Stdout) != newID {
		return "", apkerrors.NewDeviceError("ANDROID_ID_UNVERIFIED",
			"android_id did not read back after write")
	}

	return newID, nil
}

// RaiseUserLimit lifts the device user ceiling to at least want users by
// writing the user_switcher_max_users global setting and fw.max_users.
// The original values are kept for RestoreUserLimit.
func (e *Engine) RaiseUserLimit(ctx context.Context, deviceID string, want int) error {
	e.mu.Lock()
	backup, taken := e.userLimits[deviceID]
	e.mu.Unlock()

	if !taken {
		setting := e.runner.Shell(ctx, deviceID,
			[]string{"settings", "get", "global", "user_switcher_max_users"},
			adb.Options{Timeout: e.Timeout})
		fw := e.runner.Shell(ctx, deviceID, []string{"getprop", "fw.max_users"},
			adb.Options{Timeout: e.Timeout})

		backup = userLimitBackup{taken: true}
		if setting.OK() {
			val := strings.TrimSpace(setting.Stdout)
			if val != "null" {
				backup.switcherSetting = val
			}
		}
		if fw.OK() {
			backup.fwMaxUsers = strings.TrimSpace(fw.Stdout)
		}

		e.mu.Lock()
		e.userLimits[deviceID] = backup
		e.mu.Unlock()
	}

	limit := fmt.Sprint(want)
	res := e.runner.Shell(ctx, deviceID,
		[]string{"settings", "put", "global", "user_switcher_max_users", limit},
		adb.Options{Timeout: e.Timeout})
	if !res.OK() {
		return apkerrors.NewDeviceError("USER_LIMIT_SETTING_FAILED",
			"failed to raise user_switcher_max_users: "+res.Combined())
	}

	fwRes := e.runner.Shell(ctx, deviceID, []string{"resetprop", "-n", "fw.max_users", limit},
		adb.Options{Timeout: e.Timeout, AsRoot: true})
	if !fwRes.OK() {
		e.log.Warn().Str("device", deviceID).Str("output", fwRes.Combined()).
			Msg("fw.max_users write failed, setting-only bypass in effect")
	}

	return nil
}

// RestoreUserLimit puts the user ceiling back the way it was found.
func (e *Engine) RestoreUserLimit(ctx context.Context, deviceID string) error {
	e.mu.Lock()
	backup, taken := e.userLimits[deviceID]
	if taken {
		delete(e.userLimits, deviceID)
	}
	e.mu.Unlock()

	if !taken {
		return nil
	}

	var argv []string
	if backup.switcherSetting == "" {
		argv = []string{"settings", "delete", "global", "user_switcher_max_users"}
	} else {
		argv = []string{"settings", "put", "global", "user_switcher_max_users", backup.switcherSetting}
	}
	res := e.runner.Shell(ctx, deviceID, argv, adb.Options{Timeout: e.Timeout})
	if !res.OK() {
		return apkerrors.NewDeviceError("USER_LIMIT_RESTORE_FAILED",
			"failed to restore user_switcher_max_users: "+res.Combined())
	}

	if backup.fwMaxUsers == "" {
		e.runner.Shell(ctx, deviceID, []string{"resetprop", "--delete", "fw.max_users"},
			adb.Options{Timeout: e.Timeout, AsRoot: true})
	} else {
		e.runner.Shell(ctx, deviceID, []string{"resetprop", "-n", "fw.max_users", backup.fwMaxUsers},
			adb.Options{Timeout: e.Timeout, AsRoot: true})
	}

	return nil
}

func (e *Engine) readProp(ctx context.Context, deviceID, prop string) (string, error) {
	res := e.runner.Shell(ctx, deviceID, []string{"getprop", prop}, adb.Options{Timeout: e.Timeout})
	if !res.OK() {
		return "", apkerrors.NewDeviceError("PROP_READ_FAILED",
			fmt.Sprintf("failed to read %s: %s", prop, res.Combined()))
	}
	return strings.TrimSpace(res.Stdout), nil
}

// looksLikeUsage detects resetprop printing its help text, which happens
// on builds that do not support a given flag.
func looksLikeUsage(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "usage:") || strings.Contains(lower, "usage :")
}

func orderedProps(props map[string]string) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	// Stable order keeps logs and reports deterministic.
	sort.Strings(names)
	return names
}
