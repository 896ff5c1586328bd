package profile

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apkerrors "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/errors"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/retry"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/spoof"
)

// Options tunes profile management.
type Options struct {
	BypassUserLimit bool
	DefaultMaxUsers int // assumed ceiling when the device reports none
	MinStorageMB    int
	CreateAttempts  int
	SwitchWait      time.Duration
}

// DefaultOptions mirror a stock device with a conservative storage floor.
func DefaultOptions() Options {
	return Options{
		BypassUserLimit: false,
		DefaultMaxUsers: 4,
		MinStorageMB:    500,
		CreateAttempts:  3,
		SwitchWait:      10 * time.Second,
	}
}

// createBackoff paces user creation retries; creation is the flakiest
// pm operation on loaded devices.
var createBackoff = retry.Exponential(2*time.Second, 16*time.Second)

// Manager creates, switches, and removes user profiles. It enforces a
// single managed profile per device so cleanup always knows what to
// remove.
type Manager struct {
	runner adb.Runner
	probe  *adb.Probe
	engine *spoof.Engine
	log    zerolog.Logger
	opts   Options

	mu     sync.Mutex
	active map[string]int // device -> managed user ID
}

// NewManager returns a Manager. The spoof engine may be nil when user
// limit bypass is disabled.
func NewManager(runner adb.Runner, probe *adb.Probe, engine *spoof.Engine, log zerolog.Logger, opts Options) *Manager {
	if opts.CreateAttempts <= 0 {
		opts.CreateAttempts = 3
	}
	if opts.SwitchWait <= 0 {
		opts.SwitchWait = 10 * time.Second
	}
	if opts.DefaultMaxUsers <= 0 {
		opts.DefaultMaxUsers = 4
	}
	return &Manager{
		runner: runner,
		probe:  probe,
		engine: engine,
		log:    log,
		opts:   opts,
		active: make(map[string]int),
	}
}

// List returns the users on the device with the current one marked.
func (m *Manager) List(ctx context.Context, deviceID string) ([]User, error) {
	res := m.runner.Shell(ctx, deviceID, []string{"pm", "list", "users"}, adb.DefaultOptions(15*time.Second))
	if !res.OK() {
		return nil, apkerrors.NewDeviceError("USER_LIST_FAILED",
			"pm list users failed: "+res.Combined())
	}

	current, _ := m.CurrentUser(ctx, deviceID)
	return ParseUserList(res.Stdout, current), nil
}

// CurrentUser returns the foreground user ID.
func (m *Manager) CurrentUser(ctx context.Context, deviceID string) (int, error) {
	res := m.runner.Shell(ctx, deviceID, []string{"am", "get-current-user"}, adb.DefaultOptions(10*time.Second))
	if !res.OK() {
		return 0, apkerrors.NewDeviceError("CURRENT_USER_FAILED",
			"am get-current-user failed: "+res.Combined())
	}

	id, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return 0, apkerrors.NewDeviceError("CURRENT_USER_UNPARSEABLE",
			"unexpected am get-current-user output: "+res.Combined())
	}
	return id, nil
}

// Active returns the managed profile ID for a device, if one exists.
func (m *Manager) Active(deviceID string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.active[deviceID]
	return id, ok
}

// Create makes a new user and switches to it. It checks storage and the
// user ceiling first, optionally raising the ceiling, and retries
// creation with exponential backoff. Partial state from a failed attempt
// is removed before the next one.
func (m *Manager) Create(ctx context.Context, deviceID, name string, ephemeral bool) (User, error) {
	if _, exists := m.Active(deviceID); exists {
		return User{}, apkerrors.NewValidationError("PROFILE_ACTIVE",
			"a managed profile already exists on this device, remove it first")
	}

	caps, err := m.probe.Get(ctx, deviceID)
	if err != nil {
		return User{}, err
	}
	if !caps.MultiUser {
		return User{}, apkerrors.NewCapabilityError("NO_MULTI_USER",
			"device does not support multiple users")
	}
	if ephemeral && !caps.EphemeralUsers {
		// pm grew --ephemeral in SDK 26; older devices get a permanent user.
		m.log.Warn().Str("device", deviceID).Int("sdk", caps.SDK).
			Msg("ephemeral users unsupported, creating a permanent user instead")
		ephemeral = false
	}

	if err := m.checkStorage(ctx, deviceID); err != nil {
		return User{}, err
	}

	if err := m.ensureUserHeadroom(ctx, deviceID, caps); err != nil {
		return User{}, err
	}

	if name == "" {
		name = fmt.Sprintf("profile-%d", time.Now().Unix())
	}

	argv := []string{"pm", "create-user"}
	if ephemeral {
		argv = append(argv, "--ephemeral")
	}
	argv = append(argv, name)

	var created User
	err = retry.Do(ctx, m.opts.CreateAttempts, createBackoff,
		func(attempt int) error {
			res := m.runner.Shell(ctx, deviceID, argv, adb.DefaultOptions(90*time.Second))
			output := res.Combined()

			id, ok := ParseCreatedUserID(output)
			if res.OK() && ok {
				created = User{ID: id, Name: name}
				return nil
			}

			// A failed create can still leave the user half-registered.
			if ok {
				m.log.Warn().Str("device", deviceID).Int("user", id).
					Msg("removing partially created user before retry")
				m.runner.Shell(ctx, deviceID, []string{"pm", "remove-user", strconv.Itoa(id)},
					adb.DefaultOptions(90*time.Second))
			}

			m.log.Warn().Str("device", deviceID).Int("attempt", attempt).
				Str("output", output).Msg("user creation failed")
			return apkerrors.NewDeviceError("USER_CREATE_FAILED",
				"pm create-user failed: "+output)
		})
	if err != nil {
		return User{}, err
	}

	if err := m.Switch(ctx, deviceID, created.ID); err != nil {
		// Leave no orphan behind.
		m.runner.Shell(ctx, deviceID, []string{"pm", "remove-user", strconv.Itoa(created.ID)},
			adb.DefaultOptions(90*time.Second))
		return User{}, err
	}

	m.mu.Lock()
	m.active[deviceID] = created.ID
	m.mu.Unlock()

	m.log.Info().Str("device", deviceID).Int("user", created.ID).Str("name", name).Msg("profile created")
	return created, nil
}

// Switch changes the foreground user and waits until the device reports
// the new user as current.
func (m *Manager) Switch(ctx context.Context, deviceID string, userID int) error {
	res := m.runner.Shell(ctx, deviceID, []string{"am", "switch-user", strconv.Itoa(userID)},
		adb.DefaultOptions(60*time.Second))
	if !res.OK() || strings.Contains(res.Combined(), "Exception") {
		toolErr := apkerrors.NewDeviceError("USER_SWITCH_FAILED",
			fmt.Sprintf("am switch-user %d failed: %s", userID, res.Combined()))
		if strings.Contains(res.Combined(), "SecurityException") {
			toolErr = toolErr.WithSuggestion(
				"The shell lacks permission to switch users on this device; try with root")
		}
		return toolErr
	}

	deadline := time.Now().Add(m.opts.SwitchWait)
	for {
		current, err := m.CurrentUser(ctx, deviceID)
		if err == nil && current == userID {
			m.log.Debug().Str("device", deviceID).Int("user", userID).Msg("user switch confirmed")
			return nil
		}

		if time.Now().After(deadline) {
			return apkerrors.NewTimeoutError("USER_SWITCH_UNCONFIRMED",
				fmt.Sprintf("device did not report user %d as current within %s", userID, m.opts.SwitchWait))
		}

		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Remove deletes a user. The system user is refused; removing the
// current user switches back to the system user first.
func (m *Manager) Remove(ctx context.Context, deviceID string, userID int) error {
	if userID == 0 {
		return apkerrors.NewValidationError("REMOVE_SYSTEM_USER",
			"refusing to remove the system user")
	}

	if current, err := m.CurrentUser(ctx, deviceID); err == nil && current == userID {
		if err := m.Switch(ctx, deviceID, 0); err != nil {
			return err
		}
	}

	// The tool must never lose track of a user it tried to remove, so
	// the managed-profile record is dropped whatever pm reports.
	defer func() {
		m.mu.Lock()
		if m.active[deviceID] == userID {
			delete(m.active, deviceID)
		}
		m.mu.Unlock()
	}()

	argv := []string{"pm", "remove-user", strconv.Itoa(userID)}
	res := m.runner.Shell(ctx, deviceID, argv, adb.DefaultOptions(90*time.Second))
	if !removeSucceeded(res) {
		m.log.Warn().Str("device", deviceID).Int("user", userID).
			Str("output", res.Combined()).Msg("pm remove-user failed, retrying as root")
		res = m.runner.Shell(ctx, deviceID, argv,
			adb.Options{Timeout: 90 * time.Second, AsRoot: true})
	}
	if !removeSucceeded(res) {
		return apkerrors.NewDeviceError("USER_REMOVE_FAILED",
			fmt.Sprintf("pm remove-user %d failed: %s", userID, res.Combined()))
	}

	m.log.Info().Str("device", deviceID).Int("user", userID).Msg("profile removed")
	return nil
}

// removeSucceeded accepts pm outputs that mean the user is gone or going:
// besides "Success", pm reports already-removed users as nonexistent and
// defers removal of a still-running user with "will be removed".
func removeSucceeded(res adb.Result) bool {
	out := strings.ToLower(res.Combined())
	if res.OK() && strings.Contains(out, "success") {
		return true
	}
	for _, frag := range []string{"doesn't exist", "does not exist", "no user exists with id", "will be removed"} {
		if strings.Contains(out, frag) {
			return true
		}
	}
	return false
}

// Cleanup removes the managed profile and restores any raised user limit
// and spoofed properties. Errors are collected, not short-circuited; a
// half-finished cleanup still undoes as much as it can.
func (m *Manager) Cleanup(ctx context.Context, deviceID string) error {
	var firstErr error

	if id, ok := m.Active(deviceID); ok {
		if err := m.Remove(ctx, deviceID, id); err != nil {
			firstErr = err
		}
	}

	if m.engine != nil {
		if _, err := m.engine.RestoreAll(ctx, deviceID); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// checkStorage fails when /data has less than the configured floor.
// Unparseable df output counts as sufficient; a full disk will surface
// at install time anyway.
func (m *Manager) checkStorage(ctx context.Context, deviceID string) error {
	if m.opts.MinStorageMB <= 0 {
		return nil
	}

	res := m.runner.Shell(ctx, deviceID, []string{"df", "-k", "/data"}, adb.DefaultOptions(15*time.Second))
	if !res.OK() {
		return nil
	}

	availKB, ok := ParseAvailableKB(res.Stdout)
	if !ok {
		return nil
	}

	needKB := int64(m.opts.MinStorageMB) * 1024
	if availKB < needKB {
		return apkerrors.NewDeviceError("INSUFFICIENT_STORAGE",
			fmt.Sprintf("only %d MB free on /data, need %d MB for a new profile",
				availKB/1024, m.opts.MinStorageMB)).
			WithSuggestion("Free space on the device or lower profiles.min_storage_mb")
	}

	return nil
}

// ensureUserHeadroom verifies the user count is below the ceiling,
// raising the ceiling first when bypass is enabled.
func (m *Manager) ensureUserHeadroom(ctx context.Context, deviceID string, caps adb.Capabilities) error {
	users, err := m.List(ctx, deviceID)
	if err != nil {
		return err
	}

	limit := caps.MaxUsers
	if limit <= 1 {
		limit = m.opts.DefaultMaxUsers
	}

	if len(users) < limit {
		return nil
	}

	if !m.opts.BypassUserLimit || m.engine == nil {
		return apkerrors.NewDeviceError("USER_LIMIT_REACHED",
			fmt.Sprintf("device has %d users of a %d user limit", len(users), limit)).
			WithSuggestion("Remove an existing user or enable profiles.bypass_user_limit")
	}

	want := len(users) + 2
	if err := m.engine.RaiseUserLimit(ctx, deviceID, want); err != nil {
		return err
	}
	m.probe.Invalidate(deviceID)

	m.log.Info().Str("device", deviceID).Int("limit", want).Msg("user limit raised")
	return nil
}
