package adb

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Capabilities describes what a device supports. Probed once per device
// and cached; Detect forces a re-probe.
type Capabilities struct {
	DeviceID       string `json:"device_id"`
	SDK            int    `json:"sdk"`
	Root           bool   `json:"root"`
	Resetprop      bool   `json:"resetprop"`
	MultiUser      bool   `json:"multi_user"`
	MaxUsers       int    `json:"max_users"`
	EphemeralUsers bool   `json:"ephemeral_users"`
}

// Probe caches capability detection results per device.
type Probe struct {
	runner Runner

	mu    sync.Mutex
	cache map[string]Capabilities
}

// NewProbe returns a Probe backed by the given runner.
func NewProbe(runner Runner) *Probe {
	return &Probe{
		runner: runner,
		cache:  make(map[string]Capabilities),
	}
}

// Get returns cached capabilities for the device, probing on first use.
func (p *Probe) Get(ctx context.Context, deviceID string) (Capabilities, error) {
	p.mu.Lock()
	if caps, ok := p.cache[deviceID]; ok {
		p.mu.Unlock()
		return caps, nil
	}
	p.mu.Unlock()

	return p.Detect(ctx, deviceID)
}

// Detect probes the device and replaces any cached result.
func (p *Probe) Detect(ctx context.Context, deviceID string) (Capabilities, error) {
	caps := Capabilities{DeviceID: deviceID}

	// Every sub-probe is best effort; an unreadable SDK stays 0 and the
	// remaining probes still run.
	sdk := 0
	sdkRes := p.runner.Shell(ctx, deviceID, []string{"getprop", "ro.build.version.sdk"}, DefaultOptions(10*time.Second))
	if sdkRes.OK() {
		if n, err := strconv.Atoi(strings.TrimSpace(sdkRes.Stdout)); err == nil {
			sdk = n
		}
	}
	caps.SDK = sdk

	// Android 8.0 added ephemeral (guest-like) users to pm create-user.
	caps.EphemeralUsers = sdk >= 26

	caps.Root = p.detectRoot(ctx, deviceID)
	if caps.Root {
		caps.Resetprop = p.detectResetprop(ctx, deviceID)
	}

	caps.MaxUsers, caps.MultiUser = p.detectMultiUser(ctx, deviceID, sdk)

	p.mu.Lock()
	p.cache[deviceID] = caps
	p.mu.Unlock()

	return caps, nil
}

func (p *Probe) detectRoot(ctx context.Context, deviceID string) bool {
	res := p.runner.Shell(ctx, deviceID, []string{"id"}, Options{Timeout: 10 * time.Second, AsRoot: true})
	return res.OK() && strings.Contains(res.Stdout, "uid=0")
}

func (p *Probe) detectResetprop(ctx context.Context, deviceID string) bool {
	res := p.runner.Shell(ctx, deviceID, []string{"which", "resetprop"}, Options{Timeout: 10 * time.Second, AsRoot: true})
	return res.OK() && strings.TrimSpace(res.Stdout) != ""
}

var (
	maxUsersRe = regexp.MustCompile(`(?i)maximum supported users:?\s*(\d+)`)
	digitRunRe = regexp.MustCompile(`\d+`)
)

// parseMaxUsers extracts a user ceiling from pm get-max-users output,
// which varies by OEM: the stock "Maximum supported users: N" line, a
// bare number, or a number buried in other text.
func parseMaxUsers(output string) (int, bool) {
	if m := maxUsersRe.FindStringSubmatch(output); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	if n, err := strconv.Atoi(strings.TrimSpace(output)); err == nil {
		return n, true
	}
	if m := digitRunRe.FindString(output); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n, true
		}
	}
	return 0, false
}

// detectMultiUser returns the user ceiling and whether multiple users are
// usable. When pm yields nothing the fw.max_users property is consulted,
// then a stock-Android default of 4. Devices that report a ceiling of 1
// may still support multiple users via the multi_user_enabled global
// setting (SDK 21+).
func (p *Probe) detectMultiUser(ctx context.Context, deviceID string, sdk int) (int, bool) {
	maxUsers := 0

	res := p.runner.Shell(ctx, deviceID, []string{"pm", "get-max-users"}, DefaultOptions(10*time.Second))
	if res.OK() {
		if n, ok := parseMaxUsers(res.Stdout); ok {
			maxUsers = n
		}
	}

	if maxUsers == 0 {
		fw := p.runner.Shell(ctx, deviceID, []string{"getprop", "fw.max_users"}, DefaultOptions(10*time.Second))
		if fw.OK() {
			if n, err := strconv.Atoi(strings.TrimSpace(fw.Stdout)); err == nil && n > 0 {
				maxUsers = n
			}
		}
	}

	if maxUsers == 0 {
		maxUsers = 4
	}

	if maxUsers > 1 {
		return maxUsers, true
	}

	if sdk >= 21 {
		setting := p.runner.Shell(ctx, deviceID,
			[]string{"settings", "get", "global", "multi_user_enabled"}, DefaultOptions(10*time.Second))
		if setting.OK() && strings.TrimSpace(setting.Stdout) == "1" {
			return maxUsers, true
		}
	}

	return maxUsers, false
}

// Invalidate drops the cached capabilities for a device.
func (p *Probe) Invalidate(deviceID string) {
	p.mu.Lock()
	delete(p.cache, deviceID)
	p.mu.Unlock()
}
