package errors

import (
	"fmt"
	"strings"
	"sync"
)

// Reporter accumulates per-session diagnostic text and, at the end of a run,
// matches it against known failure signatures to produce remediation hints.
// Matching never influences control flow; it only improves operator feedback.
type Reporter struct {
	mu          sync.Mutex
	diagnostics []string
}

// signature pairs a substring that identifies a failure class with the hints
// shown for it. Checks are case-insensitive.
type signature struct {
	marker string
	hints  []string
}

var knownSignatures = []signature{
	{
		marker: "selinux",
		hints: []string{
			"SELinux is enforcing; some read-only properties cannot be changed without a permissive policy",
		},
	},
	{
		marker: "read-only",
		hints: []string{
			"Properties prefixed ro. are often bootloader-enforced; consider a different model/property selection",
		},
	},
	{
		marker: "permission to switch users",
		hints: []string{
			"Unlock the device before switching users",
			"Some devices only allow shell user switching over ADB Wi-Fi debugging",
		},
	},
	{
		marker: "install_failed_insufficient_storage",
		hints: []string{
			"Free up storage on the device before retrying",
		},
	},
	{
		marker: "install_failed_no_matching_abis",
		hints: []string{
			"The package has no native code for this device architecture; use a universal bundle",
		},
	},
	{
		marker: "install_failed_missing_split",
		hints: []string{
			"Split selection may have excluded a required file; the full bundle retry usually resolves this",
		},
	},
	{
		marker: "maximum user limit",
		hints: []string{
			"The device user limit was reached; enable bypass_user_limits or remove stale profiles",
		},
	},
	{
		marker: "resetprop",
		hints: []string{
			"Property spoofing requires a root provider with the resetprop utility installed",
		},
	},
	{
		marker: "unauthorized",
		hints: []string{
			"Accept the USB debugging authorization prompt on the device",
		},
	},
	{
		marker: "offline",
		hints: []string{
			"Reconnect the device or restart the adb server (adb kill-server && adb start-server)",
		},
	},
}

// NewReporter creates an empty diagnostics reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Add records a diagnostic line. Empty strings are ignored.
func (r *Reporter) Add(diag string) {
	diag = strings.TrimSpace(diag)
	if diag == "" {
		return
	}
	r.mu.Lock()
	r.diagnostics = append(r.diagnostics, diag)
	r.mu.Unlock()
}

// Addf is a convenience wrapper over Add for formatted diagnostics.
func (r *Reporter) Addf(format string, args ...interface{}) {
	r.Add(fmt.Sprintf(format, args...))
}

// Diagnostics returns a copy of all recorded diagnostics in order.
func (r *Reporter) Diagnostics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// Hints scans every recorded diagnostic against the signature table and
// returns the deduplicated remediation hints, in first-match order.
func (r *Reporter) Hints() []string {
	r.mu.Lock()
	joined := strings.ToLower(strings.Join(r.diagnostics, "\n"))
	r.mu.Unlock()

	if joined == "" {
		return nil
	}

	var hints []string
	seen := make(map[string]bool)
	for _, sig := range knownSignatures {
		if !strings.Contains(joined, sig.marker) {
			continue
		}
		for _, h := range sig.hints {
			if !seen[h] {
				seen[h] = true
				hints = append(hints, h)
			}
		}
	}
	return hints
}

// Reset clears all recorded diagnostics.
func (r *Reporter) Reset() {
	r.mu.Lock()
	r.diagnostics = nil
	r.mu.Unlock()
}
