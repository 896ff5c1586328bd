// Package adbtest provides a scripted Runner for tests.
package adbtest

import (
	"context"
	"strings"
	"sync"

	"github.com/aaronvstory/ADB-APK-Installer-Spoofer/pkg/adb"
)

// Call records one invocation of the fake runner.
type Call struct {
	DeviceID string
	Args     []string
	Shell    bool
	AsRoot   bool
}

// Line is the joined command string for matching in scripts.
func (c Call) Line() string {
	return strings.Join(c.Args, " ")
}

// Runner is a scripted adb.Runner. Responses are matched by command
// prefix in registration order; unmatched commands get the Default
// result (exit 0, empty output, unless set otherwise).
type Runner struct {
	mu        sync.Mutex
	responses []response
	calls     []Call

	// Default is returned for commands with no matching script entry.
	Default adb.Result
}

type response struct {
	prefix string
	result adb.Result
	once   bool
	used   bool
}

// New returns an empty scripted runner.
func New() *Runner {
	return &Runner{}
}

// On registers a result for any command whose joined args start with prefix.
func (r *Runner) On(prefix string, result adb.Result) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{prefix: prefix, result: result})
	return r
}

// OnOnce registers a result consumed by the first matching command only.
// Later matches fall through to other entries or the default.
func (r *Runner) OnOnce(prefix string, result adb.Result) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{prefix: prefix, result: result, once: true})
	return r
}

// Stdout is shorthand for On with a successful result carrying stdout.
func (r *Runner) Stdout(prefix, stdout string) *Runner {
	return r.On(prefix, adb.Result{ExitCode: 0, Stdout: stdout})
}

// Fail is shorthand for On with a failing result carrying stderr.
func (r *Runner) Fail(prefix string, exitCode int, stderr string) *Runner {
	return r.On(prefix, adb.Result{ExitCode: exitCode, Stderr: stderr})
}

func (r *Runner) Run(ctx context.Context, deviceID string, args []string, opts adb.Options) adb.Result {
	return r.record(Call{DeviceID: deviceID, Args: args})
}

func (r *Runner) Shell(ctx context.Context, deviceID string, argv []string, opts adb.Options) adb.Result {
	return r.record(Call{DeviceID: deviceID, Args: argv, Shell: true, AsRoot: opts.AsRoot})
}

func (r *Runner) record(call Call) adb.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, call)
	line := call.Line()

	for i := range r.responses {
		resp := &r.responses[i]
		if resp.once && resp.used {
			continue
		}
		if strings.HasPrefix(line, resp.prefix) {
			resp.used = true
			return resp.result
		}
	}

	return r.Default
}

// Calls returns a copy of all recorded invocations.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallLines returns the joined command strings of all invocations.
func (r *Runner) CallLines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Line()
	}
	return lines
}

// Saw reports whether any recorded command starts with prefix.
func (r *Runner) Saw(prefix string) bool {
	for _, line := range r.CallLines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
