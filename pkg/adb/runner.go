package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Exit codes reported by Result for failures of the runner itself rather
// than the remote command.
const (
	ExitTimeout   = -1
	ExitTransport = -2
	ExitMalformed = -3
)

// Options adjusts how a single adb invocation runs.
type Options struct {
	Timeout time.Duration
	AsRoot  bool // wrap shell commands in `su <TargetUserID>`

	// TargetUserID is the uid passed to su when AsRoot is set; zero
	// means root.
	TargetUserID int
}

// DefaultOptions returns Options with the given timeout and no root wrapping.
func DefaultOptions(timeout time.Duration) Options {
	return Options{Timeout: timeout}
}

// Result is the outcome of one adb invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Combined returns stdout and stderr joined, trimmed.
func (r Result) Combined() string {
	return strings.TrimSpace(r.Stdout + r.Stderr)
}

// OK reports whether the command ran and exited zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// TimedOut reports whether the invocation was killed by its timeout.
func (r Result) TimedOut() bool {
	return r.ExitCode == ExitTimeout
}

// Runner executes adb commands against a device. Implementations must be
// safe for concurrent use.
type Runner interface {
	// Run invokes adb with the given arguments (e.g. "install", "push").
	Run(ctx context.Context, deviceID string, args []string, opts Options) Result

	// Shell invokes `adb shell` with argv quoted for the device shell,
	// honoring opts.AsRoot.
	Shell(ctx context.Context, deviceID string, argv []string, opts Options) Result
}

// ExecRunner runs the adb binary via os/exec.
type ExecRunner struct {
	ADBPath string
}

// NewExecRunner returns an ExecRunner for the given adb binary path.
// An empty path falls back to "adb" on PATH.
func NewExecRunner(adbPath string) *ExecRunner {
	if adbPath == "" {
		adbPath = "adb"
	}
	return &ExecRunner{ADBPath: adbPath}
}

func (e *ExecRunner) Run(ctx context.Context, deviceID string, args []string, opts Options) Result {
	if len(args) == 0 {
		return Result{ExitCode: ExitMalformed, Stderr: "empty adb command"}
	}

	full := make([]string, 0, len(args)+2)
	if deviceID != "" {
		full = append(full, "-s", deviceID)
	}
	full = append(full, args...)

	return e.exec(ctx, full, opts.Timeout)
}

func (e *ExecRunner) Shell(ctx context.Context, deviceID string, argv []string, opts Options) Result {
	if len(argv) == 0 {
		return Result{ExitCode: ExitMalformed, Stderr: "empty shell command"}
	}

	return e.Run(ctx, deviceID, shellInvocation(argv, opts), Options{Timeout: opts.Timeout})
}

// shellInvocation builds the adb argv for a shell command, wrapping it
// in su when opts.AsRoot is set. su takes the whole command as a single
// quoted string.
func shellInvocation(argv []string, opts Options) []string {
	if !opts.AsRoot {
		return append([]string{"shell"}, argv...)
	}
	uid := opts.TargetUserID
	if uid < 0 {
		uid = 0
	}
	return []string{"shell", "su", strconv.Itoa(uid), quoteShellLine(argv)}
}

func (e *ExecRunner) exec(ctx context.Context, args []string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.ADBPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	switch {
	case err == nil:
		result.ExitCode = 0
	case ctx.Err() == context.DeadlineExceeded:
		result.ExitCode = ExitTimeout
		if result.Stderr == "" {
			result.Stderr = fmt.Sprintf("command timed out after %s", timeout)
		}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = ExitTransport
			result.Stderr = strings.TrimSpace(result.Stderr + "\n" + err.Error())
		}
	}

	return result
}

// quoteShellLine joins argv into a single string safe to pass through
// `su 0` to the device shell. Single quotes inside tokens are escaped
// and tokens containing shell metacharacters are wrapped.
func quoteShellLine(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = quoteShellToken(arg)
	}
	return strings.Join(quoted, " ")
}

func quoteShellToken(tok string) string {
	if tok == "" {
		return "''"
	}
	if !strings.ContainsAny(tok, " \t\n'\"\\&|;()<>`$!*?#") {
		return tok
	}
	return "'" + strings.ReplaceAll(tok, "'", `'\''`) + "'"
}
