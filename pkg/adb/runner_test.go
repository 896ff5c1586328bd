package adb

import (
	"strings"
	"testing"
)

func TestQuoteShellToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "getprop", "getprop"},
		{"dotted", "ro.build.fingerprint", "ro.build.fingerprint"},
		{"empty", "", "''"},
		{"space", "hello world", "'hello world'"},
		{"single quote", "it's", `'it'\''s'`},
		{"fingerprint value", "google/husky/husky:14/UQ1A.240105.002/11201234:user/release-keys", "google/husky/husky:14/UQ1A.240105.002/11201234:user/release-keys"},
		{"ampersand", "a&b", "'a&b'"},
		{"semicolon", "a;reboot", "'a;reboot'"},
		{"backtick", "a`b", "'a`b'"},
		{"glob", "*.apk", "'*.apk'"},
		{"redirect", "a>b", "'a>b'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quoteShellToken(tt.in); got != tt.want {
				t.Errorf("quoteShellToken(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuoteShellLine(t *testing.T) {
	got := quoteShellLine([]string{"setprop", "ro.product.model", "Pixel 8 Pro"})
	want := "setprop ro.product.model 'Pixel 8 Pro'"
	if got != want {
		t.Errorf("quoteShellLine = %q, want %q", got, want)
	}
}

func TestResultCombined(t *testing.T) {
	r := Result{Stdout: "Success\n", Stderr: ""}
	if got := r.Combined(); got != "Success" {
		t.Errorf("Combined = %q, want %q", got, "Success")
	}

	if !r.OK() {
		t.Error("expected OK for exit code 0")
	}

	timeout := Result{ExitCode: ExitTimeout}
	if !timeout.TimedOut() {
		t.Error("expected TimedOut for ExitTimeout")
	}
	if timeout.OK() {
		t.Error("timed out result must not be OK")
	}
}

func TestShellInvocation(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		opts Options
		want string
	}{
		{"plain", []string{"getprop", "ro.serialno"}, Options{},
			"shell getprop ro.serialno"},
		{"root default uid", []string{"resetprop", "ro.product.model", "Pixel 8 Pro"}, Options{AsRoot: true},
			"shell su 0 resetprop ro.product.model 'Pixel 8 Pro'"},
		{"root explicit uid", []string{"mkdir", "-p", "/storage/emulated/10/Android/obb"}, Options{AsRoot: true, TargetUserID: 10},
			"shell su 10 mkdir -p /storage/emulated/10/Android/obb"},
		{"negative uid clamped", []string{"id"}, Options{AsRoot: true, TargetUserID: -1},
			"shell su 0 id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(shellInvocation(tt.argv, tt.opts), " ")
			if got != tt.want {
				t.Errorf("shellInvocation = %q, want %q", got, tt.want)
			}
		})
	}
}
