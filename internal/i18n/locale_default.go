//go:build !windows

package i18n

// getPlatformLocales is a no-op on POSIX systems where LANG/LC_* cover the
// locale already.
func getPlatformLocales() []string {
	return nil
}
