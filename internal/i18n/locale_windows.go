//go:build windows

package i18n

import (
	"strings"

	"golang.org/x/sys/windows"
)

// getPlatformLocales queries the Windows user preferred UI languages,
// since LANG style environment variables are rarely set there.
func getPlatformLocales() []string {
	var numLanguages uint32
	var bufferSize uint32

	err := windows.GetUserPreferredUILanguages(windows.MUI_LANGUAGE_NAME, &numLanguages, nil, &bufferSize)
	if err != nil || bufferSize == 0 {
		return nil
	}

	buffer := make([]uint16, bufferSize)
	err = windows.GetUserPreferredUILanguages(windows.MUI_LANGUAGE_NAME, &numLanguages, &buffer[0], &bufferSize)
	if err != nil {
		return nil
	}

	// The buffer is a sequence of NUL-terminated strings, ending with a double NUL.
	var locales []string
	start := 0
	for i, c := range buffer {
		if c == 0 {
			if i > start {
				locale := windows.UTF16ToString(buffer[start:i])
				if locale != "" {
					locales = append(locales, strings.TrimSpace(locale))
				}
			}
			start = i + 1
		}
	}

	return locales
}
