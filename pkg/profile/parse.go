// Package profile manages Android user profiles: creation with backoff,
// validated switching, and removal with cleanup.
package profile

import (
	"regexp"
	"strconv"
	"strings"
)

// User is one Android user reported by the device.
type User struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Flags   string `json:"flags"`
	Running bool   `json:"running"`
	Current bool   `json:"current"`
}

// createdUserIDPatterns is the ladder of formats `pm create-user` output
// has taken across Android releases and OEM builds, most specific first.
var createdUserIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Success: created user id (\d+)`),
	regexp.MustCompile(`(?i)success.*user id[:\s]+(\d+)`),
	regexp.MustCompile(`(?i)created user[:\s]+(\d+)`),
	regexp.MustCompile(`(?i)new user[:\s]+(\d+)`),
	regexp.MustCompile(`UserInfo\{(\d+):`),
	regexp.MustCompile(`(?i)user id[:\s]+(\d+)`),
	regexp.MustCompile(`(?i)\bid[:\s]+(\d+)`),
	regexp.MustCompile(`(?i)user[:\s]+(\d+)\b`),
	regexp.MustCompile(`\b(\d{1,3})\b`),
}

// ParseCreatedUserID extracts the new user ID from pm create-user output.
func ParseCreatedUserID(output string) (int, bool) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return 0, false
	}

	// Some builds print just the ID.
	if id, err := strconv.Atoi(trimmed); err == nil {
		return id, true
	}

	for _, re := range createdUserIDPatterns {
		if m := re.FindStringSubmatch(output); m != nil {
			if id, err := strconv.Atoi(m[1]); err == nil {
				return id, true
			}
		}
	}

	return 0, false
}

var userInfoRe = regexp.MustCompile(`UserInfo\{(\d+):([^:]*):([0-9a-fA-F]+)\}(.*)`)

// ParseUserList parses `pm list users` output.
func ParseUserList(output string, currentID int) []User {
	var users []User
	for _, line := range strings.Split(output, "\n") {
		m := userInfoRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		users = append(users, User{
			ID:      id,
			Name:    m[2],
			Flags:   m[3],
			Running: strings.Contains(m[4], "running"),
			Current: id == currentID,
		})
	}
	return users
}

// ParseAvailableKB extracts the available KB for /data from `df -k`
// output. The second return is false when the output cannot be parsed;
// callers treat that as sufficient space rather than blocking.
func ParseAvailableKB(output string) (int64, bool) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) < 2 {
		return 0, false
	}

	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		// Filesystem Size Used Avail Use% Mounted
		if len(fields) < 4 {
			continue
		}
		avail, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			continue
		}
		return avail, true
	}

	return 0, false
}
