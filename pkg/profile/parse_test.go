package profile

import "testing"

func TestParseCreatedUserID(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   int
		ok     bool
	}{
		{"stock success", "Success: created user id 10\n", 10, true},
		{"bare id", "11\n", 11, true},
		{"userinfo form", "UserInfo{12:profile:410}\n", 12, true},
		{"oem phrasing", "New user: 13 created\n", 13, true},
		{"colon id", "created user: 14", 14, true},
		{"no id", "Error: couldn't create user\n", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCreatedUserID(tt.output)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseCreatedUserID(%q) = %d/%v, want %d/%v",
					tt.output, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseUserList(t *testing.T) {
	output := `Users:
	UserInfo{0:Owner:c13} running
	UserInfo{10:profile-1700000000:410}
	UserInfo{11:work:1030} running
`

	users := ParseUserList(output, 11)
	if len(users) != 3 {
		t.Fatalf("got %d users, want 3", len(users))
	}

	if users[0].ID != 0 || users[0].Name != "Owner" || !users[0].Running {
		t.Errorf("owner = %+v", users[0])
	}
	if users[1].ID != 10 || users[1].Running {
		t.Errorf("profile user = %+v", users[1])
	}
	if !users[2].Current {
		t.Error("user 11 should be marked current")
	}
}

func TestParseAvailableKB(t *testing.T) {
	dfOutput := `Filesystem     1K-blocks    Used Available Use% Mounted on
/dev/block/dm-5 115247240 8123456 107123784   8% /data
`

	avail, ok := ParseAvailableKB(dfOutput)
	if !ok || avail != 107123784 {
		t.Errorf("ParseAvailableKB = %d/%v", avail, ok)
	}

	if _, ok := ParseAvailableKB("garbage"); ok {
		t.Error("unparseable df output must report not-ok")
	}
	if _, ok := ParseAvailableKB(""); ok {
		t.Error("empty df output must report not-ok")
	}
}
