package cmd

import "testing"

func TestRootCommandWiresSetup(t *testing.T) {
	if rootCmd.PersistentPreRunE == nil {
		t.Fatal("root command must run setup before subcommands")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	want := map[string]bool{
		"install": false, "spoof": false, "restore": false,
		"profile": false, "devices": false, "doctor": false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing %s subcommand", name)
		}
	}
}
