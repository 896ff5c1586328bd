package main

import "github.com/aaronvstory/ADB-APK-Installer-Spoofer/cmd"

func main() {
	cmd.Execute()
}
