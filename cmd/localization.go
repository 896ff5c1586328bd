package cmd

import "github.com/aaronvstory/ADB-APK-Installer-Spoofer/internal/i18n"

// applyCommandLocalization updates command and flag descriptions after
// i18n is initialized.
func applyCommandLocalization() {
	rootCmd.Short = i18n.T("cmd.root.short")
	rootCmd.Long = i18n.T("cmd.root.long")

	if flag := rootCmd.PersistentFlags().Lookup("config"); flag != nil {
		flag.Usage = i18n.T("cmd.root.flag.config")
	}
	if flag := rootCmd.PersistentFlags().Lookup("device"); flag != nil {
		flag.Usage = i18n.T("cmd.root.flag.device")
	}
	if flag := rootCmd.PersistentFlags().Lookup("verbose"); flag != nil {
		flag.Usage = i18n.T("cmd.root.flag.verbose")
	}
	if flag := rootCmd.PersistentFlags().Lookup("quiet"); flag != nil {
		flag.Usage = i18n.T("cmd.root.flag.quiet")
	}
	if flag := rootCmd.PersistentFlags().Lookup("lang"); flag != nil {
		flag.Usage = i18n.T("cmd.root.flag.lang")
	}
	if flag := rootCmd.PersistentFlags().Lookup("log-file"); flag != nil {
		flag.Usage = i18n.T("cmd.root.flag.logFile")
	}

	versionCmd.Short = i18n.T("cmd.version.short")
	devicesCmd.Short = i18n.T("cmd.devices.short")

	installCmd.Short = i18n.T("cmd.install.short")
	installCmd.Long = i18n.T("cmd.install.long")
	if flag := installCmd.Flags().Lookup("user"); flag != nil {
		flag.Usage = i18n.T("cmd.install.flag.user")
	}
	if flag := installCmd.Flags().Lookup("spoof"); flag != nil {
		flag.Usage = i18n.T("cmd.install.flag.spoof")
	}
	if flag := installCmd.Flags().Lookup("grant-perms"); flag != nil {
		flag.Usage = i18n.T("cmd.install.flag.grantPerms")
	}
	if flag := installCmd.Flags().Lookup("downgrade"); flag != nil {
		flag.Usage = i18n.T("cmd.install.flag.downgrade")
	}
	if flag := installCmd.Flags().Lookup("yes"); flag != nil {
		flag.Usage = i18n.T("cmd.install.flag.yes")
	}

	spoofCmd.Short = i18n.T("cmd.spoof.short")
	spoofCmd.Long = i18n.T("cmd.spoof.long")
	if flag := spoofCmd.Flags().Lookup("manufacturer"); flag != nil {
		flag.Usage = i18n.T("cmd.spoof.flag.manufacturer")
	}
	if flag := spoofCmd.Flags().Lookup("android-version"); flag != nil {
		flag.Usage = i18n.T("cmd.spoof.flag.androidVersion")
	}
	if flag := spoofCmd.Flags().Lookup("model"); flag != nil {
		flag.Usage = i18n.T("cmd.spoof.flag.model")
	}
	if flag := spoofCmd.Flags().Lookup("patterns"); flag != nil {
		flag.Usage = i18n.T("cmd.spoof.flag.patterns")
	}
	if flag := spoofCmd.Flags().Lookup("dry-run"); flag != nil {
		flag.Usage = i18n.T("cmd.spoof.flag.dryRun")
	}
	if flag := spoofCmd.Flags().Lookup("android-id"); flag != nil {
		flag.Usage = i18n.T("cmd.spoof.flag.androidID")
	}

	restoreCmd.Short = i18n.T("cmd.restore.short")

	profileCmd.Short = i18n.T("cmd.profile.short")
	profileCreateCmd.Short = i18n.T("cmd.profile.create.short")
	profileSwitchCmd.Short = i18n.T("cmd.profile.switch.short")
	profileRemoveCmd.Short = i18n.T("cmd.profile.remove.short")
	profileListCmd.Short = i18n.T("cmd.profile.list.short")

	doctorCmd.Short = i18n.T("cmd.doctor.short")
	initCmd.Short = i18n.T("cmd.init.short")
}
