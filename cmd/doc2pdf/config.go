package main

import (
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pdiddy/doc2pdf/pkg/types"
)

// setDefaults registers the built-in configuration values on v.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConverterConfig()

	v.SetDefault("log_level", "info")
	v.SetDefault("secrets_dir", ".secrets")
	v.SetDefault("mode", string(d.Request.Mode))
	v.SetDefault("hwp_open_options", d.HWPOpenOptions)
	v.SetDefault("verify", d.Verify)
	v.SetDefault("report", d.ReportPath)
	v.SetDefault("history_db", defaultHistoryDB())

	v.SetDefault("dialog.enabled", d.Dialog.Enabled)
	v.SetDefault("dialog.titles", d.Dialog.Titles)
	v.SetDefault("dialog.key", d.Dialog.Key)
	v.SetDefault("dialog.poll_interval", d.Dialog.PollInterval)
	v.SetDefault("dialog.recheck_attempts", d.Dialog.RecheckAttempts)
	v.SetDefault("dialog.recheck_interval", d.Dialog.RecheckInterval)

	v.SetDefault("notify.nats_url", d.Notify.NATSURL)
	v.SetDefault("notify.subject", d.Notify.Subject)
}

func defaultHistoryDB() string {
	dir := configDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "history.db")
}

// converterConfig reads the convert command settings from v.
func converterConfig(v *viper.Viper) (types.ConverterConfig, error) {
	mode, err := types.ParseMode(v.GetString("mode"))
	if err != nil {
		return types.ConverterConfig{}, err
	}

	return types.ConverterConfig{
		Request: types.ConversionRequest{
			InputDir:  v.GetString("input"),
			OutputDir: v.GetString("output"),
			Mode:      mode,
		},
		HWPOpenOptions: v.GetString("hwp_open_options"),
		Verify:         v.GetBool("verify"),
		ReportPath:     v.GetString("report"),
		HistoryDB:      v.GetString("history_db"),
		Dialog: types.DialogConfig{
			Enabled:         v.GetBool("dialog.enabled"),
			Titles:          v.GetStringSlice("dialog.titles"),
			Key:             v.GetString("dialog.key"),
			PollInterval:    v.GetDuration("dialog.poll_interval"),
			RecheckAttempts: v.GetInt("dialog.recheck_attempts"),
			RecheckInterval: v.GetDuration("dialog.recheck_interval"),
		},
		Notify: types.NotifyConfig{
			NATSURL: v.GetString("notify.nats_url"),
			Subject: v.GetString("notify.subject"),
		},
	}, nil
}
