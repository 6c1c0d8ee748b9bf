package types

import "time"

// DialogConfig holds settings for the modal dialog suppressor.
type DialogConfig struct {
	// Enabled turns the suppressor on for the editor family (default true).
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Titles lists the window captions treated as interfering dialogs.
	Titles []string `json:"titles" yaml:"titles"`

	// Key is the keystroke sent to dismiss a dialog (default "N").
	Key string `json:"key" yaml:"key"`

	// PollInterval is the delay between window list polls while a
	// document is opening (default 300ms).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// RecheckAttempts bounds the synchronous re-polls after open (default 20).
	RecheckAttempts int `json:"recheck_attempts" yaml:"recheck_attempts"`

	// RecheckInterval is the delay after each dismissal during the
	// re-poll phase (default 300ms).
	RecheckInterval time.Duration `json:"recheck_interval" yaml:"recheck_interval"`
}

// NotifyConfig holds settings for publishing run reports over NATS.
type NotifyConfig struct {
	// NATSURL is the server URL. Publishing is disabled when empty.
	NATSURL string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`

	// Subject is the subject run reports are published on.
	Subject string `json:"subject" yaml:"subject"`
}

// ConverterConfig groups the settings of the convert command.
type ConverterConfig struct {
	Request ConversionRequest `json:"request" yaml:"request"`

	// HWPOpenOptions is the option string passed to the Hangul Open call.
	HWPOpenOptions string `json:"hwp_open_options" yaml:"hwp_open_options"`

	// Verify validates every produced PDF and records its page count.
	Verify bool `json:"verify" yaml:"verify"`

	// ReportPath is where the YAML run report is written. Empty disables it.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`

	// HistoryDB is the SQLite run history database. Empty disables it.
	HistoryDB string `json:"history_db,omitempty" yaml:"history_db,omitempty"`

	Dialog DialogConfig `json:"dialog" yaml:"dialog"`
	Notify NotifyConfig `json:"notify" yaml:"notify"`
}

// DefaultHWPOpenOptions turns off the Hangul prompts that can block an
// unattended Open call.
const DefaultHWPOpenOptions = "versionwarning:false;securitywarning:false;updatechecking:false;passworddlg:false;repair:false"

// DefaultDialogTitles are the captions of the Hangul security and
// permission dialogs.
var DefaultDialogTitles = []string{"경고", "알림", "Warning", "Alert", "한글"}

// DefaultConverterConfig returns the configuration used when no config file
// or flag overrides a value.
func DefaultConverterConfig() ConverterConfig {
	return ConverterConfig{
		Request:        ConversionRequest{Mode: ModeCombined},
		HWPOpenOptions: DefaultHWPOpenOptions,
		Dialog: DialogConfig{
			Enabled:         true,
			Titles:          append([]string(nil), DefaultDialogTitles...),
			Key:             "N",
			PollInterval:    300 * time.Millisecond,
			RecheckAttempts: 20,
			RecheckInterval: 300 * time.Millisecond,
		},
		Notify: NotifyConfig{Subject: "doc2pdf.runs"},
	}
}
