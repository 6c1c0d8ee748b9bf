package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/doc2pdf/internal/convert"
	"github.com/pdiddy/doc2pdf/internal/coordinator"
	"github.com/pdiddy/doc2pdf/internal/dialog"
	"github.com/pdiddy/doc2pdf/internal/engine"
	"github.com/pdiddy/doc2pdf/internal/history"
	"github.com/pdiddy/doc2pdf/internal/notify"
	"github.com/pdiddy/doc2pdf/internal/report"
	"github.com/pdiddy/doc2pdf/internal/secrets"
	"github.com/pdiddy/doc2pdf/internal/verify"
	"github.com/pdiddy/doc2pdf/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert every Hangul and Word document in a directory to PDF",
	Long: `Convert opens each matching document in its vendor application and saves
it as <name>.pdf in the output directory. Hangul files are converted first,
then Word files. A file that fails is reported and skipped; the batch goes on.

Press Ctrl-C to stop after the file in progress.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("input", "", "directory holding the documents to convert")
	convertCmd.Flags().String("output", "", "directory for the PDF files (created if missing)")
	convertCmd.Flags().String("mode", "all", "families to convert: hwp, word, or all")
	convertCmd.Flags().Bool("verify", false, "validate each PDF and record its page count")
	convertCmd.Flags().String("report", "", "write the run report to this YAML file")
	convertCmd.Flags().String("history-db", "", "run history database (default: ~/.config/doc2pdf/history.db)")
	convertCmd.Flags().String("nats-url", "", "publish the finished run to this NATS server")
	convertCmd.Flags().String("nats-subject", "", "NATS subject for run events (default: doc2pdf.runs)")
	convertCmd.Flags().Bool("no-dialogs", false, "do not watch for Hangul security dialogs")

	for key, flag := range map[string]string{
		"input":           "input",
		"output":          "output",
		"mode":            "mode",
		"verify":          "verify",
		"report":          "report",
		"history_db":      "history-db",
		"notify.nats_url": "nats-url",
		"notify.subject":  "nats-subject",
	} {
		_ = viper.BindPFlag(key, convertCmd.Flags().Lookup(flag))
	}

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := converterConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if noDialogs, _ := cmd.Flags().GetBool("no-dialogs"); noDialogs {
		cfg.Dialog.Enabled = false
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := convert.NewWriterProgress(cmd.OutOrStdout()).EchoStatus(cmd.ErrOrStderr())
	coord, closeAll := buildCoordinator(cfg, progress)
	defer closeAll()

	release := watchInterrupt(ctx, stop, progress.Current, cmd.ErrOrStderr())
	r, err := coord.Run(ctx, cfg.Request)
	release()
	if err != nil {
		return err
	}
	if err := r.Err(); err != nil {
		return err
	}
	if n := r.TotalFailed(); n > 0 {
		return fmt.Errorf("%d file(s) failed to convert", n)
	}
	return nil
}

// watchInterrupt restores default signal handling once ctx is cancelled, so
// a second interrupt kills a process stuck in a host call. current names the
// work still in flight. The returned function stops the watch.
func watchInterrupt(ctx context.Context, stop func(), current func() string, w io.Writer) func() {
	finished := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			stop()
			msg := "stopping after the current file"
			if s := current(); s != "" {
				msg = fmt.Sprintf("stopping after the current file (%s)", s)
			}
			fmt.Fprintf(w, "%s; interrupt again to exit immediately\n", msg)
		case <-finished:
		}
	}()
	return func() {
		close(finished)
		<-exited
	}
}

// buildCoordinator wires the engine registry, converters and run observers
// for cfg. The returned function releases the observers.
func buildCoordinator(cfg types.ConverterConfig, progress convert.Progress) (*coordinator.Coordinator, func()) {
	registry := engine.Default()

	common := []convert.Option{
		convert.WithProgress(progress),
		convert.WithLogger(logger),
		convert.WithOpenOptions(engine.OpenOptions{Flags: cfg.HWPOpenOptions}),
	}
	if cfg.Verify {
		common = append(common, convert.WithVerifier(verify.NewPDFVerifier()))
	}

	editorOpts := slices.Clone(common)
	if cfg.Dialog.Enabled {
		s := dialog.New(dialog.SystemDesktop(), dialog.ConfigFrom(cfg.Dialog), logger)
		editorOpts = append(editorOpts, convert.WithSuppressor(s))
	}

	converters := make(map[types.Family]coordinator.BatchConverter)
	for _, a := range []*convert.Adapter{
		convert.NewAdapter(types.FamilyEditor, registry, editorOpts...),
		convert.NewAdapter(types.FamilyWord, registry, common...),
	} {
		converters[a.Family()] = a
	}

	opts := []coordinator.Option{
		coordinator.WithProgress(progress),
		coordinator.WithLogger(logger),
	}
	var closers []func()

	if cfg.HistoryDB != "" {
		store, err := history.NewStore(cfg.HistoryDB)
		if err != nil {
			logger.Warn("run history disabled", "path", cfg.HistoryDB, "error", err)
		} else {
			closers = append(closers, func() { store.Close() })
			opts = append(opts, coordinator.WithNotifier(store))
		}
	}
	if cfg.ReportPath != "" {
		opts = append(opts, coordinator.WithNotifier(report.YAMLWriter{Path: cfg.ReportPath}))
	}
	if cfg.Notify.NATSURL != "" {
		pub, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject, natsCredentials(), logger)
		if err != nil {
			logger.Warn("run notifications disabled", "url", cfg.Notify.NATSURL, "error", err)
		} else {
			closers = append(closers, pub.Close)
			opts = append(opts, coordinator.WithNotifier(pub))
		}
	}

	closeAll := func() {
		for _, c := range slices.Backward(closers) {
			c()
		}
	}
	return coordinator.New(converters, opts...), closeAll
}

// natsCredentials reads the notifier credentials from the secrets directory.
func natsCredentials() notify.Credentials {
	dir := viper.GetString("secrets_dir")
	set, err := secrets.Load(dir, logger)
	if err != nil {
		logger.Warn("secrets not loaded", "dir", dir, "error", err)
		return notify.Credentials{}
	}
	if names := set.Names(); len(names) > 0 {
		logger.Debug("loaded secrets", "names", names)
	}
	return notify.Credentials{
		Token:    set[secrets.KeyNATSToken],
		User:     set[secrets.KeyNATSUser],
		Password: set[secrets.KeyNATSPassword],
	}
}
