package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc2pdf/internal/history"
	"github.com/pdiddy/doc2pdf/internal/report"
	"github.com/pdiddy/doc2pdf/pkg/types"
)

// historyDB holds the --history-db flag value.
var historyDB string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List earlier conversion runs",
	Long: `History lists the most recent conversion runs recorded in the run history
database, newest first. Use "history show RUN_ID" for the full report of one run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		printRuns(out, runs)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [RUN_ID]",
	Short: "Show the full report of one run",
	Long: `Show prints the full report of one run from the run history database, or,
with --file, from a report written by "convert --report".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asYAML, _ := cmd.Flags().GetBool("yaml")
		file, _ := cmd.Flags().GetString("file")

		r, err := loadRun(cmd.Context(), file, args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asYAML {
			data, err := yaml.Marshal(r)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}
		printRun(out, r)
		return nil
	},
}

// loadRun reads one run from a report file or, without one, from the history
// database by ID.
func loadRun(ctx context.Context, file string, args []string) (*types.RunReport, error) {
	switch {
	case file != "" && len(args) > 0:
		return nil, errors.New("give either a run ID or --file, not both")
	case file != "":
		r, err := report.ReadYAML(file)
		if err != nil {
			return nil, err
		}
		if !r.State.Terminal() {
			return nil, fmt.Errorf("%s does not hold a finished run (state %q)", file, r.State)
		}
		return r, nil
	case len(args) == 0:
		return nil, errors.New("a run ID or --file is required")
	}

	store, err := openHistory()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(ctx, args[0])
}

func printRun(out io.Writer, r *types.RunReport) {
	fmt.Fprintf(out, "run %s (%s)\n", r.ID, r.Request.Mode)
	fmt.Fprintf(out, "input:  %s\noutput: %s\n", r.Request.InputDir, r.Request.OutputDir)
	fmt.Fprintf(out, "started %s, took %s\n", r.StartedAt.Local().Format(time.DateTime), r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	for _, fr := range r.Families {
		for _, o := range fr.Outcomes {
			line := fmt.Sprintf("  %-7s %s", o.Result, o.Job.Name())
			if o.Pages > 0 {
				line += fmt.Sprintf(" (%d pages)", o.Pages)
			}
			if o.Reason != "" {
				line += ": " + o.Reason
			}
			fmt.Fprintln(out, line)
		}
	}
	fmt.Fprint(out, report.Text(r))
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDB, "history-db", "", "run history database (default: ~/.config/doc2pdf/history.db)")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")
	historyShowCmd.Flags().Bool("yaml", false, "output the report as YAML")
	historyShowCmd.Flags().String("file", "", "read the run from this YAML report instead of the history database")

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, error) {
	path := historyDB
	if path == "" {
		path = viper.GetString("history_db")
	}
	if path == "" {
		return nil, errors.New("no run history database configured (set history_db or --history-db)")
	}
	return history.NewStore(path)
}

func printRuns(w io.Writer, runs []history.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	fmt.Fprintf(w, "%-36s  %-19s  %-9s  %-4s  %7s  %6s\n", "ID", "STARTED", "STATE", "MODE", "SUCCESS", "FAILED")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %-9s  %-4s  %7d  %6d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.State, r.Mode, r.Success, r.Failed)
	}
}
