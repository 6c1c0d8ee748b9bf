package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/doc2pdf/internal/engine"
	"github.com/pdiddy/doc2pdf/internal/enumerate"
	"github.com/pdiddy/doc2pdf/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Count the convertible documents in a directory",
	Long: `Scan lists how many Hangul and Word documents convert would pick up from
the input directory, without starting any application.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("input")
		list, _ := cmd.Flags().GetBool("list")
		if err := enumerate.CheckInputDir(dir); err != nil {
			return err
		}

		scan(cmd.OutOrStdout(), dir, list, engine.Default())
		return nil
	},
}

// scan prints the per-family file counts for dir and whether this build can
// start that family's application.
func scan(out io.Writer, dir string, list bool, registry *engine.Registry) {
	counts := enumerate.Count(dir)
	for _, f := range types.ModeCombined.Families() {
		line := fmt.Sprintf("%s: %d file(s)", f.Label(), counts[f])
		if counts[f] > 0 && !registry.Available(f) {
			line += " (no automation backend on this platform)"
		}
		fmt.Fprintln(out, line)
		if list {
			for _, path := range enumerate.Files(dir, f) {
				fmt.Fprintf(out, "  %s\n", filepath.Base(path))
			}
		}
	}
}

func init() {
	scanCmd.Flags().String("input", "", "directory to scan")
	scanCmd.Flags().Bool("list", false, "print the matching file names")

	rootCmd.AddCommand(scanCmd)
}
