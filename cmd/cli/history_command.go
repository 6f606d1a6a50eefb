package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mediasort/pkg/config"
	"mediasort/pkg/storage"
)

const historyTimeLayout = "2006-01-02 15:04"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show earlier runs, or the moves of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := output
			if dir == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = ctx.config.OutputFor(cwd)
			}
			dir, err := config.ExpandPath(dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			dbPath := filepath.Join(dir, storage.CatalogFile)
			if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(out, "No runs recorded in %s\n", dir)
				return nil
			}
			db, err := storage.NewCatalogDbStorage(dbPath)
			if err != nil {
				return err
			}
			defer db.CloseDb()

			if len(args) == 1 {
				moves, err := db.GetMovesByRun(args[0])
				if err != nil {
					return err
				}
				if len(moves) == 0 {
					return fmt.Errorf("no moves recorded for run %q", args[0])
				}
				rows := make([][]string, 0, len(moves))
				for _, m := range moves {
					taken := ""
					if !m.Taken.IsZero() {
						taken = m.Taken.Format(historyTimeLayout)
					}
					rows = append(rows, []string{filepath.Base(m.Source), relTo(dir, m.Destination), taken, m.TakenSource, m.Camera})
				}
				fmt.Fprintln(out, renderTable([]string{"File", "Destination", "Taken", "Date from", "Camera"}, rows, nil))
				return nil
			}

			runs, err := db.GetAllRuns()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintf(out, "No runs recorded in %s\n", dir)
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					shortID(r.ID),
					r.StartedAt.Local().Format(historyTimeLayout),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
					r.SourceDir,
					strconv.Itoa(r.Moved),
					strconv.Itoa(r.Duplicates),
					strconv.Itoa(r.Failed),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Took", "Source", "Moved", "Duplicates", "Failed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory holding the catalog (default ./Years)")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
