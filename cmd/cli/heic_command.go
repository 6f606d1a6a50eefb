package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"mediasort/pkg/heic"
)

func newConvertHEICCommand(ctx *commandContext) *cobra.Command {
	var deleteOriginals, dryRun bool

	cmd := &cobra.Command{
		Use:   "convert-heic [dir]",
		Short: "Convert HEIC photos to JPEG with ImageMagick",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dirArg(args, "")
			if err != nil {
				return err
			}
			cfg := ctx.config
			opts := heic.DirOptions{
				DeleteOriginals: cfg.DeleteHEICOriginals(),
				DryRun:          dryRun,
			}
			if cmd.Flags().Changed("delete-originals") {
				opts.DeleteOriginals = deleteOriginals
			}

			conv := heic.NewConverter(cfg.HEIC.Binary, ctx.logger)
			results, runErr := conv.ConvertDir(cmd.Context(), dir, opts)

			out := cmd.OutOrStdout()
			if len(results) == 0 && runErr == nil {
				fmt.Fprintf(out, "No HEIC files in %s\n", dir)
				return nil
			}

			failed := 0
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "converted"
				switch {
				case errors.Is(r.Err, heic.ErrTargetExists):
					status = "skipped: jpeg exists"
				case r.Err != nil:
					status = "failed: " + r.Err.Error()
					failed++
				case dryRun:
					status = "would convert"
				}
				rows = append(rows, []string{filepath.Base(r.Source), filepath.Base(r.Target), status})
			}
			fmt.Fprintln(out, renderTable([]string{"HEIC", "JPEG", "Result"}, rows, nil))

			if runErr != nil {
				return runErr
			}
			if failed > 0 {
				return fmt.Errorf("%d file(s) could not be converted", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteOriginals, "delete-originals", false, "Delete converted originals instead of moving them to heic/")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "List the files that would be converted")
	return cmd
}
