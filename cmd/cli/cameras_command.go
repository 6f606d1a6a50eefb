package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediasort/pkg/imports"
	"mediasort/pkg/metadata"
	"mediasort/pkg/storage"
)

func newCamerasCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cameras [dir]",
		Short: "Count photos per camera without moving anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := dirArg(args, "")
			if err != nil {
				return err
			}
			cfg := ctx.config
			output := cfg.OutputFor(source)

			sfr, err := storage.NewSourceFileStorage(source, output)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			dfr, err := storage.NewDestinationFileStorage(output, cfg.CollisionPolicy())
			if err != nil {
				return err
			}
			svc := imports.NewService(sfr, dfr, nil, metadata.NewExtractor(ctx.logger), imports.Options{
				Layout:  cfg.DateLayout(),
				Workers: cfg.Extract.Workers,
				Logger:  ctx.logger,
			})

			counts, err := svc.Cameras(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(counts) == 0 {
				fmt.Fprintf(out, "No photos in %s\n", source)
				return nil
			}
			fmt.Fprintln(out, renderCameras(counts))
			return nil
		},
	}
}
