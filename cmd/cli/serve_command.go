package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mediasort/pkg/api"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve a JSON listing of a staging directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			dir, err := dirArg(args, cfg.Paths.StagingDir)
			if err != nil {
				return err
			}
			if bind == "" {
				bind = cfg.Paths.APIBind
			}

			ctx.logger.WithFields(logrus.Fields{"dir": dir, "bind": bind}).Info("serving staging directory")
			if err := api.Serve(cmd.Context(), bind, api.NewRouter(api.NewHandler(dir, ctx.logger))); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default from paths.api_bind)")
	return cmd
}
