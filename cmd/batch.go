package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/imgdl/internal/utils"
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [FILE] [OPTIONS]",
		Short: "Download every URL listed in a text or YAML file",
		Long: `Download every URL listed in FILE.

Text files hold one URL per line; empty lines are skipped. Files ending in .yaml or .yml hold a list of entries:

  - link: https://example.com/a.png
    name: cover.png
    format: jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := utils.ReadURLList(args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return utils.NewConfigError("batch file", fmt.Errorf("no URLs found in %s", args[0]))
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			reqs := make([]utils.DownloadRequest, 0, len(entries))
			for _, entry := range entries {
				format := entry.Format
				if format == "" {
					format = s.cfg.Format
				}
				reqs = append(reqs, utils.NewRequest(entry.URL, entry.Name, format, s.cfg.Output))
			}
			log.Info().Str("op", "cmd/batch").Str("file", args[0]).Int("count", len(reqs)).Msg("Starting batch")

			s.manager.StartDisplay()
			outcomes, err := s.engine.RunBatch(cmd.Context(), reqs, s.cfg.PoolConfig())
			s.manager.StopDisplay()
			if err != nil {
				return err
			}
			for _, outcome := range outcomes {
				if !outcome.Succeeded {
					return errFailedOperations
				}
			}
			return nil
		},
	}
}
