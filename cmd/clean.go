package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/imgdl/internal/output"
	"github.com/tanq16/imgdl/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [DIR]",
		Short: "Remove partial downloads left by an interrupted run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			} else if out, _ := cmd.Flags().GetString("output"); out != "" {
				dir = out
			}
			removed, err := utils.CleanParts(dir)
			if err != nil {
				return fmt.Errorf("error cleaning %s: %w", dir, err)
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d partial file(s) from %s", removed, dir))
			return nil
		},
	}
}
