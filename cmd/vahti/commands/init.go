package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/pkg/config"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter configuration file",
		Long: `Write a commented starter configuration to path (default ./vahti.yaml).
An existing file is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "vahti.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if err := config.InitConfigFile(path); err != nil {
				return fmt.Errorf("init: %w", err)
			}

			vahtierrors.DisplaySuccess(cmd.OutOrStdout(), "wrote "+path)
			fmt.Fprintln(cmd.OutOrStdout(), "Edit targets and smtp settings, then run: vahti check-config")
			return nil
		},
	}
}
