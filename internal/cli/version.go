package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Harshitk-cp/mindkernel/internal/buildconfig"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Long:        `Display version, commit hash and build date of kernelctl.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipKernel: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			info := buildconfig.VersionInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "kernelctl %s\n", info["version"])
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", info["commit"])
			fmt.Fprintf(cmd.OutOrStdout(), "Built:  %s (%s)\n", info["build_date"], info["go_version"])
		},
	}
}
