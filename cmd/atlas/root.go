package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	trace      bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "atlas",
		Short: "Supplement stack tracker with AI analysis",
		Long: `atlas keeps a supplement stack, the products it comes from and a health
profile, reads supplement labels from photos and produces a structured
analysis of interactions, timing and dosing.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("atlas version {{.Version}}\n")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"Config file (default: ./atlas.yaml or $HOME/.atlas/atlas.yaml)")
	root.PersistentFlags().BoolVar(&flags.trace, "trace", false, "Write service operation spans to stderr as JSON lines")

	root.AddCommand(
		newServeCmd(flags),
		newMCPCmd(flags),
		newPresetCmd(flags),
		newAnalyzeCmd(flags),
		newScanCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "atlas %s (commit %s, %s %s/%s)\n",
				version, commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
