package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"atlas/internal/presets"
)

func newPresetCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "List or load demo presets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tNAME\tPROFILE\tSUPPLEMENTS\tDESCRIPTION")
			for i, p := range presets.List() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i, p.Name, p.Profile.Name, len(p.Supplements), p.Description)
			}
			_ = tw.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "load <index|name>",
		Short: "Replace all data with a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := presetIndex(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), flags, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			p, err := presets.Load(cmd.Context(), a.svc, index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s preset: %d supplements for %s\n", p.Name, len(p.Supplements), p.Profile.Name)
			return nil
		},
	})
	return cmd
}

func presetIndex(arg string) (int, error) {
	list := presets.List()
	if i, err := strconv.Atoi(arg); err == nil {
		if i < 0 || i >= len(list) {
			return 0, fmt.Errorf("preset %d out of range [0,%d)", i, len(list))
		}
		return i, nil
	}
	for i, p := range list {
		if strings.EqualFold(p.Name, arg) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown preset %q", arg)
}
