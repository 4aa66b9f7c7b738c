package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/lab/deadline"
	"github.com/sarchlab/embedlab/scenario"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List deadline presets, builtin scenarios and input names.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

		fmt.Fprintln(tw, "DEADLINE PRESET\tLOAD (ms)\tOUTCOME")
		for _, name := range deadline.PresetNames() {
			load := deadline.Presets[name]

			outcome := "success"
			if load > deadline.DefaultMax {
				outcome = "crash"
			}

			fmt.Fprintf(tw, "%s\t%d\t%s\n", name, load, outcome)
		}

		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "SCENARIO\tFRAMES\tACTIONS")
		for _, name := range scenario.BuiltinNames() {
			sc, err := scenario.Builtin(name)
			if err != nil {
				return err
			}

			fmt.Fprintf(tw, "%s\t%d\t%d\n", name, sc.Frames, len(sc.Actions))
		}

		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "INPUTS")
		for _, name := range lab.InputNames() {
			fmt.Fprintln(tw, name)
		}

		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
