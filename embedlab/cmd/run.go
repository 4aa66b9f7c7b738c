package cmd

import (
	"errors"

	"github.com/sarchlab/embedlab/scenario"
	"github.com/spf13/cobra"
)

// defaultFrames is ten seconds of a 60 Hz display.
const defaultFrames = 600

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the lab headless and print the final state.",
	Long: "`run` steps the lab as fast as possible for a number of frames, " +
		"optionally replaying a scenario and recording a trace.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := parseLabFlags(cmd)

		sc, err := loadScenario(flags.scenario)
		if err != nil {
			return err
		}

		if sc != nil && !cmd.Flags().Changed("frames") {
			flags.frames = scenarioFrames(sc, flags.frames)
		}

		if flags.frames == 0 {
			return errors.New("run: --frames must be positive")
		}

		s := flags.builder(sc).Build()
		defer s.Terminate()

		stats := attachStats(s.State())

		if sc != nil {
			if err := sc.Play(s.Scheduler(false)); err != nil {
				return err
			}
		}

		if err := s.Run(); err != nil {
			return err
		}

		snap := s.State().Snapshot()

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return printJSON(cmd.OutOrStdout(), snap)
		}

		printSummary(cmd.OutOrStdout(), snap)
		stats.print(cmd.OutOrStdout())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addLabFlags(runCmd, defaultFrames)
	runCmd.Flags().Bool("json", false, "Print the final state as JSON")
}

func addLabFlags(cmd *cobra.Command, frames uint64) {
	cmd.Flags().Uint64("frames", frames, "Number of frames to step, 0 for no limit")
	cmd.Flags().String("scenario", "", "Scenario file or builtin scenario name")
	cmd.Flags().String("record", "", "Record a trace into `path`.sqlite3")
	cmd.Flags().Lookup("record").NoOptDefVal = recordAuto
	cmd.Flags().Int64("seed", 0, "Seed of the sensor noise (random if unset)")
	cmd.Flags().BoolP("verbose", "v", false, "Log model transitions to stderr")
}

func parseLabFlags(cmd *cobra.Command) labFlags {
	f := labFlags{}

	f.frames, _ = cmd.Flags().GetUint64("frames")
	f.scenario, _ = cmd.Flags().GetString("scenario")
	f.record = stringFlagOrEnv(cmd, "record", envRecord)
	f.seed, _ = cmd.Flags().GetInt64("seed")
	f.seedSet = cmd.Flags().Changed("seed")
	f.verbose, _ = cmd.Flags().GetBool("verbose")

	return f
}

// scenarioFrames is the frame count of a scenario run. A scenario without a
// frame count runs at least one frame past its last action.
func scenarioFrames(sc *scenario.Scenario, frames uint64) uint64 {
	if sc.Frames > 0 {
		return sc.Frames
	}

	return max(frames, sc.LastAction()+1)
}
