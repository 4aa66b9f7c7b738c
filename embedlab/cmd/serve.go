package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sarchlab/embedlab/timing"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lab in real time behind the HTTP monitor.",
	Long: "`serve` steps the lab against the wall clock and serves its " +
		"state, its input surface and its metrics over HTTP until " +
		"interrupted or until the frame limit is reached.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := parseLabFlags(cmd)

		port, err := intFlagOrEnv(cmd, "port", envPort)
		if err != nil {
			return err
		}

		fps, err := intFlagOrEnv(cmd, "fps", envFPS)
		if err != nil {
			return err
		}

		if fps <= 0 {
			return fmt.Errorf("serve: --fps must be positive, got %d", fps)
		}

		sc, err := loadScenario(flags.scenario)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		s := flags.builder(sc).
			WithFrameRate(timing.FreqInHz(fps)).
			WithMetrics(reg).
			WithMonitoring(port).
			Build()
		defer s.Terminate()

		if sc != nil {
			if err := sc.Play(s.Scheduler(true)); err != nil {
				return err
			}
		}

		open, _ := cmd.Flags().GetBool("open")
		if open {
			if err := browser.OpenURL(s.GetMonitor().URL()); err != nil {
				fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := s.RunRealtime(ctx); err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), s.Runner().Snapshot())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addLabFlags(serveCmd, 0)
	serveCmd.Flags().Int("port", 0, "Port of the monitor, random if unset")
	serveCmd.Flags().Int("fps", int(timing.DefaultFrameRate), "Frames per second")
	serveCmd.Flags().Bool("open", false, "Open the monitor in a browser")
}
