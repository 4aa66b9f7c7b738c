package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/sarchlab/embedlab/hooking"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/lab/deadline"
	"github.com/sarchlab/embedlab/lab/interrupt"
	"github.com/sarchlab/embedlab/lab/memory"
	"github.com/sarchlab/embedlab/scenario"
	"github.com/sarchlab/embedlab/simulation"
	"github.com/sarchlab/embedlab/tracing"
)

// recordAuto asks the recorder to pick a unique file name.
const recordAuto = "auto"

// transitionPositions are logged by --verbose. Frames are left out.
var transitionPositions = []*hooking.HookPos{
	lab.HookPosInput,
	interrupt.HookPosTrigger,
	interrupt.HookPosDispatch,
	interrupt.HookPosComplete,
	deadline.HookPosStart,
	deadline.HookPosResolved,
	memory.HookPosOverflow,
}

type labFlags struct {
	scenario string
	record   string
	seed     int64
	seedSet  bool
	frames   uint64
	verbose  bool
}

// builder turns the flags and the optional scenario into a builder. Values
// given on the command line win over those of the scenario.
func (f labFlags) builder(sc *scenario.Scenario) simulation.Builder {
	b := simulation.MakeBuilder().WithMaxFrames(f.frames)

	switch {
	case f.seedSet:
		b = b.WithSeed(f.seed)
	case sc != nil && sc.Seed != nil:
		b = b.WithSeed(*sc.Seed)
	}

	switch f.record {
	case "":
	case recordAuto:
		b = b.WithRecording("")
	default:
		b = b.WithRecording(f.record)
	}

	if f.verbose {
		logger := log.New(os.Stderr, "embedlab ", log.Lmicroseconds)
		b = b.WithHook(hooking.NewLogHook(logger, transitionPositions...))
	}

	return b
}

func loadScenario(name string) (*scenario.Scenario, error) {
	if name == "" {
		return nil, nil
	}

	return scenario.Resolve(name)
}

func printSummary(w io.Writer, snap lab.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "frames\t%d\n", snap.Frame)
	fmt.Fprintf(tw, "ticks\t%d\n", snap.Tick)
	fmt.Fprintf(tw, "sensor\t%.3f V, ADC %d, %.1f C\n",
		snap.Sensor.Voltage, snap.Sensor.ADCCode, snap.Sensor.SensedCelsius)
	fmt.Fprintf(tw, "actuator\t%d RPM, %s, duty %.0f%%\n",
		snap.Actuator.DisplayRPM, snap.Actuator.Direction, snap.Actuator.Duty*100)
	fmt.Fprintf(tw, "scheduler\t%s, cursor %d, %d events, ISR active %t\n",
		snap.Scheduler.Mode, snap.Scheduler.Cursor,
		len(snap.Scheduler.Events), snap.Scheduler.ISRActive)
	fmt.Fprintf(tw, "deadline\t%s, %d/%d ms\n",
		snap.Deadline.Status, snap.Deadline.Current, snap.Deadline.Max)
	fmt.Fprintf(tw, "memory\tstack %d, heap %d B, crashed %t\n",
		snap.Memory.Stack, snap.Memory.Heap, snap.Memory.Crashed)

	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

type runStats struct {
	latency *tracing.LatencyTracer
	busy    *tracing.BusyTimeTracer
	steps   *tracing.StepCountTracer
}

func attachStats(state *lab.State) runStats {
	stats := runStats{
		latency: tracing.NewLatencyTracer(),
		busy:    tracing.NewBusyTimeTracer(state),
		steps:   tracing.NewStepCountTracer(),
	}

	state.AcceptHook(stats.latency)
	state.AcceptHook(stats.busy)
	state.AcceptHook(stats.steps)

	return stats
}

func (s runStats) print(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, mode := range s.latency.Modes() {
		fmt.Fprintf(tw, "isr %s\t%d dispatches, mean %.1f px, worst %d px\n",
			mode, s.latency.TotalCount(mode),
			s.latency.AverageLatency(mode), s.latency.MaxLatency(mode))
	}

	if served := s.busy.Served(); served > 0 {
		fmt.Fprintf(tw, "isr busy\t%d frames over %d events\n",
			s.busy.BusyFrames(), served)
	}

	for _, name := range s.steps.GetStepNames() {
		fmt.Fprintf(tw, "%s\t%d\n", name, s.steps.GetStepCount(name))
	}

	tw.Flush()
}
