// Package simulation assembles a lab with the engine that drives it and the
// services that observe it.
package simulation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sarchlab/embedlab/datarecording"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/monitoring"
	"github.com/sarchlab/embedlab/timing"
)

// An InputScheduler applies inputs right before a given frame.
type InputScheduler interface {
	ScheduleInput(at timing.VTimeInCycle, in lab.Input)
}

// A Simulation provides the services required to run a lab.
type Simulation struct {
	id   string
	seed int64

	state  *lab.State
	engine *timing.SerialEngine
	driver *Driver
	runner *Runner

	dataRecorder datarecording.DataRecorder
	tracer       *datarecording.Tracer
	execRecorder *datarecording.ExecRecorder
	metrics      *monitoring.Metrics
	monitor      *monitoring.Monitor
	progressBar  *monitoring.ProgressBar
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Seed returns the seed of the sensor noise.
func (s *Simulation) Seed() int64 {
	return s.seed
}

// State returns the lab. It must not be touched while a Runner is running;
// use the Runner instead.
func (s *Simulation) State() *lab.State {
	return s.state
}

// GetEngine returns the engine used in headless runs.
func (s *Simulation) GetEngine() *timing.SerialEngine {
	return s.engine
}

// Driver returns the engine component that steps the lab.
func (s *Simulation) Driver() *Driver {
	return s.driver
}

// Runner returns the wall-clock runner used when serving the lab.
func (s *Simulation) Runner() *Runner {
	return s.runner
}

// GetDataRecorder returns the data recorder, or nil when not recording.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetMetrics returns the metrics collector, or nil when metrics are off.
func (s *Simulation) GetMetrics() *monitoring.Metrics {
	return s.metrics
}

// Scheduler returns where inputs must be scheduled for the way the
// simulation runs.
func (s *Simulation) Scheduler(realtime bool) InputScheduler {
	if realtime {
		return s.runner
	}

	return s.driver
}

// Run steps the lab on the engine as fast as possible until the frame limit.
func (s *Simulation) Run() error {
	s.driver.Start()

	if err := s.engine.Run(); err != nil {
		return fmt.Errorf("simulation %s: %w", s.id, err)
	}

	return nil
}

// RunRealtime steps the lab against the wall clock until ctx is done or the
// frame limit is reached.
func (s *Simulation) RunRealtime(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("simulation %s: %w", s.id, err)
	}

	return nil
}

// Terminate flushes and closes the recorder.
func (s *Simulation) Terminate() {
	if s.progressBar != nil && s.monitor != nil {
		s.monitor.CompleteProgressBar(s.progressBar)
	}

	if s.dataRecorder == nil {
		return
	}

	s.execRecorder.Set("Frames", strconv.FormatUint(s.state.Frame, 10))
	s.execRecorder.End()

	if err := s.dataRecorder.Close(); err != nil {
		panic(err)
	}
}
