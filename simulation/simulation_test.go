package simulation

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/lab/deadline"
	"github.com/sarchlab/embedlab/lab/interrupt"
	"github.com/sarchlab/embedlab/timing"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type constNoise float64

func (n constNoise) Float64() float64 { return float64(n) }

var _ = Describe("Driver", func() {
	var (
		engine *timing.SerialEngine
		state  *lab.State
		driver *Driver
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		state = lab.NewState(1)
		driver = NewDriver(engine, state, 5)
	})

	It("should stop after the frame limit", func() {
		driver.Start()
		Expect(engine.Run()).To(Succeed())

		Expect(driver.Frames()).To(Equal(uint64(5)))
		Expect(state.Clock.Tick).To(Equal(uint64(5)))
		Expect(engine.CurrentTime()).To(Equal(timing.VTimeInCycle(4)))
	})

	It("should apply inputs before the frame of the same cycle", func() {
		driver.ScheduleInput(3, lab.SetCommand{Value: 50})
		driver.Start()
		Expect(engine.Run()).To(Succeed())

		history := state.Actuator.InputHistory()
		Expect(history[len(history)-5:]).To(Equal([]float64{0, 0, 0, 50, 50}))
	})

	It("should apply inputs of a cycle in scheduling order", func() {
		driver.ScheduleInput(0, lab.SetStack{Level: 9})
		driver.ScheduleInput(0, lab.SetStack{Level: 2})
		driver.Start()
		Expect(engine.Run()).To(Succeed())

		Expect(state.Memory.Stack).To(Equal(2))
		Expect(state.Memory.Crashed).To(BeFalse())
	})

	It("should freeze the models while paused", func() {
		driver.ScheduleInput(2, lab.Pause{})
		driver.Start()
		Expect(engine.Run()).To(Succeed())

		Expect(state.Frame).To(Equal(uint64(5)))
		Expect(state.Clock.Tick).To(Equal(uint64(2)))
	})

	It("should report progress", func() {
		ctrl := gomock.NewController(GinkgoT())
		progress := NewMockProgressTracker(ctrl)
		progress.EXPECT().IncrementFinished(uint64(1)).Times(5)
		driver.progress = progress

		driver.Start()
		Expect(engine.Run()).To(Succeed())
	})

	It("should reject unknown events", func() {
		engine.Schedule(timing.ScheduledEvent{Event: "boom", Handler: driver})

		Expect(engine.Run()).To(MatchError(ContainSubstring("Driver")))
	})

	It("should not start once the limit is reached", func() {
		driver.Start()
		Expect(engine.Run()).To(Succeed())

		driver.Start()
		Expect(engine.Run()).To(Succeed())
		Expect(driver.Frames()).To(Equal(uint64(5)))
	})
})

var _ = Describe("Runner", func() {
	var (
		state  *lab.State
		runner *Runner
	)

	BeforeEach(func() {
		state = lab.NewState(1)
		runner = NewRunner(state, 1000*timing.Hz)
	})

	It("should apply submitted inputs in order at the next frame", func() {
		runner.Submit(lab.SetMode{Mode: interrupt.ModeInterrupt})
		runner.Submit(lab.TriggerEvent{})
		Expect(state.Scheduler.Events).To(BeEmpty())

		runner.Step()

		snap := runner.Snapshot()
		Expect(snap.Scheduler.Mode).To(Equal(interrupt.ModeInterrupt))
		Expect(snap.Scheduler.Events).To(HaveLen(1))
		Expect(runner.Frame()).To(Equal(uint64(1)))
	})

	It("should apply scheduled inputs when their frame comes", func() {
		runner.ScheduleInput(2, lab.StartDeadline{Load: 1})
		runner.ScheduleInput(1, lab.SetStack{Level: 5})

		runner.Step()
		Expect(state.Memory.Stack).To(Equal(1))

		runner.Step()
		Expect(state.Memory.Stack).To(Equal(5))
		Expect(state.Deadline.Status).To(Equal(deadline.StatusIdle))

		runner.Step()
		Expect(state.Deadline.Status).To(Equal(deadline.StatusSuccess))
	})

	It("should pause and continue at frame boundaries", func() {
		runner.Pause()
		runner.Step()
		runner.Step()
		Expect(runner.Snapshot().Tick).To(BeZero())

		runner.Continue()
		runner.Step()
		Expect(runner.Snapshot().Tick).To(Equal(uint64(1)))
	})

	It("should stop at the frame limit", func() {
		runner.maxFrames = 3

		Expect(runner.Run(context.Background())).To(Succeed())
		Expect(runner.Frame()).To(Equal(uint64(3)))
	})

	It("should stop when the context is done", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := runner.Run(ctx)

		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(runner.Frame()).To(BeNumerically(">", 0))
	})

	It("should inspect the state between frames", func() {
		runner.Step()

		var frame uint64
		runner.Inspect(func(s *lab.State) { frame = s.Frame })

		Expect(frame).To(Equal(uint64(1)))
	})

	It("should take submissions from other goroutines", func() {
		done := make(chan struct{})

		go func() {
			defer close(done)

			for i := 0; i < 100; i++ {
				runner.Submit(lab.TriggerEvent{})
			}
		}()

		for i := 0; i < 50; i++ {
			runner.Step()
		}

		<-done
		runner.Step()

		Expect(runner.Snapshot().Scheduler.Events).To(HaveLen(100))
	})
})

var _ = Describe("Simulation", func() {
	It("should drive a lab headless to the frame limit", func() {
		s := MakeBuilder().WithSeed(3).WithMaxFrames(120).Build()

		s.Scheduler(false).ScheduleInput(0, lab.SetMode{Mode: interrupt.ModeInterrupt})
		s.Scheduler(false).ScheduleInput(0, lab.TriggerEvent{})

		Expect(s.Run()).To(Succeed())

		snap := s.State().Snapshot()
		Expect(snap.Frame).To(Equal(uint64(120)))
		Expect(snap.Scheduler.Events).To(HaveLen(1))
		Expect(snap.Scheduler.Events[0].State).To(Equal(interrupt.EventDone))
		Expect(s.Seed()).To(Equal(int64(3)))
		Expect(s.ID()).NotTo(BeEmpty())
	})

	It("should step the engine and the runner identically", func() {
		inputs := map[timing.VTimeInCycle][]lab.Input{
			0:  {lab.SetNoise{On: true}, lab.SetCommand{Value: 80}},
			10: {lab.TriggerEvent{}, lab.StartDeadline{Load: 40}},
			50: {lab.AllocateHeap{}, lab.SetMode{Mode: interrupt.ModeInterrupt}},
			90: {lab.Reset{}},
		}

		headless := MakeBuilder().WithSeed(9).WithMaxFrames(150).Build()
		realtime := MakeBuilder().WithSeed(9).WithMaxFrames(150).Build()

		for at, list := range inputs {
			for _, in := range list {
				headless.Scheduler(false).ScheduleInput(at, in)
				realtime.Scheduler(true).ScheduleInput(at, in)
			}
		}

		Expect(headless.Run()).To(Succeed())
		for i := 0; i < 150; i++ {
			realtime.Runner().Step()
		}

		Expect(realtime.Runner().Snapshot()).To(Equal(headless.State().Snapshot()))
	})

	It("should use the given noise source", func() {
		s := MakeBuilder().WithNoiseSource(constNoise(1)).WithMaxFrames(1).Build()
		s.Scheduler(false).ScheduleInput(0, lab.SetNoise{On: true})

		Expect(s.Run()).To(Succeed())
		Expect(s.State().Sensor.Voltage()).To(BeNumerically("~", 0.8, 1e-9))
	})

	It("should record a trace", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")

		s := MakeBuilder().WithMaxFrames(10).WithRecording(path).Build()
		Expect(s.GetDataRecorder()).NotTo(BeNil())

		Expect(s.Run()).To(Succeed())
		s.Terminate()

		_, err := os.Stat(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should register metrics", func() {
		s := MakeBuilder().
			WithMaxFrames(7).
			WithMetrics(prometheus.NewRegistry()).
			Build()

		Expect(s.Run()).To(Succeed())
		Expect(testutil.ToFloat64(s.GetMetrics().Frames)).To(Equal(7.0))
	})

	It("should refuse a monitor port without monitoring", func() {
		b := MakeBuilder()
		b.port = 8080

		Expect(func() { b.Build() }).To(Panic())
	})

	It("should refuse a zero frame rate", func() {
		Expect(func() { MakeBuilder().WithFrameRate(0).Build() }).To(Panic())
	})
})
