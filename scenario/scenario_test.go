package scenario

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/embedlab/hooking"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/lab/deadline"
	"github.com/sarchlab/embedlab/lab/interrupt"
	"github.com/sarchlab/embedlab/simulation"
	"github.com/sarchlab/embedlab/timing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type scheduled struct {
	at timing.VTimeInCycle
	in lab.Input
}

type recordingScheduler struct {
	inputs []scheduled
}

func (r *recordingScheduler) ScheduleInput(at timing.VTimeInCycle, in lab.Input) {
	r.inputs = append(r.inputs, scheduled{at, in})
}

func run(s *Scenario, hooks ...hooking.Hook) *lab.State {
	b := simulation.MakeBuilder().WithSeed(1).WithMaxFrames(s.Frames)
	for _, h := range hooks {
		b = b.WithHook(h)
	}

	sim := b.Build()
	Expect(s.Play(sim.Scheduler(false))).To(Succeed())
	Expect(sim.Run()).To(Succeed())

	return sim.State()
}

var _ = Describe("Parse", func() {
	It("should decode actions with loosely typed values", func() {
		s, err := Parse(strings.NewReader(`
name: demo
frames: 100
seed: 4
actions:
  - {at: 5, input: setpoint, value: 40.5}
  - {at: 1, input: noise, value: true}
  - {at: 5, input: command, value: -30}
  - {at: 2, input: trigger}
`))

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name).To(Equal("demo"))
		Expect(*s.Seed).To(Equal(int64(4)))
		Expect(s.Actions).To(HaveLen(4))
		Expect(s.LastAction()).To(Equal(uint64(5)))

		r := &recordingScheduler{}
		Expect(s.Play(r)).To(Succeed())
		Expect(r.inputs).To(Equal([]scheduled{
			{1, lab.SetNoise{On: true}},
			{2, lab.TriggerEvent{}},
			{5, lab.SetSetpoint{Celsius: 40.5}},
			{5, lab.SetCommand{Value: -30}},
		}))
	})

	DescribeTable("invalid scenarios",
		func(doc string, message string) {
			_, err := Parse(strings.NewReader(doc))

			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("empty", "", "empty"),
		Entry("no name", "actions: []", "missing name"),
		Entry("unknown key", "name: x\nspeed: 3", "speed"),
		Entry("unknown input", "name: x\nactions: [{at: 0, input: warp}]", "warp"),
		Entry("bad value", "name: x\nactions: [{at: 0, input: stack, value: 40}]", "stack"),
		Entry("past the end", "name: x\nframes: 10\nactions: [{at: 10, input: reset}]", "past the last frame"),
		Entry("malformed", "name: [", "scenario"),
	)
})

var _ = Describe("Load", func() {
	It("should read a file", func() {
		filename := filepath.Join(GinkgoT().TempDir(), "s.yaml")
		Expect(os.WriteFile(filename,
			[]byte("name: file\nactions: [{at: 3, input: allocate}]\n"), 0o600)).
			To(Succeed())

		s, err := Resolve(filename)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name).To(Equal("file"))
	})

	It("should report a missing file", func() {
		_, err := Load(filepath.Join(GinkgoT().TempDir(), "absent.yaml"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Builtin scenarios", func() {
	It("should all parse", func() {
		Expect(BuiltinNames()).To(ConsistOf(
			"deadline-presets", "polling-vs-interrupt", "stack-overflow"))

		for _, name := range BuiltinNames() {
			s, err := Resolve(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Name).To(Equal(name))
		}

		_, err := Builtin("nope")
		Expect(err).To(HaveOccurred())
	})

	It("should show polling waiting for the poll window", func() {
		s, err := Builtin("polling-vs-interrupt")
		Expect(err).NotTo(HaveOccurred())

		var latencies []interrupt.DispatchDetail
		run(s, hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == interrupt.HookPosDispatch {
				latencies = append(latencies, ctx.Detail.(interrupt.DispatchDetail))
			}
		}))

		Expect(latencies).To(Equal([]interrupt.DispatchDetail{
			{Mode: interrupt.ModePolling, Latency: 180},
			{Mode: interrupt.ModePolling, Latency: 160},
			{Mode: interrupt.ModeInterrupt, Latency: 0},
			{Mode: interrupt.ModeInterrupt, Latency: 0},
		}))
	})

	It("should crash only the overload preset", func() {
		s, err := Builtin("deadline-presets")
		Expect(err).NotTo(HaveOccurred())

		var results []deadline.Status
		state := run(s, hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == deadline.HookPosResolved {
				results = append(results, ctx.Item.(deadline.Status))
			}
		}))

		Expect(results).To(Equal([]deadline.Status{
			deadline.StatusSuccess,
			deadline.StatusSuccess,
			deadline.StatusSuccess,
			deadline.StatusCrash,
		}))
		Expect(state.Deadline.Status).To(Equal(deadline.StatusCrash))
	})

	It("should overflow memory once and recover", func() {
		s, err := Builtin("stack-overflow")
		Expect(err).NotTo(HaveOccurred())

		var overflowFrames []uint64
		state := run(s, hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == lab.HookPosFrame {
				snap := ctx.Item.(lab.Snapshot)
				if snap.Memory.Crashed && len(overflowFrames) == 0 {
					overflowFrames = append(overflowFrames, snap.Frame)
				}
			}
		}))

		Expect(overflowFrames).To(Equal([]uint64{61}))
		Expect(state.Memory.Crashed).To(BeFalse())
		Expect(state.Memory.Stack).To(Equal(2))
		Expect(state.Memory.Heap).To(BeZero())
	})
})
