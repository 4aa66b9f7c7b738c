package simulation

import (
	"math/rand"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/sarchlab/embedlab/datarecording"
	"github.com/sarchlab/embedlab/hooking"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/lab/sensor"
	"github.com/sarchlab/embedlab/monitoring"
	"github.com/sarchlab/embedlab/timing"
)

// Builder can be used to build a simulation.
type Builder struct {
	seed       int64
	seedSet    bool
	noise      sensor.NoiseSource
	frameRate  timing.FreqInHz
	maxFrames  uint64
	recordOn   bool
	recordPath string
	skipFrames bool
	monitorOn  bool
	port       int
	registerer prometheus.Registerer
	hooks      []hooking.Hook
}

// MakeBuilder creates a new builder. By default the lab runs at 60 frames
// per second with no limit, no recording, and no monitoring.
func MakeBuilder() Builder {
	return Builder{
		frameRate: timing.DefaultFrameRate,
	}
}

// WithSeed fixes the seed of the sensor noise.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	b.seedSet = true

	return b
}

// WithNoiseSource replaces the random sensor noise.
func (b Builder) WithNoiseSource(noise sensor.NoiseSource) Builder {
	b.noise = noise
	return b
}

// WithFrameRate sets how many frames per second the Runner steps.
func (b Builder) WithFrameRate(rate timing.FreqInHz) Builder {
	b.frameRate = rate
	return b
}

// WithMaxFrames stops the simulation after n frames. Zero means no limit.
func (b Builder) WithMaxFrames(n uint64) Builder {
	b.maxFrames = n
	return b
}

// WithRecording records a trace into path.sqlite3. An empty path picks a
// unique name from the simulation ID.
func (b Builder) WithRecording(path string) Builder {
	b.recordOn = true
	b.recordPath = path

	return b
}

// WithoutFrameRecording keeps only transitions and inputs in the trace.
func (b Builder) WithoutFrameRecording() Builder {
	b.skipFrames = true
	return b
}

// WithMonitoring serves the lab over HTTP on port. Port zero picks a random
// port.
func (b Builder) WithMonitoring(port int) Builder {
	b.monitorOn = true
	b.port = port

	return b
}

// WithMetrics registers the lab metrics on reg.
func (b Builder) WithMetrics(reg prometheus.Registerer) Builder {
	b.registerer = reg
	return b
}

// WithHook registers an extra hook on the lab, such as a log hook.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), hook)
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.frameRate == 0 {
		panic("frame rate must be positive")
	}

	if !b.monitorOn && b.port != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}
}

// Build builds the simulation. The monitor, if enabled, is started.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{id: xid.New().String()}

	s.seed = b.seed
	if !b.seedSet {
		s.seed = rand.Int63()
	}

	noise := b.noise
	if noise == nil {
		noise = rand.New(rand.NewSource(s.seed))
	}

	s.state = lab.NewStateWithNoise(noise)

	s.engine = timing.NewSerialEngine()
	s.driver = NewDriver(s.engine, s.state, b.maxFrames)
	s.runner = NewRunner(s.state, b.frameRate)
	s.runner.maxFrames = b.maxFrames

	b.buildRecorder(s)
	b.buildMetrics(s)

	for _, h := range b.hooks {
		s.state.AcceptHook(h)
	}

	b.buildMonitor(s)

	return s
}

func (b Builder) buildRecorder(s *Simulation) {
	if !b.recordOn {
		return
	}

	path := b.recordPath
	if path == "" {
		path = "embedlab_" + s.id
	}

	s.dataRecorder = datarecording.New(path)

	s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
	s.execRecorder.Start()
	s.execRecorder.Set("Simulation ID", s.id)
	s.execRecorder.Set("Seed", strconv.FormatInt(s.seed, 10))

	s.tracer = datarecording.NewTracer(s.dataRecorder, s.state)
	s.tracer.SkipFrames = b.skipFrames
	s.state.AcceptHook(s.tracer)
}

func (b Builder) buildMetrics(s *Simulation) {
	if b.registerer == nil {
		return
	}

	metrics, err := monitoring.NewMetrics(b.registerer)
	if err != nil {
		panic(err)
	}

	s.metrics = metrics
	s.state.AcceptHook(metrics)
}

func (b Builder) buildMonitor(s *Simulation) {
	if !b.monitorOn {
		return
	}

	s.monitor = monitoring.NewMonitor()
	if b.port > 0 {
		s.monitor.WithPortNumber(b.port)
	}

	s.monitor.RegisterController(s.runner)

	if s.metrics != nil {
		s.monitor.RegisterMetrics(s.metrics)
	}

	if b.maxFrames > 0 {
		s.progressBar = s.monitor.CreateProgressBar("frames", b.maxFrames)
		s.runner.progress = s.progressBar
		s.driver.progress = s.progressBar
	}

	s.monitor.StartServer()
}
