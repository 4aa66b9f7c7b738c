package sensor

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Sensor", func() {
	var (
		mockCtrl *gomock.Controller
		noise    *MockNoiseSource
		m        *Model
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		noise = NewMockNoiseSource(mockCtrl)
		m = New(noise)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start at the default setpoint with an empty history", func() {
		Expect(m.Setpoint).To(Equal(DefaultSetpoint))
		Expect(m.History()).To(HaveLen(HistoryLength))
		Expect(m.Voltage()).To(Equal(0.0))
	})

	It("should follow the transducer line without noise", func() {
		for t := -50; t <= 150; t++ {
			m.Setpoint = float64(t)
			want := math.Max(0, math.Min(3.3, 0.5+0.01*float64(t)))

			Expect(m.Advance()).To(Equal(want))
			Expect(m.Voltage()).To(Equal(want))
		}
	})

	It("should clamp to the converter range", func() {
		m.Setpoint = -100
		Expect(m.Advance()).To(Equal(0.0))

		m.Setpoint = 1000
		Expect(m.Advance()).To(Equal(ReferenceVolts))
	})

	It("should add noise centered on zero", func() {
		m.Noise = true
		m.Setpoint = 25

		noise.EXPECT().Float64().Return(0.0)
		Expect(m.Advance()).To(BeNumerically("~", 0.70, 1e-12))

		noise.EXPECT().Float64().Return(0.5)
		Expect(m.Advance()).To(BeNumerically("~", 0.75, 1e-12))

		noise.EXPECT().Float64().Return(0.999)
		Expect(m.Advance()).To(BeNumerically("<", 0.80))
	})

	It("should keep noise within half the span", func() {
		noisy := New(rand.New(rand.NewSource(1)))
		noisy.Noise = true

		for i := 0; i < 1000; i++ {
			v := noisy.Advance()
			Expect(v).To(BeNumerically(">=", 0.75-NoiseSpan/2-1e-12))
			Expect(v).To(BeNumerically("<", 0.75+NoiseSpan/2))
		}
	})

	It("should keep a fixed-length history with the latest sample last", func() {
		for i := 0; i < 120; i++ {
			m.Setpoint = float64(i)
			v := m.Advance()

			hist := m.History()
			Expect(hist).To(HaveLen(HistoryLength))
			Expect(hist[len(hist)-1]).To(Equal(v))
		}
	})

	It("should derive converter code and sensed temperature", func() {
		m.Setpoint = 100
		m.Advance()

		Expect(m.Voltage()).To(BeNumerically("~", 1.5, 1e-12))
		Expect(m.ADCCode()).To(Equal(int(math.Floor(m.Voltage() / 3.3 * 4095))))
		Expect(m.SensedCelsius()).To(BeNumerically("~", 100, 1e-9))
	})

	It("should clear the history on reset and keep the setpoint", func() {
		m.Setpoint = 40
		m.Advance()
		m.Reset()

		Expect(m.History()).To(Equal(make([]float64, HistoryLength)))
		Expect(m.Setpoint).To(Equal(40.0))
	})

	It("should match Transduce", func() {
		Expect(Transduce(25)).To(BeNumerically("~", 0.75, 1e-12))
		Expect(Transduce(-80)).To(Equal(0.0))
	})
})
