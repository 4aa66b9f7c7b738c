package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/lab/interrupt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeController struct {
	sync.Mutex
	state     *lab.State
	submitted []lab.Input
}

func newFakeController() *fakeController {
	return &fakeController{state: lab.NewState(1)}
}

func (c *fakeController) Snapshot() lab.Snapshot {
	c.Lock()
	defer c.Unlock()

	return c.state.Snapshot()
}

func (c *fakeController) Submit(in lab.Input) {
	c.Lock()
	defer c.Unlock()

	c.submitted = append(c.submitted, in)
}

func (c *fakeController) Pause()    { c.Submit(lab.Pause{}) }
func (c *fakeController) Continue() { c.Submit(lab.Resume{}) }

func (c *fakeController) Frame() uint64 {
	c.Lock()
	defer c.Unlock()

	return c.state.Frame
}

func (c *fakeController) Inspect(fn func(s *lab.State)) {
	c.Lock()
	defer c.Unlock()

	fn(c.state)
}

var _ = Describe("Monitor", func() {
	var (
		m          *Monitor
		controller *fakeController
		router     http.Handler
	)

	do := func(method, url, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, url, strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		controller = newFakeController()

		metrics, err := NewMetrics(prometheus.NewRegistry())
		Expect(err).NotTo(HaveOccurred())

		m = NewMonitor()
		m.RegisterController(controller)
		m.RegisterMetrics(metrics)
		router = m.Router()
	})

	It("should fall back to a random port below 1000", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should render the state", func() {
		controller.state.Step()

		rec := do(http.MethodGet, "/api/state", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		snap := map[string]any{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
		Expect(snap["frame"]).To(BeNumerically("==", 1))
		Expect(snap["scheduler"]).To(HaveKeyWithValue("mode", "polling"))
		Expect(snap["deadline"]).To(HaveKeyWithValue("status", "idle"))
	})

	It("should queue valid inputs", func() {
		rec := do(http.MethodPost, "/api/input/mode", `{"value":"interrupt"}`)
		Expect(rec.Code).To(Equal(http.StatusAccepted))

		rec = do(http.MethodPost, "/api/input/trigger", "")
		Expect(rec.Code).To(Equal(http.StatusAccepted))

		Expect(controller.submitted).To(Equal([]lab.Input{
			lab.SetMode{Mode: interrupt.ModeInterrupt},
			lab.TriggerEvent{},
		}))
	})

	DescribeTable("rejected inputs",
		func(url, body string) {
			rec := do(http.MethodPost, url, body)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(controller.submitted).To(BeEmpty())
		},
		Entry("malformed JSON", "/api/input/setpoint", `{"value":`),
		Entry("out of range", "/api/input/command", `{"value":250}`),
		Entry("wrong type", "/api/input/noise", `{"value":"maybe"}`),
		Entry("unknown input", "/api/input/overclock", `{}`),
	)

	It("should pause and continue", func() {
		Expect(do(http.MethodPost, "/api/pause", "").Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodPost, "/api/continue", "").Code).To(Equal(http.StatusOK))

		Expect(controller.submitted).To(Equal([]lab.Input{lab.Pause{}, lab.Resume{}}))
	})

	It("should report the current frame", func() {
		controller.state.Step()
		controller.state.Step()

		Expect(do(http.MethodGet, "/api/now", "").Body.String()).
			To(Equal(`{"now":2}`))
	})

	It("should list inputs and models", func() {
		names := []string{}
		rec := do(http.MethodGet, "/api/inputs", "")
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(ContainElement("allocate"))

		rec = do(http.MethodGet, "/api/list_models", "")
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(ContainElements("sensor", "scheduler", "memory"))
	})

	It("should return 404 for an unknown model", func() {
		rec := do(http.MethodGet, "/api/model/gpu", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should serialize a model", func() {
		rec := do(http.MethodGet, "/api/model/deadline", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("scenario", 10)
		bar.IncrementFinished(10)

		rec := do(http.MethodGet, "/api/progress", "")
		Expect(rec.Body.String()).To(ContainSubstring(`"name":"scenario"`))
		Expect(rec.Body.String()).To(ContainSubstring(`"done":true`))

		m.CompleteProgressBar(bar)
		rec = do(http.MethodGet, "/api/progress", "")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should read progress bars while they advance", func() {
		bar := m.CreateProgressBar("frames", 500)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				bar.IncrementFinished(1)
			}
		}()

		for i := 0; i < 50; i++ {
			rec := do(http.MethodGet, "/api/progress", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
		}
		wg.Wait()

		var bars []map[string]any
		rec := do(http.MethodGet, "/api/progress", "")
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["finished"]).To(BeEquivalentTo(500))
		Expect(bars[0]["done"]).To(BeTrue())
	})

	It("should expose metrics", func() {
		rec := do(http.MethodGet, "/metrics", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("embedlab_frames_total"))
	})

	It("should serve the page", func() {
		rec := do(http.MethodGet, "/", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})
})
