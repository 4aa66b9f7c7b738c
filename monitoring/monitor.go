// Package monitoring serves a running lab over HTTP so that it can be watched
// and driven from a browser or a script.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// A Controller owns a lab that advances concurrently with the monitor.
// Inputs are queued and take effect at the next frame boundary.
type Controller interface {
	Snapshot() lab.Snapshot
	Submit(in lab.Input)
	Pause()
	Continue()
	Frame() uint64

	// Inspect runs fn while the lab is not advancing.
	Inspect(fn func(s *lab.State))
}

// Monitor turns a lab into a server and allows external monitoring and
// controlling of the lab.
type Monitor struct {
	controller Controller
	metrics    *Metrics
	portNumber int
	port       int

	profileDuration time.Duration

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{profileDuration: time.Second}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterController registers the lab that is served.
func (m *Monitor) RegisterController(c Controller) {
	m.controller = c
}

// RegisterMetrics exposes the metrics at /metrics.
func (m *Monitor) RegisterMetrics(metrics *Metrics) {
	m.metrics = metrics
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the page.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler of every monitor route.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/state", m.state).Methods(http.MethodGet)
	r.HandleFunc("/api/inputs", m.listInputs).Methods(http.MethodGet)
	r.HandleFunc("/api/input/{name}", m.input).Methods(http.MethodPost)
	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.continueLab).Methods(http.MethodPost)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_models", m.listModels)
	r.HandleFunc("/api/model/{name}", m.modelDetails)
	r.HandleFunc("/api/field/{json}", m.fieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	if m.metrics != nil {
		r.Handle("/metrics", m.metrics.Handler())
	}

	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server in the background.
func (m *Monitor) StartServer() {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.port = listener.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(os.Stderr, "Monitoring lab with %s\n", m.URL())

	handler := m.Router()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()
}

// URL returns the address of a started server.
func (m *Monitor) URL() string {
	return fmt.Sprintf("http://localhost:%d", m.port)
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.controller.Snapshot())
}

func (m *Monitor) listInputs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, lab.InputNames())
}

type inputReq struct {
	Value any `json:"value"`
}

func (m *Monitor) input(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	req := inputReq{}
	body, err := io.ReadAll(r.Body)
	dieOnErr(err)

	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			badRequest(w, err)
			return
		}
	}

	in, err := lab.NewInput(name, req.Value)
	if err != nil {
		badRequest(w, err)
		return
	}

	m.controller.Submit(in)

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"accepted": in.Name()})
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.controller.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueLab(w http.ResponseWriter, _ *http.Request) {
	m.controller.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%d}", m.controller.Frame())
}

// modelNames lists the inspectable parts of a lab, in render order.
var modelNames = []string{
	"clock", "sensor", "actuator", "scheduler", "deadline", "memory",
}

func modelByName(s *lab.State, name string) any {
	switch name {
	case "clock":
		return &s.Clock
	case "sensor":
		return s.Sensor
	case "actuator":
		return s.Actuator
	case "scheduler":
		return s.Scheduler
	case "deadline":
		return s.Deadline
	case "memory":
		return s.Memory
	default:
		return nil
	}
}

func (m *Monitor) listModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, modelNames)
}

func (m *Monitor) modelDetails(w http.ResponseWriter, r *http.Request) {
	m.serializeModel(w, mux.Vars(r)["name"], nil)
}

type fieldReq struct {
	ModelName string `json:"model_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		badRequest(w, err)
		return
	}

	m.serializeModel(w, req.ModelName, strings.Split(req.FieldName, "."))
}

func (m *Monitor) serializeModel(
	w http.ResponseWriter,
	name string,
	entryPoint []string,
) {
	buf := bytes.NewBuffer(nil)
	found := false

	var err error
	m.controller.Inspect(func(s *lab.State) {
		model := modelByName(s, name)
		if model == nil {
			return
		}

		found = true

		serializer := goseth.NewSerializer()
		serializer.SetRoot(model)
		serializer.SetMaxDepth(1)

		if entryPoint != nil {
			if err = serializer.SetEntryPoint(entryPoint); err != nil {
				return
			}
		}

		err = serializer.Serialize(buf)
	})

	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Model not found"))
		dieOnErr(err)

		return
	}

	if err != nil {
		badRequest(w, err)
		return
	}

	_, err = w.Write(buf.Bytes())
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func badRequest(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, "Error: %s", err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
