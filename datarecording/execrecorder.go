package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTableName = "exec_info"

// execInfo is a property of the program run that produced a trace.
type execInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how and when a trace was produced.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []execInfo
}

// NewExecRecorder creates the exec_info table on the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(execTableName, execInfo{})

	return &ExecRecorder{recorder: recorder}
}

// Set adds a property of the run, such as the simulation ID or the seed.
func (e *ExecRecorder) Set(property, value string) {
	e.entries = append(e.entries, execInfo{property, value})
}

// Start records the start time, the command line and the working directory.
func (e *ExecRecorder) Start() {
	e.Set("Start Time", time.Now().Format(time.RFC3339Nano))
	e.Set("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.Set("Working Directory", cwd)
}

// End writes every property along with the end time and flushes.
func (e *ExecRecorder) End() {
	e.Set("End Time", time.Now().Format(time.RFC3339Nano))

	for _, entry := range e.entries {
		e.recorder.InsertData(execTableName, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
