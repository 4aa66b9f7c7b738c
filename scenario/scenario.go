// Package scenario loads scripted lab sessions from YAML and replays them as
// timed inputs.
package scenario

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/timing"
	"gopkg.in/yaml.v3"
)

// An Action is a single input applied right before frame At.
type Action struct {
	At    uint64 `yaml:"at"`
	Input string `yaml:"input"`
	Value any    `yaml:"value,omitempty"`
}

// A Scenario is a named list of actions.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Frames      uint64   `yaml:"frames,omitempty"`
	Seed        *int64   `yaml:"seed,omitempty"`
	Actions     []Action `yaml:"actions"`
}

// A Scheduler applies inputs right before a given frame.
type Scheduler interface {
	ScheduleInput(at timing.VTimeInCycle, in lab.Input)
}

// Parse decodes and validates a scenario. Unknown keys are rejected.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	s := &Scenario{}
	if err := dec.Decode(s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("scenario: empty document")
		}

		return nil, fmt.Errorf("scenario: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Load reads a scenario file.
func Load(filename string) (*Scenario, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return s, nil
}

// Validate checks that every action names a valid input and, when the
// scenario has a frame count, happens within it.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("scenario: missing name")
	}

	for i, a := range s.Actions {
		if s.Frames > 0 && a.At >= s.Frames {
			return fmt.Errorf("scenario %s: action %d at frame %d is past the last frame %d",
				s.Name, i, a.At, s.Frames-1)
		}

		if _, err := lab.NewInput(a.Input, a.Value); err != nil {
			return fmt.Errorf("scenario %s: action %d: %w", s.Name, i, err)
		}
	}

	return nil
}

// Play schedules every action. Actions of the same frame keep their order in
// the file.
func (s *Scenario) Play(scheduler Scheduler) error {
	actions := append([]Action(nil), s.Actions...)
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].At < actions[j].At
	})

	for _, a := range actions {
		in, err := lab.NewInput(a.Input, a.Value)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}

		scheduler.ScheduleInput(timing.VTimeInCycle(a.At), in)
	}

	return nil
}

// LastAction returns the frame of the latest action.
func (s *Scenario) LastAction() uint64 {
	var last uint64
	for _, a := range s.Actions {
		if a.At > last {
			last = a.At
		}
	}

	return last
}

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtin returns a scenario shipped with the lab.
func Builtin(name string) (*Scenario, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("scenario: no builtin scenario %q", name)
	}

	return Parse(bytes.NewReader(data))
}

// BuiltinNames lists the scenarios shipped with the lab.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		panic(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}

	return names
}

// Resolve loads name as a builtin scenario, or as a file when no builtin
// has that name.
func Resolve(name string) (*Scenario, error) {
	for _, builtin := range BuiltinNames() {
		if builtin == name {
			return Builtin(name)
		}
	}

	return Load(name)
}
