package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is one pipeline contract test.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Pipeline is the path of a CUE file. LoadScenario resolves it
	// against the scenario's directory.
	Pipeline string `yaml:"pipeline,omitempty"`

	// Source is inline CUE, used instead of Pipeline.
	Source string `yaml:"source,omitempty"`

	// Select names the pipeline to run when the CUE defines several.
	Select string `yaml:"select,omitempty"`

	// Runs is the number of executions; zero means one.
	Runs int `yaml:"runs,omitempty"`

	// Properties overrides operation properties, keyed "operation.property".
	Properties map[string]any `yaml:"properties,omitempty"`

	// Board sizes the simulated I/O board.
	Board *Board `yaml:"board,omitempty"`

	// Edges are applied to board inputs, one scheduler step each, once
	// every run is executing.
	Edges []Edge `yaml:"edges,omitempty"`

	Expect Expect `yaml:"expect"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Board is the channel count of the simulated board.
type Board struct {
	Outputs int `yaml:"outputs"`
	Inputs  int `yaml:"inputs"`
}

// DefaultBoard is used when a scenario does not size the board.
var DefaultBoard = Board{Outputs: 8, Inputs: 8}

// Edge sets one input level.
type Edge struct {
	Channel int  `yaml:"channel"`
	High    bool `yaml:"high"`
}

// Expect is what every run must produce.
type Expect struct {
	// Error, when set, must appear in the build error or in the error of
	// some run.
	Error string `yaml:"error,omitempty"`

	// Outputs maps "operation.output" to the data objects each completed
	// run must emit there, markers excluded.
	Outputs map[string][]any `yaml:"outputs,omitempty"`
}

// Assertion checks the recorded trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Socket is "operation.output" (emitted_contains, emitted_count).
	Socket string `yaml:"socket,omitempty"`

	// Value is the object looked for by emitted_contains.
	Value any `yaml:"value,omitempty"`

	// Count is the per-run data count for emitted_count.
	Count int `yaml:"count,omitempty"`

	// Sockets is the expected first-emission order for emitted_order.
	Sockets []string `yaml:"sockets,omitempty"`

	// Status is the run status for run_status.
	Status string `yaml:"status,omitempty"`

	// Channel and Values describe the applied output changes for signals.
	Channel int   `yaml:"channel,omitempty"`
	Values  []any `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertEmittedContains = "emitted_contains"
	AssertEmittedOrder    = "emitted_order"
	AssertEmittedCount    = "emitted_count"
	AssertRunStatus       = "run_status"
	AssertSignals         = "signals"
)

// LoadScenario reads a scenario file. Unknown fields are rejected so that
// typos do not silently weaken a test.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if sc.Pipeline != "" && !filepath.IsAbs(sc.Pipeline) {
		sc.Pipeline = filepath.Join(filepath.Dir(path), sc.Pipeline)
	}
	if sc.Pipeline != "" {
		if _, err := os.Stat(sc.Pipeline); err != nil {
			return nil, fmt.Errorf("invalid scenario: pipeline file: %w", err)
		}
	}
	return sc, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must be usable as a file name", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Pipeline == "") == (s.Source == "") {
		return fmt.Errorf("exactly one of pipeline and source is required")
	}
	if s.Runs < 0 {
		return fmt.Errorf("runs must be non-negative")
	}
	for key := range s.Properties {
		if _, _, ok := splitSocket(key); !ok {
			return fmt.Errorf("properties: key %q is not operation.property", key)
		}
	}
	if s.Board != nil && (s.Board.Outputs < 0 || s.Board.Inputs < 0) {
		return fmt.Errorf("board channel counts must be non-negative")
	}
	for i, e := range s.Edges {
		if e.Channel < 0 {
			return fmt.Errorf("edges[%d]: channel must be non-negative", i)
		}
	}
	for socket := range s.Expect.Outputs {
		if _, _, ok := splitSocket(socket); !ok {
			return fmt.Errorf("expect.outputs: key %q is not operation.output", socket)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEmittedContains:
		if a.Socket == "" {
			return fmt.Errorf("assertions[%d]: socket is required for emitted_contains", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for emitted_contains", index)
		}
	case AssertEmittedOrder:
		if len(a.Sockets) == 0 {
			return fmt.Errorf("assertions[%d]: sockets list is required for emitted_order", index)
		}
	case AssertEmittedCount:
		if a.Socket == "" {
			return fmt.Errorf("assertions[%d]: socket is required for emitted_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for emitted_count", index)
		}
	case AssertRunStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for run_status", index)
		}
	case AssertSignals:
		if a.Channel < 0 {
			return fmt.Errorf("assertions[%d]: channel must be non-negative for signals", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// splitSocket splits "operation.name".
func splitSocket(s string) (op, name string, ok bool) {
	op, name, ok = strings.Cut(s, ".")
	return op, name, ok && op != "" && name != ""
}
