// Package catalog reads and writes workflow definition files.
//
// A definition file is YAML (JSON is valid YAML) with a single top-level key:
//
//	workflows:
//	  release:
//	    - tool: run_tests
//	      params:
//	        suite: all
//	    - tool: publish
//	      params:
//	        report: "{run_tests}"
//
// Step order within a workflow is preserved. Parameter values may be any YAML
// scalar, sequence or mapping. Unknown keys are rejected.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"toolflow/internal/config"
	"toolflow/internal/value"
	"toolflow/internal/workflow"
)

// Definitions maps workflow names to their steps.
type Definitions map[string][]workflow.Step

// File is the on-disk layout of a definition file.
type File struct {
	Workflows Definitions `yaml:"workflows"`
}

// Names returns the workflow names in sorted order.
func (d Definitions) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile reads and parses the definition file at path.
func LoadFile(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow definitions: %w", err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Parse decodes definition file contents. Every step must name a tool.
func Parse(data []byte) (Definitions, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse workflow definitions: %w", err)
	}
	if f.Workflows == nil {
		return Definitions{}, nil
	}
	if err := f.Workflows.validate(); err != nil {
		return nil, err
	}
	return f.Workflows, nil
}

func (d Definitions) validate() error {
	for _, name := range d.Names() {
		if name == "" {
			return fmt.Errorf("workflow name must not be empty")
		}
		for i, s := range d[name] {
			if s.Tool == "" {
				return fmt.Errorf("workflow %s: step %d: tool is required", name, i+1)
			}
		}
	}
	return nil
}

// FromConfig converts workflows declared in the config file.
func FromConfig(workflows map[string][]config.StepConfig) (Definitions, error) {
	defs := make(Definitions, len(workflows))
	for name, steps := range workflows {
		converted := make([]workflow.Step, 0, len(steps))
		for i, s := range steps {
			params, err := paramsFromAny(s.Params)
			if err != nil {
				return nil, fmt.Errorf("workflow %s: step %d: %w", name, i+1, err)
			}
			converted = append(converted, workflow.Step{Tool: s.Tool, Params: params})
		}
		defs[name] = converted
	}
	if err := defs.validate(); err != nil {
		return nil, err
	}
	return defs, nil
}

// StepsFromAny converts decoded JSON of the form
// [{"tool": "...", "params": {...}}, ...] into steps. It is used for
// definitions that arrive over a protocol as untyped data.
func StepsFromAny(raw any) ([]workflow.Step, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("steps must be a list, got %T", raw)
	}
	steps := make([]workflow.Step, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("step %d: must be an object, got %T", i+1, item)
		}
		tool, _ := m["tool"].(string)
		if tool == "" {
			return nil, fmt.Errorf("step %d: tool is required", i+1)
		}
		var rawParams map[string]interface{}
		if p, present := m["params"]; present && p != nil {
			rawParams, ok = p.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("step %d: params must be an object, got %T", i+1, p)
			}
		}
		params, err := paramsFromAny(rawParams)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, workflow.Step{Tool: tool, Params: params})
	}
	return steps, nil
}

func paramsFromAny(raw map[string]interface{}) (map[string]value.Value, error) {
	params := make(map[string]value.Value, len(raw))
	for k, v := range raw {
		converted, err := value.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		params[k] = converted
	}
	return params, nil
}

// WriteFile writes defs to path as YAML. The file is written to a temporary
// sibling first and renamed into place.
func WriteFile(path string, defs Definitions) error {
	if defs == nil {
		defs = Definitions{}
	}
	data, err := yaml.Marshal(&File{Workflows: defs})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow definitions: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to write workflow definitions: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write workflow definitions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write workflow definitions: %w", err)
	}

	return nil
}

// RegisterAll registers every definition with reg, replacing existing
// definitions of the same name. It returns the registered names, sorted.
func RegisterAll(reg *workflow.Registry, defs Definitions) []string {
	names := defs.Names()
	for _, name := range names {
		reg.Register(name, defs[name])
	}
	return names
}
