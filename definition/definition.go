// Package definition loads state machine graphs from YAML documents.
//
// A document describes a StateGraph[string, string]:
//
//	name: bird
//	initial: egg
//	states:
//	  egg:
//	    permit: {hatch: alive}
//	  alive:
//	    regions:
//	      - name: location
//	        initial: holland
//	        states:
//	          holland:
//	            permit: {migrate: germany}
//	          germany: {}
//
// Guards and dynamic destinations read machine context attributes, and entry
// and exit actions assign them.
package definition

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Machine is the part of a document shared by the root graph and regions.
type Machine struct {
	Initial        string           `mapstructure:"initial"`
	EntryOfInitial bool             `mapstructure:"entryOfInitial"`
	States         map[string]State `mapstructure:"states"`
}

// Definition is a parsed document.
type Definition struct {
	Name    string `mapstructure:"name"`
	Machine `mapstructure:",squash"`
}

// Region is an orthogonal region of a parallel state.
type Region struct {
	Name    string `mapstructure:"name"`
	Machine `mapstructure:",squash"`
}

// State configures one state.
type State struct {
	SubstateOf string            `mapstructure:"substateOf"`
	Permit     map[string]string `mapstructure:"permit"`
	PermitIf   []Conditional     `mapstructure:"permitIf"`
	Reentry    []string          `mapstructure:"reentry"`
	Ignore     []string          `mapstructure:"ignore"`
	Dynamic    []Dynamic         `mapstructure:"dynamic"`
	OnEntry    *Assignment       `mapstructure:"onEntry"`
	OnExit     *Assignment       `mapstructure:"onExit"`
	Regions    []Region          `mapstructure:"regions"`
}

// Conditional is a transition guarded by an attribute comparison.
type Conditional struct {
	Trigger string `mapstructure:"trigger"`
	To      string `mapstructure:"to"`
	Attr    string `mapstructure:"attr"`
	Equals  any    `mapstructure:"equals"`
}

// Dynamic is a transition whose destination is picked by the value of an
// attribute.
type Dynamic struct {
	Trigger string            `mapstructure:"trigger"`
	Attr    string            `mapstructure:"attr"`
	Cases   map[string]string `mapstructure:"cases"`
	Default string            `mapstructure:"default"`
}

// Assignment updates machine context attributes. Set stores literal values;
// Args stores the trigger arguments, in order, under the given names. Names
// without a matching argument are left unchanged.
type Assignment struct {
	Set  map[string]any `mapstructure:"set"`
	Args []string       `mapstructure:"args"`
}

// Load reads and parses the document at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	var def Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &def,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	return &def, nil
}

// Validate reports every dangling reference and malformed entry in the
// document.
func (d *Definition) Validate() error {
	return errors.Join(d.Machine.validate("")...)
}

func (m *Machine) validate(scope string) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, errors.New(scope+fmt.Sprintf(format, args...)))
	}

	if m.Initial == "" {
		fail("initial state is not set")
	} else if !m.defines(m.Initial) {
		fail("initial state '%s' is not defined", m.Initial)
	}

	for _, name := range m.stateNames() {
		state := m.States[name]
		if state.SubstateOf != "" && !m.defines(state.SubstateOf) {
			fail("state '%s': superstate '%s' is not defined", name, state.SubstateOf)
		}
		for _, trigger := range sortedKeys(state.Permit) {
			dst := state.Permit[trigger]
			switch {
			case dst == name:
				fail("state '%s': permit '%s' targets its own state, use reentry", name, trigger)
			case !m.defines(dst):
				fail("state '%s': permit '%s' targets undefined state '%s'", name, trigger, dst)
			}
		}
		for _, c := range state.PermitIf {
			switch {
			case c.Trigger == "" || c.Attr == "":
				fail("state '%s': permitIf needs a trigger and an attr", name)
			case c.To == name:
				fail("state '%s': permitIf '%s' targets its own state, use reentry", name, c.Trigger)
			case !m.defines(c.To):
				fail("state '%s': permitIf '%s' targets undefined state '%s'", name, c.Trigger, c.To)
			}
		}
		for _, dyn := range state.Dynamic {
			if dyn.Trigger == "" || dyn.Attr == "" {
				fail("state '%s': dynamic needs a trigger and an attr", name)
				continue
			}
			if dyn.Default == "" {
				fail("state '%s': dynamic '%s' has no default", name, dyn.Trigger)
			} else if !m.defines(dyn.Default) {
				fail("state '%s': dynamic '%s' defaults to undefined state '%s'", name, dyn.Trigger, dyn.Default)
			}
			for _, value := range sortedKeys(dyn.Cases) {
				if dst := dyn.Cases[value]; !m.defines(dst) {
					fail("state '%s': dynamic '%s' case '%s' targets undefined state '%s'", name, dyn.Trigger, value, dst)
				}
			}
		}

		seen := make(map[string]bool, len(state.Regions))
		for i, region := range state.Regions {
			if region.Name == "" {
				fail("state '%s': region %d has no name", name, i)
				continue
			}
			if seen[region.Name] {
				fail("state '%s': duplicate region '%s'", name, region.Name)
			}
			seen[region.Name] = true
			errs = append(errs, region.validate(fmt.Sprintf("%sregion '%s.%s': ", scope, name, region.Name))...)
		}
	}
	return errs
}

func (m *Machine) defines(state string) bool {
	_, ok := m.States[state]
	return ok
}

func (m *Machine) stateNames() []string {
	return sortedKeys(m.States)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
