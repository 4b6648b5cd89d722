package definition

import (
	"context"
	"errors"
	"fmt"

	"github.com/atlekbai/hfsm"
)

// Graph is the graph type built from definitions.
type Graph = hfsm.StateGraph[string, string]

// Build validates the definition and configures a new graph from it. States
// and triggers are configured in name order.
func (d *Definition) Build() (g *Graph, err error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			var cfgErr *hfsm.ConfigurationError
			if e, ok := r.(error); ok && errors.As(e, &cfgErr) {
				g, err = nil, cfgErr
				return
			}
			panic(r)
		}
	}()

	g = hfsm.NewStateGraph[string, string]()
	d.Machine.configure(g)
	return g, nil
}

func (m *Machine) configure(g *Graph) {
	if m.EntryOfInitial {
		g.EnableEntryActionOfInitialState()
	}

	for _, name := range m.stateNames() {
		state := m.States[name]
		sc := g.Configure(name)

		if state.SubstateOf != "" {
			sc.SubstateOf(state.SubstateOf)
		}
		if state.OnEntry != nil {
			sc.OnEntry(state.OnEntry.action())
		}
		if state.OnExit != nil {
			sc.OnExit(state.OnExit.action())
		}
		for _, trigger := range sortedKeys(state.Permit) {
			sc.Permit(trigger, state.Permit[trigger])
		}
		for _, c := range state.PermitIf {
			sc.Behaviour(hfsm.NewTransitioningTriggerBehaviour[string, string](
				c.Trigger, c.To, hfsm.NewTransitionGuard(c.guard(), c.description())))
		}
		for _, trigger := range state.Reentry {
			sc.PermitReentry(trigger)
		}
		for _, trigger := range state.Ignore {
			sc.Ignore(trigger)
		}
		for _, dyn := range state.Dynamic {
			sc.PermitDynamic(dyn.Trigger, dyn.selector())
		}
		for _, region := range state.Regions {
			config := hfsm.NewRegion[string, string](region.Name, region.Initial)
			region.configure(config.Graph())
			sc.Parallel(config)
		}
	}
}

func (c Conditional) guard() hfsm.GuardFunc {
	want := fmt.Sprint(c.Equals)
	return func(_ context.Context, mc *hfsm.MachineContext, _ ...any) bool {
		v, ok := mc.Get(c.Attr)
		return ok && fmt.Sprint(v) == want
	}
}

func (c Conditional) description() string {
	return fmt.Sprintf("%s == %v", c.Attr, c.Equals)
}

func (d Dynamic) selector() hfsm.StateSelector[string] {
	return func(_ context.Context, mc *hfsm.MachineContext, _ ...any) string {
		if v, ok := mc.Get(d.Attr); ok {
			if dst, ok := d.Cases[fmt.Sprint(v)]; ok {
				return dst
			}
		}
		return d.Default
	}
}

func (a *Assignment) action() hfsm.ActionFunc[string, string] {
	set := a.Set
	names := a.Args
	return func(_ context.Context, mc *hfsm.MachineContext, _ hfsm.Transition[string, string], args ...any) error {
		for _, name := range sortedKeys(set) {
			mc.Set(name, set[name])
		}
		for i, name := range names {
			if i >= len(args) {
				break
			}
			mc.Set(name, args[i])
		}
		return nil
	}
}
