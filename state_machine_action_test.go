package hfsm_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/atlekbai/hfsm"
)

func TestOnEntryFrom(t *testing.T) {
	var log []string
	g := newGraph()
	g.Configure(StateA).
		Permit(TriggerX, StateB).
		Permit(TriggerY, StateB)
	g.Configure(StateB).
		OnEntryFrom(TriggerX, record(&log, "fromX")).
		OnEntry(record(&log, "always"))

	sm := newMachine(t, g, StateA)
	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(log, []string{"fromX", "always"}) {
		t.Errorf("unexpected actions for TriggerX: %v", log)
	}

	log = nil
	sm = newMachine(t, g, StateA)
	if err := sm.Fire(TriggerY); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(log, []string{"always"}) {
		t.Errorf("unexpected actions for TriggerY: %v", log)
	}
}

func TestActionsReceiveArgs(t *testing.T) {
	g := newGraph()
	var got []any
	g.Configure(StateA).Permit(TriggerX, StateB)
	g.Configure(StateB).OnEntry(func(_ context.Context, _ *hfsm.MachineContext, _ hfsm.Transition[State, Trigger], args ...any) error {
		got = args
		return nil
	})
	sm := newMachine(t, g, StateA)

	if err := sm.Fire(TriggerX, "one", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []any{"one", 2}) {
		t.Errorf("expected args to reach the entry action, got %v", got)
	}
}

func TestActionsShareMachineContext(t *testing.T) {
	g := newGraph()
	g.Configure(StateA).
		Permit(TriggerX, StateB).
		OnExit(func(_ context.Context, mc *hfsm.MachineContext, _ hfsm.Transition[State, Trigger], _ ...any) error {
			mc.Set("visits", 1)
			return nil
		})
	g.Configure(StateB).OnEntry(func(_ context.Context, mc *hfsm.MachineContext, _ hfsm.Transition[State, Trigger], _ ...any) error {
		n, _ := hfsm.Attribute[int](mc, "visits")
		mc.Set("visits", n+1)
		return nil
	})
	sm := newMachine(t, g, StateA)

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := hfsm.Attribute[int](sm.MachineContext(), "visits"); n != 2 {
		t.Errorf("expected visits=2, got %d", n)
	}
}

func TestExitActionErrorAbortsTransition(t *testing.T) {
	boom := errors.New("exit failed")
	var log []string
	g := newGraph()
	g.Configure(StateA).
		Permit(TriggerX, StateB, record(&log, "transition")).
		OnExit(func(context.Context, *hfsm.MachineContext, hfsm.Transition[State, Trigger], ...any) error {
			return boom
		})
	g.Configure(StateB).OnEntry(record(&log, "enterB"))
	sm := newMachine(t, g, StateA)

	if err := sm.Fire(TriggerX); !errors.Is(err, boom) {
		t.Fatalf("expected exit error, got %v", err)
	}
	if sm.MustState() != StateA {
		t.Errorf("expected StateA, got %v", sm.MustState())
	}
	if len(log) != 0 {
		t.Errorf("expected no further actions, got %v", log)
	}
}

func TestTransitionActionErrorAbortsTransition(t *testing.T) {
	boom := errors.New("action failed")
	var log []string
	g := newGraph()
	g.Configure(StateA).
		Permit(TriggerX, StateB, func(context.Context, *hfsm.MachineContext, hfsm.Transition[State, Trigger], ...any) error {
			return boom
		}).
		OnExit(record(&log, "exitA"))
	g.Configure(StateB).OnEntry(record(&log, "enterB"))
	sm := newMachine(t, g, StateA)

	if err := sm.Fire(TriggerX); !errors.Is(err, boom) {
		t.Fatalf("expected action error, got %v", err)
	}
	// Exit actions already ran and are not rolled back.
	if !reflect.DeepEqual(log, []string{"exitA"}) {
		t.Errorf("expected only exitA, got %v", log)
	}
	if sm.MustState() != StateA {
		t.Errorf("expected StateA, got %v", sm.MustState())
	}
}

func TestEntryActionErrorLeavesNewState(t *testing.T) {
	boom := errors.New("entry failed")
	var transitions int
	g := newGraph()
	g.Configure(StateA).Permit(TriggerX, StateB)
	g.Configure(StateB).OnEntry(func(context.Context, *hfsm.MachineContext, hfsm.Transition[State, Trigger], ...any) error {
		return boom
	})
	sm := newMachine(t, g, StateA)
	sm.OnTransitioned(func(hfsm.Transition[State, Trigger]) { transitions++ })

	if err := sm.Fire(TriggerX); !errors.Is(err, boom) {
		t.Fatalf("expected entry error, got %v", err)
	}
	if sm.MustState() != StateB {
		t.Errorf("expected StateB, got %v", sm.MustState())
	}
	if transitions != 1 {
		t.Errorf("expected the transition to be observed once, got %d", transitions)
	}
}

func TestGetInfo_ActionDescriptions(t *testing.T) {
	g := newGraph()
	g.Configure(StateA).
		OnEntry(logEntry).
		OnExit(func(context.Context, *hfsm.MachineContext, hfsm.Transition[State, Trigger], ...any) error { return nil })
	sm := newMachine(t, g, StateA)

	info := sm.GetInfo().InitialState
	if got := info.EntryActions[0].Description(); got != "logEntry" {
		t.Errorf("expected logEntry, got %q", got)
	}
	if got := info.ExitActions[0].Description(); got != hfsm.DefaultFunctionDescription {
		t.Errorf("expected %q for an anonymous action, got %q", hfsm.DefaultFunctionDescription, got)
	}
}

func logEntry(context.Context, *hfsm.MachineContext, hfsm.Transition[State, Trigger], ...any) error {
	return nil
}
