package hfsm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/atlekbai/hfsm"
)

func TestIgnore(t *testing.T) {
	var log []string
	g := newGraph()
	g.Configure(StateA).
		Ignore(TriggerX).
		OnExit(record(&log, "exit"))
	sm := newMachine(t, g, StateA)

	unhandled := false
	sm.OnUnhandledTrigger(func(context.Context, *hfsm.MachineContext, State, Trigger, []string, ...any) error {
		unhandled = true
		return nil
	})
	transitioned := false
	sm.OnTransitioned(func(hfsm.Transition[State, Trigger]) { transitioned = true })

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sm.MustState() != StateA {
		t.Errorf("expected StateA, got %v", sm.MustState())
	}
	if unhandled || transitioned || len(log) != 0 {
		t.Errorf("expected ignore to have no effect: unhandled=%v transitioned=%v log=%v", unhandled, transitioned, log)
	}
}

func TestIgnore_InheritedFromSuperstate(t *testing.T) {
	g := newGraph()
	g.Configure(StateA).Ignore(TriggerX)
	g.Configure(StateB).SubstateOf(StateA)
	sm := newMachine(t, g, StateB)

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sm.MustState() != StateB {
		t.Errorf("expected StateB, got %v", sm.MustState())
	}
}

func TestIgnore_SubstatePermitOverridesSuperstateIgnore(t *testing.T) {
	g := newGraph()
	g.Configure(StateA).Ignore(TriggerX)
	g.Configure(StateB).
		SubstateOf(StateA).
		Permit(TriggerX, StateC)
	sm := newMachine(t, g, StateB)

	if err := sm.Fire(TriggerX); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sm.MustState() != StateC {
		t.Errorf("expected StateC, got %v", sm.MustState())
	}
}

func TestIgnoreIf(t *testing.T) {
	g := newGraph()
	g.Configure(StateA).
		IgnoreIf(TriggerX, isFalse).
		IgnoreIf(TriggerY, isTrue)
	sm := newMachine(t, g, StateA)

	if err := sm.Fire(TriggerX); !errors.Is(err, hfsm.ErrUnhandledTrigger) {
		t.Errorf("expected ErrUnhandledTrigger, got %v", err)
	}
	if err := sm.Fire(TriggerY); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if ok, _ := sm.CanFire(context.Background(), TriggerY); !ok {
		t.Error("expected an ignored trigger to be firable")
	}
}
