package hfsm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/atlekbai/hfsm/internal/logging"
)

// StateAccessor reads the current state from wherever it is stored.
type StateAccessor[S any] func(ctx context.Context) (S, error)

// StateMutator stores a new current state.
type StateMutator[S any] func(ctx context.Context, state S) error

// UnhandledTriggerAction is called when a fired trigger is not handled by the
// current state, its superstates or any live region. unmetGuards describes
// the guards that blocked otherwise matching behaviours.
type UnhandledTriggerAction[S, T comparable] func(ctx context.Context, mc *MachineContext, state S, trigger T, unmetGuards []string, args ...any) error

// StateMachine executes a StateGraph. A state machine that owns parallel
// states keeps one child StateMachine per region of each entered parallel
// state.
//
// A StateMachine is not safe for concurrent use; callers firing from several
// goroutines must serialize the calls.
type StateMachine[S, T comparable] struct {
	id    string
	graph *StateGraph[S, T]

	stateAccessor StateAccessor[S]
	stateMutator  StateMutator[S]
	initialState  S

	machineContext         *MachineContext
	unhandledTriggerAction UnhandledTriggerAction[S, T]
	onTransitionedEvent    *OnTransitionedEvent[S, T]

	// regions holds the live region instances per parallel state.
	regions map[S][]*StateMachine[S, T]

	// owner links a region instance to the machine and node that spawned it.
	owner      *regionOwner[S, T]
	regionName string

	logger *slog.Logger
}

type regionOwner[S, T comparable] struct {
	machine *StateMachine[S, T]
	node    *StateNode[S, T]
}

// Option configures a StateMachine.
type Option func(*options)

type options struct {
	machineContext *MachineContext
	logger         *slog.Logger
	id             string
}

// WithMachineContext shares mc with the machine instead of creating a new
// context.
func WithMachineContext(mc *MachineContext) Option {
	return func(o *options) {
		o.machineContext = mc
	}
}

// WithLogger sets the logger used for debug records. The default discards
// everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithID sets the machine ID. The default is a random UUID.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// OnTransitionedEvent handles transition event callbacks.
type OnTransitionedEvent[S, T comparable] struct {
	handlers []func(Transition[S, T])
	mutex    sync.RWMutex
}

// NewOnTransitionedEvent creates a new OnTransitionedEvent.
func NewOnTransitionedEvent[S, T comparable]() *OnTransitionedEvent[S, T] {
	return &OnTransitionedEvent[S, T]{}
}

// Register adds a handler to the event.
func (e *OnTransitionedEvent[S, T]) Register(handler func(Transition[S, T])) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.handlers = append(e.handlers, handler)
}

// Invoke calls all registered handlers.
func (e *OnTransitionedEvent[S, T]) Invoke(transition Transition[S, T]) {
	e.mutex.RLock()
	handlers := e.handlers
	e.mutex.RUnlock()
	for _, handler := range handlers {
		handler(transition)
	}
}

// NewStateMachine creates a state machine over graph that starts in
// initialState. The graph is sealed. If the graph enables it, the entry
// actions of the initial state run before NewStateMachine returns; a parallel
// initial state gets its regions started either way.
func NewStateMachine[S, T comparable](graph *StateGraph[S, T], initialState S, opts ...Option) (*StateMachine[S, T], error) {
	state := initialState
	return NewStateMachineWithExternalStorage(
		graph,
		func(context.Context) (S, error) { return state, nil },
		func(_ context.Context, s S) error {
			state = s
			return nil
		},
		opts...,
	)
}

// NewStateMachineWithExternalStorage creates a state machine whose current
// state lives in caller-owned storage. The accessor is authoritative: the
// state it returns at construction is the initial state.
func NewStateMachineWithExternalStorage[S, T comparable](
	graph *StateGraph[S, T],
	stateAccessor StateAccessor[S],
	stateMutator StateMutator[S],
	opts ...Option,
) (*StateMachine[S, T], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.machineContext == nil {
		o.machineContext = NewMachineContext()
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}

	ctx := context.Background()
	initialState, err := stateAccessor(ctx)
	if err != nil {
		return nil, fmt.Errorf("read initial state: %w", err)
	}

	graph.seal()
	sm := &StateMachine[S, T]{
		id:                  o.id,
		graph:               graph,
		stateAccessor:       stateAccessor,
		stateMutator:        stateMutator,
		initialState:        initialState,
		machineContext:      o.machineContext,
		onTransitionedEvent: NewOnTransitionedEvent[S, T](),
		regions:             make(map[S][]*StateMachine[S, T]),
		logger:              o.logger.With("machine", o.id),
	}
	sm.unhandledTriggerAction = sm.defaultUnhandledTriggerAction
	if err := sm.start(ctx); err != nil {
		return nil, err
	}
	return sm, nil
}

// start starts the regions of a parallel initial state and, when enabled,
// runs the initial entry actions.
func (sm *StateMachine[S, T]) start(ctx context.Context) error {
	state, err := sm.State(ctx)
	if err != nil {
		return err
	}
	node := sm.graph.node(state)
	initial := NewInitialTransition[S, T](state)
	if err := sm.initializeEnteredRegions(ctx, node, initial); err != nil {
		return err
	}
	if sm.graph.entryActionOfInitialState {
		sm.logger.DebugContext(ctx, "entering initial state", "state", state)
		return node.InitEnter(ctx, sm.machineContext, initial)
	}
	return nil
}

// ID returns the machine ID.
func (sm *StateMachine[S, T]) ID() string {
	return sm.id
}

// MachineContext returns the context shared with guards, actions and regions.
func (sm *StateMachine[S, T]) MachineContext() *MachineContext {
	return sm.machineContext
}

// Graph returns the graph the machine executes.
func (sm *StateMachine[S, T]) Graph() *StateGraph[S, T] {
	return sm.graph
}

// State returns the current state.
func (sm *StateMachine[S, T]) State(ctx context.Context) (S, error) {
	return sm.stateAccessor(ctx)
}

// MustState returns the current state and panics if it cannot be read.
func (sm *StateMachine[S, T]) MustState() S {
	state, err := sm.State(context.Background())
	if err != nil {
		panic(err)
	}
	return state
}

// Fire fires trigger with args.
func (sm *StateMachine[S, T]) Fire(trigger T, args ...any) error {
	return sm.FireCtx(context.Background(), trigger, args...)
}

// FireCtx fires trigger with args. The call returns once the exit, transition
// and entry actions, and any relayed region firings, have completed. Actions
// may fire further triggers; those are processed immediately.
func (sm *StateMachine[S, T]) FireCtx(ctx context.Context, trigger T, args ...any) error {
	handled, unmetGuards, err := sm.fireLocal(ctx, trigger, args)
	if err != nil || handled {
		return err
	}

	state, err := sm.State(ctx)
	if err != nil {
		return err
	}
	sm.logger.DebugContext(ctx, "trigger unhandled", "state", state, "trigger", trigger)
	return sm.unhandledTriggerAction(ctx, sm.machineContext, state, trigger, unmetGuards, args...)
}

// fireLocal runs the fire protocol without the unhandled trigger action, so
// that region instances can report a miss back to their owner.
func (sm *StateMachine[S, T]) fireLocal(ctx context.Context, trigger T, args []any) (bool, []string, error) {
	if err := sm.graph.validateParameters(trigger, args); err != nil {
		return false, nil, err
	}

	source, err := sm.State(ctx)
	if err != nil {
		return false, nil, err
	}
	sm.logger.DebugContext(ctx, "firing trigger", "state", source, "trigger", trigger)

	node := sm.graph.node(source)
	result, err := node.TryFindHandler(ctx, sm.machineContext, trigger, args...)
	if err != nil {
		return false, nil, err
	}

	if result.Handler != nil {
		destination, ok := result.Handler.ResultsInTransitionFrom(ctx, sm.machineContext, source, args...)
		if !ok {
			sm.logger.DebugContext(ctx, "trigger ignored", "state", source, "trigger", trigger)
			return true, nil, nil
		}
		transition := NewTransition(source, destination, trigger)
		return true, nil, sm.executeTransition(ctx, node, result.Handler, transition, args)
	}

	handled, err := sm.relay(ctx, node, trigger, args)
	return handled, result.UnmetGuardConditions, err
}

func (sm *StateMachine[S, T]) executeTransition(
	ctx context.Context,
	source *StateNode[S, T],
	behaviour TriggerBehaviour[S, T],
	transition Transition[S, T],
	args []any,
) error {
	sm.logger.DebugContext(ctx, "transition",
		"source", transition.Source,
		"destination", transition.Destination,
		"trigger", transition.Trigger)

	if err := source.Exit(ctx, sm.machineContext, transition, args...); err != nil {
		return err
	}
	if err := behaviour.PerformAction(ctx, sm.machineContext, transition, args...); err != nil {
		return err
	}
	if err := sm.stateMutator(ctx, transition.Destination); err != nil {
		return fmt.Errorf("store state '%v': %w", transition.Destination, err)
	}

	sm.dropExitedRegions(source, transition)

	sm.onTransitionedEvent.Invoke(transition)

	destination := sm.graph.node(transition.Destination)
	if err := sm.initializeEnteredRegions(ctx, destination, transition); err != nil {
		return err
	}
	return destination.Enter(ctx, sm.machineContext, transition, args...)
}

// initializeEnteredRegions starts fresh regions for every parallel state the
// transition enters, outermost first. These are the states Enter runs entry
// actions for.
func (sm *StateMachine[S, T]) initializeEnteredRegions(ctx context.Context, destination *StateNode[S, T], t Transition[S, T]) error {
	var entered []*StateNode[S, T]
	for n := destination; n != nil; n = n.Superstate() {
		if !t.IsInitial() && !t.IsReentry() && n.Includes(t.Source) {
			break
		}
		entered = append(entered, n)
		if !t.IsInitial() && t.IsReentry() {
			break
		}
	}
	for i := len(entered) - 1; i >= 0; i-- {
		if !entered[i].IsParallel() {
			continue
		}
		if err := sm.initializeRegions(ctx, entered[i]); err != nil {
			return err
		}
	}
	return nil
}

// dropExitedRegions forgets the region instances of the states the
// transition left.
func (sm *StateMachine[S, T]) dropExitedRegions(source *StateNode[S, T], t Transition[S, T]) {
	for n := source; n != nil; n = n.Superstate() {
		if t.IsReentry() {
			delete(sm.regions, n.state)
			return
		}
		if n.Includes(t.Destination) {
			return
		}
		delete(sm.regions, n.state)
	}
}

// relay offers the trigger to the live regions of the current state and of
// its parallel superstates, innermost first. Every region is offered the
// trigger; it is handled if any region handled it.
func (sm *StateMachine[S, T]) relay(ctx context.Context, node *StateNode[S, T], trigger T, args []any) (bool, error) {
	if node.IsParallel() && len(sm.regions[node.state]) == 0 {
		return false, &MissingRegionError{State: node.state}
	}

	handled := false
	for n := node; n != nil; n = n.Superstate() {
		for _, region := range sm.regions[n.state] {
			sm.logger.DebugContext(ctx, "relaying trigger", "state", n.state, "region", region.regionName, "trigger", trigger)
			ok, _, err := region.fireLocal(ctx, trigger, args)
			if err != nil {
				return handled, err
			}
			handled = handled || ok
		}
	}
	return handled, nil
}

// initializeRegions replaces the region instances of a parallel state with
// fresh ones started in their initial states.
func (sm *StateMachine[S, T]) initializeRegions(ctx context.Context, node *StateNode[S, T]) error {
	delete(sm.regions, node.state)

	instances := make([]*StateMachine[S, T], 0, len(node.regions))
	for _, config := range node.regions {
		instance, err := sm.newRegionInstance(ctx, node, config)
		if err != nil {
			return fmt.Errorf("start region '%s' of state '%v': %w", config.name, node.state, err)
		}
		instances = append(instances, instance)
	}
	sm.regions[node.state] = instances

	sm.logger.DebugContext(ctx, "regions initialized", "state", node.state, "count", len(instances))
	return nil
}

func (sm *StateMachine[S, T]) newRegionInstance(ctx context.Context, node *StateNode[S, T], config *RegionConfig[S, T]) (*StateMachine[S, T], error) {
	state := config.initialState
	config.graph.seal()
	instance := &StateMachine[S, T]{
		id:    uuid.NewString(),
		graph: config.graph,
		stateAccessor: func(context.Context) (S, error) {
			return state, nil
		},
		stateMutator: func(_ context.Context, s S) error {
			state = s
			return nil
		},
		initialState:        config.initialState,
		machineContext:      sm.machineContext,
		onTransitionedEvent: sm.onTransitionedEvent,
		regions:             make(map[S][]*StateMachine[S, T]),
		owner:               &regionOwner[S, T]{machine: sm, node: node},
		regionName:          config.name,
		logger:              sm.logger.With("region", config.name),
	}
	instance.unhandledTriggerAction = instance.defaultUnhandledTriggerAction
	if err := instance.start(ctx); err != nil {
		return nil, err
	}
	return instance, nil
}

func (sm *StateMachine[S, T]) defaultUnhandledTriggerAction(ctx context.Context, _ *MachineContext, state S, trigger T, unmetGuards []string, args ...any) error {
	permittedTriggers, err := sm.GetPermittedTriggers(ctx, args...)
	if err != nil {
		return err
	}
	permitted := make([]any, len(permittedTriggers))
	for i, t := range permittedTriggers {
		permitted[i] = t
	}
	return &UnhandledTriggerError{
		Trigger:           trigger,
		State:             state,
		UnmetGuards:       unmetGuards,
		PermittedTriggers: permitted,
	}
}

// OnUnhandledTrigger replaces the action called when a trigger is not
// handled. The default action returns an *UnhandledTriggerError.
func (sm *StateMachine[S, T]) OnUnhandledTrigger(action UnhandledTriggerAction[S, T]) {
	if action == nil {
		action = sm.defaultUnhandledTriggerAction
	}
	sm.unhandledTriggerAction = action
}

// UnhandledTriggerAction returns the action called for unhandled triggers.
func (sm *StateMachine[S, T]) UnhandledTriggerAction() UnhandledTriggerAction[S, T] {
	return sm.unhandledTriggerAction
}

// OnTransitioned registers a callback invoked after every state change,
// including changes inside region instances.
func (sm *StateMachine[S, T]) OnTransitioned(action func(Transition[S, T])) {
	sm.onTransitionedEvent.Register(action)
}

// IsInState returns true if the current state is state or one of its
// substates. States of live regions count as substates of the parallel state
// that owns them, in both directions.
func (sm *StateMachine[S, T]) IsInState(ctx context.Context, state S) (bool, error) {
	ok, err := sm.isInStateBelow(ctx, state)
	if err != nil || ok {
		return ok, err
	}
	for o := sm.owner; o != nil; o = o.machine.owner {
		if o.node.IsIncludedIn(state) {
			return true, nil
		}
	}
	return false, nil
}

func (sm *StateMachine[S, T]) isInStateBelow(ctx context.Context, state S) (bool, error) {
	current, err := sm.State(ctx)
	if err != nil {
		return false, err
	}
	node := sm.graph.node(current)
	if node.IsIncludedIn(state) {
		return true, nil
	}
	for n := node; n != nil; n = n.Superstate() {
		for _, region := range sm.regions[n.state] {
			ok, err := region.isInStateBelow(ctx, state)
			if err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}

// CanFire returns true if trigger would be handled by the current state, its
// superstates or a live region.
func (sm *StateMachine[S, T]) CanFire(ctx context.Context, trigger T, args ...any) (bool, error) {
	current, err := sm.State(ctx)
	if err != nil {
		return false, err
	}
	node := sm.graph.node(current)
	ok, err := node.CanHandle(ctx, sm.machineContext, trigger, args...)
	if err != nil || ok {
		return ok, err
	}
	for n := node; n != nil; n = n.Superstate() {
		for _, region := range sm.regions[n.state] {
			ok, err := region.CanFire(ctx, trigger, args...)
			if err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}

// GetPermittedTriggers returns the triggers that can be fired in the current
// state, including those accepted by live regions.
func (sm *StateMachine[S, T]) GetPermittedTriggers(ctx context.Context, args ...any) ([]T, error) {
	current, err := sm.State(ctx)
	if err != nil {
		return nil, err
	}
	node := sm.graph.node(current)
	result := node.GetPermittedTriggers(ctx, sm.machineContext, args...)
	for n := node; n != nil; n = n.Superstate() {
		for _, region := range sm.regions[n.state] {
			triggers, err := region.GetPermittedTriggers(ctx, args...)
			if err != nil {
				return nil, err
			}
			for _, trigger := range triggers {
				if !containsTrigger(result, trigger) {
					result = append(result, trigger)
				}
			}
		}
	}
	return result, nil
}

// GetStateMachineState returns a snapshot of the active configuration: the
// path from the root of the graph down to the current state, with the
// snapshots of live regions nested under the states that own them.
func (sm *StateMachine[S, T]) GetStateMachineState(ctx context.Context) (MachineState[S], error) {
	current, err := sm.State(ctx)
	if err != nil {
		return MachineState[S]{}, err
	}
	node := sm.graph.node(current)
	if node.IsParallel() && len(sm.regions[current]) == 0 {
		return MachineState[S]{}, &MissingRegionError{State: current}
	}

	var inner *MachineState[S]
	for n := node; n != nil; n = n.Superstate() {
		ms := MachineState[S]{State: n.state}
		if inner != nil {
			ms.SubStates = append(ms.SubStates, *inner)
		}
		for _, region := range sm.regions[n.state] {
			sub, err := region.GetStateMachineState(ctx)
			if err != nil {
				return MachineState[S]{}, err
			}
			ms.SubStates = append(ms.SubStates, sub)
		}
		inner = &ms
	}
	return *inner, nil
}

// GetInfo returns information about the state machine configuration for introspection.
func (sm *StateMachine[S, T]) GetInfo() *StateMachineInfo {
	return sm.graph.GetInfo(sm.initialState)
}

// String returns a string representation of the current state.
func (sm *StateMachine[S, T]) String() string {
	state, err := sm.State(context.Background())
	if err != nil {
		return fmt.Sprintf("StateMachine { ID = %s, Error = %v }", sm.id, err)
	}
	return fmt.Sprintf("StateMachine { State = %v }", state)
}
