package hfsm

// RegionConfig describes one orthogonal region of a parallel state: a
// separately configured graph and the state its instances start in.
type RegionConfig[S, T comparable] struct {
	name         string
	initialState S
	graph        *StateGraph[S, T]
}

// NewRegion creates a region with an empty graph. Configure its states with
// Configure before building a machine over the owning graph.
func NewRegion[S, T comparable](name string, initialState S) *RegionConfig[S, T] {
	return NewRegionWithGraph(name, initialState, NewStateGraph[S, T]())
}

// NewRegionWithGraph creates a region over an already configured graph.
func NewRegionWithGraph[S, T comparable](name string, initialState S, graph *StateGraph[S, T]) *RegionConfig[S, T] {
	return &RegionConfig[S, T]{
		name:         name,
		initialState: initialState,
		graph:        graph,
	}
}

// Configure begins configuration of a state in the region's graph.
func (r *RegionConfig[S, T]) Configure(state S) *StateConfiguration[S, T] {
	return r.graph.Configure(state)
}

// Name returns the region name.
func (r *RegionConfig[S, T]) Name() string {
	return r.name
}

// InitialState returns the state new instances start in.
func (r *RegionConfig[S, T]) InitialState() S {
	return r.initialState
}

// Graph returns the region graph.
func (r *RegionConfig[S, T]) Graph() *StateGraph[S, T] {
	return r.graph
}
