// Package redisstate keeps the current state of hfsm machines in Redis so
// that a machine built with hfsm.NewStateMachineWithExternalStorage survives
// process restarts.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atlekbai/hfsm"
	backend "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no state is stored for a machine.
var ErrNotFound = errors.New("machine state not found")

// farFuture is the index score of entries that never expire.
const farFuture = 4102444800

// Store persists machine states as JSON values, one key per machine ID. An
// index sorted set tracks the stored IDs by expiry.
type Store[S comparable] struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type options struct {
	prefix string
	ttl    time.Duration
}

type Option func(*options)

// WithTTL sets the expiration of stored states. Every write refreshes it.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// New creates a store with its own client.
func New[S comparable](address, password string, db int, opts ...Option) *Store[S] {
	return NewFromClient[S](backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient creates a store over an existing client.
func NewFromClient[S comparable](client *backend.Client, opts ...Option) *Store[S] {
	o := options{prefix: "hfsm:machine:"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[S]{
		client: client,
		prefix: o.prefix,
		ttl:    o.ttl,
	}
}

func (s *Store[S]) key(id string) string {
	return s.prefix + id
}

func (s *Store[S]) snapshotKey(id string) string {
	return s.prefix + id + ":snapshot"
}

func (s *Store[S]) indexKey() string {
	return s.prefix + "index"
}

// Accessor returns a state accessor for the machine id. Until a state is
// stored, the accessor reports initial.
func (s *Store[S]) Accessor(id string, initial S) hfsm.StateAccessor[S] {
	return func(ctx context.Context) (S, error) {
		state, err := s.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return initial, nil
		}
		return state, err
	}
}

// Mutator returns a state mutator for the machine id.
func (s *Store[S]) Mutator(id string) hfsm.StateMutator[S] {
	return func(ctx context.Context, state S) error {
		return s.Save(ctx, id, state)
	}
}

// Save stores state for the machine id.
func (s *Store[S]) Save(ctx context.Context, id string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(id), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save state to redis: %w", err)
	}
	return nil
}

// Load returns the state stored for the machine id.
func (s *Store[S]) Load(ctx context.Context, id string) (S, error) {
	var state S
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return state, fmt.Errorf("machine '%s': %w", id, ErrNotFound)
		}
		return state, fmt.Errorf("get state from redis: %w", err)
	}
	if err := json.Unmarshal(val, &state); err != nil {
		return state, fmt.Errorf("unmarshal state: %w", err)
	}
	return state, nil
}

// SaveSnapshot stores the active configuration of a machine, regions
// included, next to its state. Snapshots are informational: region
// instances are rebuilt from their initial states when a machine is
// restored.
func (s *Store[S]) SaveSnapshot(ctx context.Context, id string, snapshot hfsm.MachineState[S]) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.snapshotKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot to redis: %w", err)
	}
	return nil
}

// LoadSnapshot returns the snapshot stored for the machine id.
func (s *Store[S]) LoadSnapshot(ctx context.Context, id string) (hfsm.MachineState[S], error) {
	var snapshot hfsm.MachineState[S]
	val, err := s.client.Get(ctx, s.snapshotKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return snapshot, fmt.Errorf("snapshot of machine '%s': %w", id, ErrNotFound)
		}
		return snapshot, fmt.Errorf("get snapshot from redis: %w", err)
	}
	if err := json.Unmarshal(val, &snapshot); err != nil {
		return snapshot, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}

// Delete removes the state and snapshot of the machine id.
func (s *Store[S]) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(id), s.snapshotKey(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the IDs of machines with a live state, pruning expired ones
// from the index.
func (s *Store[S]) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("prune expired machines: %w", err)
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store[S]) Close() error {
	return s.client.Close()
}

// NewMachine builds a machine whose state lives in s under id. A machine
// without a stored state starts in initial; one with a stored state resumes
// from it.
func NewMachine[S, T comparable](s *Store[S], graph *hfsm.StateGraph[S, T], id string, initial S, opts ...hfsm.Option) (*hfsm.StateMachine[S, T], error) {
	opts = append(opts, hfsm.WithID(id))
	return hfsm.NewStateMachineWithExternalStorage(graph, s.Accessor(id, initial), s.Mutator(id), opts...)
}
