// Package memory provides an in-memory implementation of the offspring store used
// for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"offspring_lifecycle/internal/domain/offspring"

	"github.com/google/uuid"
)

// Compile-time contract assertion.
var _ offspring.Store = (*Store)(nil)

type memoryState struct {
	groups  map[string]offspring.Group
	members map[string]offspring.Member
	events  []offspring.Event
}

func newMemoryState() memoryState {
	return memoryState{
		groups:  make(map[string]offspring.Group),
		members: make(map[string]offspring.Member),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.groups {
		cloned.groups[k] = cloneGroup(v)
	}
	for k, v := range s.members {
		cloned.members[k] = cloneMember(v)
	}
	cloned.events = append([]offspring.Event(nil), s.events...)
	return cloned
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneGroup(g offspring.Group) offspring.Group {
	cp := g
	cp.ActualBirthOn = cloneTime(g.ActualBirthOn)
	cp.WeanedAt = cloneTime(g.WeanedAt)
	cp.PlacementStartAt = cloneTime(g.PlacementStartAt)
	cp.CompletedAt = cloneTime(g.CompletedAt)
	cp.ExpectedWeanedAt = cloneTime(g.ExpectedWeanedAt)
	cp.ExpectedPlacementStartAt = cloneTime(g.ExpectedPlacementStartAt)
	cp.ExpectedPlacementCompletedAt = cloneTime(g.ExpectedPlacementCompletedAt)
	cp.CountLive = cloneInt(g.CountLive)
	cp.CountBorn = cloneInt(g.CountBorn)
	cp.CountPlaced = cloneInt(g.CountPlaced)
	return cp
}

func cloneMember(m offspring.Member) offspring.Member {
	cp := m
	cp.ArchivedAt = cloneTime(m.ArchivedAt)
	return cp
}

// Store keeps groups, members and events in process memory. A single mutex
// serialises every unit of work.
type Store struct {
	mu    sync.Mutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used for UpdatedAt and CreatedAt stamps.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

type transaction struct {
	state *memoryState
	now   time.Time
}

// RunInTx runs fn against a private copy of the state and swaps it in only when fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(tx offspring.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.state.clone()
	tx := &transaction{state: &working, now: s.nowFn()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (tx *transaction) LoadSnapshot(_ context.Context, groupID string) (offspring.Snapshot, error) {
	g, ok := tx.state.groups[groupID]
	if !ok {
		return offspring.Snapshot{}, offspring.ErrGroupNotFound
	}
	return offspring.Snapshot{Group: cloneGroup(g), Members: liveMembers(tx.state, groupID)}, nil
}

func (tx *transaction) WriteGroup(_ context.Context, groupID string, patch offspring.GroupPatch) error {
	g, ok := tx.state.groups[groupID]
	if !ok {
		return offspring.ErrGroupNotFound
	}
	for field := range patch.Set {
		if !field.Valid() {
			return fmt.Errorf("unknown date field %q", field)
		}
	}
	for _, field := range patch.Clear {
		if !field.Valid() {
			return fmt.Errorf("unknown date field %q", field)
		}
	}
	updated := patch.Apply(g)
	updated.UpdatedAt = tx.now
	tx.state.groups[groupID] = updated
	return nil
}

func (tx *transaction) Append(_ context.Context, event offspring.Event) error {
	if _, ok := tx.state.groups[event.GroupID]; !ok {
		return offspring.ErrGroupNotFound
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = tx.now
	}
	tx.state.events = append(tx.state.events, event)
	return nil
}

func liveMembers(state *memoryState, groupID string) []offspring.Member {
	out := make([]offspring.Member, 0)
	for _, m := range state.members {
		if m.GroupID == groupID && m.ArchivedAt == nil {
			out = append(out, cloneMember(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateGroup inserts a group, assigning an id and defaulting the status to PENDING.
func (s *Store) CreateGroup(_ context.Context, g offspring.Group) (offspring.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if _, exists := s.state.groups[g.ID]; exists {
		return offspring.Group{}, fmt.Errorf("offspring group %s already exists", g.ID)
	}
	if g.Status == "" {
		g.Status = offspring.StatusPending
	}
	now := s.nowFn()
	g.CreatedAt, g.UpdatedAt = now, now
	s.state.groups[g.ID] = cloneGroup(g)
	return cloneGroup(g), nil
}

// AddMember attaches an offspring record to an existing group.
func (s *Store) AddMember(_ context.Context, m offspring.Member) (offspring.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.groups[m.GroupID]; !ok {
		return offspring.Member{}, offspring.ErrGroupNotFound
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.LifeState == "" {
		m.LifeState = offspring.LifeStateAlive
	}
	if m.PlacementState == "" {
		m.PlacementState = offspring.PlacementUnassigned
	}
	if m.KeeperIntent == "" {
		m.KeeperIntent = offspring.KeeperNone
	}
	s.state.members[m.ID] = cloneMember(m)
	return cloneMember(m), nil
}

// UpdateMember mutates a stored member in place.
func (s *Store) UpdateMember(_ context.Context, id string, mutator func(*offspring.Member)) (offspring.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.members[id]
	if !ok {
		return offspring.Member{}, fmt.Errorf("offspring %s not found", id)
	}
	mutator(&m)
	s.state.members[id] = cloneMember(m)
	return cloneMember(m), nil
}

// GetGroup returns a copy of the stored group.
func (s *Store) GetGroup(_ context.Context, id string) (offspring.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.state.groups[id]
	if !ok {
		return offspring.Group{}, offspring.ErrGroupNotFound
	}
	return cloneGroup(g), nil
}

// ListEvents returns a group's events in append order.
func (s *Store) ListEvents(_ context.Context, groupID string) ([]offspring.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]offspring.Event, 0)
	for _, e := range s.state.events {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListOpenGroups returns non-terminal groups ordered by creation time.
func (s *Store) ListOpenGroups(_ context.Context) ([]offspring.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]offspring.Group, 0)
	for _, g := range s.state.groups {
		if !g.Status.Terminal() {
			out = append(out, cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
