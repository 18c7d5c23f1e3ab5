package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/pengraph/pengraph/pkg/model"
	"github.com/pengraph/pengraph/pkg/remote"
)

// FakeStore is an in-memory remote.Store. Failures are scripted per
// operation: set FailCreate (etc.) to make the next calls return that
// error, or FailDeleteFor to fail specific ids during bulk deletes.
type FakeStore struct {
	mu     sync.Mutex
	nodes  map[string]model.Node
	order  []string
	links  map[string]model.Edge
	lorder []string
	nextID int

	FailFetch     error
	FailCreate    error
	FailDelete    error
	FailLink      error
	FailUnlink    error
	FailPosition  error
	FailDuplicate error
	FailDeleteFor map[string]error

	// Calls counts invocations per operation name.
	Calls map[string]int
}

var _ remote.Store = (*FakeStore)(nil)

// NewFakeStore returns an empty store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		nodes: make(map[string]model.Node),
		links: make(map[string]model.Edge),
		Calls: make(map[string]int),
	}
}

// Seed loads graph data without counting as mutation calls.
func (s *FakeStore) Seed(data remote.GraphData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range data.Nodes {
		if _, ok := s.nodes[n.ID]; !ok {
			s.order = append(s.order, n.ID)
		}
		s.nodes[n.ID] = n
	}
	for _, l := range data.Links {
		id := model.EdgeID(l.Source, l.Target)
		if _, ok := s.links[id]; !ok {
			s.lorder = append(s.lorder, id)
		}
		s.links[id] = model.Edge{ID: id, Source: l.Source, Target: l.Target}
	}
}

// CallCount returns how many times the named operation ran.
func (s *FakeStore) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[op]
}

// NodePosition returns the stored position of a node.
func (s *FakeStore) NodePosition(id string) (model.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	return n.Position, ok
}

func (s *FakeStore) record(op string) {
	s.Calls[op]++
}

func (s *FakeStore) FetchGraph(ctx context.Context, projectID string) (remote.GraphData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("FetchGraph")
	if s.FailFetch != nil {
		return remote.GraphData{}, s.FailFetch
	}

	data := remote.GraphData{}
	for _, id := range s.order {
		n := s.nodes[id]
		n.ParentIDs = nil
		n.ChildIDs = nil
		for _, lid := range s.lorder {
			l := s.links[lid]
			if l.Target == id {
				n.ParentIDs = append(n.ParentIDs, l.Source)
			}
			if l.Source == id {
				n.ChildIDs = append(n.ChildIDs, l.Target)
			}
		}
		data.Nodes = append(data.Nodes, n)
	}
	for _, lid := range s.lorder {
		data.Links = append(data.Links, s.links[lid])
	}
	return data, nil
}

func (s *FakeStore) CreateNode(ctx context.Context, projectID string, fields model.NodeFields) (model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateNode")
	if s.FailCreate != nil {
		return model.Node{}, s.FailCreate
	}
	if err := fields.Validate(); err != nil {
		return model.Node{}, fmt.Errorf("%w: %v", remote.ErrValidation, err)
	}

	s.nextID++
	status := fields.Status
	if status == "" {
		status = model.StatusNotStarted
	}
	n := model.Node{
		ID:          fmt.Sprintf("srv-%d", s.nextID),
		Title:       fields.Title,
		Description: fields.Description,
		Status:      status,
		Position:    fields.Position,
		CreatedAt:   FixtureTime,
		UpdatedAt:   FixtureTime,
	}
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	return n, nil
}

func (s *FakeStore) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteNode")
	if s.FailDelete != nil {
		return s.FailDelete
	}
	if err := s.FailDeleteFor[nodeID]; err != nil {
		return err
	}
	return s.deleteLocked(nodeID)
}

func (s *FakeStore) deleteLocked(nodeID string) error {
	if _, ok := s.nodes[nodeID]; !ok {
		return remote.ErrNotFound
	}
	delete(s.nodes, nodeID)
	s.order = removeID(s.order, nodeID)
	// Cascade incident links
	for _, lid := range append([]string(nil), s.lorder...) {
		l := s.links[lid]
		if l.Source == nodeID || l.Target == nodeID {
			delete(s.links, lid)
			s.lorder = removeID(s.lorder, lid)
		}
	}
	return nil
}

func (s *FakeStore) LinkNodes(ctx context.Context, projectID, sourceID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("LinkNodes")
	if s.FailLink != nil {
		return s.FailLink
	}
	if _, ok := s.nodes[sourceID]; !ok {
		return remote.ErrNotFound
	}
	if _, ok := s.nodes[targetID]; !ok {
		return remote.ErrNotFound
	}
	id := model.EdgeID(sourceID, targetID)
	if _, ok := s.links[id]; ok {
		return nil // already linked, server treats as no-op
	}
	s.links[id] = model.Edge{ID: id, Source: sourceID, Target: targetID}
	s.lorder = append(s.lorder, id)
	return nil
}

func (s *FakeStore) UnlinkNodes(ctx context.Context, projectID, sourceID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UnlinkNodes")
	if s.FailUnlink != nil {
		return s.FailUnlink
	}
	id := model.EdgeID(sourceID, targetID)
	if _, ok := s.links[id]; !ok {
		return remote.ErrNotFound
	}
	delete(s.links, id)
	s.lorder = removeID(s.lorder, id)
	return nil
}

func (s *FakeStore) UpdateNodePosition(ctx context.Context, projectID, nodeID string, pos model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpdateNodePosition")
	if s.FailPosition != nil {
		return s.FailPosition
	}
	n, ok := s.nodes[nodeID]
	if !ok {
		return remote.ErrNotFound
	}
	n.Position = pos
	s.nodes[nodeID] = n
	return nil
}

func (s *FakeStore) DuplicateNode(ctx context.Context, projectID, nodeID string) (model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DuplicateNode")
	if s.FailDuplicate != nil {
		return model.Node{}, s.FailDuplicate
	}
	src, ok := s.nodes[nodeID]
	if !ok {
		return model.Node{}, remote.ErrNotFound
	}

	s.nextID++
	dup := src.Clone()
	dup.ID = fmt.Sprintf("srv-%d", s.nextID)
	dup.Title = src.Title + " (Copy)"
	dup.Position = model.Position{X: src.Position.X + 50, Y: src.Position.Y + 50}
	dup.ParentIDs = nil
	dup.ChildIDs = nil
	s.nodes[dup.ID] = dup
	s.order = append(s.order, dup.ID)
	return dup, nil
}

func (s *FakeStore) BulkDeleteNodes(ctx context.Context, projectID string, nodeIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("BulkDeleteNodes")
	for _, id := range nodeIDs {
		if err := s.FailDeleteFor[id]; err != nil {
			return err
		}
		if err := s.deleteLocked(id); err != nil {
			return err
		}
	}
	return nil
}

func removeID(list []string, id string) []string {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
