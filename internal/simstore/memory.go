package simstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/psychology"
)

// MemoryStore keeps everything in process memory. It backs tests and
// the offline CLI mode. State round-trips through JSON so callers see
// the same copy semantics as the DynamoDB store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    []string // session ids, insertion order
	turns    map[string][]Turn
	states   map[string]*storedState
	analyses map[string]*Analysis
}

type storedState struct {
	stateJSON []byte
	version   int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		turns:    make(map[string][]Turn),
		states:   make(map[string]*storedState),
		analyses: make(map[string]*Analysis),
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; ok {
		return ErrSessionExists
	}
	clone := *sess
	s.sessions[sess.ID] = &clone
	s.order = append(s.order, sess.ID)
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	clone := *sess
	return &clone, nil
}

func (s *MemoryStore) SetPersona(_ context.Context, id string, p *persona.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	sess.Persona = p
	sess.Status = StatusActive
	return nil
}

func (s *MemoryStore) EndSession(_ context.Context, id, outcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	sess.Status = StatusCompleted
	sess.Outcome = outcome
	sess.EndedAt = Now()
	return nil
}

func (s *MemoryStore) ListSessions(_ context.Context, limit int, cursor string) ([]Session, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	// Newest first; the cursor is the last session id of the previous
	// page.
	var result []Session
	var next string
	emitting := cursor == ""
	for i := len(s.order) - 1; i >= 0; i-- {
		id := s.order[i]
		if !emitting {
			emitting = id == cursor
			continue
		}
		if len(result) == limit {
			next = result[limit-1].ID
			break
		}
		result = append(result, *s.sessions[id])
	}
	return result, next, nil
}

func (s *MemoryStore) AppendTurns(_ context.Context, sessionID string, turns []Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[sessionID] = append(s.turns[sessionID], turns...)
	return nil
}

func (s *MemoryStore) ListTurns(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append([]Turn(nil), s.turns[sessionID]...)
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].TurnIndex < turns[j].TurnIndex
	})
	return turns, nil
}

func (s *MemoryStore) LoadState(_ context.Context, sessionID string) (*psychology.State, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.states[sessionID]
	if !ok {
		return nil, 0, nil
	}

	state := &psychology.State{}
	if err := json.Unmarshal(stored.stateJSON, state); err != nil {
		return nil, 0, fmt.Errorf("unmarshal state: %w", err)
	}
	return state, stored.version, nil
}

func (s *MemoryStore) SaveState(_ context.Context, sessionID string, state *psychology.State, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := int64(0)
	if stored, ok := s.states[sessionID]; ok {
		current = stored.version
	}
	if current != expectedVersion {
		return ErrVersionConflict
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	s.states[sessionID] = &storedState{stateJSON: stateJSON, version: expectedVersion + 1}
	return nil
}

func (s *MemoryStore) SaveAnalysis(_ context.Context, a *Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[a.SessionID]; ok {
		return ErrAnalysisExists
	}
	clone := *a
	s.analyses[a.SessionID] = &clone
	return nil
}

func (s *MemoryStore) GetAnalysis(_ context.Context, sessionID string) (*Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.analyses[sessionID]
	if !ok {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}
