// Package simstore persists simulation sessions: metadata, turn
// transcripts, the per-session psychological state, and post-session
// analyses. DynamoDB backs the server deployment; an in-memory store
// backs tests and offline practice.
package simstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/psychology"
)

// SessionStatus tracks the lifecycle of a practice session.
type SessionStatus string

const (
	StatusPendingPersona SessionStatus = "pending_persona"
	StatusActive         SessionStatus = "active"
	StatusCompleted      SessionStatus = "completed"
)

// TurnRole identifies who spoke.
type TurnRole string

const (
	RoleSeller TurnRole = "seller"
	RoleClient TurnRole = "client"
)

var (
	// ErrVersionConflict means another writer saved the psychological
	// state since it was loaded. The turn must fail; there is no merge.
	ErrVersionConflict = errors.New("psychological state version conflict")

	// ErrSessionExists means a create collided with an existing id.
	ErrSessionExists = errors.New("session already exists")

	// ErrAnalysisExists means the session was already analyzed.
	ErrAnalysisExists = errors.New("analysis already exists for session")
)

// Session is the stored metadata for one practice call.
type Session struct {
	ID        string           `json:"id"`
	Status    SessionStatus    `json:"status"`
	Scenario  persona.Scenario `json:"scenario"`
	Persona   *persona.Profile `json:"persona,omitempty"`
	Outcome   string           `json:"outcome,omitempty"` // accepted, rejected, abandoned
	CreatedAt string           `json:"createdAt"`
	EndedAt   string           `json:"endedAt,omitempty"`
}

// TurnMeta carries the client-side signals attached to a turn.
type TurnMeta struct {
	Interest         int                        `json:"interest,omitempty"`
	Interruption     bool                       `json:"interruption,omitempty"`
	ClientWantsToEnd bool                       `json:"clientWantsToEnd,omitempty"`
	EmotionalState   *psychology.EmotionalState `json:"emotionalState,omitempty"`
	DecisionStage    string                     `json:"decisionStage,omitempty"`
	Confidence       int                        `json:"confidence,omitempty"`
}

// Turn is one utterance in a session transcript. Simulated pre-call
// context uses negative indexes.
type Turn struct {
	SessionID string   `json:"sessionId"`
	TurnIndex int      `json:"turnIndex"`
	Role      TurnRole `json:"role"`
	Content   string   `json:"content"`
	Meta      TurnMeta `json:"meta"`
	CreatedAt string   `json:"createdAt"`
}

// KeyMoment is a highlighted exchange in an analysis.
type KeyMoment struct {
	TurnIndex      int    `json:"turnIndex"`
	Quote          string `json:"quote"`
	Insight        string `json:"insight"`
	Recommendation string `json:"recommendation"`
}

// Improvement is one coaching item in an analysis.
type Improvement struct {
	Title  string `json:"title"`
	Action string `json:"action"`
}

// Analysis is the stored coaching report for a completed session.
type Analysis struct {
	SessionID    string        `json:"sessionId"`
	Score        int           `json:"score"`
	Successes    []string      `json:"successes"`
	Improvements []Improvement `json:"improvements"`
	KeyMoments   []KeyMoment   `json:"keyMoments"`
	CreatedAt    string        `json:"createdAt"`
}

// SessionStore manages session metadata.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	SetPersona(ctx context.Context, id string, p *persona.Profile) error
	EndSession(ctx context.Context, id, outcome string) error
	ListSessions(ctx context.Context, limit int, cursor string) ([]Session, string, error)
}

// TurnStore manages transcripts.
type TurnStore interface {
	AppendTurns(ctx context.Context, sessionID string, turns []Turn) error
	ListTurns(ctx context.Context, sessionID string) ([]Turn, error)
}

// StateStore manages the serialized psychological state with
// optimistic concurrency. LoadState returns a nil state and version 0
// when nothing was saved yet; SaveState fails with ErrVersionConflict
// when expectedVersion no longer matches.
type StateStore interface {
	LoadState(ctx context.Context, sessionID string) (*psychology.State, int64, error)
	SaveState(ctx context.Context, sessionID string, state *psychology.State, expectedVersion int64) error
}

// AnalysisStore manages coaching reports, one per session.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, a *Analysis) error
	GetAnalysis(ctx context.Context, sessionID string) (*Analysis, error)
}

// Store is the full persistence surface of the simulator.
type Store interface {
	SessionStore
	TurnStore
	StateStore
	AnalysisStore
}

// NewSessionID generates a ULID for a new session.
func NewSessionID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

// Now returns the timestamp format used across stored items.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
