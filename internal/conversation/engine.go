// Package conversation runs the turn loop of a practice call: it feeds
// seller speech through the psychological tracker, prompts the model
// for the client's reply, and commits the turn atomically.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/provider"
	"github.com/vendra-ai/vendra/internal/psychology"
	"github.com/vendra-ai/vendra/internal/simstore"
)

// Session outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeAbandoned = "abandoned"
)

// Engine orchestrates practice sessions. A nil provider puts the
// engine in offline mode: personas, prior context and client replies
// all come from deterministic builders.
type Engine struct {
	store    simstore.Store
	provider provider.Provider
	personas *persona.Generator
	log      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a conversation engine. p may be nil for offline mode.
func NewEngine(store simstore.Store, p provider.Provider, logger *slog.Logger) *Engine {
	e := &Engine{
		store:    store,
		provider: p,
		log:      logger,
		locks:    make(map[string]*sync.Mutex),
	}
	if p != nil {
		e.personas = persona.NewGenerator(p, logger)
	}
	return e
}

// sessionLock returns the mutex serializing turns for one session.
// At most one turn may be in flight per session; a second concurrent
// ProcessTurn blocks until the first commits or fails.
func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[sessionID] = lock
	}
	return lock
}

// StartSession creates a session for the scenario and generates its
// client persona.
func (e *Engine) StartSession(ctx context.Context, scenario persona.Scenario) (*simstore.Session, error) {
	if scenario.ProductName == "" {
		return nil, fmt.Errorf("scenario has no product name")
	}
	if scenario.SimulationPreferences.ClientIntensity == "" {
		scenario.SimulationPreferences.ClientIntensity = persona.IntensityNeutro
	}
	if scenario.SimulationPreferences.Realism == "" {
		scenario.SimulationPreferences.Realism = persona.RealismNatural
	}

	id, err := simstore.NewSessionID()
	if err != nil {
		return nil, err
	}

	var profile *persona.Profile
	if e.personas != nil {
		profile, err = e.personas.Generate(ctx, scenario)
		if err != nil {
			return nil, err
		}
	} else {
		profile = persona.BuildMockPersona(scenario)
	}

	sess := &simstore.Session{
		ID:        id,
		Status:    simstore.StatusPendingPersona,
		Scenario:  scenario,
		CreatedAt: simstore.Now(),
	}
	if err := e.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := e.store.SetPersona(ctx, id, profile); err != nil {
		return nil, fmt.Errorf("attach persona: %w", err)
	}

	sess.Status = simstore.StatusActive
	sess.Persona = profile
	e.log.InfoContext(ctx, "Session started",
		"sessionId", id,
		"contactType", scenario.ContactType,
		"intensity", scenario.SimulationPreferences.ClientIntensity)
	return sess, nil
}

// TurnResult is the outcome of one processed seller turn.
type TurnResult struct {
	Client          ClientResponse
	SellerTurnIndex int
	ClientTurnIndex int
	Guidance        psychology.BehaviorGuidance
	State           *psychology.State
	UsedMock        bool
}

// ProcessTurn runs one seller utterance through the simulation and
// returns the client's reply. Nothing is persisted when the provider
// call or response parsing fails; the turn can simply be retried.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, sellerText string) (*TurnResult, error) {
	sellerText = strings.TrimSpace(sellerText)
	if sellerText == "" {
		return nil, fmt.Errorf("seller text is empty")
	}

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if sess.Status != simstore.StatusActive || sess.Persona == nil {
		return nil, fmt.Errorf("session %s is not active (status %s)", sessionID, sess.Status)
	}

	history, err := e.store.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	if len(history) == 0 && sess.Scenario.ContactType != persona.ContactColdCall {
		contextTurns, err := e.seedPreviousContext(ctx, sess)
		if err != nil {
			return nil, err
		}
		history = append(contextTurns, history...)
	}

	state, version, err := e.store.LoadState(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if state == nil {
		state = psychology.InitializeState(sess.Persona)
	}

	sellerIndex := nextTurnIndex(history)

	// Psychological update happens before the provider call so the
	// reply prompt reflects this turn's triggers.
	impacts := psychology.AnalyzeSellerTurn(sellerText, sess.Persona)
	psych := persona.ResolvePsychology(sess.Persona)
	state.CurrentEmotions = psychology.UpdateEmotionalState(state.CurrentEmotions, impacts, psych.BigFive, psychology.DefaultUpdateConfig())

	for _, impact := range impacts {
		if impact.Trigger.Positive() {
			state.RelationshipState.PositiveInteractions++
		} else {
			state.RelationshipState.NegativeInteractions++
		}
	}
	state.RelationshipState.Stage = psychology.UpdateRelationshipStage(
		state.RelationshipState.Stage,
		state.RelationshipState.PositiveInteractions,
		state.RelationshipState.NegativeInteractions,
		state.CurrentEmotions.Trust)

	state.DecisionProgression = psychology.UpdateDecisionProgression(
		state.DecisionProgression.Stage,
		state.CurrentEmotions,
		completedTurns(history)+1)

	guidance := psychology.GenerateBehaviorGuidance(state, sess.Persona)

	systemPrompt := buildSystemPrompt(sess.Persona, sess.Scenario, guidance, state.DecisionProgression.Stage)
	req := provider.Request{
		System:      systemPrompt,
		Messages:    conversationMessages(history, sellerText),
		Temperature: 0.8,
		MaxTokens:   1024,
	}

	raw, usedMock, err := e.complete(ctx, req, func() (string, error) {
		return encodeJSON(BuildMockClientReply(sellerText, sess.Persona, sess.Scenario, len(history)))
	})
	if err != nil {
		return nil, fmt.Errorf("client reply: %w", err)
	}
	parsed, err := ParseClientResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("client reply: %w", err)
	}

	state.ConversationMemory = psychology.UpdateMemory(state.ConversationMemory, sellerText, parsed.ClientText, sellerIndex)
	state.RecordSnapshot(sellerIndex + 1)

	now := simstore.Now()
	emotions := state.CurrentEmotions
	turns := []simstore.Turn{
		{
			SessionID: sessionID,
			TurnIndex: sellerIndex,
			Role:      simstore.RoleSeller,
			Content:   sellerText,
			CreatedAt: now,
		},
		{
			SessionID: sessionID,
			TurnIndex: sellerIndex + 1,
			Role:      simstore.RoleClient,
			Content:   parsed.ClientText,
			Meta: simstore.TurnMeta{
				Interest:         parsed.Interest,
				Interruption:     parsed.Interruption,
				ClientWantsToEnd: parsed.WantsToEnd,
				EmotionalState:   &emotions,
				DecisionStage:    string(state.DecisionProgression.Stage),
				Confidence:       state.DecisionProgression.Confidence,
			},
			CreatedAt: now,
		},
	}
	if err := e.store.AppendTurns(ctx, sessionID, turns); err != nil {
		return nil, fmt.Errorf("save turns: %w", err)
	}
	if err := e.store.SaveState(ctx, sessionID, state, version); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	e.log.InfoContext(ctx, "Turn processed",
		"sessionId", sessionID,
		"turnIndex", sellerIndex,
		"triggers", len(impacts),
		"stage", state.DecisionProgression.Stage,
		"interest", parsed.Interest,
		"usedMock", usedMock)

	return &TurnResult{
		Client:          parsed,
		SellerTurnIndex: sellerIndex,
		ClientTurnIndex: sellerIndex + 1,
		Guidance:        guidance,
		State:           state,
		UsedMock:        usedMock,
	}, nil
}

// End closes a session with the given outcome. An accepted close moves
// the decision stage to committed; nothing else ever sets that stage.
func (e *Engine) End(ctx context.Context, sessionID, outcome string) error {
	switch outcome {
	case OutcomeAccepted, OutcomeRejected, OutcomeAbandoned:
	default:
		return fmt.Errorf("invalid outcome %q", outcome)
	}

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}
	if sess.Status == simstore.StatusCompleted {
		return fmt.Errorf("session %s already ended", sessionID)
	}

	if outcome == OutcomeAccepted {
		state, version, err := e.store.LoadState(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("load state: %w", err)
		}
		if state != nil {
			state.DecisionProgression.Stage = psychology.StageCommitted
			if err := e.store.SaveState(ctx, sessionID, state, version); err != nil {
				return fmt.Errorf("save state: %w", err)
			}
		}
	}

	if err := e.store.EndSession(ctx, sessionID, outcome); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	e.log.InfoContext(ctx, "Session ended", "sessionId", sessionID, "outcome", outcome)
	return nil
}

// seedPreviousContext generates and stores the simulated prior
// exchange for follow-up and inbound-callback sessions.
func (e *Engine) seedPreviousContext(ctx context.Context, sess *simstore.Session) ([]simstore.Turn, error) {
	req := provider.Request{
		System:      previousContextSystemPrompt,
		Messages:    []provider.Message{{Role: "user", Content: previousContextPrompt(sess.Persona, sess.Scenario)}},
		Temperature: 0.8,
		MaxTokens:   1024,
	}

	pc := buildMockPreviousContext(sess.Persona, sess.Scenario)
	if e.provider != nil {
		raw, err := e.provider.Complete(ctx, req)
		if err == nil {
			if generated, perr := parsePreviousContext(raw); perr == nil {
				pc = generated
			} else {
				e.log.WarnContext(ctx, "Previous context unparseable, using fallback", "error", perr)
			}
		} else {
			e.log.WarnContext(ctx, "Previous context generation failed, using fallback", "error", err)
		}
	}

	now := simstore.Now()
	turns := []simstore.Turn{
		{SessionID: sess.ID, TurnIndex: -2, Role: simstore.RoleSeller, Content: pc.SellerMessage, CreatedAt: now},
		{SessionID: sess.ID, TurnIndex: -1, Role: simstore.RoleClient, Content: pc.ClientMessage, CreatedAt: now},
	}
	if err := e.store.AppendTurns(ctx, sess.ID, turns); err != nil {
		return nil, fmt.Errorf("save previous context: %w", err)
	}
	return turns, nil
}

func (e *Engine) complete(ctx context.Context, req provider.Request, mock func() (string, error)) (string, bool, error) {
	if e.provider == nil {
		text, err := mock()
		return text, true, err
	}
	text, err := e.provider.Complete(ctx, req)
	return text, false, err
}

// conversationMessages renders the transcript as alternating chat
// messages, seller as user and client as assistant.
func conversationMessages(history []simstore.Turn, sellerText string) []provider.Message {
	messages := make([]provider.Message, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == simstore.RoleClient {
			role = "assistant"
		}
		messages = append(messages, provider.Message{Role: role, Content: turn.Content})
	}
	return append(messages, provider.Message{Role: "user", Content: sellerText})
}

func nextTurnIndex(history []simstore.Turn) int {
	next := 0
	for _, turn := range history {
		if turn.TurnIndex >= next {
			next = turn.TurnIndex + 1
		}
	}
	return next
}

// completedTurns counts real seller turns; simulated context with
// negative indexes does not advance the decision gates.
func completedTurns(history []simstore.Turn) int {
	count := 0
	for _, turn := range history {
		if turn.Role == simstore.RoleSeller && turn.TurnIndex >= 0 {
			count++
		}
	}
	return count
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
