package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/provider"
	"github.com/vendra-ai/vendra/internal/psychology"
	"github.com/vendra-ai/vendra/internal/simstore"
)

func testScenario(contact persona.ContactType) persona.Scenario {
	return persona.Scenario{
		ProductName:   "Plan de internet fibra",
		Description:   "Internet hogar de 200 Mbps",
		CallObjective: "Agendar instalación",
		ContactType:   contact,
		TargetProfile: persona.TargetProfile{
			Location:           "Lima",
			SocioeconomicLevel: "C",
			Pains:              []string{"internet lento"},
			Motivations:        []string{"trabajar desde casa"},
		},
		SimulationPreferences: persona.SimulationPreferences{
			ClientIntensity: persona.IntensityNeutro,
			Realism:         persona.RealismNatural,
		},
	}
}

func offlineEngine(store simstore.Store) *Engine {
	return NewEngine(store, nil, slog.New(slog.DiscardHandler))
}

func TestOfflineColdCallTurn(t *testing.T) {
	ctx := context.Background()
	store := simstore.NewMemoryStore()
	engine := offlineEngine(store)

	sess, err := engine.StartSession(ctx, testScenario(persona.ContactColdCall))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Status != simstore.StatusActive || sess.Persona == nil {
		t.Fatalf("session = %+v", sess)
	}

	result, err := engine.ProcessTurn(ctx, sess.ID, "Hola, le llamo de Vendra para contarle sobre nuestro plan de fibra.")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.SellerTurnIndex != 0 || result.ClientTurnIndex != 1 {
		t.Fatalf("turn indexes = %d, %d", result.SellerTurnIndex, result.ClientTurnIndex)
	}
	if !result.UsedMock {
		t.Fatalf("offline engine should report a mock reply")
	}
	if !strings.HasPrefix(result.Client.ClientText, sess.Persona.Name) {
		t.Fatalf("client text = %q", result.Client.ClientText)
	}
	if result.Client.Interest != 3 {
		t.Fatalf("cold call initial interest = %d, want 3", result.Client.Interest)
	}

	turns, _ := store.ListTurns(ctx, sess.ID)
	if len(turns) != 2 {
		t.Fatalf("persisted turns = %d, want 2", len(turns))
	}
	if turns[1].Meta.EmotionalState == nil || turns[1].Meta.DecisionStage == "" {
		t.Fatalf("client turn meta = %+v", turns[1].Meta)
	}

	state, version, _ := store.LoadState(ctx, sess.ID)
	if state == nil || version != 1 {
		t.Fatalf("state after turn = %v v%d", state, version)
	}
	if len(state.EmotionHistory) != 2 {
		t.Fatalf("emotion history length = %d, want 2", len(state.EmotionHistory))
	}
}

func TestFollowUpSeedsPreviousContext(t *testing.T) {
	ctx := context.Background()
	store := simstore.NewMemoryStore()
	engine := offlineEngine(store)

	sess, err := engine.StartSession(ctx, testScenario(persona.ContactFollowUp))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := engine.ProcessTurn(ctx, sess.ID, "Hola de nuevo, ¿pudo pensar en la propuesta?"); err != nil {
		t.Fatalf("process: %v", err)
	}

	turns, _ := store.ListTurns(ctx, sess.ID)
	wantIndexes := []int{-2, -1, 0, 1}
	if len(turns) != len(wantIndexes) {
		t.Fatalf("turns = %d, want %d with simulated context", len(turns), len(wantIndexes))
	}
	for i, want := range wantIndexes {
		if turns[i].TurnIndex != want {
			t.Fatalf("turn %d index = %d, want %d", i, turns[i].TurnIndex, want)
		}
	}
	if turns[0].Role != simstore.RoleSeller || turns[1].Role != simstore.RoleClient {
		t.Fatalf("context roles = %s, %s", turns[0].Role, turns[1].Role)
	}

	// Second turn must not reseed the context.
	if _, err := engine.ProcessTurn(ctx, sess.ID, "Le cuento las condiciones actualizadas."); err != nil {
		t.Fatalf("second turn: %v", err)
	}
	turns, _ = store.ListTurns(ctx, sess.ID)
	if len(turns) != 6 {
		t.Fatalf("turns after second = %d, want 6", len(turns))
	}
}

func TestProviderFailureLeavesNothingPersisted(t *testing.T) {
	ctx := context.Background()
	store := simstore.NewMemoryStore()

	failing := provider.NewMock(func(provider.Request) (string, error) {
		return "", errors.New("model unavailable")
	})
	engine := NewEngine(store, failing, slog.New(slog.DiscardHandler))

	sess := &simstore.Session{
		ID:        "s1",
		Status:    simstore.StatusPendingPersona,
		Scenario:  testScenario(persona.ContactColdCall),
		CreatedAt: simstore.Now(),
	}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetPersona(ctx, "s1", persona.BuildMockPersona(sess.Scenario)); err != nil {
		t.Fatalf("persona: %v", err)
	}

	if _, err := engine.ProcessTurn(ctx, "s1", "Hola, ¿cómo está?"); err == nil {
		t.Fatalf("expected provider failure to surface")
	}

	turns, _ := store.ListTurns(ctx, "s1")
	if len(turns) != 0 {
		t.Fatalf("turns persisted after failure: %d", len(turns))
	}
	state, version, _ := store.LoadState(ctx, "s1")
	if state != nil || version != 0 {
		t.Fatalf("state persisted after failure: %v v%d", state, version)
	}
}

func TestProcessTurnUsesProviderReply(t *testing.T) {
	ctx := context.Background()
	store := simstore.NewMemoryStore()

	scripted := provider.NewMock(func(req provider.Request) (string, error) {
		if !strings.Contains(req.System, "Responde en JSON") {
			t.Fatalf("system prompt missing response format")
		}
		return `{"clientText": "Ya, ¿y cuánto cuesta eso?", "interest": 6, "interruption": false, "wantsToEnd": false}`, nil
	})
	engine := NewEngine(store, scripted, slog.New(slog.DiscardHandler))

	sess := &simstore.Session{
		ID:        "s1",
		Status:    simstore.StatusPendingPersona,
		Scenario:  testScenario(persona.ContactColdCall),
		CreatedAt: simstore.Now(),
	}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetPersona(ctx, "s1", persona.BuildMockPersona(sess.Scenario)); err != nil {
		t.Fatalf("persona: %v", err)
	}

	result, err := engine.ProcessTurn(ctx, "s1", "Tenemos un plan de fibra con instalación gratuita.")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.UsedMock {
		t.Fatalf("provider-backed turn reported as mock")
	}
	if result.Client.Interest != 6 || result.Client.ClientText != "Ya, ¿y cuánto cuesta eso?" {
		t.Fatalf("client = %+v", result.Client)
	}

	turns, _ := store.ListTurns(ctx, "s1")
	if turns[1].Meta.Interest != 6 {
		t.Fatalf("stored interest = %d", turns[1].Meta.Interest)
	}
}

func TestPressureLowersTrustAndRaisesFrustration(t *testing.T) {
	ctx := context.Background()
	store := simstore.NewMemoryStore()
	engine := offlineEngine(store)

	sess, err := engine.StartSession(ctx, testScenario(persona.ContactColdCall))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	baseline := psychology.InitializeState(sess.Persona).CurrentEmotions

	result, err := engine.ProcessTurn(ctx, sess.ID, "Tiene que decidir ahora mismo, esta oferta es por tiempo limitado y es su última oportunidad.")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	emotions := result.State.CurrentEmotions
	if emotions.Trust >= baseline.Trust {
		t.Fatalf("trust = %v, want below baseline %v", emotions.Trust, baseline.Trust)
	}
	if emotions.Frustration <= baseline.Frustration {
		t.Fatalf("frustration = %v, want above baseline %v", emotions.Frustration, baseline.Frustration)
	}
	if result.State.RelationshipState.NegativeInteractions == 0 {
		t.Fatalf("pressure should count as a negative interaction")
	}
}

func TestEndAcceptedCommitsDecisionStage(t *testing.T) {
	ctx := context.Background()
	store := simstore.NewMemoryStore()
	engine := offlineEngine(store)

	sess, err := engine.StartSession(ctx, testScenario(persona.ContactColdCall))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := engine.ProcessTurn(ctx, sess.ID, "Le cuento brevemente nuestra propuesta."); err != nil {
		t.Fatalf("process: %v", err)
	}

	if err := engine.End(ctx, sess.ID, OutcomeAccepted); err != nil {
		t.Fatalf("end: %v", err)
	}

	ended, _ := store.GetSession(ctx, sess.ID)
	if ended.Status != simstore.StatusCompleted || ended.Outcome != OutcomeAccepted {
		t.Fatalf("session = %+v", ended)
	}
	state, _, _ := store.LoadState(ctx, sess.ID)
	if state.DecisionProgression.Stage != psychology.StageCommitted {
		t.Fatalf("stage = %s, want committed", state.DecisionProgression.Stage)
	}

	if err := engine.End(ctx, sess.ID, OutcomeAbandoned); err == nil {
		t.Fatalf("expected error ending a completed session")
	}
}

func TestEndRejectsUnknownOutcome(t *testing.T) {
	engine := offlineEngine(simstore.NewMemoryStore())
	if err := engine.End(context.Background(), "s1", "maybe"); err == nil {
		t.Fatalf("expected invalid outcome error")
	}
}

func TestParseClientResponseValidation(t *testing.T) {
	if _, err := ParseClientResponse(`{"clientText": "", "interest": 5}`); err == nil {
		t.Fatalf("expected error for empty client text")
	}
	if _, err := ParseClientResponse(`{"clientText": "Hola", "interest": 12}`); err == nil {
		t.Fatalf("expected error for out-of-range interest")
	}

	resp, err := ParseClientResponse("```json\n{\"clientText\": \"Hola\", \"interest\": 4, \"interruption\": true, \"wantsToEnd\": false}\n```")
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}
	if resp.Interest != 4 || !resp.Interruption {
		t.Fatalf("resp = %+v", resp)
	}
}
