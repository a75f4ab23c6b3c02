package simstore

import (
	"context"
	"errors"
	"testing"

	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/psychology"
)

func testSession(id string) *Session {
	return &Session{
		ID:     id,
		Status: StatusPendingPersona,
		Scenario: persona.Scenario{
			ProductName: "Plan de internet fibra",
			ContactType: persona.ContactColdCall,
			SimulationPreferences: persona.SimulationPreferences{
				ClientIntensity: persona.IntensityNeutro,
				Realism:         persona.RealismNatural,
			},
		},
		CreatedAt: Now(),
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.CreateSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateSession(ctx, testSession("s1")); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("duplicate create err = %v, want ErrSessionExists", err)
	}

	if err := store.SetPersona(ctx, "s1", &persona.Profile{Name: "Rosa"}); err != nil {
		t.Fatalf("set persona: %v", err)
	}

	sess, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Status != StatusActive || sess.Persona == nil || sess.Persona.Name != "Rosa" {
		t.Fatalf("session after persona = %+v", sess)
	}

	if err := store.EndSession(ctx, "s1", "abandoned"); err != nil {
		t.Fatalf("end: %v", err)
	}
	sess, _ = store.GetSession(ctx, "s1")
	if sess.Status != StatusCompleted || sess.Outcome != "abandoned" || sess.EndedAt == "" {
		t.Fatalf("session after end = %+v", sess)
	}

	missing, err := store.GetSession(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing session = %v, %v; want nil, nil", missing, err)
	}
}

func TestListSessionsPagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := store.CreateSession(ctx, testSession(id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	page1, cursor, err := store.ListSessions(ctx, 2, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != "e" || page1[1].ID != "d" {
		t.Fatalf("page1 = %+v, want e,d", page1)
	}
	if cursor == "" {
		t.Fatalf("expected a cursor with more pages remaining")
	}

	page2, _, err := store.ListSessions(ctx, 2, cursor)
	if err != nil {
		t.Fatalf("list page2: %v", err)
	}
	if len(page2) != 2 || page2[0].ID != "c" || page2[1].ID != "b" {
		t.Fatalf("page2 = %+v, want c,b", page2)
	}
}

func TestTurnsOrderedByIndex(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Simulated pre-call context uses negative indexes and must sort
	// before turn zero.
	err := store.AppendTurns(ctx, "s1", []Turn{
		{SessionID: "s1", TurnIndex: 0, Role: RoleSeller, Content: "Hola"},
		{SessionID: "s1", TurnIndex: 1, Role: RoleClient, Content: "¿Quién habla?"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	err = store.AppendTurns(ctx, "s1", []Turn{
		{SessionID: "s1", TurnIndex: -2, Role: RoleSeller, Content: "contexto vendedor"},
		{SessionID: "s1", TurnIndex: -1, Role: RoleClient, Content: "contexto cliente"},
	})
	if err != nil {
		t.Fatalf("append context: %v", err)
	}

	turns, err := store.ListTurns(ctx, "s1")
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	wantOrder := []int{-2, -1, 0, 1}
	if len(turns) != len(wantOrder) {
		t.Fatalf("turns = %+v", turns)
	}
	for i, want := range wantOrder {
		if turns[i].TurnIndex != want {
			t.Fatalf("turn %d index = %d, want %d", i, turns[i].TurnIndex, want)
		}
	}
}

func TestStateVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	state, version, err := store.LoadState(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if state != nil || version != 0 {
		t.Fatalf("fresh session state = %v v%d, want nil v0", state, version)
	}

	initial := psychology.InitializeState(&persona.Profile{Name: "Rosa"})
	if err := store.SaveState(ctx, "s1", initial, 0); err != nil {
		t.Fatalf("save initial: %v", err)
	}

	loaded, version, err := store.LoadState(ctx, "s1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}
	if loaded.CurrentEmotions != initial.CurrentEmotions {
		t.Fatalf("state round-trip mismatch: %+v", loaded.CurrentEmotions)
	}

	// Save with a stale version must fail.
	if err := store.SaveState(ctx, "s1", loaded, 0); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale save err = %v, want ErrVersionConflict", err)
	}

	// The current version succeeds.
	loaded.CurrentEmotions.Trust = 60
	if err := store.SaveState(ctx, "s1", loaded, 1); err != nil {
		t.Fatalf("save v1: %v", err)
	}
	reloaded, version, _ := store.LoadState(ctx, "s1")
	if version != 2 || reloaded.CurrentEmotions.Trust != 60 {
		t.Fatalf("after second save: v%d trust %v", version, reloaded.CurrentEmotions.Trust)
	}
}

func TestLoadStateReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	initial := psychology.InitializeState(&persona.Profile{Name: "Rosa"})
	if err := store.SaveState(ctx, "s1", initial, 0); err != nil {
		t.Fatalf("save: %v", err)
	}

	first, _, _ := store.LoadState(ctx, "s1")
	first.CurrentEmotions.Trust = 99

	second, _, _ := store.LoadState(ctx, "s1")
	if second.CurrentEmotions.Trust == 99 {
		t.Fatalf("stored state shares memory with a loaded copy")
	}
}

func TestAnalysisWriteOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a := &Analysis{SessionID: "s1", Score: 72, Successes: []string{"buen rapport"}, CreatedAt: Now()}
	if err := store.SaveAnalysis(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveAnalysis(ctx, a); !errors.Is(err, ErrAnalysisExists) {
		t.Fatalf("second save err = %v, want ErrAnalysisExists", err)
	}

	got, err := store.GetAnalysis(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 72 {
		t.Fatalf("analysis = %+v", got)
	}

	missing, err := store.GetAnalysis(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing analysis = %v, %v; want nil, nil", missing, err)
	}
}
