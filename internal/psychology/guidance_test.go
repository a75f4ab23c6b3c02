package psychology

import (
	"math"
	"testing"
)

func stateWithEmotions(e EmotionalState) *State {
	s := InitializeState(testPersona())
	s.CurrentEmotions = e
	return s
}

func TestGuidanceTonePriority(t *testing.T) {
	tests := []struct {
		name string
		e    EmotionalState
		want string
	}{
		{"enthusiastic", EmotionalState{Valence: 40, Enthusiasm: 60, Engagement: 50, Trust: 50}, "positivo y entusiasmado"},
		{"frustrated by valence", EmotionalState{Valence: -40, Engagement: 50, Trust: 50}, "frustrado o molesto"},
		{"frustrated by frustration", EmotionalState{Frustration: 70, Engagement: 50, Trust: 50}, "frustrado o molesto"},
		{"confused", EmotionalState{Confusion: 70, Engagement: 50, Trust: 50}, "confundido y buscando claridad"},
		{"disengaged", EmotionalState{Engagement: 20, Trust: 50}, "desinteresado o distraído"},
		{"neutral", EmotionalState{Engagement: 50, Trust: 50}, "neutral"},
		// Positive check wins over confusion when both hold.
		{"priority", EmotionalState{Valence: 40, Enthusiasm: 60, Confusion: 70, Engagement: 50, Trust: 50}, "positivo y entusiasmado"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GenerateBehaviorGuidance(stateWithEmotions(tt.e), testPersona())
			if g.EmotionalTone != tt.want {
				t.Fatalf("tone = %q, want %q", g.EmotionalTone, tt.want)
			}
		})
	}
}

func TestGuidanceResponseLength(t *testing.T) {
	p := testPersona()

	g := GenerateBehaviorGuidance(stateWithEmotions(EmotionalState{Engagement: 20, Trust: 50}), p)
	if g.ResponseLength != "terse" {
		t.Fatalf("disengaged length = %q, want terse", g.ResponseLength)
	}

	g = GenerateBehaviorGuidance(stateWithEmotions(EmotionalState{Frustration: 75, Engagement: 50, Trust: 50}), p)
	if g.ResponseLength != "terse" {
		t.Fatalf("frustrated length = %q, want terse", g.ResponseLength)
	}

	extrovert := testPersona()
	extrovert.Psychology.BigFive.Extraversion = 80
	g = GenerateBehaviorGuidance(stateWithEmotions(EmotionalState{Engagement: 70, Trust: 50}), extrovert)
	if g.ResponseLength != "verbose" {
		t.Fatalf("extrovert length = %q, want verbose", g.ResponseLength)
	}

	terse := testPersona()
	terse.Psychology.CommunicationStyle.Verbosity = "terse"
	g = GenerateBehaviorGuidance(stateWithEmotions(EmotionalState{Engagement: 50, Trust: 50}), terse)
	if g.ResponseLength != "terse" {
		t.Fatalf("persona style length = %q, want terse", g.ResponseLength)
	}
}

func TestGuidanceHesitationLevel(t *testing.T) {
	g := GenerateBehaviorGuidance(stateWithEmotions(EmotionalState{Confusion: 80, Trust: 20, Arousal: 50, Engagement: 50}), testPersona())

	// (80*0.5 + 80*0.3 + 50*0.2) / 10 = 7.4, rounded to 7.
	if g.HesitationLevel != 7 {
		t.Fatalf("hesitation = %d, want 7", g.HesitationLevel)
	}
}

func TestGuidanceTangentProbabilityBounds(t *testing.T) {
	g := GenerateBehaviorGuidance(stateWithEmotions(EmotionalState{Engagement: 0, Trust: 50}), testPersona())
	if g.TangentProbability != 0.3 {
		t.Fatalf("tangent at zero engagement = %v, want cap 0.3", g.TangentProbability)
	}

	g = GenerateBehaviorGuidance(stateWithEmotions(EmotionalState{Engagement: 100, Trust: 50}), testPersona())
	if g.TangentProbability != 0 {
		t.Fatalf("tangent at full engagement = %v, want 0", g.TangentProbability)
	}
}

func TestGuidanceIrrationalityFactor(t *testing.T) {
	p := testPersona()
	p.Psychology.BigFive.Neuroticism = 80

	g := GenerateBehaviorGuidance(stateWithEmotions(EmotionalState{Arousal: 50, Valence: -50, Engagement: 50, Trust: 50}), p)

	want := 0.8 * 0.5 * 1.5
	if math.Abs(g.IrrationalityFactor-want) > 1e-9 {
		t.Fatalf("irrationality = %v, want %v", g.IrrationalityFactor, want)
	}

	// Positive mood at or above +100 suppresses irrationality entirely.
	g = GenerateBehaviorGuidance(stateWithEmotions(EmotionalState{Arousal: 100, Valence: 100, Engagement: 50, Trust: 50}), p)
	if g.IrrationalityFactor != 0 {
		t.Fatalf("irrationality at max valence = %v, want 0", g.IrrationalityFactor)
	}
}

func TestGuidanceFillerWords(t *testing.T) {
	p := testPersona()
	p.Psychology.BigFive.Extraversion = 50

	g := GenerateBehaviorGuidance(stateWithEmotions(EmotionalState{Confusion: 60, Arousal: 70, Engagement: 50, Trust: 50}), p)

	want := []string{"Este...", "No sé...", "Hmm...", "Mira...", "O sea..."}
	if len(g.FillerWords) != len(want) {
		t.Fatalf("fillers = %v, want %v", g.FillerWords, want)
	}
	for i, w := range want {
		if g.FillerWords[i] != w {
			t.Fatalf("fillers = %v, want %v", g.FillerWords, want)
		}
	}
}

func TestGuidanceReferencesMemory(t *testing.T) {
	state := stateWithEmotions(EmotionalState{Frustration: 50, Trust: 40, Confusion: 60, Engagement: 50})
	state.ConversationMemory = ConversationMemory{
		SellerPromises: []Promise{
			{Content: "te llamo mañana", TurnIndex: 1},
			{Content: "te envío la cotización", TurnIndex: 3},
		},
		QuestionsAsked: []Question{
			{Question: "¿cuánto cuesta?", TurnIndex: 2, Answered: true},
			{Question: "¿qué incluye la garantía?", TurnIndex: 4},
		},
		ObjectionsRaised: []Objection{
			{Objection: "es muy caro", TurnIndex: 2},
		},
	}

	g := GenerateBehaviorGuidance(state, testPersona())

	if len(g.ShouldReference) != 3 {
		t.Fatalf("references = %+v, want objection, promise, and question", g.ShouldReference)
	}
	if g.ShouldReference[0].Type != RefObjection || g.ShouldReference[0].Content != "es muy caro" {
		t.Fatalf("first reference = %+v", g.ShouldReference[0])
	}
	if g.ShouldReference[1].Type != RefPromise || g.ShouldReference[1].Content != "te envío la cotización" {
		t.Fatalf("second reference should be the latest unfulfilled promise: %+v", g.ShouldReference[1])
	}
	if g.ShouldReference[2].Type != RefQuestion || g.ShouldReference[2].Content != "¿qué incluye la garantía?" {
		t.Fatalf("third reference should be the latest unanswered question: %+v", g.ShouldReference[2])
	}
}

func TestGuidanceSkipsResolvedItems(t *testing.T) {
	state := stateWithEmotions(EmotionalState{Frustration: 50, Trust: 40, Confusion: 60, Engagement: 50})
	state.ConversationMemory = ConversationMemory{
		SellerPromises:   []Promise{{Content: "te llamo", TurnIndex: 1, Fulfilled: true}},
		QuestionsAsked:   []Question{{Question: "¿cuánto?", TurnIndex: 2, Answered: true}},
		ObjectionsRaised: []Objection{{Objection: "caro", TurnIndex: 2, Resolved: true}},
	}

	g := GenerateBehaviorGuidance(state, testPersona())
	if len(g.ShouldReference) != 0 {
		t.Fatalf("resolved items should not be referenced: %+v", g.ShouldReference)
	}
}
