package psychology

import "github.com/vendra-ai/vendra/internal/persona"

// EmotionSnapshot records the emotional state after a given turn.
type EmotionSnapshot struct {
	TurnIndex int            `json:"turnIndex"`
	Emotions  EmotionalState `json:"emotions"`
}

// State is the complete psychological state of a simulated client,
// serialized as one document per session.
type State struct {
	CurrentEmotions     EmotionalState      `json:"currentEmotions"`
	EmotionHistory      []EmotionSnapshot   `json:"emotionHistory"`
	DecisionProgression DecisionProgression `json:"decisionProgression"`
	RelationshipState   RelationshipState   `json:"relationshipState"`
	ConversationMemory  ConversationMemory  `json:"conversationMemory"`
}

// InitializeState builds the turn-zero state for a persona. The
// emotional baseline comes from the persona's psychology when present;
// the sales-specific dimensions always start at fixed values.
func InitializeState(p *persona.Profile) *State {
	baseline := persona.EmotionalBaseline{Arousal: 50, Engagement: 50, Trust: 40, Valence: 0}
	if p != nil && p.Psychology != nil {
		baseline = p.Psychology.EmotionalBaseline
	}

	emotions := EmotionalState{
		Valence:     baseline.Valence,
		Arousal:     baseline.Arousal,
		Trust:       baseline.Trust,
		Engagement:  baseline.Engagement,
		Confusion:   20,
		Enthusiasm:  30,
		Frustration: 0,
	}

	return &State{
		CurrentEmotions: emotions,
		EmotionHistory: []EmotionSnapshot{
			{TurnIndex: 0, Emotions: emotions},
		},
		DecisionProgression: DecisionProgression{
			Stage:      StageUnaware,
			Confidence: 20,
		},
		RelationshipState: RelationshipState{
			Stage: RelStranger,
		},
	}
}

// RecordSnapshot appends the current emotions to the history.
func (s *State) RecordSnapshot(turnIndex int) {
	s.EmotionHistory = append(s.EmotionHistory, EmotionSnapshot{
		TurnIndex: turnIndex,
		Emotions:  s.CurrentEmotions,
	})
}
