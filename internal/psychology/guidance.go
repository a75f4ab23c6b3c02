package psychology

import (
	"math"

	"github.com/vendra-ai/vendra/internal/persona"
)

// ReferenceType labels what kind of memory item to bring up.
type ReferenceType string

const (
	RefFact      ReferenceType = "fact"
	RefPromise   ReferenceType = "promise"
	RefObjection ReferenceType = "objection"
	RefQuestion  ReferenceType = "question"
)

// Reference is a memory item the client should surface this turn.
type Reference struct {
	Type    ReferenceType `json:"type"`
	Content string        `json:"content"`
}

// BehaviorGuidance tells the response generator how the client should
// sound on the next turn.
type BehaviorGuidance struct {
	EmotionalTone      string      `json:"emotionalTone"`
	ResponseLength     string      `json:"responseLength"` // terse, moderate, verbose
	ShouldReference    []Reference `json:"shouldReference"`
	FillerWords        []string    `json:"fillerWords"`
	HesitationLevel    int         `json:"hesitationLevel"`    // 0-10
	TangentProbability float64     `json:"tangentProbability"` // 0-1
	IrrationalityFactor float64    `json:"irrationalityFactor"` // 0-1
}

// GenerateBehaviorGuidance derives response directives from the full
// psychological state. Tone checks run in priority order, so a client
// who is both enthusiastic and confused sounds enthusiastic.
func GenerateBehaviorGuidance(state *State, p *persona.Profile) BehaviorGuidance {
	emotions := state.CurrentEmotions
	psych := persona.ResolvePsychology(p)

	tone := "neutral"
	switch {
	case emotions.Valence > 30 && emotions.Enthusiasm > 50:
		tone = "positivo y entusiasmado"
	case emotions.Valence < -30 || emotions.Frustration > 60:
		tone = "frustrado o molesto"
	case emotions.Confusion > 60:
		tone = "confundido y buscando claridad"
	case emotions.Engagement < 30:
		tone = "desinteresado o distraído"
	}

	extraversion := psych.BigFive.Extraversion
	responseLength := "moderate"
	switch {
	case emotions.Engagement < 30 || emotions.Frustration > 70:
		responseLength = "terse"
	case extraversion > 70 && emotions.Engagement > 60:
		responseLength = "verbose"
	case psych.CommunicationStyle.Verbosity != "":
		responseLength = psych.CommunicationStyle.Verbosity
	}

	var fillers []string
	if emotions.Confusion > 50 {
		fillers = append(fillers, "Este...", "No sé...", "Hmm...")
	}
	if emotions.Arousal > 60 {
		fillers = append(fillers, "Mira...", "O sea...")
	}
	if extraversion > 60 {
		fillers = append(fillers, "Ya...", "Claro...")
	}

	hesitation := int(math.Round((emotions.Confusion*0.5 + (100-emotions.Trust)*0.3 + emotions.Arousal*0.2) / 10))

	tangent := clampRange((100-emotions.Engagement)/300, 0, 0.3)

	irrationality := psych.BigFive.Neuroticism / 100 * emotions.Arousal / 100 * math.Max(0, 1-emotions.Valence/100)

	var refs []Reference
	if emotions.Frustration > 40 {
		if obj, ok := latestUnresolvedObjection(state.ConversationMemory); ok {
			refs = append(refs, Reference{Type: RefObjection, Content: obj})
		}
	}
	if emotions.Trust < 50 {
		if promise, ok := latestUnfulfilledPromise(state.ConversationMemory); ok {
			refs = append(refs, Reference{Type: RefPromise, Content: promise})
		}
	}
	if emotions.Confusion > 50 {
		if question, ok := latestUnansweredQuestion(state.ConversationMemory); ok {
			refs = append(refs, Reference{Type: RefQuestion, Content: question})
		}
	}

	return BehaviorGuidance{
		EmotionalTone:       tone,
		ResponseLength:      responseLength,
		ShouldReference:     refs,
		FillerWords:         fillers,
		HesitationLevel:     hesitation,
		TangentProbability:  tangent,
		IrrationalityFactor: irrationality,
	}
}

func latestUnresolvedObjection(m ConversationMemory) (string, bool) {
	for i := len(m.ObjectionsRaised) - 1; i >= 0; i-- {
		if !m.ObjectionsRaised[i].Resolved {
			return m.ObjectionsRaised[i].Objection, true
		}
	}
	return "", false
}

func latestUnfulfilledPromise(m ConversationMemory) (string, bool) {
	for i := len(m.SellerPromises) - 1; i >= 0; i-- {
		if !m.SellerPromises[i].Fulfilled {
			return m.SellerPromises[i].Content, true
		}
	}
	return "", false
}

func latestUnansweredQuestion(m ConversationMemory) (string, bool) {
	for i := len(m.QuestionsAsked) - 1; i >= 0; i-- {
		if !m.QuestionsAsked[i].Answered {
			return m.QuestionsAsked[i].Question, true
		}
	}
	return "", false
}
