package psychology

import (
	"regexp"
	"strings"

	"github.com/vendra-ai/vendra/internal/persona"
)

// TriggerType labels what the seller did to move the client.
type TriggerType string

const (
	TriggerEmpathy         TriggerType = "empathy"
	TriggerPressure        TriggerType = "pressure"
	TriggerListening       TriggerType = "listening"
	TriggerIgnoreObjection TriggerType = "ignore_objection"
	TriggerValueClarity    TriggerType = "value_clarity"
	TriggerRepetition      TriggerType = "repetition"
	TriggerInterruption    TriggerType = "interruption"
	TriggerPersonalization TriggerType = "personalization"
)

// Trigger is a detected seller behavior with intensity 0-10.
type Trigger struct {
	Type      TriggerType `json:"type"`
	Intensity int         `json:"intensity"`
}

// EmotionalImpact pairs a trigger with the emotion changes it causes.
type EmotionalImpact struct {
	Changes EmotionDeltas `json:"emotionChanges"`
	Trigger Trigger       `json:"trigger"`
}

// Positive reports whether the trigger builds the relationship.
// Pressure and repetition erode it; the rest strengthen it.
func (t Trigger) Positive() bool {
	switch t.Type {
	case TriggerPressure, TriggerRepetition, TriggerIgnoreObjection, TriggerInterruption:
		return false
	}
	return true
}

// Cue regexes run against lowercased seller text. The client personas
// speak Latin American Spanish, so the cue families do too.
var (
	empathyRe         = regexp.MustCompile(`cómo|necesitas|te gustaría|qué buscas|cuál es tu|preocupa|importante para ti`)
	listeningRe       = regexp.MustCompile(`entiendo que|mencionaste|dijiste|comentaste`)
	pressureRe        = regexp.MustCompile(`solo hoy|última oportunidad|ahora o nunca|tienes que decidir|no puedes perder`)
	valueClarityRe    = regexp.MustCompile(`esto te permite|beneficio|ventaja|te ayuda a|soluciona tu|resuelve`)
	personalSituRe    = regexp.MustCompile(`en tu caso|para tu situación`)
	whitespaceSplitRe = regexp.MustCompile(`\s+`)
)

// AnalyzeSellerTurn scans a seller turn for emotional triggers and
// returns the impacts in detection order. Neutral text yields nil.
func AnalyzeSellerTurn(sellerText string, p *persona.Profile) []EmotionalImpact {
	var impacts []EmotionalImpact
	lower := strings.ToLower(sellerText)

	if empathyRe.MatchString(lower) {
		impacts = append(impacts, EmotionalImpact{
			Changes: EmotionDeltas{Engagement: 5, Trust: 3, Valence: 5},
			Trigger: Trigger{Type: TriggerEmpathy, Intensity: 6},
		})
	}

	if listeningRe.MatchString(lower) {
		impacts = append(impacts, EmotionalImpact{
			Changes: EmotionDeltas{Engagement: 4, Trust: 5},
			Trigger: Trigger{Type: TriggerListening, Intensity: 5},
		})
	}

	if pressureRe.MatchString(lower) {
		// Anxious clients take pressure worse.
		frustration := 4.0
		if persona.ResolvePsychology(p).BigFive.Neuroticism > 60 {
			frustration = 8
		}
		impacts = append(impacts, EmotionalImpact{
			Changes: EmotionDeltas{Arousal: 10, Frustration: frustration, Trust: -6, Valence: -5},
			Trigger: Trigger{Type: TriggerPressure, Intensity: 8},
		})
	}

	if valueClarityRe.MatchString(lower) {
		impacts = append(impacts, EmotionalImpact{
			Changes: EmotionDeltas{Confusion: -5, Enthusiasm: 6, Valence: 4},
			Trigger: Trigger{Type: TriggerValueClarity, Intensity: 6},
		})
	}

	if isRepetitive(sellerText) {
		impacts = append(impacts, EmotionalImpact{
			Changes: EmotionDeltas{Engagement: -6, Frustration: 5},
			Trigger: Trigger{Type: TriggerRepetition, Intensity: 5},
		})
	}

	nameUsed := p != nil && p.Name != "" && strings.Contains(lower, strings.ToLower(p.Name))
	if nameUsed || personalSituRe.MatchString(lower) {
		impacts = append(impacts, EmotionalImpact{
			Changes: EmotionDeltas{Engagement: 4, Trust: 4, Valence: 3},
			Trigger: Trigger{Type: TriggerPersonalization, Intensity: 5},
		})
	}

	return impacts
}

// isRepetitive flags long turns with a low unique-word ratio.
func isRepetitive(text string) bool {
	words := whitespaceSplitRe.Split(text, -1)
	if len(words) <= 20 {
		return false
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	return float64(len(unique))/float64(len(words)) < 0.6
}
