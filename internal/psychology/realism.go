package psychology

import (
	"math"
	"strconv"

	"github.com/vendra-ai/vendra/internal/persona"
)

// Rand is the randomness source for realism features. *math/rand.Rand
// satisfies it; tests supply a fixed sequence.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// CalculateVerbosity scores how talkative the client should be, 0-100.
// Extraversion sets the base; engagement and frustration scale it.
func CalculateVerbosity(emotions EmotionalState, personality persona.BigFive) float64 {
	verbosity := personality.Extraversion

	if emotions.Engagement < 30 {
		verbosity *= 0.5
	} else if emotions.Engagement > 70 {
		verbosity *= 1.3
	}

	if emotions.Frustration > 60 {
		verbosity *= 0.6
	}

	return clampRange(verbosity, 0, 100)
}

// GenerateMinorContradiction sometimes nudges a numeric value the
// client stated earlier, staying inside the consistency tolerance so
// the slip reads as human rather than as a lie. Returns "" when the
// value is left alone.
func GenerateMinorContradiction(rng Rand, originalValue string) string {
	if rng.Float64() > 0.1 {
		return ""
	}

	num, err := strconv.ParseFloat(originalValue, 64)
	if err != nil {
		return ""
	}

	// Up to ±7.5%, half the 30% consistency tolerance.
	variation := num * (rng.Float64()*0.15 - 0.075)
	return strconv.Itoa(int(math.Round(num + variation)))
}

// GetFillerWords samples count filler words suited to the current
// emotional state.
func GetFillerWords(rng Rand, emotions EmotionalState, count int) []string {
	var options []string

	if emotions.Confusion > 50 {
		options = append(options, "Este...", "No sé...", "Hmm...", "A ver...")
	}
	if emotions.Arousal > 60 {
		options = append(options, "Mira...", "O sea...", "Bueno...")
	}
	if emotions.Frustration > 50 {
		options = append(options, "Ya...", "Escucha...", "Mira...")
	}
	if len(options) == 0 {
		options = append(options, "Este...", "Bueno...", "Eh...")
	}

	selected := make([]string, 0, count)
	for i := 0; i < count; i++ {
		selected = append(selected, options[rng.Intn(len(options))])
	}
	return selected
}

// ShouldMakeIrrationalDecision decides whether the client rejects an
// objectively good offer out of mood. Only offers with quality above
// 60 are candidates.
func ShouldMakeIrrationalDecision(rng Rand, personality persona.BigFive, emotions EmotionalState, decisionQuality float64) bool {
	anxietyFactor := personality.Neuroticism / 100
	currentAnxiety := emotions.Arousal / 100 * (1 - emotions.Valence/100)

	irrationality := anxietyFactor * currentAnxiety * 0.5

	return rng.Float64() < irrationality && decisionQuality > 60
}
