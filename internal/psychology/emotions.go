// Package psychology models the inner state of a simulated sales
// client: emotions, decision progression, relationship with the
// seller, conversation memory, and the behavior guidance derived from
// all of them. Every function is pure; callers own persistence.
package psychology

import (
	"github.com/vendra-ai/vendra/internal/persona"
)

// EmotionalState holds the seven tracked emotional dimensions.
// Valence ranges -100..100, everything else 0..100.
type EmotionalState struct {
	Valence     float64 `json:"valence"`
	Arousal     float64 `json:"arousal"`
	Trust       float64 `json:"trust"`
	Engagement  float64 `json:"engagement"`
	Frustration float64 `json:"frustration"`
	Enthusiasm  float64 `json:"enthusiasm"`
	Confusion   float64 `json:"confusion"`
}

// EmotionDeltas is a sparse set of per-dimension changes. Zero fields
// are no-ops when applied.
type EmotionDeltas struct {
	Valence     float64
	Arousal     float64
	Trust       float64
	Engagement  float64
	Frustration float64
	Enthusiasm  float64
	Confusion   float64
}

// UpdateConfig tunes how emotions evolve per turn.
type UpdateConfig struct {
	MaxDelta       float64 // largest change a single impact may apply
	DecayRate      float64 // pull toward baseline per turn
	MomentumFactor float64 // reserved; no term uses it yet
}

// DefaultUpdateConfig returns the standard tuning.
func DefaultUpdateConfig() UpdateConfig {
	return UpdateConfig{MaxDelta: 15, DecayRate: 0.1, MomentumFactor: 0.3}
}

// Decay baselines are global, not persona-specific. The persona
// baseline only seeds the initial state.
var decayBaselines = EmotionalState{
	Valence:     0,
	Arousal:     50,
	Trust:       40,
	Engagement:  50,
	Frustration: 0,
	Enthusiasm:  30,
	Confusion:   20,
}

// UpdateEmotionalState applies impacts, then decay, then clamps.
// The order matters: decay acts on the post-impact values so a strong
// push still drifts back toward baseline on quiet turns.
func UpdateEmotionalState(current EmotionalState, impacts []EmotionalImpact, personality persona.BigFive, cfg UpdateConfig) EmotionalState {
	updated := current

	for _, impact := range impacts {
		d := impact.Changes

		// High neuroticism amplifies agitation responses.
		neuro := personality.Neuroticism / 100
		d.Frustration *= 1 + neuro*0.5
		d.Arousal *= 1 + neuro*0.5

		// High agreeableness dampens mood drops.
		if d.Valence < 0 {
			d.Valence *= 1 - personality.Agreeableness/100*0.3
		}

		updated.Valence += clampDelta(d.Valence, cfg.MaxDelta)
		updated.Arousal += clampDelta(d.Arousal, cfg.MaxDelta)
		updated.Trust += clampDelta(d.Trust, cfg.MaxDelta)
		updated.Engagement += clampDelta(d.Engagement, cfg.MaxDelta)
		updated.Frustration += clampDelta(d.Frustration, cfg.MaxDelta)
		updated.Enthusiasm += clampDelta(d.Enthusiasm, cfg.MaxDelta)
		updated.Confusion += clampDelta(d.Confusion, cfg.MaxDelta)
	}

	updated.Valence += (decayBaselines.Valence - updated.Valence) * cfg.DecayRate
	updated.Arousal += (decayBaselines.Arousal - updated.Arousal) * cfg.DecayRate
	updated.Trust += (decayBaselines.Trust - updated.Trust) * cfg.DecayRate
	updated.Engagement += (decayBaselines.Engagement - updated.Engagement) * cfg.DecayRate
	updated.Frustration += (decayBaselines.Frustration - updated.Frustration) * cfg.DecayRate
	updated.Enthusiasm += (decayBaselines.Enthusiasm - updated.Enthusiasm) * cfg.DecayRate
	updated.Confusion += (decayBaselines.Confusion - updated.Confusion) * cfg.DecayRate

	return updated.clamped()
}

func (e EmotionalState) clamped() EmotionalState {
	e.Valence = clampRange(e.Valence, -100, 100)
	e.Arousal = clampRange(e.Arousal, 0, 100)
	e.Trust = clampRange(e.Trust, 0, 100)
	e.Engagement = clampRange(e.Engagement, 0, 100)
	e.Frustration = clampRange(e.Frustration, 0, 100)
	e.Enthusiasm = clampRange(e.Enthusiasm, 0, 100)
	e.Confusion = clampRange(e.Confusion, 0, 100)
	return e
}

func clampDelta(d, maxDelta float64) float64 {
	return clampRange(d, -maxDelta, maxDelta)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
