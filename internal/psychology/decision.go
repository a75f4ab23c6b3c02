package psychology

import "math"

// DecisionStage is the client's position in the purchase journey.
type DecisionStage string

const (
	StageUnaware       DecisionStage = "unaware"
	StageProblemAware  DecisionStage = "problem_aware"
	StageSolutionAware DecisionStage = "solution_aware"
	StageProductAware  DecisionStage = "product_aware"
	StageEvaluating    DecisionStage = "evaluating"
	StageReadyToDecide DecisionStage = "ready_to_decide"
	StageCommitted     DecisionStage = "committed"
	StageRejected      DecisionStage = "rejected"
)

// DecisionProgression is the client's current decision posture.
// Blockers and accelerators are recomputed fresh every turn; they
// describe the present state, not an accumulated history.
type DecisionProgression struct {
	Stage        DecisionStage `json:"stage"`
	Confidence   int           `json:"confidence"`
	Blockers     []string      `json:"blockers"`
	Accelerators []string      `json:"accelerators"`
}

// UpdateDecisionProgression advances the purchase journey by at most
// one stage per call. Each gate tests the incoming stage, so a single
// turn can never skip ahead even when every threshold is met.
// Rejection is terminal for the tracker and overrides any forward
// gate. The committed stage is never produced here; closing a sale is
// an orchestration decision.
func UpdateDecisionProgression(currentStage DecisionStage, emotions EmotionalState, conversationTurns int) DecisionProgression {
	if currentStage == StageRejected {
		return DecisionProgression{
			Stage:        StageRejected,
			Confidence:   confidenceFrom(emotions),
			Blockers:     blockersFrom(emotions),
			Accelerators: acceleratorsFrom(emotions),
		}
	}

	newStage := currentStage
	confidence := confidenceFrom(emotions)

	if conversationTurns >= 3 && currentStage == StageUnaware {
		newStage = StageProblemAware
	}
	if conversationTurns >= 5 && confidence > 40 && currentStage == StageProblemAware {
		newStage = StageSolutionAware
	}
	if conversationTurns >= 7 && confidence > 50 && currentStage == StageSolutionAware {
		newStage = StageProductAware
	}
	if conversationTurns >= 10 && confidence > 60 && currentStage == StageProductAware {
		newStage = StageEvaluating
	}
	if confidence > 75 && emotions.Enthusiasm > 65 && currentStage == StageEvaluating {
		newStage = StageReadyToDecide
	}

	if confidence < 30 && emotions.Frustration > 70 {
		newStage = StageRejected
	}

	return DecisionProgression{
		Stage:        newStage,
		Confidence:   confidence,
		Blockers:     blockersFrom(emotions),
		Accelerators: acceleratorsFrom(emotions),
	}
}

// confidenceFrom weighs trust most, then enthusiasm, engagement, and
// clarity (inverse confusion).
func confidenceFrom(e EmotionalState) int {
	return int(math.Round(e.Trust*0.4 + e.Enthusiasm*0.3 + e.Engagement*0.2 + (100-e.Confusion)*0.1))
}

func blockersFrom(e EmotionalState) []string {
	var blockers []string
	if e.Confusion > 50 {
		blockers = append(blockers, "No entiendo bien el producto")
	}
	if e.Frustration > 60 {
		blockers = append(blockers, "Me siento presionado")
	}
	if e.Trust < 40 {
		blockers = append(blockers, "No confío en el vendedor")
	}
	return blockers
}

func acceleratorsFrom(e EmotionalState) []string {
	var accelerators []string
	if e.Enthusiasm > 60 {
		accelerators = append(accelerators, "El producto me emociona")
	}
	if e.Trust > 70 {
		accelerators = append(accelerators, "Confío en este vendedor")
	}
	if e.Engagement > 70 && e.Confusion < 30 {
		accelerators = append(accelerators, "Entiendo el valor claramente")
	}
	return accelerators
}
