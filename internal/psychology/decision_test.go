package psychology

import "testing"

func TestConfidenceFormula(t *testing.T) {
	e := EmotionalState{Trust: 80, Enthusiasm: 70, Engagement: 60, Confusion: 20}
	progression := UpdateDecisionProgression(StageUnaware, e, 0)

	// 80*0.4 + 70*0.3 + 60*0.2 + 80*0.1 = 73.
	if progression.Confidence != 73 {
		t.Fatalf("confidence = %d, want 73", progression.Confidence)
	}
}

func TestStageGatesAdvanceOneStepPerTurn(t *testing.T) {
	high := EmotionalState{Trust: 90, Enthusiasm: 80, Engagement: 80, Confusion: 10}

	// Even with max emotions and many turns, a single call moves one
	// stage only.
	progression := UpdateDecisionProgression(StageUnaware, high, 12)
	if progression.Stage != StageProblemAware {
		t.Fatalf("stage = %s, want problem_aware", progression.Stage)
	}
}

func TestStageProgressionAcrossTurns(t *testing.T) {
	high := EmotionalState{Trust: 90, Enthusiasm: 80, Engagement: 80, Confusion: 10}

	tests := []struct {
		from  DecisionStage
		turns int
		want  DecisionStage
	}{
		{StageUnaware, 3, StageProblemAware},
		{StageProblemAware, 5, StageSolutionAware},
		{StageSolutionAware, 7, StageProductAware},
		{StageProductAware, 10, StageEvaluating},
		{StageEvaluating, 11, StageReadyToDecide},
	}

	for _, tt := range tests {
		got := UpdateDecisionProgression(tt.from, high, tt.turns).Stage
		if got != tt.want {
			t.Fatalf("from %s at turn %d: got %s, want %s", tt.from, tt.turns, got, tt.want)
		}
	}
}

func TestStageGatesHoldWithoutConfidence(t *testing.T) {
	low := EmotionalState{Trust: 20, Enthusiasm: 20, Engagement: 20, Confusion: 40}

	progression := UpdateDecisionProgression(StageProblemAware, low, 6)
	if progression.Stage != StageProblemAware {
		t.Fatalf("stage = %s, want to stay problem_aware with low confidence", progression.Stage)
	}

	// Turn count alone is never enough past the first gate.
	progression = UpdateDecisionProgression(StageSolutionAware, low, 20)
	if progression.Stage != StageSolutionAware {
		t.Fatalf("stage = %s, want to stay solution_aware", progression.Stage)
	}
}

func TestRejectionOverridesProgress(t *testing.T) {
	// Confidence 11, frustration 75.
	e := EmotionalState{Trust: 10, Enthusiasm: 10, Engagement: 10, Confusion: 80, Frustration: 75}

	progression := UpdateDecisionProgression(StageEvaluating, e, 10)
	if progression.Stage != StageRejected {
		t.Fatalf("stage = %s, want rejected", progression.Stage)
	}
}

func TestRejectedIsAbsorbing(t *testing.T) {
	high := EmotionalState{Trust: 90, Enthusiasm: 80, Engagement: 80, Confusion: 10}

	progression := UpdateDecisionProgression(StageRejected, high, 20)
	if progression.Stage != StageRejected {
		t.Fatalf("stage = %s, rejected must be terminal", progression.Stage)
	}
}

func TestBlockersAndAccelerators(t *testing.T) {
	e := EmotionalState{Trust: 30, Enthusiasm: 65, Engagement: 75, Confusion: 55, Frustration: 65}
	progression := UpdateDecisionProgression(StageUnaware, e, 1)

	wantBlockers := map[string]bool{
		"No entiendo bien el producto": true,
		"Me siento presionado":         true,
		"No confío en el vendedor":     true,
	}
	if len(progression.Blockers) != len(wantBlockers) {
		t.Fatalf("blockers = %v", progression.Blockers)
	}
	for _, b := range progression.Blockers {
		if !wantBlockers[b] {
			t.Fatalf("unexpected blocker %q", b)
		}
	}

	// Enthusiasm accelerator fires; the clarity one needs confusion
	// under 30 and trust one needs trust over 70, neither holds.
	if len(progression.Accelerators) != 1 || progression.Accelerators[0] != "El producto me emociona" {
		t.Fatalf("accelerators = %v", progression.Accelerators)
	}
}

func TestBlockersRecomputedFresh(t *testing.T) {
	bad := EmotionalState{Trust: 30, Enthusiasm: 30, Engagement: 40, Confusion: 60}
	good := EmotionalState{Trust: 75, Enthusiasm: 40, Engagement: 40, Confusion: 10}

	first := UpdateDecisionProgression(StageUnaware, bad, 1)
	if len(first.Blockers) == 0 {
		t.Fatalf("expected blockers for bad state")
	}

	second := UpdateDecisionProgression(first.Stage, good, 2)
	if len(second.Blockers) != 0 {
		t.Fatalf("blockers should clear when emotions recover, got %v", second.Blockers)
	}
}
