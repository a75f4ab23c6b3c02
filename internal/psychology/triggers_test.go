package psychology

import "testing"

func triggerTypes(impacts []EmotionalImpact) []TriggerType {
	types := make([]TriggerType, len(impacts))
	for i, impact := range impacts {
		types[i] = impact.Trigger.Type
	}
	return types
}

func hasTrigger(impacts []EmotionalImpact, want TriggerType) bool {
	for _, impact := range impacts {
		if impact.Trigger.Type == want {
			return true
		}
	}
	return false
}

func TestAnalyzeSellerTurnDetectsCues(t *testing.T) {
	p := testPersona()

	tests := []struct {
		name string
		text string
		want TriggerType
	}{
		{"empathy question", "¿Cómo te sientes con tus procesos actuales?", TriggerEmpathy},
		{"active listening", "Entiendo que mencionaste que el precio te preocupaba", TriggerListening},
		{"pressure tactic", "Esta oferta es solo hoy, tienes que decidir ahora", TriggerPressure},
		{"value clarity", "Esto te permite ahorrar tiempo, es un beneficio directo", TriggerValueClarity},
		{"name personalization", "Juan Pérez, justo pensaba en ti", TriggerPersonalization},
		{"situation personalization", "En tu caso el plan básico alcanza", TriggerPersonalization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			impacts := AnalyzeSellerTurn(tt.text, p)
			if !hasTrigger(impacts, tt.want) {
				t.Fatalf("triggers = %v, want %s", triggerTypes(impacts), tt.want)
			}
		})
	}
}

func TestAnalyzeSellerTurnNeutralText(t *testing.T) {
	impacts := AnalyzeSellerTurn("Bueno, continuemos con la llamada entonces.", testPersona())
	if len(impacts) != 0 {
		t.Fatalf("neutral text produced triggers: %v", triggerTypes(impacts))
	}
}

func TestAnalyzeSellerTurnRepetition(t *testing.T) {
	// 24 words, only 3 distinct.
	text := "precio precio precio bueno bueno bueno precio precio bueno bajo bajo bajo precio bueno bajo precio precio bueno bajo bajo precio bueno bajo precio"
	impacts := AnalyzeSellerTurn(text, testPersona())
	if !hasTrigger(impacts, TriggerRepetition) {
		t.Fatalf("triggers = %v, want repetition", triggerTypes(impacts))
	}

	// Short turns never count as repetitive.
	impacts = AnalyzeSellerTurn("precio precio precio", testPersona())
	if hasTrigger(impacts, TriggerRepetition) {
		t.Fatalf("short turn flagged as repetitive")
	}
}

func TestPressureFrustrationScalesWithNeuroticism(t *testing.T) {
	text := "Es tu última oportunidad, no puedes perder esta oferta"

	calm := testPersona()
	calm.Psychology.BigFive.Neuroticism = 30
	anxious := testPersona()
	anxious.Psychology.BigFive.Neuroticism = 75

	var calmFrustration, anxiousFrustration float64
	for _, impact := range AnalyzeSellerTurn(text, calm) {
		if impact.Trigger.Type == TriggerPressure {
			calmFrustration = impact.Changes.Frustration
		}
	}
	for _, impact := range AnalyzeSellerTurn(text, anxious) {
		if impact.Trigger.Type == TriggerPressure {
			anxiousFrustration = impact.Changes.Frustration
		}
	}

	if calmFrustration != 4 {
		t.Fatalf("calm frustration delta = %v, want 4", calmFrustration)
	}
	if anxiousFrustration != 8 {
		t.Fatalf("anxious frustration delta = %v, want 8", anxiousFrustration)
	}
}

func TestTriggerPolarity(t *testing.T) {
	positives := []TriggerType{TriggerEmpathy, TriggerListening, TriggerValueClarity, TriggerPersonalization}
	for _, typ := range positives {
		if !(Trigger{Type: typ}).Positive() {
			t.Fatalf("%s should be positive", typ)
		}
	}
	negatives := []TriggerType{TriggerPressure, TriggerRepetition, TriggerIgnoreObjection, TriggerInterruption}
	for _, typ := range negatives {
		if (Trigger{Type: typ}).Positive() {
			t.Fatalf("%s should be negative", typ)
		}
	}
}
