package persona

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/vendra-ai/vendra/internal/provider"
)

func testScenario(contact ContactType, intensity Intensity) Scenario {
	return Scenario{
		ProductName:   "Plan de internet fibra",
		Description:   "Internet hogar de 200 Mbps",
		CallObjective: "Agendar instalación",
		ContactType:   contact,
		TargetProfile: TargetProfile{
			Location:           "Lima",
			SocioeconomicLevel: "C",
			EducationLevel:     "superior",
			Pains:              []string{"internet lento"},
			Motivations:        []string{"trabajar desde casa"},
			PreferredChannel:   "llamada",
		},
		SimulationPreferences: SimulationPreferences{
			ClientIntensity: intensity,
			Realism:         RealismNatural,
		},
	}
}

func TestResolvePsychologyDefaults(t *testing.T) {
	resolved := ResolvePsychology(nil)
	if resolved.BigFive.Agreeableness != 50 || resolved.BigFive.Neuroticism != 50 {
		t.Fatalf("default big five = %+v", resolved.BigFive)
	}
	if resolved.CommunicationStyle.Verbosity != "moderate" {
		t.Fatalf("default verbosity = %q", resolved.CommunicationStyle.Verbosity)
	}
	if resolved.EmotionalBaseline.Trust != 40 || resolved.EmotionalBaseline.Arousal != 50 {
		t.Fatalf("default baseline = %+v", resolved.EmotionalBaseline)
	}

	partial := &Profile{Psychology: &Psychology{
		BigFive: BigFive{Openness: 70, Conscientiousness: 50, Extraversion: 50, Agreeableness: 80, Neuroticism: 20},
	}}
	resolved = ResolvePsychology(partial)
	if resolved.BigFive.Agreeableness != 80 {
		t.Fatalf("agreeableness = %v, want profile value", resolved.BigFive.Agreeableness)
	}
	if resolved.CommunicationStyle.Verbosity != "moderate" {
		t.Fatalf("missing verbosity should default to moderate, got %q", resolved.CommunicationStyle.Verbosity)
	}
}

func TestBuildMockPersonaIntensity(t *testing.T) {
	cases := []struct {
		intensity         Intensity
		wantAgreeableness float64
		wantNeuroticism   float64
		wantValence       float64
	}{
		{IntensityTranquilo, 80, 20, 20},
		{IntensityNeutro, 50, 50, 0},
		{IntensityDificil, 25, 75, -20},
	}
	for _, tc := range cases {
		p := BuildMockPersona(testScenario(ContactColdCall, tc.intensity))
		if p.Psychology == nil {
			t.Fatalf("%s: persona has no psychology", tc.intensity)
		}
		b := p.Psychology.BigFive
		if b.Agreeableness != tc.wantAgreeableness || b.Neuroticism != tc.wantNeuroticism {
			t.Fatalf("%s: big five = %+v", tc.intensity, b)
		}
		if p.Psychology.EmotionalBaseline.Valence != tc.wantValence {
			t.Fatalf("%s: valence = %v, want %v", tc.intensity, p.Psychology.EmotionalBaseline.Valence, tc.wantValence)
		}
		if p.Psychology.SalesProfile.RiskTolerance != 100-tc.wantNeuroticism {
			t.Fatalf("%s: risk tolerance = %v", tc.intensity, p.Psychology.SalesProfile.RiskTolerance)
		}
	}
}

func TestBuildMockPersonaContactType(t *testing.T) {
	followUp := BuildMockPersona(testScenario(ContactFollowUp, IntensityNeutro))
	if followUp.Occupation != "Cliente recurrente" {
		t.Fatalf("follow-up occupation = %q", followUp.Occupation)
	}
	cold := BuildMockPersona(testScenario(ContactColdCall, IntensityNeutro))
	if cold.Occupation != "Profesional independiente" {
		t.Fatalf("cold-call occupation = %q", cold.Occupation)
	}
	if cold.Location != "Lima" {
		t.Fatalf("location should come from the target profile, got %q", cold.Location)
	}
}

func TestGeneratorParsesProviderJSON(t *testing.T) {
	mock := provider.NewMock(func(req provider.Request) (string, error) {
		if !strings.Contains(req.Messages[0].Content, "cold_call") {
			t.Fatalf("prompt missing contact type: %s", provider.Truncate(req.Messages[0].Content, 200))
		}
		return "```json\n" + `{
			"name": "Rosa Quispe",
			"age": 42,
			"occupation": "Dueña de bodega",
			"psychology": {
				"bigFive": {"openness": 55, "conscientiousness": 70, "extraversion": 40, "agreeableness": 65, "neuroticism": 45}
			}
		}` + "\n```", nil
	})

	g := NewGenerator(mock, slog.New(slog.DiscardHandler))
	p, err := g.Generate(context.Background(), testScenario(ContactColdCall, IntensityNeutro))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if p.Name != "Rosa Quispe" || p.Psychology.BigFive.Conscientiousness != 70 {
		t.Fatalf("persona = %+v", p)
	}
}

func TestParseProfileValidation(t *testing.T) {
	if _, err := ParseProfile(`{"age": 30}`); err == nil {
		t.Fatalf("expected error for persona without a name")
	}
	if _, err := ParseProfile(`{"name": "X", "psychology": {"bigFive": {"openness": 140}}}`); err == nil {
		t.Fatalf("expected error for out-of-range trait score")
	}
	if _, err := ParseProfile("sin json aquí"); err == nil {
		t.Fatalf("expected error for non-JSON text")
	}
}
