package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vendra-ai/vendra/internal/provider"
)

const generatorSystemPrompt = "Genera un cliente peruano realista para una simulación de venta. " +
	"Crea un personaje con personalidad auténtica, microcontradicciones sutiles y motivaciones humanas complejas. Responde en JSON válido."

var contactTypeInstructions = map[ContactType]string{
	ContactColdCall:        "- Este cliente NO conoce al vendedor ni el producto específico. Genera un perfil de alguien con necesidades genéricas que el vendedor deberá descubrir.\n- NO menciones el producto específico en motivaciones/dolores, usa necesidades generales.",
	ContactFollowUp:        "- Este cliente ya tuvo un contacto previo con el vendedor. Debe tener cierta familiaridad o memoria del producto.\n- Puede incluir el producto en su contexto de forma natural.",
	ContactInboundCallback: "- Este cliente mostró interés activo y solicitó la llamada. Debe tener motivaciones claras y preguntas específicas.\n- Genera alguien proactivo con necesidades bien definidas.",
}

// Generator creates client personas from scenario configs.
type Generator struct {
	provider provider.Provider
	log      *slog.Logger
}

// NewGenerator creates a persona generator.
func NewGenerator(p provider.Provider, logger *slog.Logger) *Generator {
	return &Generator{provider: p, log: logger}
}

// Generate asks the provider for a persona matching the scenario and
// validates the result. The profile comes back ready for simulation.
func (g *Generator) Generate(ctx context.Context, scenario Scenario) (*Profile, error) {
	req := provider.Request{
		System:      generatorSystemPrompt,
		Messages:    []provider.Message{{Role: "user", Content: buildGeneratorPrompt(scenario)}},
		Temperature: 0.9,
		MaxTokens:   4096,
	}

	text, err := g.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate persona: %w", err)
	}

	profile, err := ParseProfile(text)
	if err != nil {
		return nil, fmt.Errorf("parse persona: %w", err)
	}

	g.log.InfoContext(ctx, "Persona generated",
		"name", profile.Name,
		"intensity", scenario.SimulationPreferences.ClientIntensity,
		"provider", g.provider.Name())
	return profile, nil
}

// ParseProfile decodes and validates a persona JSON document.
func ParseProfile(text string) (*Profile, error) {
	cleaned := provider.CleanJSON(text)
	if cleaned == "" {
		return nil, fmt.Errorf("no JSON content found in response")
	}

	var p Profile
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w\nRaw text (first 500 chars): %s", err, provider.Truncate(cleaned, 500))
	}

	if p.Name == "" {
		return nil, fmt.Errorf("persona has no name")
	}
	if p.Psychology != nil {
		b := p.Psychology.BigFive
		for _, v := range []float64{b.Openness, b.Conscientiousness, b.Extraversion, b.Agreeableness, b.Neuroticism} {
			if v < 0 || v > 100 {
				return nil, fmt.Errorf("big five score %v out of range", v)
			}
		}
	}
	return &p, nil
}

func buildGeneratorPrompt(scenario Scenario) string {
	scenarioJSON, _ := json.MarshalIndent(scenario, "", "  ")

	return fmt.Sprintf(`Crea un cliente simulado con un perfil psicológico realista según este escenario. Devuelve un objeto JSON con las claves: name, age, location, socioeconomicLevel, educationLevel, occupation, motivations, pains, personalityTraits, preferredChannel, briefStory, callAttitude, psychology (bigFive, salesProfile, communicationStyle, emotionalBaseline) y decisionContext (budgetRange, timeframe, priorExperience, competitorsConsidered, keyDecisionCriteria).

Escenario de venta: %s

IMPORTANTE - Tipo de contacto: %s
%s

INSTRUCCIONES PSICOLÓGICAS:
- Big Five: puntuaciones realistas 0-100 por dimensión.
- Sales Profile: riskTolerance, decisionSpeed, authorityLevel, priceSensitivity, trustThreshold (0-100).
- Communication Style: verbosity (terse|moderate|verbose), formality (casual|professional|formal), directness (indirect|balanced|direct), emotionalExpression (reserved|moderate|expressive).
- Emotional Baseline: valence (-100 a 100), arousal, trust y engagement (0-100), derivados lógicamente del Big Five.
- Decision Context: budgetRange realista según socioeconomicLevel (en soles peruanos), timeframe, priorExperience, 1-3 competidores y 2-4 criterios de decisión.

COHERENCIA PSICOLÓGICA:
- La intensidad del cliente (%s) debe reflejarse así:
  - "tranquilo": agreeableness alto (70-90), neuroticism bajo (10-30)
  - "neutro": valores moderados (40-60)
  - "dificil": agreeableness bajo (10-40), neuroticism alto (60-90)

OTRAS INSTRUCCIONES:
- Ubicación y contexto deben sentirse peruanos/latam.
- briefStory debe ser un párrafo narrativo natural, no una lista.
- La personalidad debe tener pequeñas contradicciones.
- Usa español neutro latinoamericano.
- No incluyas texto adicional fuera del JSON.`,
		string(scenarioJSON),
		scenario.ContactType,
		contactTypeInstructions[scenario.ContactType],
		scenario.SimulationPreferences.ClientIntensity)
}

// BuildMockPersona derives a deterministic persona from the scenario,
// used when no provider is configured. Intensity drives the
// personality: a difficult client is disagreeable and anxious.
func BuildMockPersona(scenario Scenario) *Profile {
	intensity := scenario.SimulationPreferences.ClientIntensity

	agreeableness := 50.0
	neuroticism := 50.0
	switch intensity {
	case IntensityTranquilo:
		agreeableness, neuroticism = 80, 20
	case IntensityDificil:
		agreeableness, neuroticism = 25, 75
	}
	openness := 60.0
	conscientiousness := 65.0
	extraversion := 55.0

	attitude := "Curioso y con ganas de entender la propuesta"
	secondTrait := "Colaborador"
	if intensity == IntensityDificil {
		attitude = "Escéptico pero abierto a buenos argumentos"
		secondTrait = "Desafiante"
	} else if intensity == IntensityNeutro {
		secondTrait = "Desafiante"
	}

	occupation := "Profesional independiente"
	if scenario.ContactType == ContactFollowUp {
		occupation = "Cliente recurrente"
	}

	valence := 0.0
	if neuroticism > 60 {
		valence = -20
	} else if neuroticism < 40 {
		valence = 20
	}

	decisionSpeed := 55.0
	if neuroticism > 60 {
		decisionSpeed = 35
	}

	directness := "direct"
	if agreeableness > 60 {
		directness = "indirect"
	}

	return &Profile{
		Name:               "Cliente de prueba",
		Age:                35,
		Location:           scenario.TargetProfile.Location,
		SocioeconomicLevel: scenario.TargetProfile.SocioeconomicLevel,
		EducationLevel:     scenario.TargetProfile.EducationLevel,
		Occupation:         occupation,
		Motivations:        scenario.TargetProfile.Motivations,
		Pains:              scenario.TargetProfile.Pains,
		PersonalityTraits:  []string{"Analítico", secondTrait, "Pragmático"},
		PreferredChannel:   scenario.TargetProfile.PreferredChannel,
		BriefStory:         "Profesional peruano que busca soluciones prácticas y rápidas sin perder de vista su presupuesto.",
		CallAttitude:       attitude,
		Psychology: &Psychology{
			BigFive: BigFive{
				Openness:          openness,
				Conscientiousness: conscientiousness,
				Extraversion:      extraversion,
				Agreeableness:     agreeableness,
				Neuroticism:       neuroticism,
			},
			SalesProfile: SalesProfile{
				RiskTolerance:    100 - neuroticism,
				DecisionSpeed:    decisionSpeed,
				AuthorityLevel:   70,
				PriceSensitivity: 60,
				TrustThreshold:   agreeableness,
			},
			CommunicationStyle: CommunicationStyle{
				Verbosity:           "moderate",
				Formality:           "professional",
				Directness:          directness,
				EmotionalExpression: "moderate",
			},
			EmotionalBaseline: EmotionalBaseline{
				Valence:    valence,
				Arousal:    extraversion,
				Trust:      agreeableness * 0.7,
				Engagement: openness,
			},
		},
		DecisionContext: &DecisionContext{
			BudgetRange:           BudgetRange{Min: 2000, Max: 5000},
			Timeframe:             "short_term",
			PriorExperience:       "neutral",
			CompetitorsConsidered: []string{"Competidor A", "Competidor B"},
			KeyDecisionCriteria:   []string{"precio", "calidad", "tiempo de entrega"},
		},
	}
}
