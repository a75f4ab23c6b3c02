// Package analysis produces the post-session coaching report: a 0-100
// score, what went well, what to improve, and key moments with quotes.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/provider"
	"github.com/vendra-ai/vendra/internal/psychology"
	"github.com/vendra-ai/vendra/internal/simstore"
)

// Engine evaluates completed sessions. A nil provider produces
// deterministic offline reports.
type Engine struct {
	store    simstore.Store
	provider provider.Provider
	log      *slog.Logger
}

// NewEngine creates an analysis engine. p may be nil for offline mode.
func NewEngine(store simstore.Store, p provider.Provider, logger *slog.Logger) *Engine {
	return &Engine{store: store, provider: p, log: logger}
}

// Output is the structured evaluation before persistence.
type Output struct {
	Score        int                    `json:"score"`
	Successes    []string               `json:"successes"`
	Improvements []simstore.Improvement `json:"improvements"`
	KeyMoments   []simstore.KeyMoment   `json:"keyMoments"`
}

// Analyze evaluates a session's transcript and stores the report.
// Each session is analyzed at most once.
func (e *Engine) Analyze(ctx context.Context, sessionID string) (*simstore.Analysis, error) {
	existing, err := e.store.GetAnalysis(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("check existing analysis: %w", err)
	}
	if existing != nil {
		return nil, simstore.ErrAnalysisExists
	}

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if sess.Persona == nil {
		return nil, fmt.Errorf("session %s has no persona", sessionID)
	}

	turns, err := e.store.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("session %s has no turns to analyze", sessionID)
	}

	state, _, err := e.store.LoadState(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var output Output
	usedMock := e.provider == nil
	if usedMock {
		output = buildMockOutput(sess.Persona, sess.Scenario, turns)
	} else {
		req := provider.Request{
			System:      analysisSystemPrompt,
			Messages:    []provider.Message{{Role: "user", Content: buildUserPrompt(sess.Persona, sess.Scenario, turns, state)}},
			Temperature: 0.7,
			MaxTokens:   4096,
		}
		raw, err := e.provider.Complete(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("analyze session: %w", err)
		}
		output, err = ParseOutput(raw)
		if err != nil {
			return nil, fmt.Errorf("analyze session: %w", err)
		}
	}

	result := &simstore.Analysis{
		SessionID:    sessionID,
		Score:        output.Score,
		Successes:    output.Successes,
		Improvements: output.Improvements,
		KeyMoments:   output.KeyMoments,
		CreatedAt:    simstore.Now(),
	}
	if err := e.store.SaveAnalysis(ctx, result); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	e.log.InfoContext(ctx, "Session analyzed",
		"sessionId", sessionID,
		"score", result.Score,
		"usedMock", usedMock)
	return result, nil
}

// Get returns a stored report, or nil when none exists.
func (e *Engine) Get(ctx context.Context, sessionID string) (*simstore.Analysis, error) {
	return e.store.GetAnalysis(ctx, sessionID)
}

// ParseOutput decodes and validates an evaluation document.
func ParseOutput(text string) (Output, error) {
	cleaned := provider.CleanJSON(text)
	if cleaned == "" {
		return Output{}, fmt.Errorf("no JSON content found in response")
	}

	var out Output
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return Output{}, fmt.Errorf("invalid JSON: %w\nRaw text (first 500 chars): %s", err, provider.Truncate(cleaned, 500))
	}
	if out.Score < 0 || out.Score > 100 {
		return Output{}, fmt.Errorf("score %d out of range 0-100", out.Score)
	}
	if len(out.Improvements) == 0 {
		return Output{}, fmt.Errorf("analysis has no improvements")
	}
	if len(out.KeyMoments) == 0 {
		return Output{}, fmt.Errorf("analysis has no key moments")
	}
	for _, imp := range out.Improvements {
		if imp.Title == "" || imp.Action == "" {
			return Output{}, fmt.Errorf("improvement item is incomplete")
		}
	}
	for _, km := range out.KeyMoments {
		if km.Quote == "" || km.Insight == "" || km.Recommendation == "" {
			return Output{}, fmt.Errorf("key moment is incomplete")
		}
	}
	return out, nil
}

// buildMockOutput scores mechanically: credit for seller activity,
// a penalty for letting the client talk in circles.
func buildMockOutput(p *persona.Profile, scenario persona.Scenario, turns []simstore.Turn) Output {
	sellerTurns, clientTurns := 0, 0
	lastClientText := "Quiero pensarlo un poco más."
	for _, t := range turns {
		switch t.Role {
		case simstore.RoleSeller:
			sellerTurns++
		case simstore.RoleClient:
			clientTurns++
			lastClientText = t.Content
		}
	}

	score := 70 + min(10, sellerTurns) - max(0, clientTurns-5)
	if score < 55 {
		score = 55
	}
	if score > 95 {
		score = 95
	}

	return Output{
		Score: score,
		Successes: []string{
			fmt.Sprintf("Explicaste el valor de %s de forma clara para %s.", scenario.ProductName, p.Name),
			"Mantuviste el control de la llamada con preguntas guiadas.",
		},
		Improvements: []simstore.Improvement{
			{
				Title:  "Profundiza en necesidades",
				Action: "Haz una pregunta adicional sobre las prioridades del cliente para personalizar mejor el valor.",
			},
			{
				Title:  "Marca el siguiente paso",
				Action: "Cierra cada bloque con un siguiente paso claro y confirma disponibilidad.",
			},
		},
		KeyMoments: []simstore.KeyMoment{
			{
				TurnIndex:      turns[len(turns)-1].TurnIndex,
				Quote:          lastClientText,
				Insight:        "La conversación avanzó y el cliente entendió el valor principal.",
				Recommendation: "Refuerza la urgencia con un beneficio claro y fecha límite.",
			},
		},
	}
}

const analysisSystemPrompt = `Eres el AnalysisEngine de VENDRA, un sistema de análisis de ventas especializado en evaluar llamadas de venta P2C (persona a consumidor) en el contexto peruano/latinoamericano.

Tu tarea es analizar una conversación de ventas y producir un análisis estructurado con:
1. Un puntaje global de 0 a 100
2. Una lista de aciertos (cosas que el vendedor hizo bien)
3. Una lista de oportunidades de mejora con acciones concretas
4. Momentos clave de la conversación con citas textuales

## Dimensiones a evaluar (cada una pesa aproximadamente igual):
- **Rapport**: ¿El vendedor estableció conexión personal con el cliente?
- **Descubrimiento**: ¿Hizo preguntas para entender las necesidades del cliente?
- **Valor**: ¿Comunicó claramente el valor del producto/servicio?
- **Manejo de objeciones**: ¿Respondió adecuadamente a las dudas o resistencias?
- **Avance hacia cierre**: ¿Guió la conversación hacia una decisión?
- **Comunicación**: ¿Fue claro, profesional y empático?
- **Control de la llamada**: ¿Mantuvo el flujo de la conversación?
- **Uso del tiempo**: ¿Fue eficiente sin apurar al cliente?

## Reglas importantes:
1. Sé específico y constructivo en las mejoras
2. Cita textualmente los momentos clave (usa las citas exactas de la conversación)
3. Los turnIndex deben ser los números exactos proporcionados en la conversación
4. El puntaje debe reflejar el desempeño real, no ser artificialmente alto o bajo
5. Las mejoras deben ser accionables y específicas

Responde SOLO en JSON válido con este formato exacto:
{
  "score": <número de 0 a 100>,
  "successes": ["acierto 1", "acierto 2", ...],
  "improvements": [
    {"title": "título corto", "action": "acción específica a tomar"},
    ...
  ],
  "keyMoments": [
    {"turnIndex": <número del turno>, "quote": "cita textual exacta", "insight": "por qué es importante", "recommendation": "qué hacer diferente o reforzar"},
    ...
  ]
}`

func buildUserPrompt(p *persona.Profile, scenario persona.Scenario, turns []simstore.Turn, state *psychology.State) string {
	var conversation strings.Builder
	for i, turn := range turns {
		speaker := "VENDEDOR"
		if turn.Role == simstore.RoleClient {
			speaker = "CLIENTE"
		}
		if i > 0 {
			conversation.WriteString("\n\n")
		}
		fmt.Fprintf(&conversation, "[Turno %d] %s: %q", turn.TurnIndex, speaker, turn.Content)
	}

	var b strings.Builder
	b.WriteString("## Contexto del escenario\n")
	fmt.Fprintf(&b, "- Producto: %s\n", scenario.ProductName)
	fmt.Fprintf(&b, "- Descripción: %s\n", scenario.Description)
	if scenario.PriceDetails != "" {
		fmt.Fprintf(&b, "- Precio/condiciones: %s\n", scenario.PriceDetails)
	}
	fmt.Fprintf(&b, "- Objetivo de la llamada: %s\n", scenario.CallObjective)
	fmt.Fprintf(&b, "- Tipo de contacto: %s\n", scenario.ContactType)
	fmt.Fprintf(&b, "- Intensidad del cliente: %s\n", scenario.SimulationPreferences.ClientIntensity)

	b.WriteString("\n## Perfil del cliente simulado\n")
	fmt.Fprintf(&b, "- Nombre: %s\n", p.Name)
	fmt.Fprintf(&b, "- Edad: %d años\n", p.Age)
	fmt.Fprintf(&b, "- Ubicación: %s\n", p.Location)
	fmt.Fprintf(&b, "- Nivel socioeconómico: %s\n", p.SocioeconomicLevel)
	fmt.Fprintf(&b, "- Ocupación: %s\n", p.Occupation)
	fmt.Fprintf(&b, "- Rasgos de personalidad: %s\n", strings.Join(p.PersonalityTraits, ", "))
	fmt.Fprintf(&b, "- Motivaciones: %s\n", strings.Join(p.Motivations, ", "))
	fmt.Fprintf(&b, "- Dolores: %s\n", strings.Join(p.Pains, ", "))
	fmt.Fprintf(&b, "- Actitud en la llamada: %s\n", p.CallAttitude)

	if state != nil && len(state.EmotionHistory) > 0 {
		b.WriteString("\n## Trayectoria emocional del cliente\n")
		for _, snap := range state.EmotionHistory {
			fmt.Fprintf(&b, "- Turno %d: confianza %.0f, interés %.0f, frustración %.0f, entusiasmo %.0f\n",
				snap.TurnIndex, snap.Emotions.Trust, snap.Emotions.Engagement, snap.Emotions.Frustration, snap.Emotions.Enthusiasm)
		}
		fmt.Fprintf(&b, "- Etapa de decisión final: %s (confianza de decisión %d)\n",
			state.DecisionProgression.Stage, state.DecisionProgression.Confidence)
	}

	fmt.Fprintf(&b, "\n## Conversación completa\n%s\n\n---\nAnaliza esta conversación de ventas y proporciona tu evaluación en el formato JSON especificado.", conversation.String())
	return b.String()
}
