package conversation

import (
	"fmt"
	"strings"

	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/psychology"
)

var intensityDescriptions = map[persona.Intensity]string{
	persona.IntensityDificil:   "Eres un cliente exigente, que pone objeciones difíciles, es escéptico y no se convence fácilmente.",
	persona.IntensityNeutro:    "Eres un cliente promedio, con preguntas normales y un nivel moderado de interés.",
	persona.IntensityTranquilo: "Eres un cliente amable y receptivo, aunque no necesariamente decides rápido.",
}

var realismDescriptions = map[persona.Realism]string{
	persona.RealismExigente: "Habla de forma muy natural: incluye pausas ('este...', 'eh...'), cambia de tema, repite ideas si algo no te convence. Como un cliente real latinoamericano.",
	persona.RealismHumano:   "Usa lenguaje conversacional con algunas expresiones regionales ocasionales ('ya', 'o sea', 'mira'). Incluye pequeñas dudas o preguntas tangenciales.",
	persona.RealismNatural:  "Responde de forma conversacional y coherente, con español profesional latinoamericano.",
}

// coldCallKnowledge picks how much the client knows about the product
// on an unexpected call, driven by personality traits.
func coldCallKnowledge(p *persona.Profile) string {
	var traits []string
	for _, t := range p.PersonalityTraits {
		traits = append(traits, strings.ToLower(t))
	}
	containsAny := func(subs ...string) bool {
		for _, t := range traits {
			for _, sub := range subs {
				if strings.Contains(t, sub) {
					return true
				}
			}
		}
		return false
	}

	if containsAny("escéptico", "desconfiado", "analítico", "cauteloso") {
		return "Conoces la categoría general y tienes experiencia con productos similares. Muestra escepticismo o menciona que 'ya tienes algo parecido' o 'ya me han llamado de esto antes'."
	}
	if containsAny("curioso", "abierto", "receptivo", "entusiasta") {
		return "NO CONOCES este producto ni al vendedor. Cuando te lo mencionen, pregunta con curiosidad de qué se trata."
	}
	return "Puedes conocer la categoría general (ej: si venden seguros, sabes qué es un seguro), pero no conoces este producto específico ni la empresa que llama."
}

var responseLengthDirectives = map[string]string{
	"terse":    "corta (1-2 oraciones, al grano)",
	"moderate": "media (2-4 oraciones)",
	"verbose":  "larga (varias oraciones, con detalles y comentarios)",
}

var referenceDirectives = map[psychology.ReferenceType]string{
	psychology.RefObjection: "Retoma esta objeción tuya que aún no resolvieron: %q",
	psychology.RefPromise:   "Menciona esta promesa del vendedor que sigue pendiente: %q",
	psychology.RefQuestion:  "Insiste en esta pregunta tuya que no respondieron: %q",
}

// guidanceDirectives renders behavior guidance as prompt instructions.
// The client acts on these but never names them.
func guidanceDirectives(g psychology.BehaviorGuidance, stage psychology.DecisionStage) string {
	var b strings.Builder
	b.WriteString("## Tu estado interno en este momento (actúalo, nunca lo menciones):\n")
	fmt.Fprintf(&b, "- Tono emocional: %s\n", g.EmotionalTone)

	length, ok := responseLengthDirectives[g.ResponseLength]
	if !ok {
		length = responseLengthDirectives["moderate"]
	}
	fmt.Fprintf(&b, "- Longitud de tus respuestas: %s\n", length)

	switch {
	case g.HesitationLevel >= 7:
		b.WriteString("- Dudas mucho: titubea, corta frases a la mitad y pide aclaraciones\n")
	case g.HesitationLevel >= 4:
		b.WriteString("- Tienes algunas dudas: haz pausas ocasionales antes de responder\n")
	}

	if len(g.FillerWords) > 0 {
		fmt.Fprintf(&b, "- Muletillas que usas al hablar: %s\n", strings.Join(g.FillerWords, " "))
	}
	if g.TangentProbability > 0.15 {
		b.WriteString("- Estás algo distraído: puedes desviarte del tema con un comentario personal\n")
	}
	if g.IrrationalityFactor > 0.5 {
		b.WriteString("- Estás alterado: tus reacciones pueden ser desproporcionadas o poco lógicas\n")
	}

	for _, ref := range g.ShouldReference {
		if directive, ok := referenceDirectives[ref.Type]; ok {
			fmt.Fprintf(&b, "- "+directive+"\n", ref.Content)
		}
	}

	switch stage {
	case psychology.StageEvaluating:
		b.WriteString("- Estás evaluando seriamente la oferta: compara, pide precisiones\n")
	case psychology.StageReadyToDecide:
		b.WriteString("- Estás cerca de decidir: pide las condiciones finales\n")
	case psychology.StageRejected:
		b.WriteString("- Ya decidiste que no te interesa: sé cortante y busca cerrar la llamada\n")
	}

	return b.String()
}

// buildSystemPrompt assembles the full client simulation prompt.
func buildSystemPrompt(p *persona.Profile, scenario persona.Scenario, g psychology.BehaviorGuidance, stage psychology.DecisionStage) string {
	var callContext, productKnowledge string
	switch scenario.ContactType {
	case persona.ContactColdCall:
		callContext = "Recibes una llamada inesperada de un vendedor que no conoces."
		productKnowledge = coldCallKnowledge(p)
	case persona.ContactFollowUp:
		callContext = "Esta es una segunda conversación con un vendedor que ya te contactó antes."
		productKnowledge = fmt.Sprintf("Ya sabes que el vendedor ofrece %s. Tuviste una conversación previa básica sobre esto.", scenario.ProductName)
	case persona.ContactInboundCallback:
		callContext = "Tú solicitaste esta llamada o devolviste un contacto previo porque tienes interés."
		productKnowledge = fmt.Sprintf("Tienes conocimiento básico sobre %s y mostraste interés inicial.", scenario.ProductName)
	}

	hangupRule := "Aunque pierdas interés, mantén la cortesía básica."
	if scenario.SimulationPreferences.AllowHangups {
		hangupRule = "Si te frustras o pierdes interés completamente, puedes terminar la llamada."
	}

	return fmt.Sprintf(`Eres %s, un cliente. %s

## Tu historia personal:
%s

Tienes %d años, vives en %s, trabajas como %s.
Tu personalidad: %s. %s

## Tus necesidades actuales:
Buscas soluciones para: %s.
Te motiva: %s.

## Contexto de esta llamada:
%s

## Cómo comportarte:
%s
%s

%s
Tu interés puede aumentar o disminuir naturalmente según cómo te convenza el vendedor. Si responde bien a tus objeciones, tu interés sube. Si evade preguntas o presiona demasiado, baja.

## INSTRUCCIONES DE LENGUAJE NATURAL:
1. PROHIBIDO usar frases corporativas/de AI como: "Entiendo tu preocupación", "Es una excelente pregunta", "Me parece muy bien"
2. USA fragmentos naturales de conversación: "O sea...", "Este...", "Ya...", "A ver..."
3. Muestra emociones AUTÉNTICAS: impaciencia real, curiosidad genuina, dudas sin filtro
4. Puedes interrumpir si el vendedor habla demasiado o es repetitivo
5. No seas excesivamente educado - sé realista según tu personalidad y NSE

Responde SOLO como %s, en primera persona. No rompas el personaje ni expliques lo que haces. Sé coherente con tu perfil y personalidad.
%s

Responde en JSON con el siguiente formato exacto:
{
  "clientText": "tu respuesta como cliente",
  "interest": <número del 1 al 10 indicando tu nivel de interés actual>,
  "interruption": <true si interrumpes al vendedor, false si no>,
  "wantsToEnd": <true si quieres terminar la llamada, false si no>
}`,
		p.Name, callContext,
		p.BriefStory,
		p.Age, p.Location, p.Occupation,
		strings.Join(p.PersonalityTraits, ", "), p.CallAttitude,
		strings.Join(p.Pains, ", "),
		strings.Join(p.Motivations, ", "),
		productKnowledge,
		intensityDescriptions[scenario.SimulationPreferences.ClientIntensity],
		realismDescriptions[scenario.SimulationPreferences.Realism],
		guidanceDirectives(g, stage),
		p.Name,
		hangupRule)
}

func previousContextPrompt(p *persona.Profile, scenario persona.Scenario) string {
	if scenario.ContactType == persona.ContactFollowUp {
		return fmt.Sprintf(`Genera UN intercambio breve (1 turno vendedor + 1 turno cliente) de una conversación previa entre un vendedor y %s sobre %s.

Contexto: Fue un primer contacto donde el vendedor presentó el producto brevemente y %s mostró interés moderado pero no tomó una decisión. Acordaron hablar más adelante.

El vendedor debe:
- Presentarse e introducir %s brevemente (2-3 oraciones)
- Preguntar si es un buen momento

%s debe:
- Responder con interés moderado
- Mencionar que no tiene tiempo en ese momento o necesita pensarlo
- Acordar hablar más adelante

Responde en JSON: {"sellerMessage": "...", "clientMessage": "..."}`,
			p.Name, scenario.ProductName, p.Name, scenario.ProductName, p.Name)
	}
	return fmt.Sprintf(`Genera UN intercambio breve (1 turno vendedor + 1 turno cliente) donde %s inició contacto preguntando sobre %s.

Contexto: %s se comunicó primero (por WhatsApp, formulario web, etc.) mostrando interés. El vendedor respondió brevemente y acordaron esta llamada para hablar con más detalle.

%s debe:
- Expresar interés inicial en %s
- Hacer 1-2 preguntas básicas

El vendedor debe:
- Responder brevemente
- Proponer hablar con más detalle en esta llamada

Responde en JSON: {"sellerMessage": "...", "clientMessage": "..."}`,
		p.Name, scenario.ProductName, p.Name, p.Name, scenario.ProductName)
}

const previousContextSystemPrompt = "Genera diálogos realistas de ventas en español latino. Usa lenguaje natural y conversacional."
