package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/provider"
)

// ClientResponse is the structured reply the simulated client produces
// on each turn.
type ClientResponse struct {
	ClientText   string `json:"clientText"`
	Interest     int    `json:"interest"` // 1-10
	Interruption bool   `json:"interruption"`
	WantsToEnd   bool   `json:"wantsToEnd"`
}

// PreviousContext is one simulated prior exchange, used to seed
// follow-up and inbound-callback sessions.
type PreviousContext struct {
	SellerMessage string `json:"sellerMessage"`
	ClientMessage string `json:"clientMessage"`
}

// ParseClientResponse decodes and validates a client reply document.
func ParseClientResponse(text string) (ClientResponse, error) {
	cleaned := provider.CleanJSON(text)
	if cleaned == "" {
		return ClientResponse{}, fmt.Errorf("no JSON content found in response")
	}

	var resp ClientResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return ClientResponse{}, fmt.Errorf("invalid JSON: %w\nRaw text (first 500 chars): %s", err, provider.Truncate(cleaned, 500))
	}
	if resp.ClientText == "" {
		return ClientResponse{}, fmt.Errorf("client response has no text")
	}
	if resp.Interest < 1 || resp.Interest > 10 {
		return ClientResponse{}, fmt.Errorf("interest %d out of range 1-10", resp.Interest)
	}
	return resp, nil
}

func parsePreviousContext(text string) (PreviousContext, error) {
	cleaned := provider.CleanJSON(text)
	if cleaned == "" {
		return PreviousContext{}, fmt.Errorf("no JSON content found in response")
	}

	var pc PreviousContext
	if err := json.Unmarshal([]byte(cleaned), &pc); err != nil {
		return PreviousContext{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if pc.SellerMessage == "" || pc.ClientMessage == "" {
		return PreviousContext{}, fmt.Errorf("previous context is incomplete")
	}
	return pc, nil
}

// initialInterestLevel returns the starting interest for a contact type.
// Cold calls start skeptical; inbound callbacks start warm.
func initialInterestLevel(contactType persona.ContactType) int {
	switch contactType {
	case persona.ContactColdCall:
		return 3
	case persona.ContactFollowUp:
		return 5
	case persona.ContactInboundCallback:
		return 7
	default:
		return 5
	}
}

// BuildMockClientReply produces a deterministic client reply for
// offline mode. Interest climbs slowly with conversation length.
func BuildMockClientReply(sellerText string, p *persona.Profile, scenario persona.Scenario, historyLen int) ClientResponse {
	interest := initialInterestLevel(scenario.ContactType) + historyLen/2
	if interest < 1 {
		interest = 1
	}
	if interest > 10 {
		interest = 10
	}

	echo := truncateRunes(sellerText, 140)
	knowsProduct := scenario.ContactType != persona.ContactColdCall

	var text string
	switch {
	case echo != "" && knowsProduct:
		text = fmt.Sprintf("%s: entiendo tu oferta sobre %s. %s", p.Name, scenario.ProductName, echo)
	case echo != "":
		text = fmt.Sprintf("%s: %s", p.Name, echo)
	case knowsProduct:
		text = fmt.Sprintf("%s: ¿podrías contarme más sobre %s?", p.Name, scenario.ProductName)
	default:
		text = fmt.Sprintf("%s: ¿de qué se trata esto?", p.Name)
	}

	return ClientResponse{ClientText: text, Interest: interest}
}

func buildMockPreviousContext(p *persona.Profile, scenario persona.Scenario) PreviousContext {
	if scenario.ContactType == persona.ContactFollowUp {
		return PreviousContext{
			SellerMessage: fmt.Sprintf("Hola %s, te llamo de seguimiento sobre %s que conversamos. ¿Tienes unos minutos ahora?", p.Name, scenario.ProductName),
			ClientMessage: fmt.Sprintf("Hola, sí me acuerdo de la llamada anterior sobre %s. Me interesa pero ese día no tenía tiempo. Ahora sí podemos hablar.", scenario.ProductName),
		}
	}
	return PreviousContext{
		SellerMessage: fmt.Sprintf("Hola %s, claro que sí. Vi tu consulta sobre %s. Con gusto te cuento más a detalle en esta llamada.", p.Name, scenario.ProductName),
		ClientMessage: fmt.Sprintf("Hola, yo pregunté por %s. ¿Me puedes dar más detalles?", scenario.ProductName),
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
