package psychology

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fact is something the client stated about themselves.
type Fact struct {
	Topic      string `json:"topic"`
	Value      string `json:"value"`
	TurnIndex  int    `json:"turnIndex"`
	Importance string `json:"importance"`
}

// Promise is a commitment the seller made.
type Promise struct {
	Content   string `json:"content"`
	TurnIndex int    `json:"turnIndex"`
	Fulfilled bool   `json:"fulfilled"`
}

// Question is something the client asked.
type Question struct {
	Question  string `json:"question"`
	TurnIndex int    `json:"turnIndex"`
	Answered  bool   `json:"answered"`
}

// Objection is a resistance the client raised.
type Objection struct {
	Objection string `json:"objection"`
	TurnIndex int    `json:"turnIndex"`
	Resolved  bool   `json:"resolved"`
}

// ConversationMemory accumulates what both sides have said.
type ConversationMemory struct {
	Facts            []Fact      `json:"facts"`
	SellerPromises   []Promise   `json:"sellerPromises"`
	QuestionsAsked   []Question  `json:"questionsAsked"`
	ObjectionsRaised []Objection `json:"objectionsRaised"`
}

// ConsistencyResult reports whether a new fact contradicts memory.
type ConsistencyResult struct {
	IsConsistent    bool   `json:"isConsistent"`
	ConflictDetails string `json:"conflictDetails,omitempty"`
	ShouldClarify   bool   `json:"shouldClarify"`
}

var (
	budgetRe        = regexp.MustCompile(`(?i)presupuesto.*?(\d+)`)
	interrogativeRe = regexp.MustCompile(`(?i)cómo|qué|cuándo|dónde|por qué`)

	promisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)te (garantizo|aseguro|prometo)`),
		regexp.MustCompile(`(?i)voy a (llamarte|enviarte|mandarte)`),
		regexp.MustCompile(`(?i)te (llamo|envío|mando)`),
	}

	objectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)pero|sin embargo`),
		regexp.MustCompile(`(?i)no (estoy|me) (seguro|convenc)`),
		regexp.MustCompile(`(?i)muy caro|costoso`),
		regexp.MustCompile(`(?i)no (tengo|cuento con)`),
		regexp.MustCompile(`(?i)ya tengo`),
	}
)

// UpdateMemory extracts facts, promises, questions, and objections
// from one exchange and returns a new memory. The input is not
// mutated.
func UpdateMemory(current ConversationMemory, sellerText, clientText string, turnIndex int) ConversationMemory {
	updated := current.clone()

	if m := budgetRe.FindStringSubmatch(clientText); m != nil {
		updated.Facts = append(updated.Facts, Fact{
			Topic:      "budget",
			Value:      m[1],
			TurnIndex:  turnIndex,
			Importance: "high",
		})
	}

	for _, pattern := range promisePatterns {
		if pattern.MatchString(sellerText) {
			updated.SellerPromises = append(updated.SellerPromises, Promise{
				Content:   truncateRunes(sellerText, 100),
				TurnIndex: turnIndex,
			})
			break // one promise per turn
		}
	}

	if strings.Contains(clientText, "?") || interrogativeRe.MatchString(clientText) {
		updated.QuestionsAsked = append(updated.QuestionsAsked, Question{
			Question:  clientText,
			TurnIndex: turnIndex,
		})
	}

	for _, pattern := range objectionPatterns {
		if pattern.MatchString(clientText) {
			updated.ObjectionsRaised = append(updated.ObjectionsRaised, Objection{
				Objection: clientText,
				TurnIndex: turnIndex,
			})
			break
		}
	}

	// A substantial seller turn counts as addressing the questions
	// still open from earlier turns. Crude, but errs toward letting
	// the conversation move on.
	if len(whitespaceSplitRe.Split(sellerText, -1)) > 20 {
		for i := range updated.QuestionsAsked {
			q := &updated.QuestionsAsked[i]
			if !q.Answered && q.TurnIndex < turnIndex {
				q.Answered = true
			}
		}
	}

	return updated
}

// CheckConsistency tests a new fact against what the client already
// said on the same topic. Numeric values get a 30% tolerance so minor
// human messiness passes; strings must match case-insensitively.
func CheckConsistency(memory ConversationMemory, topic, value string) ConsistencyResult {
	for _, existing := range memory.Facts {
		if existing.Topic != topic {
			continue
		}

		existingNum, errExisting := strconv.ParseFloat(existing.Value, 64)
		newNum, errNew := strconv.ParseFloat(value, 64)

		if errExisting == nil && errNew == nil {
			diff := abs(existingNum-newNum) / existingNum
			if diff > 0.3 {
				return ConsistencyResult{
					ConflictDetails: fmt.Sprintf("Dijiste %s antes, pero ahora dices %s", existing.Value, value),
					ShouldClarify:   true,
				}
			}
			return ConsistencyResult{IsConsistent: true}
		}

		if !strings.EqualFold(existing.Value, value) {
			return ConsistencyResult{
				ConflictDetails: fmt.Sprintf("Mencionaste %q antes", existing.Value),
				ShouldClarify:   true,
			}
		}
	}

	return ConsistencyResult{IsConsistent: true}
}

func (m ConversationMemory) clone() ConversationMemory {
	return ConversationMemory{
		Facts:            append([]Fact(nil), m.Facts...),
		SellerPromises:   append([]Promise(nil), m.SellerPromises...),
		QuestionsAsked:   append([]Question(nil), m.QuestionsAsked...),
		ObjectionsRaised: append([]Objection(nil), m.ObjectionsRaised...),
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
