package persona

// ContactType describes how the simulated call came about.
type ContactType string

const (
	ContactColdCall        ContactType = "cold_call"
	ContactFollowUp        ContactType = "follow_up"
	ContactInboundCallback ContactType = "inbound_callback"
)

// Intensity controls how demanding the simulated client is.
type Intensity string

const (
	IntensityTranquilo Intensity = "tranquilo"
	IntensityNeutro    Intensity = "neutro"
	IntensityDificil   Intensity = "dificil"
)

// Realism controls how colloquial the simulated client speaks.
type Realism string

const (
	RealismNatural  Realism = "natural"
	RealismHumano   Realism = "humano"
	RealismExigente Realism = "exigente"
)

// BigFive holds personality trait scores, each 0-100.
type BigFive struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism"`
}

// SalesProfile holds purchase-behavior scores, each 0-100.
type SalesProfile struct {
	RiskTolerance    float64 `json:"riskTolerance"`
	DecisionSpeed    float64 `json:"decisionSpeed"`
	AuthorityLevel   float64 `json:"authorityLevel"`
	PriceSensitivity float64 `json:"priceSensitivity"`
	TrustThreshold   float64 `json:"trustThreshold"`
}

// CommunicationStyle describes how the client talks.
type CommunicationStyle struct {
	Verbosity           string `json:"verbosity"` // terse, moderate, verbose
	Formality           string `json:"formality"` // casual, professional, formal
	Directness          string `json:"directness"`
	EmotionalExpression string `json:"emotionalExpression"`
}

// EmotionalBaseline is the client's resting emotional state.
type EmotionalBaseline struct {
	Valence    float64 `json:"valence"` // -100 to 100
	Arousal    float64 `json:"arousal"`
	Trust      float64 `json:"trust"`
	Engagement float64 `json:"engagement"`
}

// Psychology is the structured psychological profile of a persona.
type Psychology struct {
	BigFive            BigFive            `json:"bigFive"`
	SalesProfile       SalesProfile       `json:"salesProfile"`
	CommunicationStyle CommunicationStyle `json:"communicationStyle"`
	EmotionalBaseline  EmotionalBaseline  `json:"emotionalBaseline"`
}

// BudgetRange is the client's spending band in local currency.
type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DecisionContext is the purchase context a persona carries into a call.
type DecisionContext struct {
	BudgetRange           BudgetRange `json:"budgetRange"`
	Timeframe             string      `json:"timeframe"`       // immediate, short_term, long_term, indefinite
	PriorExperience       string      `json:"priorExperience"` // none, bad, neutral, positive
	CompetitorsConsidered []string    `json:"competitorsConsidered"`
	KeyDecisionCriteria   []string    `json:"keyDecisionCriteria"`
}

// Profile is a simulated client. Psychology and DecisionContext are
// optional; use ResolvePsychology for defaulted access.
type Profile struct {
	Name               string           `json:"name"`
	Age                int              `json:"age"`
	Location           string           `json:"location"`
	SocioeconomicLevel string           `json:"socioeconomicLevel"`
	EducationLevel     string           `json:"educationLevel"`
	Occupation         string           `json:"occupation"`
	Motivations        []string         `json:"motivations"`
	Pains              []string         `json:"pains"`
	PersonalityTraits  []string         `json:"personalityTraits"`
	PreferredChannel   string           `json:"preferredChannel"`
	BriefStory         string           `json:"briefStory"`
	CallAttitude       string           `json:"callAttitude"`
	Psychology         *Psychology      `json:"psychology,omitempty"`
	DecisionContext    *DecisionContext `json:"decisionContext,omitempty"`
}

// TargetProfile describes the kind of client the seller wants to practice on.
type TargetProfile struct {
	AgeRange           string   `json:"ageRange"`
	Gender             string   `json:"gender,omitempty"`
	Location           string   `json:"location"`
	SocioeconomicLevel string   `json:"socioeconomicLevel"`
	EducationLevel     string   `json:"educationLevel"`
	Pains              []string `json:"pains"`
	Motivations        []string `json:"motivations"`
	PreferredChannel   string   `json:"preferredChannel"`
	DecisionStyle      string   `json:"decisionStyle"`
}

// SimulationPreferences tune the session difficulty and style.
type SimulationPreferences struct {
	MaxDurationMinutes int       `json:"maxDurationMinutes"`
	ClientIntensity    Intensity `json:"clientIntensity"`
	Realism            Realism   `json:"realism"`
	AllowHangups       bool      `json:"allowHangups"`
}

// Scenario is the full configuration of a practice session.
type Scenario struct {
	ProductName           string                `json:"productName"`
	Description           string                `json:"description"`
	PriceDetails          string                `json:"priceDetails,omitempty"`
	CallObjective         string                `json:"callObjective"`
	ContactType           ContactType           `json:"contactType"`
	TargetProfile         TargetProfile         `json:"targetProfile"`
	SimulationPreferences SimulationPreferences `json:"simulationPreferences"`
}

// ResolvePsychology returns the profile's psychology with all optional
// pieces defaulted. Callers get a complete value and never re-default.
func ResolvePsychology(p *Profile) Psychology {
	if p != nil && p.Psychology != nil {
		resolved := *p.Psychology
		if resolved.CommunicationStyle.Verbosity == "" {
			resolved.CommunicationStyle.Verbosity = "moderate"
		}
		return resolved
	}
	return Psychology{
		BigFive: BigFive{
			Openness:          50,
			Conscientiousness: 50,
			Extraversion:      50,
			Agreeableness:     50,
			Neuroticism:       50,
		},
		SalesProfile: SalesProfile{
			RiskTolerance:    50,
			DecisionSpeed:    50,
			AuthorityLevel:   50,
			PriceSensitivity: 50,
			TrustThreshold:   50,
		},
		CommunicationStyle: CommunicationStyle{
			Verbosity:           "moderate",
			Formality:           "professional",
			Directness:          "balanced",
			EmotionalExpression: "moderate",
		},
		EmotionalBaseline: EmotionalBaseline{
			Valence:    0,
			Arousal:    50,
			Trust:      40,
			Engagement: 50,
		},
	}
}
