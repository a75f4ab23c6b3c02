package psychology

// RelationshipStage tracks how the client perceives the seller.
type RelationshipStage string

const (
	RelStranger     RelationshipStage = "stranger"
	RelAcquaintance RelationshipStage = "acquaintance"
	RelFamiliar     RelationshipStage = "familiar"
	RelTrusted      RelationshipStage = "trusted"
)

// RelationshipState counts interaction quality alongside the stage.
type RelationshipState struct {
	Stage                RelationshipStage `json:"stage"`
	PositiveInteractions int               `json:"positiveInteractions"`
	NegativeInteractions int               `json:"negativeInteractions"`
}

// UpdateRelationshipStage moves the relationship at most one stage in
// either direction. Advancement needs both a net-positive interaction
// balance and enough trust; losing either regresses the stage.
func UpdateRelationshipStage(current RelationshipStage, positive, negative int, trust float64) RelationshipStage {
	net := positive - negative

	switch current {
	case RelStranger:
		if net >= 3 && trust > 50 {
			return RelAcquaintance
		}
	case RelAcquaintance:
		if net >= 6 && trust > 65 {
			return RelFamiliar
		}
		if net < 1 || trust < 40 {
			return RelStranger
		}
	case RelFamiliar:
		if net >= 10 && trust > 80 {
			return RelTrusted
		}
		if net < 3 || trust < 50 {
			return RelAcquaintance
		}
	case RelTrusted:
		if net < 5 || trust < 60 {
			return RelFamiliar
		}
	}

	return current
}
