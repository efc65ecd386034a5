package domain

// SymptomReport is the raw, request-scoped symptom description.
type SymptomReport struct {
	FreeText string `json:"free_text"`
}

// AlternativeCondition is a runner-up condition with its score on a 0-10
// display scale.
type AlternativeCondition struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ConditionAnalysis is the classifier's best guess for a symptom report.
// UrgencyLevel and RequiredSpecialists are always populated, falling back to
// the generic result when no condition matches with sufficient confidence.
type ConditionAnalysis struct {
	ConditionName         string                 `json:"condition_name"`
	ConditionType         ConditionCategory      `json:"condition_type"`
	UrgencyLevel          UrgencyLevel           `json:"urgency_level"`
	RequiredSpecialists   []string               `json:"required_specialists"`
	RequiredEquipment     []string               `json:"required_equipment"`
	MatchedSymptoms       []string               `json:"matched_symptoms"`
	Confidence            ConfidenceLevel        `json:"confidence"`
	AlternativeConditions []AlternativeCondition `json:"alternative_conditions,omitempty"`
}

// IsFallback reports whether the analysis is the generic low-confidence result.
func (a *ConditionAnalysis) IsFallback() bool {
	return a.ConditionType == CategoryGeneral
}

// FallbackAnalysis returns the generic result used when no condition scores
// above the reject threshold or classification fails internally.
func FallbackAnalysis() *ConditionAnalysis {
	return &ConditionAnalysis{
		ConditionName:       "Unspecified Medical Condition",
		ConditionType:       CategoryGeneral,
		UrgencyLevel:        UrgencyMedium,
		RequiredSpecialists: []string{"Emergency Medicine Specialist", "General Practitioner"},
		RequiredEquipment:   []string{"basic diagnostic equipment"},
		MatchedSymptoms:     []string{},
		Confidence:          ConfidenceLow,
	}
}
