package service

import (
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const (
	// rejectThreshold is the minimum winning score for a non-generic result.
	rejectThreshold = 0.5
	// alternativeThreshold is the minimum score of a runner-up to be reported.
	alternativeThreshold = 0.5
	repeatMentionBonus   = 0.2
	maxAlternatives      = 2
)

// SymptomClassifier maps free text to a ConditionAnalysis using weighted
// phrase matching over a SymptomTable.
type SymptomClassifier struct {
	table  *SymptomTable
	logger *logrus.Logger
}

// NewSymptomClassifier creates a classifier; a nil table selects the default table.
func NewSymptomClassifier(table *SymptomTable, logger *logrus.Logger) *SymptomClassifier {
	if table == nil {
		table = DefaultSymptomTable()
	}
	return &SymptomClassifier{
		table:  table,
		logger: logger,
	}
}

type conditionScore struct {
	definition *ConditionDefinition
	score      float64
	matched    []string
}

// Classify analyzes free text. Blank text is rejected with a ValidationError;
// any other input yields an analysis, the generic fallback when nothing
// scores above the reject threshold or scoring fails internally.
func (c *SymptomClassifier) Classify(text string) (analysis *domain.ConditionAnalysis, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("free_text", "symptom description is required", text)
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.WithField("panic", r).Error("Symptom classification failed, returning generic analysis")
			analysis, err = domain.FallbackAnalysis(), nil
		}
	}()

	scores := c.scoreConditions(strings.ToLower(text))

	// Stable sort keeps declaration order among equal scores
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	top := scores[0]
	if top.score < rejectThreshold {
		c.logger.WithField("top_score", top.score).Debug("No condition matched with sufficient confidence")
		return domain.FallbackAnalysis(), nil
	}

	analysis = &domain.ConditionAnalysis{
		ConditionName:       top.definition.Name,
		ConditionType:       top.definition.Category,
		UrgencyLevel:        top.definition.Urgency,
		RequiredSpecialists: cloneStrings(top.definition.Specialists),
		RequiredEquipment:   cloneStrings(top.definition.Equipment),
		MatchedSymptoms:     top.matched,
		Confidence:          confidenceFor(top.score),
	}
	if len(analysis.MatchedSymptoms) == 0 {
		analysis.MatchedSymptoms = []string{"symptoms consistent with " + top.definition.Name}
	}

	for _, runnerUp := range scores[1:min(len(scores), 1+maxAlternatives)] {
		if runnerUp.score > alternativeThreshold {
			analysis.AlternativeConditions = append(analysis.AlternativeConditions, domain.AlternativeCondition{
				Name:  runnerUp.definition.Name,
				Score: int(math.Round(runnerUp.score * 10)),
			})
		}
	}

	c.logger.WithFields(logrus.Fields{
		"condition":    analysis.ConditionName,
		"category":     analysis.ConditionType,
		"urgency":      analysis.UrgencyLevel,
		"confidence":   analysis.Confidence,
		"score":        top.score,
		"alternatives": len(analysis.AlternativeConditions),
	}).Debug("Symptom classification completed")

	return analysis, nil
}

// scoreConditions scores every condition against already lower-cased text.
func (c *SymptomClassifier) scoreConditions(lower string) []conditionScore {
	scores := make([]conditionScore, len(c.table.conditions))

	for i := range c.table.conditions {
		def := &c.table.conditions[i]
		score := 0.0
		matched := []string{}

		for _, phrase := range def.Features {
			weight, _ := c.table.Weight(phrase)
			occurrences := strings.Count(lower, phrase)
			if occurrences == 0 {
				continue
			}
			score += weight
			matched = append(matched, phrase)

			if occurrences > 1 {
				score += repeatMentionBonus * float64(occurrences-1)
			}
		}

		scores[i] = conditionScore{
			definition: def,
			score:      score * urgencyMultiplier(def.Urgency),
			matched:    matched,
		}
	}

	return scores
}

func urgencyMultiplier(u domain.UrgencyLevel) float64 {
	switch u {
	case domain.UrgencyHigh:
		return 1.3
	case domain.UrgencyMediumHigh:
		return 1.2
	default:
		return 1.0
	}
}

func confidenceFor(score float64) domain.ConfidenceLevel {
	switch {
	case score > 2:
		return domain.ConfidenceHigh
	case score > 1:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
