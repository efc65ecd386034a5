package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
	"github.com/emergency-assist/hospital-recommender/pkg/geo"
)

// AttributeRanker implements the attribute-match strategy: providers are
// scored on capacity, on-duty specialists and equipment matching the
// analysis, proximity within 5 km and rating.
type AttributeRanker struct {
	limit  int
	logger *logrus.Logger
}

// NewAttributeRanker creates a ranker returning at most limit results
// (3 when limit <= 0).
func NewAttributeRanker(limit int, logger *logrus.Logger) *AttributeRanker {
	if limit <= 0 {
		limit = 3
	}
	return &AttributeRanker{
		limit:  limit,
		logger: logger,
	}
}

type attributeCandidate struct {
	rec   domain.RankedRecommendation
	total float64
}

// Rank scores providers against the analysis requirements. location may be
// nil, in which case no distance points are awarded and DistanceKm is 0.
func (r *AttributeRanker) Rank(providers []domain.ProviderRecord, analysis *domain.ConditionAnalysis, location *domain.GeoPoint) []domain.RankedRecommendation {
	if analysis == nil {
		analysis = domain.FallbackAnalysis()
	}

	candidates := make([]attributeCandidate, 0, len(providers))
	for i := range providers {
		p := providers[i]
		if p.Location == nil {
			r.logger.WithField("provider_id", p.ID).Warn("Skipping provider without location")
			continue
		}

		ratio := p.EmergencyCapacity.AvailabilityRatio()
		specialists := matchingSpecialists(&p, analysis.RequiredSpecialists)
		equipment := matchingEquipment(&p, analysis.RequiredEquipment)

		total := 50 + ratio*20
		total += float64(len(specialists)) * 10
		total += float64(len(equipment)) * 10
		if analysis.UrgencyLevel == domain.UrgencyCritical && ratio > 0.3 {
			total += 20
		}

		distance := 0.0
		if location != nil {
			distance = geo.Haversine(location.Lat, location.Lng, p.Location.Lat, p.Location.Lng)
			total += math.Max(0, 20-(distance/5)*20)
		}
		total += p.Rating * 3

		candidates = append(candidates, attributeCandidate{
			rec: domain.RankedRecommendation{
				ProviderRecord: p,
				DistanceKm:     geo.Round(distance, 1),
				Score:          math.Min(100, math.Max(0, total)),
				Reason:         attributeReason(&p, ratio, specialists, equipment),
				Strategy:       domain.StrategyAttributeMatch,
			},
			total: total,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].total > candidates[j].total
	})

	if len(candidates) > r.limit {
		candidates = candidates[:r.limit]
	}
	out := make([]domain.RankedRecommendation, len(candidates))
	for i, c := range candidates {
		out[i] = c.rec
	}
	return out
}

// matchingSpecialists returns the specializations of available doctors that
// appear in required, one entry per matching doctor.
func matchingSpecialists(p *domain.ProviderRecord, required []string) []string {
	if len(required) == 0 {
		return nil
	}
	var out []string
	for _, d := range p.Doctors {
		if d.Available && contains(required, d.Specialization) {
			out = append(out, d.Specialization)
		}
	}
	return out
}

func matchingEquipment(p *domain.ProviderRecord, required []string) []string {
	if len(required) == 0 {
		return nil
	}
	var out []string
	for _, e := range p.Equipment {
		if e.Available && contains(required, e.Name) {
			out = append(out, e.Name)
		}
	}
	return out
}

func attributeReason(p *domain.ProviderRecord, ratio float64, specialists, equipment []string) string {
	var reasons []string

	available := p.EmergencyCapacity.Available
	switch {
	case ratio > 0.5:
		reasons = append(reasons, fmt.Sprintf("Good emergency capacity (%d beds available)", available))
	case ratio > 0.2:
		reasons = append(reasons, fmt.Sprintf("Limited emergency capacity (%d beds available)", available))
	default:
		reasons = append(reasons, fmt.Sprintf("Very limited emergency capacity (only %d beds available)", available))
	}

	if len(specialists) > 0 {
		reasons = append(reasons, "Has required specialists: "+strings.Join(specialists, ", "))
	}
	if len(equipment) > 0 {
		reasons = append(reasons, "Has necessary equipment: "+strings.Join(equipment, ", "))
	}

	if len(reasons) == 0 {
		return "General emergency care available"
	}
	return strings.Join(reasons, ". ")
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
