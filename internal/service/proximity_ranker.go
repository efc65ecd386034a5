package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
	"github.com/emergency-assist/hospital-recommender/pkg/geo"
)

const (
	distanceTieWindowKm = 0.5
	specialtyBonus      = 20.0
)

// specialtyRule awards the specialty bonus when any keyword appears in the
// condition text and the provider lists the specialty. Only the first rule
// whose keywords match is consulted.
type specialtyRule struct {
	keywords  []string
	specialty string
}

var specialtyRules = []specialtyRule{
	{keywords: []string{"cardiac", "heart"}, specialty: "Cardiology"},
	{keywords: []string{"breathing", "respiratory"}, specialty: "Pulmonology"},
	{keywords: []string{"neuro", "brain"}, specialty: "Neurology"},
	{keywords: []string{"trauma", "injury"}, specialty: "Emergency Medicine"},
	{keywords: []string{"stroke"}, specialty: "Neurology"},
}

// Filters is a fully resolved set of proximity filters.
type Filters struct {
	MaxDistanceKm              float64
	MinAvailableBeds           int
	MinDoctors                 int
	RequireEmergencyCapability bool
}

// DefaultFilters returns the stock filter values.
func DefaultFilters() Filters {
	return Filters{
		MaxDistanceKm:              30,
		MinAvailableBeds:           1,
		MinDoctors:                 1,
		RequireEmergencyCapability: true,
	}
}

// Resolve overlays the non-nil request options on f.
func (f Filters) Resolve(opts *domain.FilterOptions) Filters {
	if opts == nil {
		return f
	}
	if opts.MaxDistanceKm != nil {
		f.MaxDistanceKm = *opts.MaxDistanceKm
	}
	if opts.MinAvailableBeds != nil {
		f.MinAvailableBeds = *opts.MinAvailableBeds
	}
	if opts.MinDoctors != nil {
		f.MinDoctors = *opts.MinDoctors
	}
	if opts.RequireEmergencyCapability != nil {
		f.RequireEmergencyCapability = *opts.RequireEmergencyCapability
	}
	return f
}

// DefaultRankingConfig returns the stock ranking configuration centred on
// Islamabad.
func DefaultRankingConfig() domain.RankingConfig {
	f := DefaultFilters()
	return domain.RankingConfig{
		DefaultLocation:  domain.GeoPoint{Lat: 33.6844, Lng: 73.0479},
		DefaultLimit:     4,
		MaxDistanceKm:    f.MaxDistanceKm,
		MinAvailableBeds: f.MinAvailableBeds,
		MinDoctors:       f.MinDoctors,
		RequireEmergency: f.RequireEmergencyCapability,
		AttributeLimit:   3,
	}
}

// ProximityRanker implements the proximity-first strategy: the closest
// capable providers win, and quality only reorders providers whose distances
// are within half a kilometre of each other.
type ProximityRanker struct {
	defaultLocation domain.GeoPoint
	defaultLimit    int
	defaults        Filters
	logger          *logrus.Logger
}

// NewProximityRanker builds a ranker from the ranking configuration.
func NewProximityRanker(cfg domain.RankingConfig, logger *logrus.Logger) *ProximityRanker {
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = 4
	}
	defaults := Filters{
		MaxDistanceKm:              cfg.MaxDistanceKm,
		MinAvailableBeds:           cfg.MinAvailableBeds,
		MinDoctors:                 cfg.MinDoctors,
		RequireEmergencyCapability: cfg.RequireEmergency,
	}
	if defaults.MaxDistanceKm <= 0 {
		defaults.MaxDistanceKm = DefaultFilters().MaxDistanceKm
	}
	return &ProximityRanker{
		defaultLocation: cfg.DefaultLocation,
		defaultLimit:    limit,
		defaults:        defaults,
		logger:          logger,
	}
}

// DefaultLocation is the coordinate substituted when the caller has none.
func (r *ProximityRanker) DefaultLocation() domain.GeoPoint {
	return r.defaultLocation
}

type proximityCandidate struct {
	rec      domain.RankedRecommendation
	distance float64
}

// Rank filters, scores and orders providers around location. A nil location
// uses the configured default; limit <= 0 uses the default limit. The result
// is never nil.
func (r *ProximityRanker) Rank(providers []domain.ProviderRecord, location *domain.GeoPoint, condition string, limit int, opts *domain.FilterOptions) []domain.RankedRecommendation {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	origin := r.defaultLocation
	if location != nil {
		origin = *location
	}
	filters := r.defaults.Resolve(opts)
	bonusSpecialty := specialtyFor(condition)

	candidates := make([]proximityCandidate, 0, len(providers))
	for i := range providers {
		p := providers[i]
		if p.Location == nil {
			r.logger.WithFields(logrus.Fields{
				"provider_id":   p.ID,
				"provider_name": p.Name,
			}).Warn("Skipping provider without location")
			continue
		}

		distance := geo.Haversine(origin.Lat, origin.Lng, p.Location.Lat, p.Location.Lng)
		if !passesFilters(&p, distance, filters) {
			continue
		}

		score := proximityScore(&p, distance, bonusSpecialty)
		candidates = append(candidates, proximityCandidate{
			rec: domain.RankedRecommendation{
				ProviderRecord: p,
				DistanceKm:     geo.Round(distance, 1),
				Score:          score,
				Reason:         proximityReason(&p, distance),
				Strategy:       domain.StrategyProximityFirst,
			},
			distance: distance,
		})
	}

	orderByProximity(candidates)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]domain.RankedRecommendation, len(candidates))
	for i, c := range candidates {
		out[i] = c.rec
	}
	return out
}

func passesFilters(p *domain.ProviderRecord, distance float64, f Filters) bool {
	if distance > f.MaxDistanceKm {
		return false
	}
	if p.EmergencyCapacity.Available < f.MinAvailableBeds {
		return false
	}
	if p.EmergencyCapacity.Doctors != nil && *p.EmergencyCapacity.Doctors < f.MinDoctors {
		return false
	}
	if f.RequireEmergencyCapability && !p.HasEmergencyCapability() {
		return false
	}
	return true
}

// orderByProximity sorts by ascending distance, then groups runs of providers
// lying within distanceTieWindowKm of the run's closest member and orders each
// run by descending score. Providers more than the window apart therefore
// always keep their distance order.
func orderByProximity(candidates []proximityCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	for start := 0; start < len(candidates); {
		end := start + 1
		for end < len(candidates) && candidates[end].distance-candidates[start].distance <= distanceTieWindowKm {
			end++
		}
		run := candidates[start:end]
		sort.SliceStable(run, func(i, j int) bool {
			return run[i].rec.Score > run[j].rec.Score
		})
		start = end
	}
}

func specialtyFor(condition string) string {
	lower := strings.ToLower(condition)
	for _, rule := range specialtyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.specialty
			}
		}
	}
	return ""
}

func proximityScore(p *domain.ProviderRecord, distance float64, bonusSpecialty string) float64 {
	distanceFactor := math.Max(0, 100-distance*8)
	capacityFactor := p.EmergencyCapacity.AvailabilityRatio() * 100
	doctorFactor := float64(p.EmergencyCapacity.DoctorCount()) * 5

	bonus := 0.0
	if bonusSpecialty != "" && p.HasSpecialty(bonusSpecialty) {
		bonus = specialtyBonus
	}

	total := distanceFactor*0.6 + capacityFactor*0.2 + doctorFactor*0.1 + bonus*0.1
	return math.Round(math.Min(100, math.Max(0, total)))
}

func proximityReason(p *domain.ProviderRecord, distance float64) string {
	reasons := make([]string, 0, 3)

	km := formatKm(distance)
	switch {
	case distance < 2:
		reasons = append(reasons, "Very close - under 2km")
	case distance < 5:
		reasons = append(reasons, fmt.Sprintf("Close proximity - %s km away", km))
	case distance < 10:
		reasons = append(reasons, fmt.Sprintf("Reasonable distance - %s km away", km))
	default:
		reasons = append(reasons, fmt.Sprintf("%s km from your location", km))
	}

	c := p.EmergencyCapacity
	availability := c.AvailabilityRatio() * 100
	switch {
	case availability > 40:
		reasons = append(reasons, fmt.Sprintf("Good availability: %d beds, %d doctors", c.Available, c.DoctorCount()))
	case availability > 20:
		reasons = append(reasons, fmt.Sprintf("Moderate availability: %d beds, %d doctors", c.Available, c.DoctorCount()))
	default:
		reasons = append(reasons, fmt.Sprintf("Limited availability: %d beds, %d doctors", c.Available, c.DoctorCount()))
	}

	if c.Equipment != "" {
		items := strings.Split(c.Equipment, ", ")
		if len(items) > 2 {
			items = items[:2]
		}
		reasons = append(reasons, "Equipment: "+strings.Join(items, ", "))
	}

	return strings.Join(reasons, ". ") + "."
}

// formatKm renders a distance with at most one decimal and no trailing zero.
func formatKm(distance float64) string {
	return strconv.FormatFloat(geo.Round(distance, 1), 'f', -1, 64)
}
