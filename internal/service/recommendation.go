package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const (
	msgNoProviders        = "no providers available"
	msgNoMatchingProvider = "no providers matched the requested filters"
	defaultAuditTimeout   = 5 * time.Second
)

// preferredFilters are applied when pinning a user's preferred provider.
var preferredFilters = Filters{
	MaxDistanceKm:              25,
	MinAvailableBeds:           0,
	MinDoctors:                 0,
	RequireEmergencyCapability: false,
}

// RecommendRequest is the input of a recommendation.
type RecommendRequest struct {
	FreeText            string                 `json:"free_text"`
	UserLocation        *domain.GeoPoint       `json:"user_location,omitempty"`
	Limit               int                    `json:"limit,omitempty"`
	Filters             *domain.FilterOptions  `json:"filters,omitempty"`
	Strategy            domain.RankingStrategy `json:"strategy,omitempty"`
	UserID              string                 `json:"user_id,omitempty"`
	RequiredSpecialists []string               `json:"required_specialists,omitempty"`
	RequiredEquipment   []string               `json:"required_equipment,omitempty"`
	UrgencyLevel        domain.UrgencyLevel    `json:"urgency_level,omitempty"`
	PreferredProviderID string                 `json:"preferred_provider_id,omitempty"`
}

func (r *RecommendRequest) hasStructuredRequirements() bool {
	return len(r.RequiredSpecialists) > 0 || len(r.RequiredEquipment) > 0
}

// RecommendResponse carries the analysis and the ranked providers. NoProviders
// is set whenever Recommendations is empty.
type RecommendResponse struct {
	Analysis        *domain.ConditionAnalysis     `json:"analysis"`
	Recommendations []domain.RankedRecommendation `json:"recommendations"`
	Strategy        domain.RankingStrategy        `json:"strategy"`
	NoProviders     bool                          `json:"no_providers"`
	Message         string                        `json:"message,omitempty"`
}

// RecommendationService wires the classifier, the catalog and the rankers
// together and audits recommendations made for identified users.
type RecommendationService struct {
	classifier   *SymptomClassifier
	catalog      domain.ProviderCatalog
	proximity    *ProximityRanker
	attribute    *AttributeRanker
	audit        *AuditRecorder
	auditTimeout time.Duration
	logger       *logrus.Logger

	pending sync.WaitGroup
}

// RecommendationOption customizes a RecommendationService.
type RecommendationOption func(*RecommendationService)

// WithAuditRecorder enables audit persistence for requests carrying a user id.
func WithAuditRecorder(recorder *AuditRecorder, timeout time.Duration) RecommendationOption {
	return func(s *RecommendationService) {
		s.audit = recorder
		if timeout > 0 {
			s.auditTimeout = timeout
		}
	}
}

// NewRecommendationService creates the service.
func NewRecommendationService(
	classifier *SymptomClassifier,
	catalog domain.ProviderCatalog,
	proximity *ProximityRanker,
	attribute *AttributeRanker,
	logger *logrus.Logger,
	opts ...RecommendationOption,
) *RecommendationService {
	s := &RecommendationService{
		classifier:   classifier,
		catalog:      catalog,
		proximity:    proximity,
		attribute:    attribute,
		auditTimeout: defaultAuditTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify runs the symptom classifier alone.
func (s *RecommendationService) Classify(text string) (*domain.ConditionAnalysis, error) {
	return s.classifier.Classify(text)
}

// Recommend classifies the request text and ranks the catalog with the
// requested strategy. The only error returned is a validation error; catalog
// failures produce an empty recommendation list with NoProviders set.
func (s *RecommendationService) Recommend(ctx context.Context, req *RecommendRequest) (*RecommendResponse, error) {
	strategy, err := domain.ParseRankingStrategy(string(req.Strategy))
	if err != nil {
		return nil, domain.NewValidationError("strategy", err.Error(), req.Strategy)
	}
	if req.Limit < 0 {
		return nil, domain.NewValidationError("limit", "limit must not be negative", req.Limit)
	}
	if req.UserLocation != nil {
		if err := validateLocation(req.UserLocation); err != nil {
			return nil, err
		}
	}

	analysis, err := s.analyze(req, strategy)
	if err != nil {
		return nil, err
	}

	resp := &RecommendResponse{
		Analysis: analysis,
		Strategy: strategy,
	}

	providers, err := s.catalog.ListActiveProviders(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Provider catalog unavailable, returning empty recommendations")
		resp.Recommendations = []domain.RankedRecommendation{}
		resp.NoProviders = true
		resp.Message = msgNoProviders
		return resp, nil
	}

	switch strategy {
	case domain.StrategyAttributeMatch:
		resp.Recommendations = s.attribute.Rank(providers, analysis, req.UserLocation)
	default:
		limit := req.Limit
		if limit <= 0 {
			limit = s.proximity.defaultLimit
		}
		recs := s.proximity.Rank(providers, req.UserLocation, conditionText(analysis, req.FreeText), limit, req.Filters)
		resp.Recommendations = s.pinPreferred(recs, providers, req, limit)
	}

	if len(resp.Recommendations) == 0 {
		resp.NoProviders = true
		resp.Message = msgNoMatchingProvider
		if len(providers) == 0 {
			resp.Message = msgNoProviders
		}
	}

	s.logger.WithFields(logrus.Fields{
		"strategy":        strategy,
		"condition":       analysis.ConditionName,
		"urgency":         analysis.UrgencyLevel,
		"providers":       len(providers),
		"recommendations": len(resp.Recommendations),
	}).Info("Recommendation completed")

	if req.UserID != "" && s.audit != nil {
		s.recordAsync(ctx, req, analysis, resp.Recommendations)
	}

	return resp, nil
}

// ListProviders returns the active catalog.
func (s *RecommendationService) ListProviders(ctx context.Context) ([]domain.ProviderRecord, error) {
	return s.catalog.ListActiveProviders(ctx)
}

// GetProvider returns one provider by id.
func (s *RecommendationService) GetProvider(ctx context.Context, id string) (*domain.ProviderRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id", "provider id is required", id)
	}
	return s.catalog.GetProvider(ctx, id)
}

// Drain blocks until in-flight audit writes have finished.
func (s *RecommendationService) Drain() {
	s.pending.Wait()
}

func (s *RecommendationService) analyze(req *RecommendRequest, strategy domain.RankingStrategy) (*domain.ConditionAnalysis, error) {
	if strings.TrimSpace(req.FreeText) == "" && strategy == domain.StrategyAttributeMatch && req.hasStructuredRequirements() {
		analysis := domain.FallbackAnalysis()
		analysis.ConditionName = "Specified requirements"
		analysis.RequiredSpecialists = cloneStrings(req.RequiredSpecialists)
		analysis.RequiredEquipment = cloneStrings(req.RequiredEquipment)
		if req.UrgencyLevel.IsValid() {
			analysis.UrgencyLevel = req.UrgencyLevel
		}
		return analysis, nil
	}

	analysis, err := s.classifier.Classify(req.FreeText)
	if err != nil {
		return nil, err
	}

	if strategy == domain.StrategyAttributeMatch {
		if len(req.RequiredSpecialists) > 0 {
			analysis.RequiredSpecialists = cloneStrings(req.RequiredSpecialists)
		}
		if len(req.RequiredEquipment) > 0 {
			analysis.RequiredEquipment = cloneStrings(req.RequiredEquipment)
		}
		if req.UrgencyLevel.IsValid() {
			analysis.UrgencyLevel = req.UrgencyLevel
		}
	}
	return analysis, nil
}

// pinPreferred moves the user's preferred provider to the front, ranking it
// with relaxed filters when the regular filters excluded it.
func (s *RecommendationService) pinPreferred(recs []domain.RankedRecommendation, providers []domain.ProviderRecord, req *RecommendRequest, limit int) []domain.RankedRecommendation {
	if req.PreferredProviderID == "" {
		return recs
	}

	for i, r := range recs {
		if r.ID == req.PreferredProviderID {
			pinned := append([]domain.RankedRecommendation{r}, recs[:i]...)
			return append(pinned, recs[i+1:]...)
		}
	}

	for _, p := range providers {
		if p.ID != req.PreferredProviderID {
			continue
		}
		relaxed := preferredFilters
		opts := &domain.FilterOptions{
			MaxDistanceKm:              &relaxed.MaxDistanceKm,
			MinAvailableBeds:           &relaxed.MinAvailableBeds,
			MinDoctors:                 &relaxed.MinDoctors,
			RequireEmergencyCapability: &relaxed.RequireEmergencyCapability,
		}
		ranked := s.proximity.Rank([]domain.ProviderRecord{p}, req.UserLocation, "", 1, opts)
		if len(ranked) == 0 {
			return recs
		}
		out := append(ranked, recs...)
		if len(out) > limit {
			out = out[:limit]
		}
		return out
	}

	return recs
}

func (s *RecommendationService) recordAsync(ctx context.Context, req *RecommendRequest, analysis *domain.ConditionAnalysis, recs []domain.RankedRecommendation) {
	entry := RecommendationAudit{
		UserID:          req.UserID,
		Description:     req.FreeText,
		Location:        req.UserLocation,
		Analysis:        analysis,
		Recommendations: append([]domain.RankedRecommendation(nil), recs...),
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithField("panic", r).Error("Recommendation audit panicked")
			}
		}()

		auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditTimeout)
		defer cancel()

		if _, err := s.audit.RecordRecommendation(auditCtx, entry); err != nil {
			s.logger.WithError(err).WithField("user_id", entry.UserID).Warn("Failed to record recommendation")
		}
	}()
}

// conditionText is the text the specialty bonus is matched against.
func conditionText(analysis *domain.ConditionAnalysis, freeText string) string {
	if analysis == nil || analysis.IsFallback() {
		return freeText
	}
	return analysis.ConditionName + " " + string(analysis.ConditionType)
}

func validateLocation(p *domain.GeoPoint) error {
	if p.Lat < -90 || p.Lat > 90 {
		return domain.NewValidationError("user_location.lat", "latitude must be within [-90, 90]", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return domain.NewValidationError("user_location.lng", "longitude must be within [-180, 180]", p.Lng)
	}
	return nil
}

// IsValidationError reports whether err carries a domain.ValidationError.
func IsValidationError(err error) bool {
	var verr *domain.ValidationError
	return errors.As(err, &verr)
}
