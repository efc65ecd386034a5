package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

// RecommendationAudit is one recommendation made for an identified user.
type RecommendationAudit struct {
	UserID          string
	Description     string
	Location        *domain.GeoPoint
	Analysis        *domain.ConditionAnalysis
	Recommendations []domain.RankedRecommendation
}

// AuditRecorder persists recommendations as emergency alerts and announces
// them on the alert publisher.
type AuditRecorder struct {
	store     domain.AlertStore
	publisher domain.AlertPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

// NewAuditRecorder creates a recorder. publisher may be nil.
func NewAuditRecorder(store domain.AlertStore, publisher domain.AlertPublisher, logger *logrus.Logger) *AuditRecorder {
	return &AuditRecorder{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordRecommendation stores the recommendation as a pending medical alert.
// A publish failure is logged and does not fail the call.
func (a *AuditRecorder) RecordRecommendation(ctx context.Context, entry RecommendationAudit) (*domain.EmergencyAlert, error) {
	if entry.UserID == "" {
		return nil, domain.NewValidationError("user_id", "user id is required for audit", entry.UserID)
	}

	now := a.now().UTC()
	alert := &domain.EmergencyAlert{
		ID:                   uuid.New().String(),
		UserID:               entry.UserID,
		AlertType:            domain.AlertTypeMedicalAssistance,
		Description:          entry.Description,
		Status:               domain.AlertStatusPending,
		RecommendedHospitals: make([]domain.RecommendedHospital, 0, len(entry.Recommendations)),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if entry.Analysis != nil {
		alert.MedicalCondition = entry.Analysis.ConditionName
	}
	if entry.Location != nil {
		alert.Location = &domain.Location{Lat: entry.Location.Lat, Lng: entry.Location.Lng}
	}
	for _, r := range entry.Recommendations {
		alert.RecommendedHospitals = append(alert.RecommendedHospitals, domain.RecommendedHospital{
			HospitalID: r.ID,
			Score:      r.Score,
			Reason:     r.Reason,
		})
	}

	if err := a.store.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("saving recommendation audit: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"alert_id":  alert.ID,
		"user_id":   alert.UserID,
		"condition": alert.MedicalCondition,
		"hospitals": len(alert.RecommendedHospitals),
	}).Info("Recommendation recorded")

	publishEvent(ctx, a.publisher, a.logger, &domain.AlertEvent{
		Type:       domain.AlertEventCreated,
		Alert:      alert,
		OccurredAt: now,
	})

	return alert, nil
}

func publishEvent(ctx context.Context, publisher domain.AlertPublisher, logger *logrus.Logger, event *domain.AlertEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"event":    event.Type,
			"alert_id": event.Alert.ID,
		}).Warn("Failed to publish alert event")
	}
}
