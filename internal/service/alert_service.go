package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const (
	defaultAlertListLimit = 50
	maxAlertListLimit     = 500
)

// CreateAlertParams is the input for raising an emergency alert.
type CreateAlertParams struct {
	UserID               string                       `json:"user_id"`
	AlertType            domain.AlertType             `json:"alert_type"`
	Description          string                       `json:"description"`
	MedicalCondition     string                       `json:"medical_condition,omitempty"`
	Location             *domain.Location             `json:"location,omitempty"`
	ServiceProvider      string                       `json:"service_provider,omitempty"`
	RecommendedHospitals []domain.RecommendedHospital `json:"recommended_hospitals,omitempty"`
}

// AlertService manages the lifecycle of emergency alerts.
type AlertService struct {
	store     domain.AlertStore
	publisher domain.AlertPublisher
	exporters map[string]domain.AlertExporter
	logger    *logrus.Logger
	now       func() time.Time
}

// NewAlertService creates the service. publisher may be nil; exporters maps a
// format name such as "json" or "xlsx" to its writer.
func NewAlertService(store domain.AlertStore, publisher domain.AlertPublisher, exporters map[string]domain.AlertExporter, logger *logrus.Logger) *AlertService {
	return &AlertService{
		store:     store,
		publisher: publisher,
		exporters: exporters,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates and stores a new pending alert, then publishes it.
func (s *AlertService) Create(ctx context.Context, params *CreateAlertParams) (*domain.EmergencyAlert, error) {
	if strings.TrimSpace(params.UserID) == "" {
		return nil, domain.NewValidationError("user_id", "user id is required", params.UserID)
	}
	if !params.AlertType.IsValid() {
		return nil, domain.NewValidationError("alert_type", domain.ErrInvalidAlertType.Error(), params.AlertType)
	}
	if strings.TrimSpace(params.Description) == "" {
		return nil, domain.NewValidationError("description", "description is required", params.Description)
	}
	if params.Location != nil {
		if err := validateLocation(&domain.GeoPoint{Lat: params.Location.Lat, Lng: params.Location.Lng}); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	alert := &domain.EmergencyAlert{
		ID:                   uuid.New().String(),
		UserID:               params.UserID,
		AlertType:            params.AlertType,
		Description:          params.Description,
		MedicalCondition:     params.MedicalCondition,
		Location:             params.Location,
		Status:               domain.AlertStatusPending,
		ServiceProvider:      params.ServiceProvider,
		RecommendedHospitals: append([]domain.RecommendedHospital{}, params.RecommendedHospitals...),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.store.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("saving alert: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"alert_id":   alert.ID,
		"user_id":    alert.UserID,
		"alert_type": alert.AlertType,
	}).Info("Emergency alert created")

	publishEvent(ctx, s.publisher, s.logger, &domain.AlertEvent{
		Type:       domain.AlertEventCreated,
		Alert:      alert,
		OccurredAt: now,
	})
	return alert, nil
}

// Get returns one alert.
func (s *AlertService) Get(ctx context.Context, id string) (*domain.EmergencyAlert, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id", "alert id is required", id)
	}
	return s.store.Get(ctx, id)
}

// ListByUser returns the user's alerts, newest first.
func (s *AlertService) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.EmergencyAlert, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("user_id", "user id is required", userID)
	}
	switch {
	case limit <= 0:
		limit = defaultAlertListLimit
	case limit > maxAlertListLimit:
		limit = maxAlertListLimit
	}
	return s.store.ListByUser(ctx, userID, limit)
}

// UpdateStatus moves an alert to a new status and publishes the change.
func (s *AlertService) UpdateStatus(ctx context.Context, id string, status domain.AlertStatus) (*domain.EmergencyAlert, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id", "alert id is required", id)
	}
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", domain.ErrInvalidStatus.Error(), status)
	}

	alert, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"status":   alert.Status,
	}).Info("Emergency alert status updated")

	publishEvent(ctx, s.publisher, s.logger, &domain.AlertEvent{
		Type:       domain.AlertEventStatusChanged,
		Alert:      alert,
		OccurredAt: s.now().UTC(),
	})
	return alert, nil
}

// Export writes the user's alerts to w in the requested format.
func (s *AlertService) Export(ctx context.Context, w io.Writer, userID, format string) error {
	exporter, ok := s.exporters[strings.ToLower(format)]
	if !ok {
		return domain.NewValidationError("format", domain.ErrUnsupportedExportFmt.Error(), format)
	}

	alerts, err := s.ListByUser(ctx, userID, maxAlertListLimit)
	if err != nil {
		return err
	}
	if err := exporter.Export(w, alerts); err != nil {
		return fmt.Errorf("exporting alerts as %s: %w", format, err)
	}
	return nil
}

// SupportsExport reports whether an exporter is registered for format.
func (s *AlertService) SupportsExport(format string) bool {
	_, ok := s.exporters[strings.ToLower(format)]
	return ok
}
