// Package alerts persists, exports and publishes emergency alerts.
package alerts

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const alertColumns = `id, user_id, alert_type, description, medical_condition,
	lat, lng, address, status, service_provider, recommended_hospitals,
	created_at, updated_at`

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanAlert scans a row into an EmergencyAlert.
func scanAlert(s scanner) (*domain.EmergencyAlert, error) {
	a := &domain.EmergencyAlert{}
	var (
		alertType, status string
		lat, lng          sql.NullFloat64
		address           string
		recommended       []byte
	)

	err := s.Scan(
		&a.ID, &a.UserID, &alertType, &a.Description, &a.MedicalCondition,
		&lat, &lng, &address, &status, &a.ServiceProvider, &recommended,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.AlertType = domain.AlertType(alertType)
	a.Status = domain.AlertStatus(status)
	if lat.Valid && lng.Valid {
		a.Location = &domain.Location{Lat: lat.Float64, Lng: lng.Float64, Address: address}
	}
	a.RecommendedHospitals = []domain.RecommendedHospital{}
	if len(recommended) > 0 {
		if err := json.Unmarshal(recommended, &a.RecommendedHospitals); err != nil {
			return nil, fmt.Errorf("decoding recommended hospitals: %w", err)
		}
	}
	return a, nil
}

// alertArgs flattens an alert into column order, with recommended
// hospitals encoded as JSON.
func alertArgs(a *domain.EmergencyAlert) ([]interface{}, error) {
	recommended := a.RecommendedHospitals
	if recommended == nil {
		recommended = []domain.RecommendedHospital{}
	}
	encoded, err := json.Marshal(recommended)
	if err != nil {
		return nil, fmt.Errorf("encoding recommended hospitals: %w", err)
	}

	var lat, lng sql.NullFloat64
	address := ""
	if a.Location != nil {
		lat = sql.NullFloat64{Float64: a.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: a.Location.Lng, Valid: true}
		address = a.Location.Address
	}

	return []interface{}{
		a.ID, a.UserID, string(a.AlertType), a.Description, a.MedicalCondition,
		lat, lng, address, string(a.Status), a.ServiceProvider, string(encoded),
		a.CreatedAt, a.UpdatedAt,
	}, nil
}
