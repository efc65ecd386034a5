package domain

import "time"

// RecommendedHospital is the audit trace of one recommendation.
type RecommendedHospital struct {
	HospitalID string  `json:"hospital_id"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
}

// EmergencyAlert records a request for help together with the providers that
// were recommended for it.
type EmergencyAlert struct {
	ID                   string                `json:"id"`
	UserID               string                `json:"user_id"`
	AlertType            AlertType             `json:"alert_type"`
	Description          string                `json:"description"`
	MedicalCondition     string                `json:"medical_condition,omitempty"`
	Location             *Location             `json:"location,omitempty"`
	Status               AlertStatus           `json:"status"`
	ServiceProvider      string                `json:"service_provider,omitempty"`
	RecommendedHospitals []RecommendedHospital `json:"recommended_hospitals"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// AlertEvent is published when an alert is created or changes status.
type AlertEvent struct {
	Type       string          `json:"type"`
	Alert      *EmergencyAlert `json:"alert"`
	OccurredAt time.Time       `json:"occurred_at"`
}

const (
	AlertEventCreated       = "alert.created"
	AlertEventStatusChanged = "alert.status_changed"
)
