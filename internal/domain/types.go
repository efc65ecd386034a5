// Package domain contains the core entities of the hospital recommendation
// service: condition analyses produced from free-text symptom reports,
// provider (hospital/clinic) records, ranked recommendations and the
// emergency alerts that audit them.
package domain

import (
	"errors"
	"fmt"
)

// ConditionCategory is the classification bucket a symptom report falls into.
type ConditionCategory string

const (
	CategoryHeart            ConditionCategory = "HEART"
	CategoryNeurological     ConditionCategory = "NEUROLOGICAL"
	CategoryOrthopedic       ConditionCategory = "ORTHOPEDIC"
	CategoryPulmonary        ConditionCategory = "PULMONARY"
	CategoryGastrointestinal ConditionCategory = "GASTROINTESTINAL"
	CategoryImmunological    ConditionCategory = "IMMUNOLOGICAL"
	CategoryTrauma           ConditionCategory = "TRAUMA"
	CategoryGeneral          ConditionCategory = "GENERAL"
)

// UrgencyLevel is an ordinal severity tag attached to a condition. It is a
// display and priority hint, not a clinical judgment.
type UrgencyLevel string

const (
	UrgencyLow        UrgencyLevel = "LOW"
	UrgencyMedium     UrgencyLevel = "MEDIUM"
	UrgencyMediumHigh UrgencyLevel = "MEDIUM-HIGH"
	UrgencyHigh       UrgencyLevel = "HIGH"
	UrgencyCritical   UrgencyLevel = "CRITICAL"
)

// ConfidenceLevel is derived solely from the winning classifier score.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "LOW"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceHigh   ConfidenceLevel = "HIGH"
)

// RankingStrategy names one of the two ranking variants.
type RankingStrategy string

const (
	// StrategyProximityFirst ranks by distance and breaks near-ties by score.
	StrategyProximityFirst RankingStrategy = "proximity-first"
	// StrategyAttributeMatch ranks by specialist/equipment presence, capacity and rating.
	StrategyAttributeMatch RankingStrategy = "attribute-match"
)

// AlertStatus is the lifecycle state of an EmergencyAlert.
type AlertStatus string

const (
	AlertStatusPending    AlertStatus = "PENDING"
	AlertStatusProcessing AlertStatus = "PROCESSING"
	AlertStatusCompleted  AlertStatus = "COMPLETED"
	AlertStatusCancelled  AlertStatus = "CANCELLED"
)

// AlertType distinguishes what the alert asked for.
type AlertType string

const (
	AlertTypeAmbulance           AlertType = "AMBULANCE"
	AlertTypeMedicalAssistance   AlertType = "MEDICAL_ASSISTANCE"
	AlertTypeContactNotification AlertType = "CONTACT_NOTIFICATION"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrCatalogUnavailable   = errors.New("provider catalog unavailable")
	ErrInvalidStatus        = errors.New("invalid alert status")
	ErrInvalidAlertType     = errors.New("invalid alert type")
	ErrInvalidProvider      = errors.New("invalid provider record")
	ErrUnsupportedStrategy  = errors.New("unsupported ranking strategy")
	ErrUnsupportedExportFmt = errors.New("unsupported export format")
)

// IsValid reports whether c is one of the known categories.
func (c ConditionCategory) IsValid() bool {
	switch c {
	case CategoryHeart, CategoryNeurological, CategoryOrthopedic, CategoryPulmonary,
		CategoryGastrointestinal, CategoryImmunological, CategoryTrauma, CategoryGeneral:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position of the urgency level (LOW = 1 ... CRITICAL = 5),
// or 0 for an unknown level.
func (u UrgencyLevel) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyMediumHigh:
		return 3
	case UrgencyHigh:
		return 4
	case UrgencyCritical:
		return 5
	default:
		return 0
	}
}

// IsValid reports whether u is a known urgency level.
func (u UrgencyLevel) IsValid() bool {
	return u.Rank() > 0
}

// ParseRankingStrategy maps a user supplied name to a strategy. An empty name
// selects proximity-first.
func ParseRankingStrategy(name string) (RankingStrategy, error) {
	switch RankingStrategy(name) {
	case "", StrategyProximityFirst:
		return StrategyProximityFirst, nil
	case StrategyAttributeMatch:
		return StrategyAttributeMatch, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedStrategy, name)
	}
}

// IsValid reports whether s is a known alert status.
func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusPending, AlertStatusProcessing, AlertStatusCompleted, AlertStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValid reports whether t is a known alert type.
func (t AlertType) IsValid() bool {
	switch t {
	case AlertTypeAmbulance, AlertTypeMedicalAssistance, AlertTypeContactNotification:
		return true
	default:
		return false
	}
}
