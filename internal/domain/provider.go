package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GeoPoint is a latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lng float64 `json:"lng" mapstructure:"lng"`
}

// UnmarshalJSON requires both coordinates so a half-given point is rejected
// instead of decoding as zero.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Lat == nil || raw.Lng == nil {
		return NewValidationError("user_location", "latitude and longitude must be given together", string(data))
	}
	p.Lat, p.Lng = *raw.Lat, *raw.Lng
	return nil
}

// Location is a provider's address with coordinates.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// Point returns the coordinates of the location.
func (l Location) Point() GeoPoint {
	return GeoPoint{Lat: l.Lat, Lng: l.Lng}
}

// EmergencyCapacity describes the emergency department of a provider.
// Doctors is nil when the provider does not track an on-duty doctor count.
type EmergencyCapacity struct {
	Total     int    `json:"total"`
	Available int    `json:"available"`
	Doctors   *int   `json:"doctors,omitempty"`
	Equipment string `json:"equipment,omitempty"`
}

// DoctorCount returns the tracked doctor count, or 0 when untracked.
func (c EmergencyCapacity) DoctorCount() int {
	if c.Doctors == nil {
		return 0
	}
	return *c.Doctors
}

// AvailabilityRatio is available/total, or 0 when total is not positive.
func (c EmergencyCapacity) AvailabilityRatio() float64 {
	if c.Total <= 0 {
		return 0
	}
	return float64(c.Available) / float64(c.Total)
}

// Doctor is an individual clinician on a provider's roster.
type Doctor struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Available      bool   `json:"available"`
}

// EquipmentItem is a named piece of equipment and whether it is usable.
type EquipmentItem struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// ProviderRecord is a hospital or clinic in the catalog. A nil Location marks
// a malformed record that rankers skip.
type ProviderRecord struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Location          *Location         `json:"location,omitempty"`
	EmergencyCapacity EmergencyCapacity `json:"emergency_capacity"`
	Specialties       []string          `json:"specialties"`
	ContactNumber     string            `json:"contact_number,omitempty"`
	Email             string            `json:"email,omitempty"`
	Doctors           []Doctor          `json:"doctors,omitempty"`
	Equipment         []EquipmentItem   `json:"equipment,omitempty"`
	Rating            float64           `json:"rating"`
	IsActive          bool              `json:"is_active"`
}

// HasSpecialty reports whether the provider lists the given specialty.
func (p *ProviderRecord) HasSpecialty(specialty string) bool {
	for _, s := range p.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}

// HasEmergencyCapability is true when the provider lists Emergency Medicine
// or its equipment description mentions emergency or ICU facilities.
func (p *ProviderRecord) HasEmergencyCapability() bool {
	if p.HasSpecialty("Emergency Medicine") {
		return true
	}
	equipment := strings.ToLower(p.EmergencyCapacity.Equipment)
	return strings.Contains(equipment, "emergency") || strings.Contains(equipment, "icu")
}

// Validate checks the capacity invariants of the record.
func (p *ProviderRecord) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidProvider)
	}
	c := p.EmergencyCapacity
	if c.Total < 0 || c.Available < 0 {
		return fmt.Errorf("%w: %s has negative capacity", ErrInvalidProvider, p.ID)
	}
	if c.Available > c.Total {
		return fmt.Errorf("%w: %s has %d available of %d total beds", ErrInvalidProvider, p.ID, c.Available, c.Total)
	}
	if c.Doctors != nil && *c.Doctors < 0 {
		return fmt.Errorf("%w: %s has negative doctor count", ErrInvalidProvider, p.ID)
	}
	return nil
}

// RankedRecommendation is a provider scored for one request.
type RankedRecommendation struct {
	ProviderRecord
	DistanceKm float64         `json:"distance_km"`
	Score      float64         `json:"score"`
	Reason     string          `json:"reason"`
	Strategy   RankingStrategy `json:"strategy"`
}

// FilterOptions narrows the proximity-first candidate set. Nil fields take
// the configured defaults.
type FilterOptions struct {
	MaxDistanceKm              *float64 `json:"max_distance_km,omitempty"`
	MinAvailableBeds           *int     `json:"min_available_beds,omitempty"`
	MinDoctors                 *int     `json:"min_doctors,omitempty"`
	RequireEmergencyCapability *bool    `json:"require_emergency_capability,omitempty"`
}
