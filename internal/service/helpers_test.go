package service

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func boolPtr(v bool) *bool          { return &v }

var islamabad = domain.GeoPoint{Lat: 33.6844, Lng: 73.0479}

func shifaHospital() domain.ProviderRecord {
	return domain.ProviderRecord{
		ID:   "hosp2",
		Name: "Shifa International Hospital",
		Location: &domain.Location{
			Lat:     33.6844,
			Lng:     73.0479,
			Address: "Sector H-8/4, Islamabad",
		},
		EmergencyCapacity: domain.EmergencyCapacity{
			Total:     40,
			Available: 12,
			Doctors:   intPtr(6),
			Equipment: "ICU, CT Scan, X-Ray, Emergency Ventilators",
		},
		Specialties: []string{"Cardiology", "Oncology", "Emergency Medicine"},
		IsActive:    true,
	}
}

// genericClinic sits roughly 20 km south of central Islamabad.
func genericClinic() domain.ProviderRecord {
	return domain.ProviderRecord{
		ID:   "clinic-far",
		Name: "Roadside Emergency Clinic",
		Location: &domain.Location{
			Lat: 33.5045,
			Lng: 73.0479,
		},
		EmergencyCapacity: domain.EmergencyCapacity{
			Total:     10,
			Available: 2,
			Doctors:   intPtr(1),
			Equipment: "Emergency Ward",
		},
		Specialties: []string{"Emergency Medicine"},
		IsActive:    true,
	}
}

func providerAt(id string, lat, lng float64, available, total, doctors int) domain.ProviderRecord {
	return domain.ProviderRecord{
		ID:       id,
		Name:     "Provider " + id,
		Location: &domain.Location{Lat: lat, Lng: lng},
		EmergencyCapacity: domain.EmergencyCapacity{
			Total:     total,
			Available: available,
			Doctors:   intPtr(doctors),
			Equipment: "ICU, Emergency Ward",
		},
		Specialties: []string{"Emergency Medicine"},
		IsActive:    true,
	}
}
