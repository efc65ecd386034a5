package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const hospitalColumns = `id, name, lat, lng, address, contact_number, email,
	total_beds, available_beds, doctors_on_duty, equipment_summary,
	specialties, doctors, equipment, rating, is_active`

// HospitalRepository is the PostgreSQL-backed provider catalog.
type HospitalRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewHospitalRepository creates a new hospital repository
func NewHospitalRepository(db *pgxpool.Pool, logger *logrus.Logger) *HospitalRepository {
	return &HospitalRepository{
		db:  db,
		log: logger,
	}
}

// ListActiveProviders returns every active hospital ordered by id.
func (r *HospitalRepository) ListActiveProviders(ctx context.Context) ([]domain.ProviderRecord, error) {
	query := `SELECT ` + hospitalColumns + ` FROM hospitals WHERE is_active = TRUE ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to list active hospitals")
		return nil, fmt.Errorf("%w: listing hospitals: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	providers := make([]domain.ProviderRecord, 0)
	for rows.Next() {
		p, err := scanHospital(rows)
		if err != nil {
			r.log.WithError(err).Error("Failed to scan hospital row")
			return nil, fmt.Errorf("%w: scanning hospital: %v", domain.ErrCatalogUnavailable, err)
		}
		providers = append(providers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating hospitals: %v", domain.ErrCatalogUnavailable, err)
	}

	return providers, nil
}

// GetProvider retrieves one hospital by id, active or not.
func (r *HospitalRepository) GetProvider(ctx context.Context, id string) (*domain.ProviderRecord, error) {
	query := `SELECT ` + hospitalColumns + ` FROM hospitals WHERE id = $1`

	p, err := scanHospital(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("hospital %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"hospital_id": id,
			"error":       err,
		}).Error("Failed to get hospital")
		return nil, fmt.Errorf("%w: getting hospital: %v", domain.ErrCatalogUnavailable, err)
	}

	return p, nil
}

// Upsert inserts the hospital or replaces the stored record with the same id.
func (r *HospitalRepository) Upsert(ctx context.Context, p *domain.ProviderRecord) error {
	if err := p.Validate(); err != nil {
		return err
	}
	args, err := hospitalArgs(p)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, upsertHospitalSQL, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"hospital_id": p.ID,
			"error":       err,
		}).Error("Failed to upsert hospital")
		return fmt.Errorf("upserting hospital %s: %w", p.ID, err)
	}
	return nil
}

// UpsertAll writes every record in a single transaction.
func (r *HospitalRepository) UpsertAll(ctx context.Context, providers []domain.ProviderRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i := range providers {
		p := &providers[i]
		if err := p.Validate(); err != nil {
			return err
		}
		args, err := hospitalArgs(p)
		if err != nil {
			return err
		}
		batch.Queue(upsertHospitalSQL, args...)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing hospitals: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing hospitals: %w", err)
	}

	r.log.WithField("count", len(providers)).Info("Hospitals upserted")
	return nil
}

// UpdateCapacity sets the available bed count of a hospital.
func (r *HospitalRepository) UpdateCapacity(ctx context.Context, id string, available int) error {
	query := `
		UPDATE hospitals
		SET available_beds = $2, updated_at = NOW()
		WHERE id = $1 AND $2 BETWEEN 0 AND total_beds`

	result, err := r.db.Exec(ctx, query, id, available)
	if err != nil {
		return fmt.Errorf("updating capacity of %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		if _, getErr := r.GetProvider(ctx, id); getErr != nil {
			return getErr
		}
		return domain.NewValidationError("available", "must be between 0 and the total bed count", available)
	}

	r.log.WithFields(logrus.Fields{
		"hospital_id": id,
		"available":   available,
	}).Debug("Hospital capacity updated")
	return nil
}

const upsertHospitalSQL = `
	INSERT INTO hospitals (` + hospitalColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		address = EXCLUDED.address,
		contact_number = EXCLUDED.contact_number,
		email = EXCLUDED.email,
		total_beds = EXCLUDED.total_beds,
		available_beds = EXCLUDED.available_beds,
		doctors_on_duty = EXCLUDED.doctors_on_duty,
		equipment_summary = EXCLUDED.equipment_summary,
		specialties = EXCLUDED.specialties,
		doctors = EXCLUDED.doctors,
		equipment = EXCLUDED.equipment,
		rating = EXCLUDED.rating,
		is_active = EXCLUDED.is_active,
		updated_at = NOW()`

func hospitalArgs(p *domain.ProviderRecord) ([]interface{}, error) {
	doctors, err := json.Marshal(nonNilDoctors(p.Doctors))
	if err != nil {
		return nil, fmt.Errorf("marshaling doctors: %w", err)
	}
	equipment, err := json.Marshal(nonNilEquipment(p.Equipment))
	if err != nil {
		return nil, fmt.Errorf("marshaling equipment: %w", err)
	}

	var lat, lng *float64
	address := ""
	if p.Location != nil {
		lat, lng = &p.Location.Lat, &p.Location.Lng
		address = p.Location.Address
	}
	specialties := p.Specialties
	if specialties == nil {
		specialties = []string{}
	}

	return []interface{}{
		p.ID, p.Name, lat, lng, address, p.ContactNumber, p.Email,
		p.EmergencyCapacity.Total, p.EmergencyCapacity.Available,
		p.EmergencyCapacity.Doctors, p.EmergencyCapacity.Equipment,
		specialties, doctors, equipment, p.Rating, p.IsActive,
	}, nil
}

func scanHospital(row pgx.Row) (*domain.ProviderRecord, error) {
	var (
		p                  domain.ProviderRecord
		lat, lng           *float64
		address            string
		doctors, equipment []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &lat, &lng, &address, &p.ContactNumber, &p.Email,
		&p.EmergencyCapacity.Total, &p.EmergencyCapacity.Available,
		&p.EmergencyCapacity.Doctors, &p.EmergencyCapacity.Equipment,
		&p.Specialties, &doctors, &equipment, &p.Rating, &p.IsActive,
	)
	if err != nil {
		return nil, err
	}

	if lat != nil && lng != nil {
		p.Location = &domain.Location{Lat: *lat, Lng: *lng, Address: address}
	}
	if err := json.Unmarshal(doctors, &p.Doctors); err != nil {
		return nil, fmt.Errorf("decoding doctors of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal(equipment, &p.Equipment); err != nil {
		return nil, fmt.Errorf("decoding equipment of %s: %w", p.ID, err)
	}
	return &p, nil
}

func nonNilDoctors(d []domain.Doctor) []domain.Doctor {
	if d == nil {
		return []domain.Doctor{}
	}
	return d
}

func nonNilEquipment(e []domain.EquipmentItem) []domain.EquipmentItem {
	if e == nil {
		return []domain.EquipmentItem{}
	}
	return e
}
