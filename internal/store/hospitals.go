// internal/store/hospitals.go
package store

import (
	"context"
	"database/sql"

	"bloodlink/internal/common/errors"
	"bloodlink/internal/models"
)

const hospitalColumns = `id, name, address, city, state, contact_phone,
	contact_email, emergency_contact, latitude, longitude,
	blood_bank_available, is_partner`

// HospitalStore reads the partner hospital directory.
type HospitalStore struct {
	db *sql.DB
}

func NewHospitalStore(db *sql.DB) *HospitalStore {
	return &HospitalStore{db: db}
}

// PartnerHospitalsWithCoordinates returns partner hospitals that have both
// coordinates set, in stable id order.
func (s *HospitalStore) PartnerHospitalsWithCoordinates(ctx context.Context) ([]models.Hospital, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+hospitalColumns+`
		FROM hospitals
		WHERE is_partner = TRUE AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("partner_hospitals", err)
	}
	defer rows.Close()

	return scanHospitals(rows)
}

// SearchPartners is the SQL fallback for directory search when elasticsearch
// is not configured. Matches name, city and address case-insensitively.
func (s *HospitalStore) SearchPartners(ctx context.Context, query, city string) ([]models.Hospital, error) {
	pattern := "%" + query + "%"
	cityPattern := "%" + city + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+hospitalColumns+`
		FROM hospitals
		WHERE is_partner = TRUE
		  AND (name ILIKE $1 OR city ILIKE $1 OR address ILIKE $1)
		  AND ($2 = '%%' OR city ILIKE $2)
		ORDER BY name`,
		pattern, cityPattern)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("search_hospitals", err)
	}
	defer rows.Close()

	return scanHospitals(rows)
}

func scanHospitals(rows *sql.Rows) ([]models.Hospital, error) {
	var hospitals []models.Hospital
	for rows.Next() {
		var h models.Hospital
		var lat, lng sql.NullFloat64
		if err := rows.Scan(
			&h.ID, &h.Name, &h.Address, &h.City, &h.State, &h.ContactPhone,
			&h.ContactEmail, &h.EmergencyContact, &lat, &lng,
			&h.BloodBankAvailable, &h.IsPartner,
		); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan_hospital", err)
		}
		if lat.Valid && lng.Valid {
			latV, lngV := lat.Float64, lng.Float64
			h.Latitude = &latV
			h.Longitude = &lngV
		}
		hospitals = append(hospitals, h)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate_hospitals", err)
	}
	return hospitals, nil
}
