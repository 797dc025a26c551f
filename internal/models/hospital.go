// internal/models/hospital.go
package models

// Hospital is a partner facility with optional coordinates. The directory is
// read-only to this service; maintenance happens elsewhere.
type Hospital struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Address            string   `json:"address"`
	City               string   `json:"city"`
	State              string   `json:"state"`
	ContactPhone       string   `json:"contact_phone"`
	ContactEmail       string   `json:"contact_email"`
	EmergencyContact   string   `json:"emergency_contact"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	BloodBankAvailable bool     `json:"blood_bank_available"`
	IsPartner          bool     `json:"is_partner"`
}

// HasCoordinates is true iff both latitude and longitude are present.
func (h *Hospital) HasCoordinates() bool {
	return h.Latitude != nil && h.Longitude != nil
}

// RankedHospital is a Hospital annotated with its distance from a query point.
// Transient: produced fresh per lookup, never persisted.
type RankedHospital struct {
	Hospital
	DistanceKM float64 `json:"distance_km"`
}

// Stock maps a blood-group label to the available unit count.
type Stock map[string]int

// StockStatusLabel classifies a unit count for human-readable output.
func StockStatusLabel(units int) string {
	switch {
	case units > 10:
		return "Available"
	case units > 0:
		return "Low Stock"
	default:
		return "Unavailable"
	}
}
