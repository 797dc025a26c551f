// internal/notify/payload.go
package notify

import (
	"sort"

	"bloodlink/internal/models"
)

// Payload carries everything a channel sender needs to render one
// notification. Hospitals is already distance-sorted and capped;
// TotalHospitals keeps the pre-cap count for the message headline.
type Payload struct {
	User           *models.User
	Hospitals      []models.RankedHospital
	BloodStock     models.Stock
	SearchRadiusKM int
	TotalHospitals int
}

// BuildPayload caps the ranked hospital list at maxHospitals while preserving
// the total found.
func BuildPayload(user *models.User, hospitals []models.RankedHospital, stock models.Stock, radiusKM, maxHospitals int) Payload {
	total := len(hospitals)
	if maxHospitals > 0 && len(hospitals) > maxHospitals {
		hospitals = hospitals[:maxHospitals]
	}
	return Payload{
		User:           user,
		Hospitals:      hospitals,
		BloodStock:     stock,
		SearchRadiusKM: radiusKM,
		TotalHospitals: total,
	}
}

// sortedBloodGroups returns the stock keys in stable alphabetical order so
// rendered messages are deterministic.
func sortedBloodGroups(stock models.Stock) []string {
	groups := make([]string, 0, len(stock))
	for g := range stock {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Outcome is one channel's delivery result. Detail is stored verbatim in the
// job error message when every channel fails.
type Outcome struct {
	OK     bool
	Detail string
}
