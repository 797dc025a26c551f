// internal/geo/locator.go
package geo

import (
	"context"
	"sort"

	"bloodlink/internal/common/logger"
	"bloodlink/internal/models"
)

// HospitalSource supplies the partner directory. Implemented by the SQL store.
type HospitalSource interface {
	PartnerHospitalsWithCoordinates(ctx context.Context) ([]models.Hospital, error)
}

// Locator filters and ranks partner hospitals by distance from a query point.
type Locator struct {
	hospitals HospitalSource
	logger    logger.Logger
}

func NewLocator(hospitals HospitalSource, log logger.Logger) *Locator {
	return &Locator{
		hospitals: hospitals,
		logger:    log.WithFields(map[string]interface{}{"component": "locator"}),
	}
}

// Nearby returns partner hospitals within radiusKM of the query point, each
// annotated with its rounded distance, sorted ascending by distance. Ties keep
// stable input order. Hospitals without coordinates are excluded silently; an
// empty result is a valid outcome.
func (l *Locator) Nearby(ctx context.Context, lat, lng float64, radiusKM int) ([]models.RankedHospital, error) {
	hospitals, err := l.hospitals.PartnerHospitalsWithCoordinates(ctx)
	if err != nil {
		return nil, err
	}

	nearby := make([]models.RankedHospital, 0, len(hospitals))
	for i := range hospitals {
		d := HospitalDistance(&hospitals[i], lat, lng)
		if d == nil || *d > float64(radiusKM) {
			continue
		}
		nearby = append(nearby, models.RankedHospital{
			Hospital:   hospitals[i],
			DistanceKM: RoundKM(*d),
		})
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKM < nearby[j].DistanceKM
	})

	l.logger.Debug("located hospitals", map[string]interface{}{
		"candidates": len(hospitals),
		"within":     len(nearby),
		"radiusKm":   radiusKM,
	})

	return nearby, nil
}
