package geo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"bloodlink/internal/common/logger"
	"bloodlink/internal/models"
)

type stubHospitalSource struct {
	hospitals []models.Hospital
	err       error
}

func (s *stubHospitalSource) PartnerHospitalsWithCoordinates(ctx context.Context) ([]models.Hospital, error) {
	return s.hospitals, s.err
}

func hospitalAt(id, name string, lat, lng float64) models.Hospital {
	return models.Hospital{
		ID:        id,
		Name:      name,
		Latitude:  &lat,
		Longitude: &lng,
		IsPartner: true,
	}
}

func TestLocator_Nearby_FiltersAndSorts(t *testing.T) {
	// Query point: central Mumbai.
	source := &stubHospitalSource{
		hospitals: []models.Hospital{
			hospitalAt("h-far", "Delhi General", 28.6139, 77.2090),
			hospitalAt("h-near", "Bandra Clinic", 19.0596, 72.8295),
			hospitalAt("h-mid", "Thane Hospital", 19.2183, 72.9781),
		},
	}
	locator := NewLocator(source, logger.NewZapAdapter(zaptest.NewLogger(t)))

	result, err := locator.Nearby(context.Background(), 19.0760, 72.8777, 50)
	assert.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, "h-near", result[0].ID)
	assert.Equal(t, "h-mid", result[1].ID)
	assert.Less(t, result[0].DistanceKM, result[1].DistanceKM)
}

func TestLocator_Nearby_SkipsHospitalsWithoutCoordinates(t *testing.T) {
	source := &stubHospitalSource{
		hospitals: []models.Hospital{
			{ID: "h-blind", Name: "No Coordinates", IsPartner: true},
			hospitalAt("h-near", "Bandra Clinic", 19.0596, 72.8295),
		},
	}
	locator := NewLocator(source, logger.NewZapAdapter(zaptest.NewLogger(t)))

	result, err := locator.Nearby(context.Background(), 19.0760, 72.8777, 50)
	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, "h-near", result[0].ID)
}

func TestLocator_Nearby_EmptyResultIsNotAnError(t *testing.T) {
	source := &stubHospitalSource{
		hospitals: []models.Hospital{
			hospitalAt("h-far", "Delhi General", 28.6139, 77.2090),
		},
	}
	locator := NewLocator(source, logger.NewZapAdapter(zaptest.NewLogger(t)))

	result, err := locator.Nearby(context.Background(), 19.0760, 72.8777, 10)
	assert.NoError(t, err)
	assert.Empty(t, result)
}

func TestLocator_Nearby_TieKeepsInputOrder(t *testing.T) {
	// Two hospitals at the exact same location round to the same distance.
	source := &stubHospitalSource{
		hospitals: []models.Hospital{
			hospitalAt("h-first", "First Hospital", 19.0596, 72.8295),
			hospitalAt("h-second", "Second Hospital", 19.0596, 72.8295),
		},
	}
	locator := NewLocator(source, logger.NewZapAdapter(zaptest.NewLogger(t)))

	result, err := locator.Nearby(context.Background(), 19.0760, 72.8777, 50)
	assert.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, "h-first", result[0].ID)
	assert.Equal(t, "h-second", result[1].ID)
}

func TestLocator_Nearby_SourceError(t *testing.T) {
	source := &stubHospitalSource{err: errors.New("connection reset")}
	locator := NewLocator(source, logger.NewZapAdapter(zaptest.NewLogger(t)))

	_, err := locator.Nearby(context.Background(), 19.0760, 72.8777, 50)
	assert.Error(t, err)
}
