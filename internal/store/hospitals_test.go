package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hospitalRowColumns = []string{
	"id", "name", "address", "city", "state", "contact_phone",
	"contact_email", "emergency_contact", "latitude", "longitude",
	"blood_bank_available", "is_partner",
}

func TestHospitalStore_PartnerHospitalsWithCoordinates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(hospitalRowColumns).
		AddRow("h-1", "Bandra Clinic", "Hill Road", "Mumbai", "MH", "+912266001100",
			"contact@bandra.example", "+912266001199", 19.0596, 72.8295, true, true).
		AddRow("h-2", "Thane Hospital", "Station Road", "Thane", "MH", "+912225401100",
			"", "", 19.2183, 72.9781, false, true)

	mock.ExpectQuery(`FROM hospitals`).WillReturnRows(rows)

	store := NewHospitalStore(db)
	hospitals, err := store.PartnerHospitalsWithCoordinates(context.Background())

	require.NoError(t, err)
	require.Len(t, hospitals, 2)
	assert.Equal(t, "Bandra Clinic", hospitals[0].Name)
	require.NotNil(t, hospitals[0].Latitude)
	assert.InDelta(t, 19.0596, *hospitals[0].Latitude, 1e-6)
	assert.True(t, hospitals[0].HasCoordinates())
}

func TestHospitalStore_ScanHandlesNullCoordinates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(hospitalRowColumns).
		AddRow("h-1", "No Coords", "Somewhere", "Pune", "MH", "", "", "", nil, nil, false, true)

	mock.ExpectQuery(`FROM hospitals`).WillReturnRows(rows)

	store := NewHospitalStore(db)
	hospitals, err := store.SearchPartners(context.Background(), "coords", "")

	require.NoError(t, err)
	require.Len(t, hospitals, 1)
	assert.False(t, hospitals[0].HasCoordinates())
}

func TestStockStore_Snapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"bloodgroup", "unit"}).
		AddRow("A+", 50).
		AddRow("B+", 0).
		AddRow("O-", 3)

	mock.ExpectQuery(`SELECT bloodgroup, unit FROM stocks`).WillReturnRows(rows)

	store := NewStockStore(db)
	stock, err := store.Snapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 50, stock["A+"])
	assert.Equal(t, 0, stock["B+"])
	assert.Equal(t, 3, stock["O-"])
}

func TestUserStore_PhoneForUser_FallsBackToProfiles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT phone FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"phone"}).AddRow(nil))
	mock.ExpectQuery(`SELECT mobile FROM donors`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"mobile"}).AddRow("9876543210"))

	store := NewUserStore(db)
	phone, err := store.PhoneForUser(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "9876543210", phone)
}

func TestUserStore_PhoneForUser_NoNumberAnywhere(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT phone FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"phone"}).AddRow(nil))
	mock.ExpectQuery(`SELECT mobile FROM donors`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"mobile"}))
	mock.ExpectQuery(`SELECT mobile FROM patients`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"mobile"}))

	store := NewUserStore(db)
	phone, err := store.PhoneForUser(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "", phone)
}
