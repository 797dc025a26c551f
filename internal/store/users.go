// internal/store/users.go
package store

import (
	"context"
	"database/sql"

	"bloodlink/internal/common/errors"
	"bloodlink/internal/models"
)

// UserStore resolves notification recipients and their contact details.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// GetUser loads a user by id.
func (s *UserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	var phone sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, first_name, last_name, email, phone
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &phone)
	if err == sql.ErrNoRows {
		return nil, errors.NewQueryExecutionFailedError("get_user", sql.ErrNoRows)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_user", err)
	}
	if phone.Valid {
		u.Phone = phone.String
	}
	return &u, nil
}

// PhoneForUser resolves a user's phone number: the user profile first, then
// the donor profile mobile, then the patient profile mobile. Returns "" when
// no number is on record; that is an outcome, not an error.
func (s *UserStore) PhoneForUser(ctx context.Context, userID string) (string, error) {
	var phone sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT phone FROM users WHERE id = $1`, userID).Scan(&phone)
	if err != nil && err != sql.ErrNoRows {
		return "", errors.NewQueryExecutionFailedError("user_phone", err)
	}
	if phone.Valid && phone.String != "" {
		return phone.String, nil
	}

	for _, q := range []string{
		`SELECT mobile FROM donors WHERE user_id = $1`,
		`SELECT mobile FROM patients WHERE user_id = $1`,
	} {
		var mobile sql.NullString
		err := s.db.QueryRowContext(ctx, q, userID).Scan(&mobile)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return "", errors.NewQueryExecutionFailedError("profile_phone", err)
		}
		if mobile.Valid && mobile.String != "" {
			return mobile.String, nil
		}
	}

	return "", nil
}
