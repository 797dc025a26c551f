// internal/models/user.go
package models

// User is the notification recipient. Phone may be empty; the SMS sender
// falls back to donor and patient profile lookups.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}
