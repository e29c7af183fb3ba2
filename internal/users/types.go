package users

import "time"

// User is a persisted user row.
type User struct {
	ID          int64
	Username    string
	FirstName   string
	LastName    string
	Phone       string
	DateOfBirth time.Time
	LastLogin   *time.Time
	IsActive    bool
	RoleID      int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Role is a persisted role row.
type Role struct {
	ID          int64
	Name        string
	Description string
}

// Profile is the public shape of a user.
type Profile struct {
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
}

// ProfilePatch carries the profile fields to change; nil fields are left
// untouched.
type ProfilePatch struct {
	Username    *string
	FirstName   *string
	LastName    *string
	Phone       *string
	DateOfBirth *time.Time
}

const dateLayout = "2006-01-02"

// ProfileOf serializes a user for API responses.
func ProfileOf(u *User) Profile {
	return Profile{
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		DateOfBirth: u.DateOfBirth.Format(dateLayout),
	}
}
