package domain

import "time"

// User is an account able to log in and act on tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Summary strips credentials from the user.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// UserSummary is the public projection of a user embedded in ticket and comment views.
type UserSummary struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}
