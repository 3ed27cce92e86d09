package models

import "time"

// User represents a record from the "users" auth collection.
type User struct {
	ID       string    `db:"id" json:"id"`
	Email    string    `db:"email" json:"email"`
	Username string    `db:"username" json:"username"`
	Name     string    `db:"name" json:"name"`
	Avatar   string    `db:"avatar" json:"avatar"`
	Verified bool      `db:"verified" json:"verified"`
	Created  time.Time `db:"created" json:"created"`
	Updated  time.Time `db:"updated" json:"updated"`
}

// DisplayName prefers the profile name over the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
