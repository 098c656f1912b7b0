package identity

import (
	"strings"
	"time"
)

// User is a customer account. Email is unique and stored lower-cased.
type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Country         string    `json:"country"`
	Province        string    `json:"province"`
	Address         string    `json:"address"`
	ProfileComplete bool      `json:"profile_complete"`
	Active          bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Profile holds the delivery details a customer maintains.
type Profile struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Country  string `json:"country"`
	Province string `json:"province"`
	Address  string `json:"address"`
}

// Complete reports whether every delivery field is filled in.
func (p Profile) Complete() bool {
	for _, v := range []string{p.Name, p.Phone, p.Country, p.Province, p.Address} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Profile returns the user's delivery details.
func (u User) Profile() Profile {
	return Profile{
		Name:     u.Name,
		Phone:    u.Phone,
		Country:  u.Country,
		Province: u.Province,
		Address:  u.Address,
	}
}

// ApplyProfile overwrites the delivery fields and recomputes ProfileComplete.
func (u *User) ApplyProfile(p Profile) {
	u.Name = strings.TrimSpace(p.Name)
	u.Phone = strings.TrimSpace(p.Phone)
	u.Country = strings.TrimSpace(p.Country)
	u.Province = strings.TrimSpace(p.Province)
	u.Address = strings.TrimSpace(p.Address)
	u.ProfileComplete = u.Profile().Complete()
}

// Admin is a back-office operator. Username and email are unique.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
