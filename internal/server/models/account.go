// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a credential record of the built-in identity provider. Its ID
// is the durable principal and doubles as the profile id.
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
