package domain

import "time"

// User represents a registered member of the network.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
	CreatedAt    time.Time
}
