package domain

import "time"

// GuestUserID is used when a request carries no verified identity.
const GuestUserID = "guest"

// DefaultCategories seeds a user document on first sight.
func DefaultCategories() []string {
	return []string{"Food", "Transport", "Shopping", "Bills", "Entertainment", "Other"}
}

// User is keyed by the identity provider's subject id (or "guest").
type User struct {
	ID         string    `bson:"_id" json:"id"`
	Email      string    `bson:"email" json:"email"`
	Name       string    `bson:"name" json:"name"`
	Categories []string  `bson:"categories" json:"categories"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
