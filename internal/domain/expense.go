package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expense is the structured record produced by extraction and stored per user.
// CreatedAt is assigned by the store on insert; the parse-expense response
// echoes the record before insertion, so the field stays nil there.
type Expense struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"user_id" json:"-"`
	Item      string             `bson:"item" json:"item"`
	Amount    float64            `bson:"amount" json:"amount"`
	Category  string             `bson:"category" json:"category"`
	Currency  string             `bson:"currency" json:"currency"` // ISO-style code, e.g. "USD"
	Date      string             `bson:"date" json:"date"`         // YYYY-MM-DD
	Note      string             `bson:"note" json:"note"`
	CreatedAt *time.Time         `bson:"created_at,omitempty" json:"created_at,omitempty"`
}
