package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tazhibayda/expense-service/internal/domain"
)

var (
	ErrBadRecordID    = errors.New("bad record id")
	ErrRecordNotFound = errors.New("record not found")
)

// server-owned fields a partial update may not touch
var reservedFields = map[string]struct{}{
	"_id":        {},
	"id":         {},
	"user_id":    {},
	"created_at": {},
}

// CreateExpense stamps created_at and appends the record to the user's
// expenses. Returns the assigned document id as hex.
func (s *Store) CreateExpense(ctx context.Context, userID string, e *domain.Expense) (string, error) {
	now := time.Now().UTC()
	e.UserID = userID
	e.CreatedAt = &now

	res, err := s.colExpenses.InsertOne(ctx, e)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected inserted id type")
	}
	e.ID = oid
	return oid.Hex(), nil
}

// ListExpenses is a snapshot read of everything under the user id, newest
// first (no pagination contract).
func (s *Store) ListExpenses(ctx context.Context, userID string) ([]domain.Expense, error) {
	cur, err := s.colExpenses.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Expense{}
	for cur.Next(ctx) {
		var e domain.Expense
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

// UpdateExpense merges the given fields into the record. The document is not
// re-validated against the expense shape; only server-owned keys are dropped.
// Updating a record that does not exist under this user is a failure, unlike
// delete.
func (s *Store) UpdateExpense(ctx context.Context, userID, recordID string, fields map[string]any) error {
	oid, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return ErrBadRecordID
	}
	set := bson.M{}
	for k, v := range fields {
		if _, reserved := reservedFields[k]; reserved {
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return nil
	}
	res, err := s.colExpenses.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteExpense removes the record. Deleting an id that is already gone is a
// success, matching the store's idempotent delete semantics.
func (s *Store) DeleteExpense(ctx context.Context, userID, recordID string) error {
	oid, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return ErrBadRecordID
	}
	_, err = s.colExpenses.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	return err
}
