package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tazhibayda/expense-service/internal/domain"
)

// EnsureUser creates the user document with the default category list if it
// does not exist yet. Returns whether a document was created. A concurrent
// insert losing the race on _id counts as "already existed".
func (s *Store) EnsureUser(ctx context.Context, id, email, name string) (bool, error) {
	err := s.colUsers.FindOne(ctx, bson.M{"_id": id}).Err()
	if err == nil {
		return false, nil
	}
	if err != mongo.ErrNoDocuments {
		return false, err
	}

	u := domain.User{
		ID:         id,
		Email:      email,
		Name:       name,
		Categories: domain.DefaultCategories(),
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.colUsers.InsertOne(ctx, u); err != nil {
		if IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Categories returns the user's category list, empty (not an error) when the
// user document does not exist.
func (s *Store) Categories(ctx context.Context, id string) ([]string, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u.Categories, nil
}
