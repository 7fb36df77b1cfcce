package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tazhibayda/garage-service/internal/domain"
)

// FindUserByExternalID looks a user up by provider subject id.
// Returns (nil, nil) when absent.
func (s *Store) FindUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"external_id": externalID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// CreateUser inserts a new user. A duplicate external_id comes back as
// ErrConflict so the resolver can re-read the winner of the race.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	u.CreatedAt = time.Now().UTC()
	res, err := s.colUsers.InsertOne(ctx, u)
	if IsDup(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return mapErr(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}
