package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tazhibayda/garage-service/internal/domain"
)

type Store struct {
	Client     *mongo.Client
	DB         *mongo.Database
	colGarages *mongo.Collection
	colUsers   *mongo.Collection
}

func NewStore(ctx context.Context, uri, dbname string) (*Store, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	db := cli.Database(dbname)
	return &Store{
		Client:     cli,
		DB:         db,
		colGarages: db.Collection("garages"),
		colUsers:   db.Collection("users"),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error { return s.Client.Disconnect(ctx) }

func (s *Store) EnsureIndexes(ctx context.Context) error {
	// users: external_id is the identity key for social logins; the
	// unique index is what makes concurrent first-logins safe.
	_, err := s.colUsers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_external_id"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email"),
		},
	})
	if err != nil {
		return err
	}

	// garages: every read and mutation filters on is_deleted, so it
	// leads each compound index.
	_, err = s.colGarages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "is_deleted", Value: 1}, {Key: "code", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("alive_code"),
		},
		{
			Keys:    bson.D{{Key: "is_deleted", Value: 1}, {Key: "created_date", Value: -1}},
			Options: options.Index().SetName("alive_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}},
			Options: options.Index().SetName("created_by"),
		},
	})
	return err
}

func IsDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce *mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return false
}

// mapErr classifies driver failures: deadline hits become ErrTimeout
// (retryable server-side), everything else ErrInternal. NotFound is
// decided per call site, never here.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrInternal, err)
}
