package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email      string             `bson:"email"       json:"email"`
	Name       string             `bson:"name"        json:"name"`
	Provider   string             `bson:"provider"    json:"provider"`    // "google"
	ExternalID string             `bson:"external_id" json:"external_id"` // Google sub
	Role       string             `bson:"role"        json:"role"`        // "user" by default
	Verified   bool               `bson:"verified"    json:"verified"`
	CreatedAt  time.Time          `bson:"created_at"  json:"created_at"`
}
