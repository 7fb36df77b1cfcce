package queue

import "go.mongodb.org/mongo-driver/bson/primitive"

type UserLoggedIn struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
}

type GarageCreated struct {
	GarageID  primitive.ObjectID `json:"garage_id"`
	Code      int                `json:"code"`
	Name      string             `json:"name"`
	CreatedBy primitive.ObjectID `json:"created_by"`
}

type GarageDeleted struct {
	GarageID  primitive.ObjectID `json:"garage_id"`
	DeletedBy primitive.ObjectID `json:"deleted_by"`
}
