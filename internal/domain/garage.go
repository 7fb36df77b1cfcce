package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

type Location struct {
	GoogleID    string      `bson:"google_id" json:"google_id"`
	Coordinates Coordinates `bson:"coordinates" json:"coordinates"`
}

// GarageService is a sub-resource embedded in its garage; it has no
// collection of its own and is only mutated through the garage ops.
type GarageService struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Price       float64            `bson:"price" json:"price"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
}

type Garage struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Code        int                 `bson:"code" json:"code"`
	Name        string              `bson:"name" json:"name"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Address     string              `bson:"address,omitempty" json:"address,omitempty"`
	Location    Location            `bson:"location" json:"location"`
	Services    []GarageService     `bson:"services" json:"services"`
	CreatedBy   primitive.ObjectID  `bson:"created_by" json:"created_by"`
	CreatedDate int64               `bson:"created_date" json:"created_date"` // epoch millis
	UpdatedBy   *primitive.ObjectID `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	UpdatedDate *int64              `bson:"updated_date,omitempty" json:"updated_date,omitempty"`
	IsDeleted   bool                `bson:"is_deleted" json:"-"`

	// filled by populate, never stored
	Creator *User `bson:"creator,omitempty" json:"creator,omitempty"`
	Updater *User `bson:"updater,omitempty" json:"updater,omitempty"`
}
