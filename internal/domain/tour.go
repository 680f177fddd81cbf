package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Tour struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"            json:"id"`
	Name            string             `bson:"name"                     json:"name"`
	Duration        float64            `bson:"duration"                 json:"duration"`
	MaxGroupSize    int                `bson:"max_group_size"           json:"maxGroupSize"`
	Difficulty      string             `bson:"difficulty"               json:"difficulty"`
	RatingsAverage  float64            `bson:"ratings_average"          json:"ratingsAverage"`
	RatingsQuantity int                `bson:"ratings_quantity"         json:"ratingsQuantity"`
	Price           float64            `bson:"price"                    json:"price"`
	PriceDiscount   float64            `bson:"price_discount,omitempty" json:"priceDiscount,omitempty"`
	Summary         string             `bson:"summary"                  json:"summary"`
	Description     string             `bson:"description,omitempty"    json:"description,omitempty"`
	ImageCover      string             `bson:"image_cover,omitempty"    json:"imageCover,omitempty"`
	Images          []string           `bson:"images,omitempty"         json:"images,omitempty"`
	StartDates      []time.Time        `bson:"start_dates,omitempty"    json:"startDates,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"               json:"createdAt"`
}
