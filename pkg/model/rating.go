package model

import "time"

type Rating struct {
	ID                    string    `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID             string    `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	UserID                string    `json:"user_id,omitempty" bson:"user_id"`
	DriverID              string    `json:"driver_id" bson:"driver_id"`
	Stars                 int       `json:"stars" bson:"stars" validate:"required,min=1,max=5"`
	ResponseTime          int       `json:"response_time" bson:"response_time" validate:"required,min=1,max=5"`
	DriverProfessionalism int       `json:"driver_professionalism" bson:"driver_professionalism" validate:"required,min=1,max=5"`
	AmbulanceCondition    int       `json:"ambulance_condition" bson:"ambulance_condition" validate:"required,min=1,max=5"`
	Anonymous             bool      `json:"anonymous" bson:"anonymous"`
	Comments              string    `json:"comments,omitempty" bson:"comments,omitempty" validate:"omitempty,max=1000"`
	CreatedAt             time.Time `json:"created_at" bson:"created_at"`
}

// Public hides the author of anonymous ratings.
func (r Rating) Public() Rating {
	if r.Anonymous {
		r.UserID = ""
	}
	return r
}

type DriverRatingSummary struct {
	DriverID string  `json:"driver_id" bson:"_id"`
	Average  float64 `json:"average" bson:"average"`
	Count    int64   `json:"count" bson:"count"`
}
