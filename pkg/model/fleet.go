package model

import "time"

const (
	DriverAvailable = "available"
	DriverOnDuty    = "on_duty"
	DriverOffDuty   = "off_duty"

	AmbulanceAvailable   = "available"
	AmbulanceInService   = "in_service"
	AmbulanceMaintenance = "maintenance"

	AmbulanceBasic    = "basic"
	AmbulanceAdvanced = "advanced"
)

type Driver struct {
	ID              string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name            string     `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Phone           string     `json:"phone" bson:"phone" validate:"required,e164"`
	LicenseNumber   string     `json:"license_number" bson:"license_number" validate:"required,min=4,max=50"`
	Status          string     `json:"status" bson:"status" validate:"required,oneof=available on_duty off_duty"`
	AverageRating   float64    `json:"average_rating" bson:"average_rating"`
	RatingCount     int64      `json:"rating_count" bson:"rating_count"`
	RatingUpdatedAt *time.Time `json:"rating_updated_at,omitempty" bson:"rating_updated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at"`
}

type Ambulance struct {
	ID                string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PlateNumber       string     `json:"plate_number" bson:"plate_number" validate:"required,min=3,max=20"`
	Type              string     `json:"type" bson:"type" validate:"required,oneof=basic advanced"`
	Status            string     `json:"status" bson:"status" validate:"required,oneof=available in_service maintenance"`
	LastMaintenanceAt *time.Time `json:"last_maintenance_at,omitempty" bson:"last_maintenance_at,omitempty"`
	NextMaintenanceAt *time.Time `json:"next_maintenance_at,omitempty" bson:"next_maintenance_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
}
