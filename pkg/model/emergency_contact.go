package model

import "time"

type EmergencyContact struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID       string    `json:"user_id" bson:"user_id" validate:"required"`
	Name         string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Relationship string    `json:"relationship" bson:"relationship" validate:"required,min=2,max=50"`
	Phone        string    `json:"phone" bson:"phone" validate:"required,e164"`
	Address      string    `json:"address,omitempty" bson:"address,omitempty" validate:"omitempty,max=255"`
	IsPrimary    bool      `json:"is_primary" bson:"is_primary"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

type EmergencyContactUpdate struct {
	Name         string  `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Relationship string  `json:"relationship,omitempty" validate:"omitempty,min=2,max=50"`
	Phone        string  `json:"phone,omitempty"`
	Address      *string `json:"address,omitempty" validate:"omitempty,max=255"`
	IsPrimary    *bool   `json:"is_primary,omitempty"`
}
