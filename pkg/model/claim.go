package model

import "time"

// Claim marks a key as owned by one worker until ExpiresAt.
// Stored in the locks collection, which carries a TTL index on expires_at.
type Claim struct {
	Key       string    `bson:"_id" json:"key"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
