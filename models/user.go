package models

import "time"

// User is a platform user as stored in the user store.
type User struct {
	ID             string    `bson:"id" json:"id"`
	Email          string    `bson:"email" json:"email"`
	Name           string    `bson:"name" json:"name"`
	FirstFreeClass bool      `bson:"first_free_class" json:"firstFreeClass"` // Free-class entitlement already used
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updatedAt"`
}
