package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LatLng is a WGS84 coordinate pair. Latitude first, matching the mobile
// client's payloads.
type LatLng struct {
	Latitude  float64 `bson:"latitude" json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `bson:"longitude" json:"longitude" binding:"min=-180,max=180"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string             `bson:"password_hash" json:"-"`

	Name      string `bson:"name" json:"name"`
	AvatarURL string `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Country   string `bson:"country,omitempty" json:"country,omitempty"`

	IsExpert    bool `bson:"is_expert" json:"is_expert"`
	IsModerator bool `bson:"is_moderator" json:"is_moderator"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}
