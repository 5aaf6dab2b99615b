package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OutbreakSeverityLow    = "low"
	OutbreakSeverityMedium = "medium"
	OutbreakSeverityHigh   = "high"

	OutbreakStatusActive   = "active"
	OutbreakStatusResolved = "resolved"
)

// OutbreakAlert is immutable after creation. The notification sweep runs
// exactly once at creation time; fields registered later are not evaluated
// against existing alerts.
type OutbreakAlert struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	CreatorID    primitive.ObjectID  `bson:"creator_id" json:"creator_id"`
	CreatorName  string              `bson:"creator_name,omitempty" json:"creator_name,omitempty"`
	FieldID      *primitive.ObjectID `bson:"field_id,omitempty" json:"field_id,omitempty"`
	Title        string              `bson:"title" json:"title"`
	Description  string              `bson:"description" json:"description"`
	Severity     string              `bson:"severity" json:"severity"`
	RadiusMeters float64             `bson:"radius_meters" json:"radius_meters"`
	Center       LatLng              `bson:"center" json:"center"`
	Status       string              `bson:"status" json:"status"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
}
