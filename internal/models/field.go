package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FieldStatusActive    = "active"
	FieldStatusHarvested = "harvested"
)

// HeatCell is one cell of a drone scan grid.
type HeatCell struct {
	Row   int     `bson:"row" json:"row"`
	Col   int     `bson:"col" json:"col"`
	Score float64 `bson:"score" json:"score"`
}

type ScanResult struct {
	ScanDate    time.Time  `bson:"scan_date" json:"scan_date"`
	HealthScore float64    `bson:"health_score" json:"health_score"`
	Issues      []string   `bson:"issues" json:"issues"`
	Cells       []HeatCell `bson:"cells,omitempty" json:"cells,omitempty"`
}

// Field location is immutable once registered; the geofencing sweep relies on
// it never moving under an active alert.
type Field struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID    primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Name       string             `bson:"name" json:"name"`
	AreaHa     float64            `bson:"area_ha" json:"area_ha"`
	CropType   string             `bson:"crop_type" json:"crop_type"`
	SowingDate time.Time          `bson:"sowing_date" json:"sowing_date"`
	Location   *LatLng            `bson:"location,omitempty" json:"location,omitempty"`
	Status     string             `bson:"status" json:"status"`
	LastScan   *ScanResult        `bson:"last_scan,omitempty" json:"last_scan,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
