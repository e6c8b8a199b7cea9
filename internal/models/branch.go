package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MaxBranchAdmins = 7

// GeoPoint is stored as two indexed columns and rendered as a GeoJSON point.
type GeoPoint struct {
	Longitude float64 `gorm:"index:idx_branches_geo,priority:2"`
	Latitude  float64 `gorm:"index:idx_branches_geo,priority:1"`
}

type geoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(geoJSONPoint{Type: "Point", Coordinates: []float64{p.Longitude, p.Latitude}})
}

func (p *GeoPoint) UnmarshalJSON(b []byte) error {
	var g geoJSONPoint
	if err := json.Unmarshal(b, &g); err != nil {
		return err
	}
	if g.Type != "" && g.Type != "Point" {
		return errors.New("coordinates type must be Point")
	}
	if len(g.Coordinates) != 2 {
		return errors.New("coordinates must be [longitude, latitude]")
	}
	p.Longitude, p.Latitude = g.Coordinates[0], g.Coordinates[1]
	return nil
}

type Branch struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"_id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Email       string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Phone       Phone     `gorm:"embedded;embeddedPrefix:phone_" json:"phone"`
	Address     string    `gorm:"size:255;not null" json:"address"`
	State       string    `gorm:"size:100;not null" json:"state"`
	Coordinates GeoPoint  `gorm:"embedded" json:"coordinates"`
	IsActive    bool      `gorm:"not null" json:"isActive"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Filled from branch_members on read.
	Admins []uuid.UUID `gorm:"-" json:"admins"`
	Staff  []uuid.UUID `gorm:"-" json:"staff"`
}

func (b *Branch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type MemberKind string

const (
	MemberAdmin MemberKind = "admin"
	MemberStaff MemberKind = "staff"
)

// BranchMember is one entry of a branch's admin or staff list.
type BranchMember struct {
	BranchID  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;primaryKey;index"`
	Kind      MemberKind `gorm:"size:10;primaryKey"`
	CreatedAt time.Time
}
