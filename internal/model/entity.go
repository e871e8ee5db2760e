package model

import (
	"time"
)

// User credential record. The username is the primary key.
type User struct {
	Username     string    `gorm:"primaryKey;type:varchar(100)" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

// Dance a named choreography owned by one user
type Dance struct {
	ID              string      `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	UserID          string      `gorm:"type:varchar(100);not null;index" json:"userId"`
	Name            string      `gorm:"type:varchar(200);not null" json:"name"`
	NumberOfDancers int         `gorm:"not null" json:"numberOfDancers"`
	Formations      []Formation `gorm:"serializer:json;type:text;not null" json:"formations"`
	Revision        int64       `gorm:"not null;default:0" json:"-"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Dance) TableName() string {
	return "dances"
}

// Formation one snapshot of every dancer's stage position
type Formation struct {
	ID        string     `json:"id" bson:"id"`
	Positions []Position `json:"positions" bson:"positions"`
}

// Position one dancer's placement, x and y in percent of the stage
type Position struct {
	DancerIndex int     `json:"dancerIndex" bson:"dancerIndex"`
	X           float64 `json:"x" bson:"x"`
	Y           float64 `json:"y" bson:"y"`
}

// DanceUpdate partial update of dance metadata; nil fields are left unchanged.
type DanceUpdate struct {
	Name            *string `json:"name,omitempty"`
	NumberOfDancers *int    `json:"numberOfDancers,omitempty"`
}

// Clone returns a deep copy of the dance.
func (d *Dance) Clone() *Dance {
	if d == nil {
		return nil
	}
	c := *d
	c.Formations = CloneFormations(d.Formations)
	return &c
}

// FormationIndex returns the index of the formation with the given id, or -1.
func (d *Dance) FormationIndex(formationID string) int {
	for i, f := range d.Formations {
		if f.ID == formationID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the formation.
func (f Formation) Clone() Formation {
	return Formation{ID: f.ID, Positions: ClonePositions(f.Positions)}
}
