package model

import (
	"time"

	"gorm.io/gorm"
)

// Supermarket is a partner account. Accounts are provisioned out of band and
// never modified through the HTTP API.
type Supermarket struct {
	ID        string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Slug      string    `json:"slug" gorm:"type:varchar(64);uniqueIndex;not null"`
	IsDemo    bool      `json:"isDemo" gorm:"default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeCreate hook will be called before creating a new Supermarket record
func (s *Supermarket) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID("sm_")
	}
	return nil
}
