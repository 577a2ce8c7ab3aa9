package model

import "time"

// Product is a canonical catalog entry partners map their SKUs onto.
type Product struct {
	ID        string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Category  string    `json:"category" gorm:"type:varchar(100);index;not null"`
	Barcode   string    `json:"barcode,omitempty" gorm:"type:varchar(64);index"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
