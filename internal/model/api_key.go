package model

import (
	"time"

	"price-service/pkg/apikey"

	"gorm.io/gorm"
)

// APIKey is an issued partner key. Only the bcrypt hash of the secret is kept.
type APIKey struct {
	ID            string      `json:"id" gorm:"type:varchar(64);primaryKey"`
	SupermarketID string      `json:"supermarketId" gorm:"type:varchar(64);index;not null"`
	Slug          string      `json:"slug" gorm:"type:varchar(64);index:idx_api_keys_lookup,priority:1;not null"`
	Mode          apikey.Mode `json:"mode" gorm:"type:varchar(8);index:idx_api_keys_lookup,priority:2;not null"`
	SecretHash    string      `json:"-" gorm:"type:varchar(100);not null"`
	Revoked       bool        `json:"revoked" gorm:"default:false"`
	RevokedAt     *time.Time  `json:"revokedAt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`

	Supermarket Supermarket `json:"-" gorm:"foreignKey:SupermarketID"`
}

// BeforeCreate hook will be called before creating a new APIKey record
func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = NewID("key_")
	}
	return nil
}
