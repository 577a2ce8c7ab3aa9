package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Currency is the only currency prices are accepted in.
const Currency = "KES"

// StockStatus is the availability reported alongside a price.
type StockStatus string

const (
	InStock      StockStatus = "in_stock"
	OutOfStock   StockStatus = "out_of_stock"
	LimitedStock StockStatus = "limited_stock"
)

// Valid reports whether s is one of the known statuses.
func (s StockStatus) Valid() bool {
	switch s {
	case InStock, OutOfStock, LimitedStock:
		return true
	}
	return false
}

// PriceRecord is the current price of a product at one supermarket branch.
// Rows are unique per PriceKey; writes replace the previous value.
type PriceRecord struct {
	ID            string            `gorm:"type:varchar(64);primaryKey"`
	ProductID     string            `gorm:"type:varchar(64);not null;uniqueIndex:idx_price_key,priority:1"`
	SupermarketID string            `gorm:"type:varchar(64);not null;uniqueIndex:idx_price_key,priority:2"`
	Location      string            `gorm:"type:varchar(120);not null;default:'';uniqueIndex:idx_price_key,priority:3"`
	SandboxKeyID  string            `gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_price_key,priority:4"`
	Price         decimal.Decimal   `gorm:"type:numeric(12,2);not null"`
	StockStatus   StockStatus       `gorm:"type:varchar(20);not null;default:'in_stock'"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	UpdatedAt     time.Time         `gorm:"not null;autoUpdateTime:false"`
}

func (PriceRecord) TableName() string { return "price_records" }

// BeforeCreate hook will be called before creating a new PriceRecord record
func (p *PriceRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID("price_")
	}
	return nil
}

// Key returns the identity the record is upserted under.
func (p *PriceRecord) Key() PriceKey {
	return PriceKey{
		ProductID:     p.ProductID,
		SupermarketID: p.SupermarketID,
		Location:      p.Location,
		SandboxKeyID:  p.SandboxKeyID,
	}
}

// PriceKey identifies one price record. SandboxKeyID is empty for live data
// and holds the submitting demo key id for sandbox writes.
type PriceKey struct {
	ProductID     string
	SupermarketID string
	Location      string
	SandboxKeyID  string
}

// Scope selects which price records a reader may see.
type Scope struct {
	// SandboxKeyID restricts reads to one demo key's writes. Empty means live data.
	SandboxKeyID string
}

// Live is the scope of public comparison reads.
var Live = Scope{}

// Models lists every table the service owns, in migration order.
func Models() []interface{} {
	return []interface{}{&Product{}, &Supermarket{}, &APIKey{}, &PriceRecord{}}
}
