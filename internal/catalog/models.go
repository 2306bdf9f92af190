package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is a seller's storefront. One store per user.
type Store struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	ImageURL      string    `gorm:"type:varchar(500)" json:"imageUrl"`
	AverageRating *float64  `json:"averageRating"`
	CreatedAt     time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"not null" json:"updatedAt"`
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

func (Store) TableName() string {
	return "stores"
}

// FarmWaste is a listed product. Tags, species and use cases are normalized
// to lowercase on write; StockTotal is the base-unit-equivalent roll-up of
// the unit price stocks.
type FarmWaste struct {
	ID            string                     `gorm:"type:uuid;primaryKey" json:"id"`
	StoreID       string                     `gorm:"type:uuid;not null;index:idx_waste_store" json:"storeId"`
	Name          string                     `gorm:"type:varchar(255);not null" json:"name"`
	Slug          string                     `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description   string                     `gorm:"type:text" json:"description"`
	ImageURLs     datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"imageUrls"`
	Tags          datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tags"`
	Species       datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"suitableForSpecies"`
	UseCases      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"useCases"`
	CategoryIDs   datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"categoryIds"`
	StockTotal    float64                    `gorm:"not null;default:0" json:"stockTotal"`
	AverageRating *float64                   `json:"averageRating"`
	CreatedAt     time.Time                  `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time                  `gorm:"not null" json:"updatedAt"`

	Store      *Store      `gorm:"foreignKey:StoreID" json:"store,omitempty"`
	UnitPrices []UnitPrice `gorm:"foreignKey:FarmWasteID" json:"unitPrices,omitempty"`
}

func (w *FarmWaste) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

func (FarmWaste) TableName() string {
	return "farm_wastes"
}

// UnitPrice is one sellable unit of a waste (kg, karung, liter). Exactly one
// unit per waste is the base unit; EqualWith converts this unit into base
// units.
type UnitPrice struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	FarmWasteID  string    `gorm:"type:uuid;not null;index:idx_unitprice_waste" json:"farmWasteId"`
	Unit         string    `gorm:"type:varchar(64);not null" json:"unit"`
	PricePerUnit float64   `gorm:"not null" json:"pricePerUnit"`
	Stock        float64   `gorm:"not null;default:0" json:"stock"`
	IsBaseUnit   bool      `gorm:"not null;default:false" json:"isBaseUnit"`
	EqualWith    float64   `gorm:"not null;default:1" json:"equalWith"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

func (p *UnitPrice) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (UnitPrice) TableName() string {
	return "unit_prices"
}

// CategoryGroup bundles related categories (e.g. "Jenis Ternak").
type CategoryGroup struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	Categories []Category `gorm:"foreignKey:GroupID" json:"categories,omitempty"`
}

func (g *CategoryGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return nil
}

func (CategoryGroup) TableName() string {
	return "category_groups"
}

// Category is a browsable product category.
type Category struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID   string    `gorm:"type:uuid;index:idx_category_group" json:"groupId"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (Category) TableName() string {
	return "categories"
}
