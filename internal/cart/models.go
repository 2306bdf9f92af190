package cart

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is a user's open shopping cart. One per user, created lazily.
type Cart struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	Items []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (Cart) TableName() string {
	return "carts"
}

// CartItem is one line in a cart: a waste in a specific sell unit. Prices
// are not snapshotted here; line totals always reflect the current unit
// price.
type CartItem struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	CartID      string    `gorm:"type:uuid;not null;index:idx_cartitem_cart" json:"cartId"`
	FarmWasteID string    `gorm:"type:uuid;not null;index:idx_cartitem_waste" json:"farmWasteId"`
	UnitPriceID string    `gorm:"type:uuid;not null" json:"unitPriceId"`
	Quantity    float64   `gorm:"not null" json:"quantity"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

func (CartItem) TableName() string {
	return "cart_items"
}
