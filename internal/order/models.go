package order

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction statuses, in their usual order of progression.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusShipped   = "shipped"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// TransactionItem is a frozen snapshot of one purchased line. Snapshots keep
// the receipt stable when the seller later edits or deletes the product.
type TransactionItem struct {
	FarmWasteID  string  `json:"farmWasteId"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	ImageURL     string  `json:"imageUrl,omitempty"`
	Unit         string  `json:"unit"`
	PricePerUnit float64 `json:"pricePerUnit"`
	Quantity     float64 `json:"quantity"`
	LineTotal    float64 `json:"lineTotal"`
}

// Transaction is a checkout receipt.
type Transaction struct {
	ID           string                                `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID      string                                `gorm:"type:varchar(128);not null;uniqueIndex" json:"orderId"`
	UserID       string                                `gorm:"type:uuid;not null;index:idx_txn_user" json:"userId"`
	Items        datatypes.JSONSlice[TransactionItem]  `gorm:"type:jsonb" json:"items"`
	Subtotal     float64                               `gorm:"not null" json:"subtotal"`
	ShippingCost float64                               `gorm:"not null;default:0" json:"shippingCost"`
	Total        float64                               `gorm:"not null" json:"total"`
	Status       string                                `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	CreatedAt    time.Time                             `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time                             `gorm:"not null" json:"updatedAt"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	return nil
}

func (Transaction) TableName() string {
	return "transactions"
}
