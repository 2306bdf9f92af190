package review

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a buyer's rating of a product. One review per user per waste;
// reviewing again replaces the old one.
type Review struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	FarmWasteID string    `gorm:"type:uuid;not null;index:idx_review_waste" json:"farmWasteId"`
	UserID      string    `gorm:"type:uuid;not null;index:idx_review_user" json:"userId"`
	Rating      int       `gorm:"not null" json:"rating"`
	Comment     string    `gorm:"type:text" json:"comment"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (Review) TableName() string {
	return "reviews"
}
