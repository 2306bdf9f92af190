package order

import (
	"context"
	"errors"
	"fmt"
	"math"

	"backend/internal/catalog"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no transaction matches the lookup.
	ErrNotFound = errors.New("transaction not found")
	// ErrOrderIDTaken is returned when the client retries checkout with an
	// orderId that already exists.
	ErrOrderIDTaken = errors.New("order id already used")
	// ErrEmptyOrder is returned for a checkout without items.
	ErrEmptyOrder = errors.New("transaction needs at least one item")
	// ErrInsufficientStock is returned when a line exceeds the unit's
	// remaining stock at checkout time.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidStatus is returned for unknown status values.
	ErrInvalidStatus = errors.New("invalid transaction status")
)

var validStatuses = map[string]struct{}{
	StatusPending:   {},
	StatusPaid:      {},
	StatusShipped:   {},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Service manages checkout transactions.
type Service struct {
	db *gorm.DB
}

// NewService creates a transaction service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CheckoutLine is one requested purchase line.
type CheckoutLine struct {
	FarmWasteID string  `json:"farmWasteId" binding:"required"`
	UnitPriceID string  `json:"unitPriceId" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required"`
}

// CheckoutInput is the payload for Create.
type CheckoutInput struct {
	OrderID      string         `json:"orderId" binding:"required"`
	Items        []CheckoutLine `json:"items" binding:"required,min=1"`
	ShippingCost float64        `json:"shippingCost"`
}

// Create books a transaction: validates the lines against current stock,
// snapshots product details, decrements stock and writes the receipt, all in
// one database transaction.
func (s *Service) Create(ctx context.Context, userID string, in CheckoutInput) (*Transaction, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Transaction{}).Where("order_id = ?", in.OrderID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check order id: %w", err)
	}
	if count > 0 {
		return nil, ErrOrderIDTaken
	}

	txn := &Transaction{
		OrderID:      in.OrderID,
		UserID:       userID,
		ShippingCost: in.ShippingCost,
		Status:       StatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snapshots := make([]TransactionItem, 0, len(in.Items))
		subtotal := 0.0
		touchedWastes := map[string]struct{}{}

		for _, line := range in.Items {
			if line.Quantity <= 0 {
				return ErrEmptyOrder
			}

			var waste catalog.FarmWaste
			if err := tx.Where("id = ?", line.FarmWasteID).First(&waste).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return catalog.ErrNotFound
				}
				return fmt.Errorf("load waste: %w", err)
			}

			var price catalog.UnitPrice
			if err := tx.Where("id = ? AND farm_waste_id = ?", line.UnitPriceID, line.FarmWasteID).First(&price).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return catalog.ErrNotFound
				}
				return fmt.Errorf("load unit price: %w", err)
			}

			if line.Quantity > price.Stock {
				return ErrInsufficientStock
			}

			if err := tx.Model(&catalog.UnitPrice{}).
				Where("id = ?", price.ID).
				Update("stock", price.Stock-line.Quantity).Error; err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			touchedWastes[waste.ID] = struct{}{}

			item := TransactionItem{
				FarmWasteID:  waste.ID,
				Name:         waste.Name,
				Slug:         waste.Slug,
				Unit:         price.Unit,
				PricePerUnit: price.PricePerUnit,
				Quantity:     line.Quantity,
				LineTotal:    round2(price.PricePerUnit * line.Quantity),
			}
			if len(waste.ImageURLs) > 0 {
				item.ImageURL = waste.ImageURLs[0]
			}
			snapshots = append(snapshots, item)
			subtotal += item.LineTotal
		}

		for wasteID := range touchedWastes {
			if err := catalog.RollUpStock(tx, wasteID); err != nil {
				return err
			}
		}

		txn.Items = snapshots
		txn.Subtotal = round2(subtotal)
		txn.Total = round2(subtotal + in.ShippingCost)
		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ListByUser returns the user's transactions, newest first, optionally
// filtered by status.
func (s *Service) ListByUser(ctx context.Context, userID, status string) ([]Transaction, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if status != "" {
		if _, ok := validStatuses[status]; !ok {
			return nil, ErrInvalidStatus
		}
		q = q.Where("status = ?", status)
	}
	var txns []Transaction
	if err := q.Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// GetByOrderID fetches one transaction by its external order id.
func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*Transaction, error) {
	var txn Transaction
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &txn, nil
}

// UpdateStatus moves a transaction to a new status. Payment webhooks call
// this.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (*Transaction, error) {
	if _, ok := validStatuses[status]; !ok {
		return nil, ErrInvalidStatus
	}
	txn, err := s.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(txn).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update transaction status: %w", err)
	}
	txn.Status = status
	return txn, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
