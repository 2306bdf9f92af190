package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"backend/internal/catalog"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a cart line does not exist.
	ErrNotFound = errors.New("cart item not found")
	// ErrUnitMismatch is returned when the unit does not belong to the
	// waste being added.
	ErrUnitMismatch = errors.New("unit price does not belong to this farm waste")
	// ErrInsufficientStock is returned when the requested quantity exceeds
	// the unit's stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity is returned for zero or negative quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// ItemDetail is a cart line joined with its product and unit for display.
type ItemDetail struct {
	CartItem
	WasteName    string   `json:"wasteName"`
	WasteSlug    string   `json:"wasteSlug"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	Unit         string   `json:"unit"`
	PricePerUnit float64  `json:"pricePerUnit"`
	LineTotal    float64  `json:"lineTotal"`
}

// CartView is the cart with joined lines and the running total.
type CartView struct {
	Cart
	Items []ItemDetail `json:"items"`
	Total float64      `json:"total"`
}

// Service manages shopping carts.
type Service struct {
	db *gorm.DB
}

// NewService creates a cart service and hooks waste deletion so removed
// products disappear from open carts.
func NewService(db *gorm.DB, wastes *catalog.WasteService) *Service {
	if wastes != nil {
		wastes.AddDeleteCascade(func(tx *gorm.DB, wasteID string) error {
			if err := tx.Where("farm_waste_id = ?", wasteID).Delete(&CartItem{}).Error; err != nil {
				return fmt.Errorf("delete cart items: %w", err)
			}
			return nil
		})
	}
	return &Service{db: db}
}

// getOrCreate returns the user's cart row, creating it on first touch.
func (s *Service) getOrCreate(ctx context.Context, userID string) (*Cart, error) {
	var cart Cart
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = Cart{UserID: userID}
		if err := s.db.WithContext(ctx).Create(&cart).Error; err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		return &cart, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &cart, nil
}

// Get returns the user's cart with item details and total. The joins run as
// two bulk lookups instead of per-line queries.
func (s *Service) Get(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	var items []CartItem
	err = s.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}

	view := &CartView{Cart: *cart, Items: make([]ItemDetail, 0, len(items))}
	if len(items) == 0 {
		return view, nil
	}

	wasteIDs := make([]string, 0, len(items))
	priceIDs := make([]string, 0, len(items))
	for _, it := range items {
		wasteIDs = append(wasteIDs, it.FarmWasteID)
		priceIDs = append(priceIDs, it.UnitPriceID)
	}

	var wastes []catalog.FarmWaste
	if err := s.db.WithContext(ctx).Where("id IN ?", wasteIDs).Find(&wastes).Error; err != nil {
		return nil, fmt.Errorf("load cart wastes: %w", err)
	}
	wasteByID := make(map[string]catalog.FarmWaste, len(wastes))
	for _, w := range wastes {
		wasteByID[w.ID] = w
	}

	var prices []catalog.UnitPrice
	if err := s.db.WithContext(ctx).Where("id IN ?", priceIDs).Find(&prices).Error; err != nil {
		return nil, fmt.Errorf("load cart unit prices: %w", err)
	}
	priceByID := make(map[string]catalog.UnitPrice, len(prices))
	for _, p := range prices {
		priceByID[p.ID] = p
	}

	for _, it := range items {
		waste, wok := wasteByID[it.FarmWasteID]
		price, pok := priceByID[it.UnitPriceID]
		if !wok || !pok {
			// Product or unit vanished since the line was added; skip it.
			continue
		}
		detail := ItemDetail{
			CartItem:     it,
			WasteName:    waste.Name,
			WasteSlug:    waste.Slug,
			Unit:         price.Unit,
			PricePerUnit: price.PricePerUnit,
			LineTotal:    roundMoney(price.PricePerUnit * it.Quantity),
		}
		if len(waste.ImageURLs) > 0 {
			detail.ImageURL = waste.ImageURLs[0]
		}
		view.Items = append(view.Items, detail)
		view.Total += detail.LineTotal
	}
	view.Total = roundMoney(view.Total)
	return view, nil
}

// AddItemInput is the payload for AddItem.
type AddItemInput struct {
	FarmWasteID string  `json:"farmWasteId" binding:"required"`
	UnitPriceID string  `json:"unitPriceId" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required"`
}

// AddItem puts a waste/unit line into the cart. Adding the same waste+unit
// again increments the existing line instead of duplicating it.
func (s *Service) AddItem(ctx context.Context, userID string, in AddItemInput) (*CartView, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var price catalog.UnitPrice
	err := s.db.WithContext(ctx).Where("id = ?", in.UnitPriceID).First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get unit price: %w", err)
	}
	if price.FarmWasteID != in.FarmWasteID {
		return nil, ErrUnitMismatch
	}

	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	var existing CartItem
	err = s.db.WithContext(ctx).
		Where("cart_id = ? AND farm_waste_id = ? AND unit_price_id = ?", cart.ID, in.FarmWasteID, in.UnitPriceID).
		First(&existing).Error
	switch {
	case err == nil:
		newQty := existing.Quantity + in.Quantity
		if newQty > price.Stock {
			return nil, ErrInsufficientStock
		}
		if err := s.db.WithContext(ctx).Model(&existing).Update("quantity", newQty).Error; err != nil {
			return nil, fmt.Errorf("update cart item: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if in.Quantity > price.Stock {
			return nil, ErrInsufficientStock
		}
		item := CartItem{
			CartID:      cart.ID,
			FarmWasteID: in.FarmWasteID,
			UnitPriceID: in.UnitPriceID,
			Quantity:    in.Quantity,
		}
		if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, fmt.Errorf("create cart item: %w", err)
		}
	default:
		return nil, fmt.Errorf("lookup cart item: %w", err)
	}

	return s.Get(ctx, userID)
}

// UpdateQuantity sets a line's quantity, re-checking stock.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity float64) (*CartView, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	var price catalog.UnitPrice
	if err := s.db.WithContext(ctx).Where("id = ?", item.UnitPriceID).First(&price).Error; err != nil {
		return nil, fmt.Errorf("get unit price: %w", err)
	}
	if quantity > price.Stock {
		return nil, ErrInsufficientStock
	}

	if err := s.db.WithContext(ctx).Model(item).Update("quantity", quantity).Error; err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return s.Get(ctx, userID)
}

// RemoveItem deletes one line.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*CartView, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(item).Error; err != nil {
		return nil, fmt.Errorf("delete cart item: %w", err)
	}
	return s.Get(ctx, userID)
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// ownedItem fetches a cart line and verifies it sits in the user's cart.
func (s *Service) ownedItem(ctx context.Context, userID, itemID string) (*CartItem, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	var item CartItem
	err = s.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cart.ID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return &item, nil
}

// roundMoney keeps rupiah totals at 2 decimals.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
