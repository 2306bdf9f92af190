package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// UnitPriceService manages the sellable units of a waste after creation.
type UnitPriceService struct {
	db *gorm.DB
}

// NewUnitPriceService creates a unit price service.
func NewUnitPriceService(db *gorm.DB) *UnitPriceService {
	return &UnitPriceService{db: db}
}

// ownsWaste checks that userID's store owns the waste.
func (s *UnitPriceService) ownsWaste(ctx context.Context, wasteID, userID string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&FarmWaste{}).
		Joins("JOIN stores ON stores.id = farm_wastes.store_id").
		Where("farm_wastes.id = ? AND stores.user_id = ?", wasteID, userID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check waste ownership: %w", err)
	}
	if count == 0 {
		return ErrForbidden
	}
	return nil
}

// Create adds a unit to an existing waste. The single-base-unit invariant is
// enforced against the stored units.
func (s *UnitPriceService) Create(ctx context.Context, wasteID, userID string, in UnitPriceInput) (*UnitPrice, error) {
	var waste FarmWaste
	err := s.db.WithContext(ctx).Where("id = ?", wasteID).First(&waste).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get waste: %w", err)
	}
	if err := s.ownsWaste(ctx, wasteID, userID); err != nil {
		return nil, err
	}

	if in.IsBaseUnit {
		if in.EqualWith != 0 && in.EqualWith != 1 {
			return nil, ErrInvalidEqualWith
		}
		var baseCount int64
		err := s.db.WithContext(ctx).Model(&UnitPrice{}).
			Where("farm_waste_id = ? AND is_base_unit = ?", wasteID, true).
			Count(&baseCount).Error
		if err != nil {
			return nil, fmt.Errorf("count base units: %w", err)
		}
		if baseCount > 0 {
			return nil, ErrBaseUnitExists
		}
	} else if in.EqualWith <= 0 {
		return nil, ErrInvalidEqualWith
	}

	price := &UnitPrice{
		FarmWasteID:  wasteID,
		Unit:         in.Unit,
		PricePerUnit: in.PricePerUnit,
		Stock:        in.Stock,
		IsBaseUnit:   in.IsBaseUnit,
		EqualWith:    in.EqualWith,
	}
	if price.IsBaseUnit {
		price.EqualWith = 1
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(price).Error; err != nil {
			return fmt.Errorf("create unit price: %w", err)
		}
		return rollUpStock(tx, wasteID)
	})
	if err != nil {
		return nil, err
	}
	return price, nil
}

// ListByWaste returns all units of a waste.
func (s *UnitPriceService) ListByWaste(ctx context.Context, wasteID string) ([]UnitPrice, error) {
	var prices []UnitPrice
	err := s.db.WithContext(ctx).
		Where("farm_waste_id = ?", wasteID).
		Order("is_base_unit DESC, created_at ASC").
		Find(&prices).Error
	if err != nil {
		return nil, fmt.Errorf("list unit prices: %w", err)
	}
	return prices, nil
}

// Get fetches one unit price.
func (s *UnitPriceService) Get(ctx context.Context, id string) (*UnitPrice, error) {
	var price UnitPrice
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get unit price: %w", err)
	}
	return &price, nil
}

// UpdateUnitPriceInput carries the mutable unit fields. Unit identity and
// conversion factor are fixed after creation; sellers adjust price and stock.
type UpdateUnitPriceInput struct {
	PricePerUnit *float64 `json:"pricePerUnit"`
	Stock        *float64 `json:"stock"`
}

// Update adjusts price and stock of a unit.
func (s *UnitPriceService) Update(ctx context.Context, id, userID string, in UpdateUnitPriceInput) (*UnitPrice, error) {
	price, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ownsWaste(ctx, price.FarmWasteID, userID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.PricePerUnit != nil {
		updates["price_per_unit"] = *in.PricePerUnit
	}
	if in.Stock != nil {
		updates["stock"] = *in.Stock
	}

	if len(updates) > 0 {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&UnitPrice{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("update unit price: %w", err)
			}
			return rollUpStock(tx, price.FarmWasteID)
		})
		if err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// Delete removes a unit. The base unit can only go when it is the last unit
// left, otherwise the remaining conversions would dangle.
func (s *UnitPriceService) Delete(ctx context.Context, id, userID string) error {
	price, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ownsWaste(ctx, price.FarmWasteID, userID); err != nil {
		return err
	}

	if price.IsBaseUnit {
		var others int64
		err := s.db.WithContext(ctx).Model(&UnitPrice{}).
			Where("farm_waste_id = ? AND id <> ?", price.FarmWasteID, id).
			Count(&others).Error
		if err != nil {
			return fmt.Errorf("count sibling units: %w", err)
		}
		if others > 0 {
			return ErrBaseUnitInUse
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Delete(&UnitPrice{}).Error; err != nil {
			return fmt.Errorf("delete unit price: %w", err)
		}
		return rollUpStock(tx, price.FarmWasteID)
	})
}
