package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// StoreService manages seller storefronts.
type StoreService struct {
	db *gorm.DB
}

// NewStoreService creates a store service.
func NewStoreService(db *gorm.DB) *StoreService {
	return &StoreService{db: db}
}

// CreateStoreInput is the payload for CreateStore.
type CreateStoreInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

// CreateStore opens a store for the user. A user gets at most one store.
func (s *StoreService) CreateStore(ctx context.Context, userID string, in CreateStoreInput) (*Store, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Store{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check existing store: %w", err)
	}
	if count > 0 {
		return nil, ErrStoreExists
	}

	store := &Store{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if err := s.db.WithContext(ctx).Create(store).Error; err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	return store, nil
}

// GetByID fetches a store.
func (s *StoreService) GetByID(ctx context.Context, id string) (*Store, error) {
	var store Store
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	return &store, nil
}

// GetByUserID fetches the user's store.
func (s *StoreService) GetByUserID(ctx context.Context, userID string) (*Store, error) {
	var store Store
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get store by user: %w", err)
	}
	return &store, nil
}

// UpdateStoreInput carries editable store fields.
type UpdateStoreInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
}

// UpdateStore applies a partial update. Only the owner may edit.
func (s *StoreService) UpdateStore(ctx context.Context, id, userID string, in UpdateStoreInput) (*Store, error) {
	store, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if store.UserID != userID {
		return nil, ErrForbidden
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.ImageURL != nil {
		updates["image_url"] = *in.ImageURL
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(store).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update store: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}

// ListProducts returns the store's wastes with their unit prices attached.
func (s *StoreService) ListProducts(ctx context.Context, storeID string) ([]FarmWaste, error) {
	var wastes []FarmWaste
	err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Preload("UnitPrices").
		Find(&wastes).Error
	if err != nil {
		return nil, fmt.Errorf("list store products: %w", err)
	}
	return wastes, nil
}
