package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EmbedEnqueuer schedules a passage-vector recompute for a waste. The worker
// package implements it; tests pass a fake or nil.
type EmbedEnqueuer interface {
	EnqueueWasteEmbed(ctx context.Context, wasteID string) error
}

// Cascade removes rows in another package's tables that reference a waste.
// Cart and review services register themselves so waste deletion stays a
// single transaction without import cycles.
type Cascade func(tx *gorm.DB, wasteID string) error

// WasteService manages the product catalog.
type WasteService struct {
	db       *gorm.DB
	enqueuer EmbedEnqueuer
	cascades []Cascade
}

// NewWasteService creates a waste service. enqueuer may be nil when async
// embedding is disabled.
func NewWasteService(db *gorm.DB, enqueuer EmbedEnqueuer) *WasteService {
	return &WasteService{db: db, enqueuer: enqueuer}
}

// AddDeleteCascade registers a cleanup step run inside the waste delete
// transaction.
func (s *WasteService) AddDeleteCascade(c Cascade) {
	s.cascades = append(s.cascades, c)
}

// NormalizeList lowercases and trims values, dropping empties and duplicates
// while preserving order.
func NormalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// UnitPriceInput describes one sellable unit on create/update.
type UnitPriceInput struct {
	Unit         string  `json:"unit" binding:"required"`
	PricePerUnit float64 `json:"pricePerUnit" binding:"required"`
	Stock        float64 `json:"stock"`
	IsBaseUnit   bool    `json:"isBaseUnit"`
	EqualWith    float64 `json:"equalWith"`
}

// validateUnitPrices enforces the base-unit rules: exactly one base unit,
// base unit converts 1:1, other units need a positive conversion factor.
func validateUnitPrices(inputs []UnitPriceInput) error {
	baseCount := 0
	for _, in := range inputs {
		if in.IsBaseUnit {
			baseCount++
			if in.EqualWith != 0 && in.EqualWith != 1 {
				return ErrInvalidEqualWith
			}
		} else if in.EqualWith <= 0 {
			return ErrInvalidEqualWith
		}
	}
	if baseCount == 0 {
		return ErrNoBaseUnit
	}
	if baseCount > 1 {
		return ErrBaseUnitExists
	}
	return nil
}

// rollUpStock recomputes the waste's base-unit-equivalent stock total from
// its unit prices. Runs inside the caller's transaction.
func rollUpStock(tx *gorm.DB, wasteID string) error {
	var prices []UnitPrice
	if err := tx.Where("farm_waste_id = ?", wasteID).Find(&prices).Error; err != nil {
		return fmt.Errorf("load unit prices: %w", err)
	}
	total := 0.0
	for _, p := range prices {
		equalWith := p.EqualWith
		if p.IsBaseUnit || equalWith <= 0 {
			equalWith = 1
		}
		total += p.Stock * equalWith
	}
	return tx.Model(&FarmWaste{}).Where("id = ?", wasteID).Update("stock_total", total).Error
}

// RollUpStock recomputes the stock total inside an existing transaction.
// Checkout uses it after decrementing unit stocks.
func RollUpStock(tx *gorm.DB, wasteID string) error {
	return rollUpStock(tx, wasteID)
}

// PassageBasis builds the text that gets embedded for retrieval: name,
// description and the normalized keyword lists, newline-joined.
func (w *FarmWaste) PassageBasis() string {
	parts := []string{w.Name, w.Description}
	if len(w.Tags) > 0 {
		parts = append(parts, strings.Join(w.Tags, ", "))
	}
	if len(w.Species) > 0 {
		parts = append(parts, strings.Join(w.Species, ", "))
	}
	if len(w.UseCases) > 0 {
		parts = append(parts, strings.Join(w.UseCases, ", "))
	}
	return strings.Join(parts, "\n")
}

func datatypesSlice(v []string) datatypes.JSONSlice[string] {
	return datatypes.NewJSONSlice(v)
}

// CreateWasteInput is the payload for Create.
type CreateWasteInput struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	ImageURLs   []string         `json:"imageUrls"`
	Tags        []string         `json:"tags"`
	Species     []string         `json:"suitableForSpecies"`
	UseCases    []string         `json:"useCases"`
	CategoryIDs []string         `json:"categoryIds"`
	UnitPrices  []UnitPriceInput `json:"unitPrices" binding:"required,min=1"`
}

// Create lists a product under the user's store and schedules its passage
// embedding.
func (s *WasteService) Create(ctx context.Context, userID string, in CreateWasteInput) (*FarmWaste, error) {
	var store Store
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup store: %w", err)
	}

	if err := validateUnitPrices(in.UnitPrices); err != nil {
		return nil, err
	}

	slug, err := UniqueSlug(ctx, s.db, Slugify(in.Name), "")
	if err != nil {
		return nil, err
	}

	waste := &FarmWaste{
		StoreID:     store.ID,
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		ImageURLs:   datatypesSlice(in.ImageURLs),
		Tags:        datatypesSlice(NormalizeList(in.Tags)),
		Species:     datatypesSlice(NormalizeList(in.Species)),
		UseCases:    datatypesSlice(NormalizeList(in.UseCases)),
		CategoryIDs: datatypesSlice(in.CategoryIDs),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(waste).Error; err != nil {
			return fmt.Errorf("create waste: %w", err)
		}
		for _, up := range in.UnitPrices {
			price := UnitPrice{
				FarmWasteID:  waste.ID,
				Unit:         up.Unit,
				PricePerUnit: up.PricePerUnit,
				Stock:        up.Stock,
				IsBaseUnit:   up.IsBaseUnit,
				EqualWith:    up.EqualWith,
			}
			if price.IsBaseUnit {
				price.EqualWith = 1
			}
			if err := tx.Create(&price).Error; err != nil {
				return fmt.Errorf("create unit price: %w", err)
			}
		}
		return rollUpStock(tx, waste.ID)
	})
	if err != nil {
		return nil, err
	}

	s.enqueueEmbed(ctx, waste.ID)

	return s.GetByID(ctx, waste.ID)
}

// enqueueEmbed schedules the embedding recompute. Failures are logged, never
// surfaced: catalog writes must not depend on the queue.
func (s *WasteService) enqueueEmbed(ctx context.Context, wasteID string) {
	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.EnqueueWasteEmbed(ctx, wasteID); err != nil {
		logger.Warn("enqueue waste embed failed",
			zap.String("waste_id", wasteID),
			zap.Error(err),
		)
	}
}

// List returns all wastes, newest first, with store and unit prices.
func (s *WasteService) List(ctx context.Context) ([]FarmWaste, error) {
	var wastes []FarmWaste
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Preload("Store").
		Preload("UnitPrices").
		Find(&wastes).Error
	if err != nil {
		return nil, fmt.Errorf("list wastes: %w", err)
	}
	return wastes, nil
}

// GetByID fetches one waste with store and unit prices.
func (s *WasteService) GetByID(ctx context.Context, id string) (*FarmWaste, error) {
	return s.getOne(ctx, "id = ?", id)
}

// GetBySlug fetches one waste by slug.
func (s *WasteService) GetBySlug(ctx context.Context, slug string) (*FarmWaste, error) {
	return s.getOne(ctx, "slug = ?", slug)
}

// GetByIDOrSlug resolves UUIDs by primary key and anything else by slug.
func (s *WasteService) GetByIDOrSlug(ctx context.Context, idOrSlug string) (*FarmWaste, error) {
	if _, err := uuid.Parse(idOrSlug); err == nil {
		return s.GetByID(ctx, idOrSlug)
	}
	return s.GetBySlug(ctx, idOrSlug)
}

func (s *WasteService) getOne(ctx context.Context, query string, arg any) (*FarmWaste, error) {
	var waste FarmWaste
	err := s.db.WithContext(ctx).
		Where(query, arg).
		Preload("Store").
		Preload("UnitPrices").
		First(&waste).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get waste: %w", err)
	}
	return &waste, nil
}

// Featured returns up to n random wastes that have an image. Wastes without
// reviews get a 4.5 placeholder rating so the landing page has something to
// show.
func (s *WasteService) Featured(ctx context.Context, n int) ([]FarmWaste, error) {
	if n <= 0 {
		n = 8
	}
	var candidates []FarmWaste
	err := s.db.WithContext(ctx).
		Order("RANDOM()").
		Preload("Store").
		Preload("UnitPrices").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("list featured wastes: %w", err)
	}

	// The image filter runs here rather than in SQL because image_urls is a
	// JSON column and emptiness checks are not portable across drivers.
	placeholder := 4.5
	wastes := make([]FarmWaste, 0, n)
	for _, w := range candidates {
		if len(w.ImageURLs) == 0 || len(w.UnitPrices) == 0 {
			continue
		}
		if w.AverageRating == nil {
			w.AverageRating = &placeholder
		}
		wastes = append(wastes, w)
		if len(wastes) == n {
			break
		}
	}
	return wastes, nil
}

// UpdateWasteInput carries editable waste fields. Nil leaves a field alone;
// a non-nil UnitPrices slice replaces the full unit set.
type UpdateWasteInput struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	ImageURLs   *[]string         `json:"imageUrls"`
	Tags        *[]string         `json:"tags"`
	Species     *[]string         `json:"suitableForSpecies"`
	UseCases    *[]string         `json:"useCases"`
	CategoryIDs *[]string         `json:"categoryIds"`
	UnitPrices  *[]UnitPriceInput `json:"unitPrices"`
}

// Update applies a partial update. Renames re-slug; changes to the passage
// basis trigger a re-embed.
func (s *WasteService) Update(ctx context.Context, id, userID string, in UpdateWasteInput) (*FarmWaste, error) {
	waste, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if waste.Store == nil || waste.Store.UserID != userID {
		return nil, ErrForbidden
	}

	oldBasis := waste.PassageBasis()

	updates := map[string]any{}
	if in.Name != nil && *in.Name != waste.Name {
		slug, err := UniqueSlug(ctx, s.db, Slugify(*in.Name), waste.ID)
		if err != nil {
			return nil, err
		}
		updates["name"] = *in.Name
		updates["slug"] = slug
		waste.Name = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
		waste.Description = *in.Description
	}
	if in.ImageURLs != nil {
		updates["image_urls"] = datatypesSlice(*in.ImageURLs)
	}
	if in.Tags != nil {
		normalized := NormalizeList(*in.Tags)
		updates["tags"] = datatypesSlice(normalized)
		waste.Tags = normalized
	}
	if in.Species != nil {
		normalized := NormalizeList(*in.Species)
		updates["species"] = datatypesSlice(normalized)
		waste.Species = normalized
	}
	if in.UseCases != nil {
		normalized := NormalizeList(*in.UseCases)
		updates["use_cases"] = datatypesSlice(normalized)
		waste.UseCases = normalized
	}
	if in.CategoryIDs != nil {
		updates["category_ids"] = datatypesSlice(*in.CategoryIDs)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&FarmWaste{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("update waste: %w", err)
			}
		}
		if in.UnitPrices != nil {
			if err := validateUnitPrices(*in.UnitPrices); err != nil {
				return err
			}
			if err := tx.Where("farm_waste_id = ?", id).Delete(&UnitPrice{}).Error; err != nil {
				return fmt.Errorf("clear unit prices: %w", err)
			}
			for _, up := range *in.UnitPrices {
				price := UnitPrice{
					FarmWasteID:  id,
					Unit:         up.Unit,
					PricePerUnit: up.PricePerUnit,
					Stock:        up.Stock,
					IsBaseUnit:   up.IsBaseUnit,
					EqualWith:    up.EqualWith,
				}
				if price.IsBaseUnit {
					price.EqualWith = 1
				}
				if err := tx.Create(&price).Error; err != nil {
					return fmt.Errorf("create unit price: %w", err)
				}
			}
			if err := rollUpStock(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if waste.PassageBasis() != oldBasis {
		s.enqueueEmbed(ctx, id)
	}

	return s.GetByID(ctx, id)
}

// Delete removes a waste, its unit prices and any registered dependents in a
// single transaction.
func (s *WasteService) Delete(ctx context.Context, id, userID string) error {
	waste, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if waste.Store == nil || waste.Store.UserID != userID {
		return ErrForbidden
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cascade := range s.cascades {
			if err := cascade(tx, id); err != nil {
				return err
			}
		}
		if err := tx.Where("farm_waste_id = ?", id).Delete(&UnitPrice{}).Error; err != nil {
			return fmt.Errorf("delete unit prices: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&FarmWaste{}).Error; err != nil {
			return fmt.Errorf("delete waste: %w", err)
		}
		return nil
	})
}
