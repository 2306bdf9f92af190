package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// CategoryService manages categories and their groups.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a category service.
func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// ListCategories returns all categories.
func (s *CategoryService) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CreateCategory adds a category, optionally under a group.
func (s *CategoryService) CreateCategory(ctx context.Context, name, groupID string) (*Category, error) {
	c := &Category{Name: name, GroupID: groupID}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// ListGroups returns all category groups with their categories.
func (s *CategoryService) ListGroups(ctx context.Context) ([]CategoryGroup, error) {
	var groups []CategoryGroup
	err := s.db.WithContext(ctx).
		Order("name ASC").
		Preload("Categories").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("list category groups: %w", err)
	}
	return groups, nil
}

// CreateGroup adds a category group.
func (s *CategoryService) CreateGroup(ctx context.Context, name string) (*CategoryGroup, error) {
	g := &CategoryGroup{Name: name}
	if err := s.db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, fmt.Errorf("create category group: %w", err)
	}
	return g, nil
}

// ResolveCategories maps the waste's stored category IDs to rows, dropping
// IDs that no longer exist.
func (s *CategoryService) ResolveCategories(ctx context.Context, ids []string) ([]Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var categories []Category
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("resolve categories: %w", err)
	}
	return categories, nil
}
