package review

import (
	"context"
	"errors"
	"fmt"
	"math"

	"backend/internal/catalog"
	"backend/internal/user"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the review does not exist.
	ErrNotFound = errors.New("review not found")
	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrForbidden is returned when deleting someone else's review.
	ErrForbidden = errors.New("forbidden")
)

// ReviewDetail is a review joined with the reviewer's display name.
type ReviewDetail struct {
	Review
	ReviewerName string `json:"reviewerName"`
}

// Service manages product reviews and the derived rating averages.
type Service struct {
	db *gorm.DB
}

// NewService creates a review service and hooks waste deletion so orphaned
// reviews go with the product.
func NewService(db *gorm.DB, wastes *catalog.WasteService) *Service {
	if wastes != nil {
		wastes.AddDeleteCascade(func(tx *gorm.DB, wasteID string) error {
			if err := tx.Where("farm_waste_id = ?", wasteID).Delete(&Review{}).Error; err != nil {
				return fmt.Errorf("delete reviews: %w", err)
			}
			return nil
		})
	}
	return &Service{db: db}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	FarmWasteID string `json:"farmWasteId" binding:"required"`
	Rating      int    `json:"rating" binding:"required"`
	Comment     string `json:"comment"`
}

// Create stores the user's review of a waste (replacing any earlier one) and
// recomputes the product and store averages.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}

	var waste catalog.FarmWaste
	err := s.db.WithContext(ctx).Where("id = ?", in.FarmWasteID).First(&waste).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load waste: %w", err)
	}

	var rev Review
	err = s.db.WithContext(ctx).
		Where("farm_waste_id = ? AND user_id = ?", in.FarmWasteID, userID).
		First(&rev).Error
	switch {
	case err == nil:
		rev.Rating = in.Rating
		rev.Comment = in.Comment
		if err := s.db.WithContext(ctx).Save(&rev).Error; err != nil {
			return nil, fmt.Errorf("update review: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		rev = Review{FarmWasteID: in.FarmWasteID, UserID: userID, Rating: in.Rating, Comment: in.Comment}
		if err := s.db.WithContext(ctx).Create(&rev).Error; err != nil {
			return nil, fmt.Errorf("create review: %w", err)
		}
	default:
		return nil, fmt.Errorf("lookup review: %w", err)
	}

	if err := s.reaggregate(ctx, waste.ID, waste.StoreID); err != nil {
		return nil, err
	}
	return &rev, nil
}

// ListByWaste returns a product's reviews, newest first, with reviewer
// names.
func (s *Service) ListByWaste(ctx context.Context, wasteID string) ([]ReviewDetail, error) {
	var reviews []Review
	err := s.db.WithContext(ctx).
		Where("farm_waste_id = ?", wasteID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if len(reviews) == 0 {
		return nil, nil
	}

	userIDs := make([]string, 0, len(reviews))
	for _, r := range reviews {
		userIDs = append(userIDs, r.UserID)
	}
	var users []user.User
	if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load reviewers: %w", err)
	}
	nameByID := make(map[string]string, len(users))
	for _, u := range users {
		nameByID[u.ID] = u.FullName
	}

	details := make([]ReviewDetail, 0, len(reviews))
	for _, r := range reviews {
		details = append(details, ReviewDetail{Review: r, ReviewerName: nameByID[r.UserID]})
	}
	return details, nil
}

// Delete removes the user's own review and recomputes the averages.
func (s *Service) Delete(ctx context.Context, userID, reviewID string) error {
	var rev Review
	err := s.db.WithContext(ctx).Where("id = ?", reviewID).First(&rev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if rev.UserID != userID {
		return ErrForbidden
	}

	var waste catalog.FarmWaste
	if err := s.db.WithContext(ctx).Where("id = ?", rev.FarmWasteID).First(&waste).Error; err != nil {
		return fmt.Errorf("load waste: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&rev).Error; err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	return s.reaggregate(ctx, waste.ID, waste.StoreID)
}

// reaggregate recomputes the product's average and then the store's average
// over its rated products. Both round to one decimal; no reviews clears the
// average back to NULL.
func (s *Service) reaggregate(ctx context.Context, wasteID, storeID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wasteAvg, err := averageRating(tx, wasteID)
		if err != nil {
			return err
		}
		if err := tx.Model(&catalog.FarmWaste{}).Where("id = ?", wasteID).
			Update("average_rating", wasteAvg).Error; err != nil {
			return fmt.Errorf("update waste rating: %w", err)
		}

		var wastes []catalog.FarmWaste
		if err := tx.Where("store_id = ?", storeID).Find(&wastes).Error; err != nil {
			return fmt.Errorf("load store wastes: %w", err)
		}

		sum, rated := 0.0, 0
		for _, w := range wastes {
			// The just-written value is not reflected in this slice on
			// every driver, so recheck the one we changed.
			avg := w.AverageRating
			if w.ID == wasteID {
				avg = wasteAvg
			}
			if avg != nil {
				sum += *avg
				rated++
			}
		}

		var storeAvg *float64
		if rated > 0 {
			v := round1(sum / float64(rated))
			storeAvg = &v
		}
		if err := tx.Model(&catalog.Store{}).Where("id = ?", storeID).
			Update("average_rating", storeAvg).Error; err != nil {
			return fmt.Errorf("update store rating: %w", err)
		}
		return nil
	})
}

// averageRating computes a product's mean rating rounded to one decimal, nil
// when unrated.
func averageRating(tx *gorm.DB, wasteID string) (*float64, error) {
	var ratings []int
	if err := tx.Model(&Review{}).Where("farm_waste_id = ?", wasteID).
		Pluck("rating", &ratings).Error; err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	if len(ratings) == 0 {
		return nil, nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := round1(float64(sum) / float64(len(ratings)))
	return &avg, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
