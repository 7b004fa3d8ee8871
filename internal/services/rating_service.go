package services

import (
	"context"
	"fmt"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Star bounds for a rating
const (
	MinStars = 1
	MaxStars = 5
)

// RatingService records one rating per user and recipe
type RatingService interface {
	// UpsertRating creates the user's rating or replaces its stars
	UpsertRating(ctx context.Context, recipeID, userID uint, stars int) (*models.Rating, error)
	// GetUserRating returns ErrNotFound when the user has not rated the recipe
	GetUserRating(ctx context.Context, recipeID, userID uint) (*models.Rating, error)
}

type ratingService struct {
	db *gorm.DB
}

// NewRatingService creates a new instance of RatingService
func NewRatingService(db *gorm.DB) RatingService {
	return &ratingService{db: db}
}

func (s *ratingService) UpsertRating(ctx context.Context, recipeID, userID uint, stars int) (*models.Rating, error) {
	if stars < MinStars || stars > MaxStars {
		return nil, invalid("stars", fmt.Sprintf("must be between %d and %d", MinStars, MaxStars))
	}

	var stored models.Rating
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRecipe(tx, recipeID); err != nil {
			return err
		}

		rating := models.Rating{RecipeID: recipeID, UserID: userID, Stars: stars}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recipe_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stars", "updated_at"}),
		}).Create(&rating).Error; err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}

		return tx.Where("recipe_id = ? AND user_id = ?", recipeID, userID).First(&stored).Error
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *ratingService) GetUserRating(ctx context.Context, recipeID, userID uint) (*models.Rating, error) {
	var rating models.Rating
	if err := s.db.WithContext(ctx).
		Where("recipe_id = ? AND user_id = ?", recipeID, userID).
		First(&rating).Error; err != nil {
		return nil, translateNotFound(err, "rating")
	}
	return &rating, nil
}
