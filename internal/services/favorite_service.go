package services

import (
	"context"
	"fmt"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteOrder picks the ordering of a user's favorite recipes
type FavoriteOrder int

const (
	// ByRecipeDate orders by recipe creation, newest first
	ByRecipeDate FavoriteOrder = iota
	// ByFavoriteDate orders by when the recipe was favorited, newest first
	ByFavoriteDate
)

// FavoriteService keeps the set of recipes each user has favorited
type FavoriteService interface {
	// SetFavorite adds or removes a favorite. changed is false when the
	// favorite was already in the requested state.
	SetFavorite(ctx context.Context, recipeID, userID uint, on bool) (changed bool, err error)
	IsFavorite(ctx context.Context, recipeID, userID uint) (bool, error)
	ListFavoriteRecipes(ctx context.Context, userID uint, order FavoriteOrder) ([]models.Recipe, error)
}

type favoriteService struct {
	db *gorm.DB
}

// NewFavoriteService creates a new instance of FavoriteService
func NewFavoriteService(db *gorm.DB) FavoriteService {
	return &favoriteService{db: db}
}

func (s *favoriteService) SetFavorite(ctx context.Context, recipeID, userID uint, on bool) (bool, error) {
	if !on {
		res := s.db.WithContext(ctx).
			Where("recipe_id = ? AND user_id = ?", recipeID, userID).
			Delete(&models.Favorite{})
		if res.Error != nil {
			return false, fmt.Errorf("remove favorite: %w", res.Error)
		}
		return res.RowsAffected > 0, nil
	}

	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRecipe(tx, recipeID); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recipe_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.Favorite{RecipeID: recipeID, UserID: userID})
		if res.Error != nil {
			return fmt.Errorf("add favorite: %w", res.Error)
		}
		changed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (s *favoriteService) IsFavorite(ctx context.Context, recipeID, userID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("recipe_id = ? AND user_id = ?", recipeID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return count > 0, nil
}

func (s *favoriteService) ListFavoriteRecipes(ctx context.Context, userID uint, order FavoriteOrder) ([]models.Recipe, error) {
	q := s.db.WithContext(ctx).
		Select("recipes.*").
		Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
		Where("favorites.user_id = ?", userID)

	switch order {
	case ByFavoriteDate:
		q = q.Order("favorites.created_at DESC").Order("favorites.id DESC")
	default:
		q = q.Order("recipes.created_at DESC").Order("recipes.id DESC")
	}

	var recipes []models.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list favorites of user %d: %w", userID, err)
	}
	return recipes, nil
}
