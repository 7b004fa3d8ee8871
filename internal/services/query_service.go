package services

import (
	"context"
	"fmt"
	"math"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"gorm.io/gorm"
)

// QueryService answers the read-only aggregate questions of the listing pages
type QueryService interface {
	AverageRating(ctx context.Context, recipeID uint) (float64, error)
	// RatingStats returns average and count per recipe; unrated recipes are absent
	RatingStats(ctx context.Context, recipeIDs []uint) (map[uint]models.RatingStat, error)
	// Categories lists the distinct non-empty categories alphabetically
	Categories(ctx context.Context) ([]string, error)
	FavoriteIDs(ctx context.Context, userID uint) (map[uint]struct{}, error)
}

type queryService struct {
	db *gorm.DB
}

// NewQueryService creates a new instance of QueryService
func NewQueryService(db *gorm.DB) QueryService {
	return &queryService{db: db}
}

func (s *queryService) AverageRating(ctx context.Context, recipeID uint) (float64, error) {
	stats, err := s.RatingStats(ctx, []uint{recipeID})
	if err != nil {
		return 0, err
	}
	return stats[recipeID].Average, nil
}

func (s *queryService) RatingStats(ctx context.Context, recipeIDs []uint) (map[uint]models.RatingStat, error) {
	stats := make(map[uint]models.RatingStat, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return stats, nil
	}

	var rows []ratingTotals
	if err := s.db.WithContext(ctx).Model(&models.Rating{}).
		Select("recipe_id, SUM(stars) AS total, COUNT(*) AS count").
		Where("recipe_id IN ?", recipeIDs).
		Group("recipe_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate ratings: %w", err)
	}

	for _, row := range rows {
		stats[row.RecipeID] = models.RatingStat{
			RecipeID: row.RecipeID,
			Average:  roundRating(row.Total, row.Count),
			Count:    row.Count,
		}
	}
	return stats, nil
}

func (s *queryService) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Distinct().
		Where("category IS NOT NULL AND category <> ''").
		Order("category").
		Pluck("category", &categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *queryService) FavoriteIDs(ctx context.Context, userID uint) (map[uint]struct{}, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Pluck("recipe_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list favorite ids of user %d: %w", userID, err)
	}

	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// ratingTotals is one row of the per-recipe rating aggregate
type ratingTotals struct {
	RecipeID uint
	Total    int64
	Count    int64
}

// roundRating averages total over count to one decimal place, ties to even
func roundRating(total, count int64) float64 {
	if count == 0 {
		return 0
	}
	return math.RoundToEven(float64(total*10)/float64(count)) / 10
}
