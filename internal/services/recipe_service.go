package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/franciscosanchezn/gin-recipe-api/internal/policy"
	"gorm.io/gorm"
)

// Listing sort orders
const (
	SortByDate   = "date"
	SortByRating = "rating"
)

// Pagination defaults
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// RecipeInput is the validated payload for creating or updating a recipe.
// A nil ImageURL on update keeps the current image.
type RecipeInput struct {
	Title       string  `json:"title" validate:"required,max=140"`
	Description string  `json:"description"`
	Ingredients string  `json:"ingredients"`
	Steps       string  `json:"steps"`
	Category    *string `json:"category" validate:"omitempty,max=64"`
	DurationMin *int    `json:"duration_min" validate:"omitempty,gte=0"`
	Difficulty  string  `json:"difficulty" validate:"max=32"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,max=255"`
}

func (in *RecipeInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Difficulty = strings.TrimSpace(in.Difficulty)
	if in.Category != nil {
		c := strings.TrimSpace(*in.Category)
		if c == "" {
			in.Category = nil
		} else {
			in.Category = &c
		}
	}
}

// ListFilter selects and orders a page of recipes
type ListFilter struct {
	Category string
	Sort     string
	Page     int
	PerPage  int
}

func (f *ListFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	// keeps (Page-1)*PerPage from overflowing
	if maxPage := math.MaxInt / MaxPerPage; f.Page > maxPage {
		f.Page = maxPage
	}
	if f.Sort != SortByRating {
		f.Sort = SortByDate
	}
	f.Category = strings.TrimSpace(f.Category)
}

// RecipePage is one window of a recipe listing
type RecipePage struct {
	Items   []models.RecipeSummary `json:"items"`
	Total   int64                  `json:"total"`
	Page    int                    `json:"page"`
	PerPage int                    `json:"per_page"`
}

// RecipeService provides methods to create, change and list recipes
type RecipeService interface {
	// CreateRecipe stores a new recipe owned by ownerID
	CreateRecipe(ctx context.Context, input RecipeInput, ownerID uint) (*models.Recipe, error)
	// GetRecipe retrieves a recipe with its author
	GetRecipe(ctx context.Context, id uint) (*models.Recipe, error)
	// UpdateRecipe changes a recipe if the requester may modify it. The image
	// reference that was replaced, if any, is returned for cleanup.
	UpdateRecipe(ctx context.Context, id uint, input RecipeInput, requester models.Identity) (*models.Recipe, *string, error)
	// DeleteRecipe removes a recipe with its comments, ratings and favorites
	DeleteRecipe(ctx context.Context, id uint, requester models.Identity) (*models.Recipe, error)
	// ListRecipes returns a filtered, sorted page with the total match count
	ListRecipes(ctx context.Context, filter ListFilter) (*RecipePage, error)
	// ListRecipesByOwner returns the recipes of one user, newest first
	ListRecipesByOwner(ctx context.Context, userID uint) ([]models.Recipe, error)
}

// recipeService is the implementation of the RecipeService interface
type recipeService struct {
	db    *gorm.DB
	query QueryService
}

// NewRecipeService creates a new instance of RecipeService
func NewRecipeService(db *gorm.DB, query QueryService) RecipeService {
	return &recipeService{db: db, query: query}
}

func (s *recipeService) CreateRecipe(ctx context.Context, input RecipeInput, ownerID uint) (*models.Recipe, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	recipe := &models.Recipe{CreatedBy: ownerID}
	applyInput(recipe, input)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(recipe).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}
	return recipe, nil
}

func (s *recipeService) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Preload("Author").First(&recipe, id).Error; err != nil {
		return nil, translateNotFound(err, "recipe")
	}
	return &recipe, nil
}

func (s *recipeService) UpdateRecipe(ctx context.Context, id uint, input RecipeInput, requester models.Identity) (*models.Recipe, *string, error) {
	var (
		recipe   models.Recipe
		replaced *string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&recipe, id).Error; err != nil {
			return translateNotFound(err, "recipe")
		}
		if !policy.Allows(&recipe, requester) {
			return fmt.Errorf("update recipe %d: %w", id, ErrForbidden)
		}

		input.normalize()
		if err := validateInput(input); err != nil {
			return err
		}

		previous := recipe.ImageURL
		applyInput(&recipe, input)
		if input.ImageURL == nil {
			recipe.ImageURL = previous
		} else if previous != nil && *previous != *input.ImageURL {
			replaced = previous
		}

		if err := tx.Save(&recipe).Error; err != nil {
			return fmt.Errorf("save recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &recipe, replaced, nil
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id uint, requester models.Identity) (*models.Recipe, error) {
	var recipe models.Recipe

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&recipe, id).Error; err != nil {
			return translateNotFound(err, "recipe")
		}
		if !policy.Allows(&recipe, requester) {
			return fmt.Errorf("delete recipe %d: %w", id, ErrForbidden)
		}

		for _, dependent := range []interface{}{&models.Comment{}, &models.Rating{}, &models.Favorite{}} {
			if err := tx.Where("recipe_id = ?", id).Delete(dependent).Error; err != nil {
				return fmt.Errorf("delete %T of recipe %d: %w", dependent, id, err)
			}
		}
		if err := tx.Delete(&models.Recipe{}, id).Error; err != nil {
			return fmt.Errorf("delete recipe %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (s *recipeService) ListRecipes(ctx context.Context, filter ListFilter) (*RecipePage, error) {
	filter.normalize()

	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Recipe{})
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		return q
	}

	page := &RecipePage{Page: filter.Page, PerPage: filter.PerPage}
	offset := (filter.Page - 1) * filter.PerPage

	var recipes []models.Recipe
	if filter.Sort == SortByDate {
		if err := base().Count(&page.Total).Error; err != nil {
			return nil, fmt.Errorf("count recipes: %w", err)
		}
		if err := base().Order("created_at DESC").Order("id DESC").
			Offset(offset).Limit(filter.PerPage).Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("list recipes: %w", err)
		}
		items, err := s.summarize(ctx, recipes)
		if err != nil {
			return nil, err
		}
		page.Items = items
		return page, nil
	}

	// Rating order is derived, so the whole filtered set is ranked in memory.
	// The date-ordered base keeps equal averages newest first.
	if err := base().Order("created_at DESC").Order("id DESC").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	items, err := s.summarize(ctx, recipes)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].AverageRating > items[j].AverageRating
	})

	page.Total = int64(len(items))
	page.Items = paginate(items, offset, filter.PerPage)
	return page, nil
}

func (s *recipeService) ListRecipesByOwner(ctx context.Context, userID uint) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Where("created_by = ?", userID).
		Order("created_at DESC").Order("id DESC").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes of user %d: %w", userID, err)
	}
	return recipes, nil
}

// summarize attaches rating figures to each recipe, keeping the order
func (s *recipeService) summarize(ctx context.Context, recipes []models.Recipe) ([]models.RecipeSummary, error) {
	ids := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
	}
	stats, err := s.query.RatingStats(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.RecipeSummary, 0, len(recipes))
	for _, r := range recipes {
		stat := stats[r.ID]
		items = append(items, models.RecipeSummary{
			Recipe:        r,
			AverageRating: stat.Average,
			RatingCount:   stat.Count,
		})
	}
	return items, nil
}

func paginate(items []models.RecipeSummary, offset, limit int) []models.RecipeSummary {
	if offset < 0 || offset >= len(items) {
		return []models.RecipeSummary{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func applyInput(recipe *models.Recipe, input RecipeInput) {
	recipe.Title = input.Title
	recipe.Description = input.Description
	recipe.Ingredients = input.Ingredients
	recipe.Steps = input.Steps
	recipe.Category = input.Category
	recipe.DurationMin = input.DurationMin
	recipe.Difficulty = input.Difficulty
	recipe.ImageURL = input.ImageURL
}

// ensureRecipe fails with ErrNotFound when the recipe does not exist
func ensureRecipe(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Recipe{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check recipe %d: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("recipe %d: %w", id, ErrNotFound)
	}
	return nil
}
