package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/franciscosanchezn/gin-recipe-api/internal/metrics"
	"github.com/franciscosanchezn/gin-recipe-api/internal/middleware"
	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
	"github.com/franciscosanchezn/gin-recipe-api/internal/storage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RecipeController handles the JSON API for recipes and their interactions
type RecipeController interface {
	ListRecipes(c *gin.Context)
	GetRecipe(c *gin.Context)
	CreateRecipe(c *gin.Context)
	UpdateRecipe(c *gin.Context)
	DeleteRecipe(c *gin.Context)
	ListComments(c *gin.Context)
	AddComment(c *gin.Context)
	RateRecipe(c *gin.Context)
	ListFavorites(c *gin.Context)
	AddFavorite(c *gin.Context)
	RemoveFavorite(c *gin.Context)
	ListCategories(c *gin.Context)
}

// ContentServices groups the content services shared by the API and web controllers
type ContentServices struct {
	Recipes   services.RecipeService
	Comments  services.CommentService
	Ratings   services.RatingService
	Favorites services.FavoriteService
	Query     services.QueryService
	Images    storage.ImageStore
}

type controller struct {
	ContentServices
}

// NewRecipeController creates a new instance of RecipeController
func NewRecipeController(svc ContentServices) *controller {
	return &controller{ContentServices: svc}
}

// RecipeRequest is the API payload for creating or updating a recipe. Images
// are only accepted through the web upload form.
type RecipeRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Ingredients string  `json:"ingredients"`
	Steps       string  `json:"steps"`
	Category    *string `json:"category"`
	DurationMin *int    `json:"duration_min"`
	Difficulty  string  `json:"difficulty"`
}

func (r RecipeRequest) input() services.RecipeInput {
	return services.RecipeInput{
		Title:       r.Title,
		Description: r.Description,
		Ingredients: r.Ingredients,
		Steps:       r.Steps,
		Category:    r.Category,
		DurationMin: r.DurationMin,
		Difficulty:  r.Difficulty,
	}
}

type RecipeListItem struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Category    *string `json:"category"`
	DurationMin *int    `json:"duration_min"`
}

type RecipeListResponse struct {
	Recipes []RecipeListItem `json:"recipes"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
	Total   int64            `json:"total"`
}

type RecipeResponse struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Ingredients   string    `json:"ingredients"`
	Steps         string    `json:"steps"`
	Category      *string   `json:"category"`
	DurationMin   *int      `json:"duration_min"`
	Difficulty    string    `json:"difficulty"`
	ImageURL      *string   `json:"image_url"`
	CreatedBy     uint      `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	AverageRating float64   `json:"average_rating"`
	RatingCount   int64     `json:"rating_count"`
}

type CommentResponse struct {
	ID        uint      `json:"id"`
	Text      string    `json:"text"`
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type FavoriteResponse struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	ImageURL *string `json:"image_url"`
}

func (c *controller) recipeResponse(ctx context.Context, r *models.Recipe) (*RecipeResponse, error) {
	stats, err := c.Query.RatingStats(ctx, []uint{r.ID})
	if err != nil {
		return nil, err
	}
	stat := stats[r.ID]
	return &RecipeResponse{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Ingredients:   r.Ingredients,
		Steps:         r.Steps,
		Category:      r.Category,
		DurationMin:   r.DurationMin,
		Difficulty:    r.Difficulty,
		ImageURL:      r.ImageURL,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		AverageRating: stat.Average,
		RatingCount:   stat.Count,
	}, nil
}

// removeImage deletes a stored image, logging failures
func (c *controller) removeImage(ctx context.Context, ref *string) {
	if ref == nil || c.Images == nil {
		return
	}
	if err := c.Images.Delete(ctx, *ref); err != nil {
		log.WithError(err).WithField("image", *ref).Warn("Failed to remove image")
	}
}

// ListRecipes godoc
// @Summary List recipes
// @Description Paginated recipe listing with optional category filter and sort order
// @Tags recipes
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param per_page query int false "Page size (default 20, max 100)"
// @Param category query string false "Exact category"
// @Param sort query string false "date or rating"
// @Success 200 {object} RecipeListResponse
// @Failure 500 {object} models.APIError
// @Router /api/recipes [get]
func (c *controller) ListRecipes(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.Query("page"))
	perPage, _ := strconv.Atoi(ctx.Query("per_page"))

	result, err := c.Recipes.ListRecipes(ctx.Request.Context(), services.ListFilter{
		Category: ctx.Query("category"),
		Sort:     ctx.Query("sort"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	items := make([]RecipeListItem, 0, len(result.Items))
	for _, r := range result.Items {
		items = append(items, RecipeListItem{ID: r.ID, Title: r.Title, Category: r.Category, DurationMin: r.DurationMin})
	}
	ctx.JSON(http.StatusOK, RecipeListResponse{
		Recipes: items,
		Page:    result.Page,
		PerPage: result.PerPage,
		Total:   result.Total,
	})
}

// GetRecipe godoc
// @Summary Get recipe by ID
// @Description Get a single recipe with its average rating
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} RecipeResponse
// @Failure 404 {object} models.APIError
// @Router /api/recipes/{id} [get]
func (c *controller) GetRecipe(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, models.NewAPIError(models.ErrRecipeNotFound, "Recipe not found"))
		return
	}

	recipe, err := c.Recipes.GetRecipe(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	resp, err := c.recipeResponse(ctx.Request.Context(), recipe)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// CreateRecipe godoc
// @Summary Create a new recipe
// @Description Create a recipe owned by the authenticated user
// @Tags recipes
// @Accept json
// @Produce json
// @Param recipe body RecipeRequest true "Recipe"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes [post]
func (c *controller) CreateRecipe(ctx *gin.Context) {
	var req RecipeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Invalid request body"))
		return
	}

	identity := middleware.CurrentIdentity(ctx)
	recipe, err := c.Recipes.CreateRecipe(ctx.Request.Context(), req.input(), identity.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	metrics.RecordContentWrite("recipe", "create")
	ctx.JSON(http.StatusCreated, gin.H{"id": recipe.ID})
}

// UpdateRecipe godoc
// @Summary Update a recipe
// @Description Replace the fields of a recipe. Only the author or an admin may update it.
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param recipe body RecipeRequest true "Recipe"
// @Success 200 {object} RecipeResponse
// @Failure 400 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id} [put]
func (c *controller) UpdateRecipe(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, models.NewAPIError(models.ErrRecipeNotFound, "Recipe not found"))
		return
	}

	var req RecipeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Invalid request body"))
		return
	}

	recipe, _, err := c.Recipes.UpdateRecipe(ctx.Request.Context(), id, req.input(), middleware.CurrentIdentity(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	metrics.RecordContentWrite("recipe", "update")
	resp, err := c.recipeResponse(ctx.Request.Context(), recipe)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// DeleteRecipe godoc
// @Summary Delete a recipe
// @Description Delete a recipe with its comments, ratings and favorites. Only the author or an admin may delete it.
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id} [delete]
func (c *controller) DeleteRecipe(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, models.NewAPIError(models.ErrRecipeNotFound, "Recipe not found"))
		return
	}

	deleted, err := c.Recipes.DeleteRecipe(ctx.Request.Context(), id, middleware.CurrentIdentity(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	c.removeImage(ctx.Request.Context(), deleted.ImageURL)
	metrics.RecordContentWrite("recipe", "delete")
	ctx.Status(http.StatusNoContent)
}

// ListComments godoc
// @Summary List comments
// @Description Comments of a recipe, newest first
// @Tags comments
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} map[string][]CommentResponse
// @Router /api/recipes/{id}/comments [get]
func (c *controller) ListComments(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, models.NewAPIError(models.ErrRecipeNotFound, "Recipe not found"))
		return
	}

	comments, err := c.Comments.ListComments(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	out := make([]CommentResponse, 0, len(comments))
	for _, cm := range comments {
		out = append(out, CommentResponse{ID: cm.ID, Text: cm.Text, UserID: cm.UserID, CreatedAt: cm.CreatedAt})
	}
	ctx.JSON(http.StatusOK, gin.H{"comments": out})
}

// AddComment godoc
// @Summary Comment on a recipe
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param comment body object{text=string} true "Comment"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/comments [post]
func (c *controller) AddComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, models.NewAPIError(models.ErrRecipeNotFound, "Recipe not found"))
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Invalid request body"))
		return
	}

	comment, err := c.Comments.AddComment(ctx.Request.Context(), id, middleware.CurrentIdentity(ctx).UserID, req.Text)
	if err != nil {
		respondError(ctx, err)
		return
	}

	metrics.RecordContentWrite("comment", "create")
	ctx.JSON(http.StatusCreated, gin.H{"id": comment.ID})
}

// RateRecipe godoc
// @Summary Rate a recipe
// @Description Create or replace the caller's 1-5 star rating
// @Tags ratings
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param rating body object{stars=int} true "Rating"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/ratings [post]
func (c *controller) RateRecipe(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, models.NewAPIError(models.ErrRecipeNotFound, "Recipe not found"))
		return
	}

	var req struct {
		Stars *int `json:"stars"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Stars == nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest,
			models.NewAPIError(models.ErrValidationFailed, "stars must be an integer between 1 and 5"))
		return
	}

	rating, err := c.Ratings.UpsertRating(ctx.Request.Context(), id, middleware.CurrentIdentity(ctx).UserID, *req.Stars)
	if err != nil {
		respondError(ctx, err)
		return
	}

	metrics.RecordContentWrite("rating", "upsert")
	ctx.JSON(http.StatusOK, gin.H{"message": "Rating saved", "id": rating.ID, "stars": rating.Stars})
}

// ListFavorites godoc
// @Summary List favorites
// @Description Recipes favorited by the caller, newest recipe first
// @Tags favorites
// @Produce json
// @Success 200 {object} map[string][]FavoriteResponse
// @Security BearerAuth
// @Router /api/favorites [get]
func (c *controller) ListFavorites(ctx *gin.Context) {
	recipes, err := c.Favorites.ListFavoriteRecipes(ctx.Request.Context(), middleware.CurrentIdentity(ctx).UserID, services.ByRecipeDate)
	if err != nil {
		respondError(ctx, err)
		return
	}

	out := make([]FavoriteResponse, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, FavoriteResponse{ID: r.ID, Title: r.Title, ImageURL: r.ImageURL})
	}
	ctx.JSON(http.StatusOK, gin.H{"favorites": out})
}

// AddFavorite godoc
// @Summary Favorite a recipe
// @Description Adding an existing favorite is a no-op
// @Tags favorites
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} map[string]interface{}
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /api/recipes/{id}/favorite [post]
func (c *controller) AddFavorite(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, models.NewAPIError(models.ErrRecipeNotFound, "Recipe not found"))
		return
	}

	changed, err := c.Favorites.SetFavorite(ctx.Request.Context(), id, middleware.CurrentIdentity(ctx).UserID, true)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if changed {
		metrics.RecordContentWrite("favorite", "create")
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Recipe favorited", "recipe_id": id, "changed": changed})
}

// RemoveFavorite godoc
// @Summary Unfavorite a recipe
// @Description Removing an absent favorite is a no-op
// @Tags favorites
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/recipes/{id}/favorite [delete]
func (c *controller) RemoveFavorite(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, models.NewAPIError(models.ErrRecipeNotFound, "Recipe not found"))
		return
	}

	changed, err := c.Favorites.SetFavorite(ctx.Request.Context(), id, middleware.CurrentIdentity(ctx).UserID, false)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if changed {
		metrics.RecordContentWrite("favorite", "delete")
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Recipe unfavorited", "recipe_id": id, "changed": changed})
}

// ListCategories godoc
// @Summary List categories
// @Description Distinct recipe categories in alphabetical order
// @Tags recipes
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/categories [get]
func (c *controller) ListCategories(ctx *gin.Context) {
	categories, err := c.Query.Categories(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"categories": categories})
}
