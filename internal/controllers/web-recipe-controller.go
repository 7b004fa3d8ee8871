package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/franciscosanchezn/gin-recipe-api/internal/metrics"
	"github.com/franciscosanchezn/gin-recipe-api/internal/middleware"
	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/franciscosanchezn/gin-recipe-api/internal/policy"
	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// multipartMemory is the part of a form kept in memory; larger files spill to disk
const multipartMemory = 8 << 20

func recipePath(id uint) string {
	return fmt.Sprintf("/recipes/%d", id)
}

// recipeID parses the :id parameter, rendering 404 when it is not a valid id
func recipeID(c *gin.Context) (uint, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		renderError(c, http.StatusNotFound, "Recipe not found.")
	}
	return id, ok
}

// ListRecipes shows the filtered and sorted recipe list
func (w *WebController) ListRecipes(c *gin.Context) {
	ctx := c.Request.Context()
	page, _ := strconv.Atoi(c.Query("page"))
	filter := services.ListFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Sort:     c.DefaultQuery("sort", services.SortByDate),
		Page:     page,
	}

	result, err := w.Recipes.ListRecipes(ctx, filter)
	if err != nil {
		w.fail(c, err, "/")
		return
	}
	categories, err := w.Query.Categories(ctx)
	if err != nil {
		w.fail(c, err, "/")
		return
	}

	favoriteIDs := map[uint]struct{}{}
	if identity := middleware.CurrentIdentity(c); !identity.Anonymous() {
		if favoriteIDs, err = w.Query.FavoriteIDs(ctx, identity.UserID); err != nil {
			w.fail(c, err, "/")
			return
		}
	}

	sort := services.SortByDate
	if filter.Sort == services.SortByRating {
		sort = services.SortByRating
	}

	render(c, http.StatusOK, "recipes/list.html", gin.H{
		"Title":       "Recipes",
		"Page":        result,
		"HasNext":     int64(result.Page*result.PerPage) < result.Total,
		"Categories":  categories,
		"Category":    filter.Category,
		"Sort":        sort,
		"FavoriteIDs": favoriteIDs,
	})
}

// ViewRecipe shows a recipe with comments, rating and the viewer's own state
func (w *WebController) ViewRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	recipe, err := w.Recipes.GetRecipe(ctx, id)
	if err != nil {
		w.fail(c, err, "/recipes/")
		return
	}
	comments, err := w.Comments.ListComments(ctx, id)
	if err != nil {
		w.fail(c, err, "/recipes/")
		return
	}
	stats, err := w.Query.RatingStats(ctx, []uint{id})
	if err != nil {
		w.fail(c, err, "/recipes/")
		return
	}

	identity := middleware.CurrentIdentity(c)
	var (
		userStars  int
		isFavorite bool
	)
	if !identity.Anonymous() {
		rating, err := w.Ratings.GetUserRating(ctx, id, identity.UserID)
		switch {
		case err == nil:
			userStars = rating.Stars
		case !errors.Is(err, services.ErrNotFound):
			w.fail(c, err, "/recipes/")
			return
		}
		if isFavorite, err = w.ContentServices.Favorites.IsFavorite(ctx, id, identity.UserID); err != nil {
			w.fail(c, err, "/recipes/")
			return
		}
	}

	render(c, http.StatusOK, "recipes/view.html", gin.H{
		"Title":         recipe.Title,
		"Recipe":        recipe,
		"Comments":      comments,
		"AverageRating": stats[id].Average,
		"RatingCount":   stats[id].Count,
		"UserStars":     userStars,
		"IsFavorite":    isFavorite,
		"CanModify":     policy.Allows(recipe, identity),
	})
}

func (w *WebController) NewRecipe(c *gin.Context) {
	render(c, http.StatusOK, "recipes/form.html", gin.H{
		"Title":  "New recipe",
		"Action": "/recipes/new",
		"Form":   services.RecipeInput{},
	})
}

func (w *WebController) CreateRecipe(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	ctx := c.Request.Context()

	input, err := w.recipeForm(c)
	if err != nil {
		w.rerenderForm(c, err, nil, input)
		return
	}
	if err := w.attachImage(c, identity.UserID, &input); err != nil {
		w.rerenderForm(c, err, nil, input)
		return
	}

	recipe, err := w.Recipes.CreateRecipe(ctx, input, identity.UserID)
	if err != nil {
		w.removeImage(c, input.ImageURL)
		w.rerenderForm(c, err, nil, input)
		return
	}

	metrics.RecordContentWrite("recipe", "create")
	middleware.AddFlash(c, middleware.FlashSuccess, "Recipe created.")
	c.Redirect(http.StatusFound, recipePath(recipe.ID))
}

func (w *WebController) EditRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	recipe, err := w.Recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		w.fail(c, err, "/recipes/")
		return
	}
	if !policy.Allows(recipe, middleware.CurrentIdentity(c)) {
		w.fail(c, services.ErrForbidden, recipePath(id))
		return
	}

	render(c, http.StatusOK, "recipes/form.html", gin.H{
		"Title":  "Edit " + recipe.Title,
		"Action": recipePath(id) + "/edit",
		"Recipe": recipe,
		"Form": services.RecipeInput{
			Title:       recipe.Title,
			Description: recipe.Description,
			Ingredients: recipe.Ingredients,
			Steps:       recipe.Steps,
			Category:    recipe.Category,
			DurationMin: recipe.DurationMin,
			Difficulty:  recipe.Difficulty,
		},
	})
}

func (w *WebController) UpdateRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	identity := middleware.CurrentIdentity(c)
	ctx := c.Request.Context()

	current, err := w.Recipes.GetRecipe(ctx, id)
	if err != nil {
		w.fail(c, err, "/recipes/")
		return
	}
	// checked before the upload so a denied request stores nothing
	if !policy.Allows(current, identity) {
		w.fail(c, services.ErrForbidden, recipePath(id))
		return
	}

	input, err := w.recipeForm(c)
	if err != nil {
		w.rerenderForm(c, err, current, input)
		return
	}
	if err := w.attachImage(c, identity.UserID, &input); err != nil {
		w.rerenderForm(c, err, current, input)
		return
	}

	_, replaced, err := w.Recipes.UpdateRecipe(ctx, id, input, identity)
	if err != nil {
		w.removeImage(c, input.ImageURL)
		w.rerenderForm(c, err, current, input)
		return
	}
	w.removeImage(c, replaced)

	metrics.RecordContentWrite("recipe", "update")
	middleware.AddFlash(c, middleware.FlashSuccess, "Recipe updated.")
	c.Redirect(http.StatusFound, recipePath(id))
}

func (w *WebController) DeleteRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	deleted, err := w.Recipes.DeleteRecipe(c.Request.Context(), id, middleware.CurrentIdentity(c))
	if err != nil {
		w.fail(c, err, recipePath(id))
		return
	}
	w.removeImage(c, deleted.ImageURL)

	metrics.RecordContentWrite("recipe", "delete")
	middleware.AddFlash(c, middleware.FlashSuccess, "Recipe deleted.")
	c.Redirect(http.StatusFound, "/recipes/")
}

func (w *WebController) AddComment(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	_, err := w.Comments.AddComment(c.Request.Context(), id, middleware.CurrentIdentity(c).UserID, c.PostForm("text"))
	if err != nil {
		w.fail(c, err, recipePath(id))
		return
	}

	metrics.RecordContentWrite("comment", "create")
	middleware.AddFlash(c, middleware.FlashSuccess, "Comment added.")
	c.Redirect(http.StatusFound, recipePath(id))
}

func (w *WebController) RateRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	stars, err := strconv.Atoi(strings.TrimSpace(c.PostForm("stars")))
	if err != nil {
		middleware.AddFlash(c, middleware.FlashDanger, "Rating must be a number between 1 and 5.")
		c.Redirect(http.StatusFound, recipePath(id))
		return
	}

	if _, err := w.Ratings.UpsertRating(c.Request.Context(), id, middleware.CurrentIdentity(c).UserID, stars); err != nil {
		w.fail(c, err, recipePath(id))
		return
	}

	metrics.RecordContentWrite("rating", "upsert")
	middleware.AddFlash(c, middleware.FlashSuccess, "Rating saved.")
	c.Redirect(http.StatusFound, recipePath(id))
}

func (w *WebController) Favorites(c *gin.Context) {
	recipes, err := w.ContentServices.Favorites.ListFavoriteRecipes(c.Request.Context(), middleware.CurrentIdentity(c).UserID, services.ByRecipeDate)
	if err != nil {
		w.fail(c, err, "/recipes/")
		return
	}
	render(c, http.StatusOK, "recipes/favorites.html", gin.H{"Title": "Favorites", "Recipes": recipes})
}

func (w *WebController) Favorite(c *gin.Context) {
	w.setFavorite(c, true)
}

func (w *WebController) Unfavorite(c *gin.Context) {
	w.setFavorite(c, false)
}

func (w *WebController) setFavorite(c *gin.Context, on bool) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	changed, err := w.ContentServices.Favorites.SetFavorite(c.Request.Context(), id, middleware.CurrentIdentity(c).UserID, on)
	if err != nil {
		w.fail(c, err, recipePath(id))
		return
	}

	switch {
	case on && changed:
		metrics.RecordContentWrite("favorite", "create")
		middleware.AddFlash(c, middleware.FlashSuccess, "Recipe added to favorites.")
	case on:
		middleware.AddFlash(c, middleware.FlashInfo, "Recipe is already in your favorites.")
	case changed:
		metrics.RecordContentWrite("favorite", "delete")
		middleware.AddFlash(c, middleware.FlashSuccess, "Recipe removed from favorites.")
	default:
		middleware.AddFlash(c, middleware.FlashInfo, "Recipe was not in your favorites.")
	}
	c.Redirect(http.StatusFound, recipePath(id))
}

// recipeForm reads the recipe fields of a create or edit form submission
func (w *WebController) recipeForm(c *gin.Context) (services.RecipeInput, error) {
	if w.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, w.maxUploadBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.RecipeInput{}, &services.ValidationError{Field: "image", Message: "is too large"}
		}
		return services.RecipeInput{}, &services.ValidationError{Message: "invalid form submission"}
	}

	input := services.RecipeInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Ingredients: c.PostForm("ingredients"),
		Steps:       c.PostForm("steps"),
		Difficulty:  c.PostForm("difficulty"),
	}
	if category := strings.TrimSpace(c.PostForm("category")); category != "" {
		input.Category = &category
	}
	if raw := strings.TrimSpace(c.PostForm("duration_min")); raw != "" {
		duration, err := strconv.Atoi(raw)
		if err != nil {
			return input, &services.ValidationError{Field: "duration_min", Message: "must be a whole number"}
		}
		input.DurationMin = &duration
	}
	return input, nil
}

// attachImage stores an uploaded image, if any, and records its reference in input
func (w *WebController) attachImage(c *gin.Context, userID uint, input *services.RecipeInput) error {
	if w.Images == nil {
		return nil
	}
	file, header, err := c.Request.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) || (err == nil && header.Filename == "") {
		return nil
	}
	if err != nil {
		return &services.ValidationError{Field: "image", Message: "could not be read"}
	}
	defer file.Close()

	ref, err := w.Images.Save(c.Request.Context(), userID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		return err
	}
	input.ImageURL = &ref
	return nil
}

func (w *WebController) removeImage(c *gin.Context, ref *string) {
	if ref == nil || w.Images == nil {
		return
	}
	if err := w.Images.Delete(c.Request.Context(), *ref); err != nil {
		log.WithError(err).WithField("image", *ref).Warn("Failed to remove image")
	}
}

// rerenderForm shows the recipe form again with the submitted values and the
// error. Server errors fall through to the generic error page.
func (w *WebController) rerenderForm(c *gin.Context, err error, current *models.Recipe, input services.RecipeInput) {
	status, _ := classify(err)
	if status != http.StatusBadRequest {
		redirect := "/recipes/"
		if current != nil {
			redirect = recipePath(current.ID)
		}
		w.fail(c, err, redirect)
		return
	}

	action, title := "/recipes/new", "New recipe"
	if current != nil {
		action, title = recipePath(current.ID)+"/edit", "Edit "+current.Title
	}
	input.ImageURL = nil
	render(c, status, "recipes/form.html", gin.H{
		"Title":  title,
		"Action": action,
		"Recipe": current,
		"Form":   input,
		"Error":  userMessage(err, status),
	})
}
