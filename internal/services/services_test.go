package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/franciscosanchezn/gin-recipe-api/internal/database"
	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	users     UserService
	recipes   RecipeService
	comments  CommentService
	ratings   RatingService
	favorites FavoriteService
	query     QueryService
}

func setupTestDB(t *testing.T) *fixture {
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	query := NewQueryService(db)
	return &fixture{
		db:        db,
		users:     NewUserService(db, NewBcryptHasher(bcrypt.MinCost)),
		recipes:   NewRecipeService(db, query),
		comments:  NewCommentService(db),
		ratings:   NewRatingService(db),
		favorites: NewFavoriteService(db),
		query:     query,
	}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	u, err := f.users.Register(context.Background(), RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret-" + name,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) recipe(t *testing.T, owner uint, title string, category *string) *models.Recipe {
	r, err := f.recipes.CreateRecipe(context.Background(), RecipeInput{Title: title, Category: category}, owner)
	require.NoError(t, err)
	return r
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreateRecipeValidation(t *testing.T) {
	f := setupTestDB(t)
	owner := f.user(t, "alice")
	ctx := context.Background()

	tests := []struct {
		name  string
		input RecipeInput
		field string
	}{
		{"empty title", RecipeInput{Title: ""}, "title"},
		{"blank title", RecipeInput{Title: "   "}, "title"},
		{"negative duration", RecipeInput{Title: "Soup", DurationMin: intPtr(-5)}, "durationmin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.recipes.CreateRecipe(ctx, tt.input, owner.ID)
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	r, err := f.recipes.CreateRecipe(ctx, RecipeInput{
		Title:       " Soup ",
		Category:    strPtr("  "),
		DurationMin: intPtr(0),
	}, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Soup", r.Title)
	assert.Nil(t, r.Category)
	assert.Equal(t, owner.ID, r.CreatedBy)
}

func TestUpdateAndDeleteAuthorization(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	other := f.user(t, "other")
	admin, err := f.users.EnsureAdmin(ctx, RegisterInput{Username: "root", Email: "root@example.com", Password: "pw"})
	require.NoError(t, err)

	r := f.recipe(t, owner.ID, "Bread", nil)

	_, _, err = f.recipes.UpdateRecipe(ctx, r.ID, RecipeInput{Title: "Stolen"}, models.IdentityOf(other))
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.recipes.UpdateRecipe(ctx, r.ID+100, RecipeInput{Title: "Ghost"}, models.IdentityOf(owner))
	assert.ErrorIs(t, err, ErrNotFound)

	updated, _, err := f.recipes.UpdateRecipe(ctx, r.ID, RecipeInput{Title: "Sourdough"}, models.IdentityOf(owner))
	require.NoError(t, err)
	assert.Equal(t, "Sourdough", updated.Title)

	updated, _, err = f.recipes.UpdateRecipe(ctx, r.ID, RecipeInput{Title: "Rye"}, models.IdentityOf(admin))
	require.NoError(t, err)
	assert.Equal(t, "Rye", updated.Title)

	_, _, err = f.recipes.UpdateRecipe(ctx, r.ID, RecipeInput{Title: ""}, models.IdentityOf(owner))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.recipes.DeleteRecipe(ctx, r.ID, models.IdentityOf(other))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.recipes.DeleteRecipe(ctx, r.ID, models.Identity{})
	assert.ErrorIs(t, err, ErrForbidden)

	deleted, err := f.recipes.DeleteRecipe(ctx, r.ID, models.IdentityOf(admin))
	require.NoError(t, err)
	assert.Equal(t, r.ID, deleted.ID)

	_, err = f.recipes.GetRecipe(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRecipeKeepsOrReplacesImage(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")

	r, err := f.recipes.CreateRecipe(ctx, RecipeInput{Title: "Cake", ImageURL: strPtr("/static/uploads/1_a.png")}, owner.ID)
	require.NoError(t, err)

	updated, replaced, err := f.recipes.UpdateRecipe(ctx, r.ID, RecipeInput{Title: "Cake 2"}, models.IdentityOf(owner))
	require.NoError(t, err)
	assert.Nil(t, replaced)
	require.NotNil(t, updated.ImageURL)
	assert.Equal(t, "/static/uploads/1_a.png", *updated.ImageURL)

	updated, replaced, err = f.recipes.UpdateRecipe(ctx, r.ID, RecipeInput{Title: "Cake 3", ImageURL: strPtr("/static/uploads/1_b.png")}, models.IdentityOf(owner))
	require.NoError(t, err)
	require.NotNil(t, replaced)
	assert.Equal(t, "/static/uploads/1_a.png", *replaced)
	assert.Equal(t, "/static/uploads/1_b.png", *updated.ImageURL)
}

func TestDeleteRecipeCascades(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	fan := f.user(t, "bob")

	r := f.recipe(t, owner.ID, "Stew", nil)
	keep := f.recipe(t, owner.ID, "Salad", nil)

	for _, id := range []uint{r.ID, keep.ID} {
		_, err := f.comments.AddComment(ctx, id, fan.ID, "tasty")
		require.NoError(t, err)
		_, err = f.ratings.UpsertRating(ctx, id, fan.ID, 4)
		require.NoError(t, err)
		_, err = f.favorites.SetFavorite(ctx, id, fan.ID, true)
		require.NoError(t, err)
	}

	_, err := f.recipes.DeleteRecipe(ctx, r.ID, models.IdentityOf(owner))
	require.NoError(t, err)

	for _, model := range []interface{}{&models.Comment{}, &models.Rating{}, &models.Favorite{}} {
		var orphans, remaining int64
		require.NoError(t, f.db.Model(model).Where("recipe_id = ?", r.ID).Count(&orphans).Error)
		require.NoError(t, f.db.Model(model).Where("recipe_id = ?", keep.ID).Count(&remaining).Error)
		assert.Zero(t, orphans, "%T rows left for deleted recipe", model)
		assert.Equal(t, int64(1), remaining, "%T rows of other recipe", model)
	}
}

func TestUpsertRatingKeepsOneRow(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	rater := f.user(t, "bob")
	r := f.recipe(t, owner.ID, "Pie", nil)

	first, err := f.ratings.UpsertRating(ctx, r.ID, rater.ID, 2)
	require.NoError(t, err)
	second, err := f.ratings.UpsertRating(ctx, r.ID, rater.ID, 5)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Stars)

	var count int64
	require.NoError(t, f.db.Model(&models.Rating{}).Where("recipe_id = ? AND user_id = ?", r.ID, rater.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := f.ratings.GetUserRating(ctx, r.ID, rater.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Stars)

	_, err = f.ratings.GetUserRating(ctx, r.ID, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertRatingConcurrent(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	rater := f.user(t, "bob")
	r := f.recipe(t, owner.ID, "Pie", nil)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(stars int) {
			defer wg.Done()
			_, err := f.ratings.UpsertRating(ctx, r.ID, rater.ID, stars)
			errs <- err
		}(i%5 + 1)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Rating{}).Where("recipe_id = ?", r.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertRatingRejectsInvalid(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	r := f.recipe(t, owner.ID, "Pie", nil)

	for _, stars := range []int{0, 6, -1} {
		_, err := f.ratings.UpsertRating(ctx, r.ID, owner.ID, stars)
		assert.ErrorIs(t, err, ErrValidation, "stars=%d", stars)
	}

	_, err := f.ratings.UpsertRating(ctx, r.ID+50, owner.ID, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetFavoriteIdempotent(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	r := f.recipe(t, owner.ID, "Tacos", nil)

	changed, err := f.favorites.SetFavorite(ctx, r.ID, owner.ID, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.favorites.SetFavorite(ctx, r.ID, owner.ID, true)
	require.NoError(t, err)
	assert.False(t, changed)

	var count int64
	require.NoError(t, f.db.Model(&models.Favorite{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	fav, err := f.favorites.IsFavorite(ctx, r.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, fav)

	changed, err = f.favorites.SetFavorite(ctx, r.ID, owner.ID, false)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.favorites.SetFavorite(ctx, r.ID, owner.ID, false)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = f.favorites.SetFavorite(ctx, r.ID+10, owner.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFavoriteRecipesOrder(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	older := f.recipe(t, owner.ID, "Older", nil)
	newer := f.recipe(t, owner.ID, "Newer", nil)

	// favorite the newer recipe first
	_, err := f.favorites.SetFavorite(ctx, newer.ID, owner.ID, true)
	require.NoError(t, err)
	_, err = f.favorites.SetFavorite(ctx, older.ID, owner.ID, true)
	require.NoError(t, err)

	byRecipe, err := f.favorites.ListFavoriteRecipes(ctx, owner.ID, ByRecipeDate)
	require.NoError(t, err)
	require.Len(t, byRecipe, 2)
	assert.Equal(t, newer.ID, byRecipe[0].ID)

	byFavorite, err := f.favorites.ListFavoriteRecipes(ctx, owner.ID, ByFavoriteDate)
	require.NoError(t, err)
	require.Len(t, byFavorite, 2)
	assert.Equal(t, older.ID, byFavorite[0].ID)

	ids, err := f.query.FavoriteIDs(ctx, owner.ID)
	require.NoError(t, err)
	assert.Contains(t, ids, older.ID)
	assert.Contains(t, ids, newer.ID)
}

func TestAverageRatingRounding(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	r := f.recipe(t, owner.ID, "Curry", nil)

	avg, err := f.query.AverageRating(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	for i, stars := range []int{4, 4, 5} {
		u := f.user(t, fmt.Sprintf("rater%d", i))
		_, err := f.ratings.UpsertRating(ctx, r.ID, u.ID, stars)
		require.NoError(t, err)
	}

	avg, err = f.query.AverageRating(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.3, avg)

	stats, err := f.query.RatingStats(ctx, []uint{r.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats[r.ID].Count)
}

func TestAverageRatingOfMixedScores(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	r := f.recipe(t, owner.ID, "Stew", nil)

	for i, stars := range []int{3, 4, 5} {
		u := f.user(t, fmt.Sprintf("judge%d", i))
		_, err := f.ratings.UpsertRating(ctx, r.ID, u.ID, stars)
		require.NoError(t, err)
	}

	avg, err := f.query.AverageRating(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
}

func TestAverageRatingRoundsHalfToEven(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	r := f.recipe(t, owner.ID, "Soup", nil)

	for i, stars := range []int{3, 3, 3, 4} {
		u := f.user(t, fmt.Sprintf("taster%d", i))
		_, err := f.ratings.UpsertRating(ctx, r.ID, u.ID, stars)
		require.NoError(t, err)
	}

	avg, err := f.query.AverageRating(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.2, avg)
}

func TestRoundRating(t *testing.T) {
	cases := []struct {
		total, count int64
		want         float64
	}{
		{13, 4, 3.2},
		{15, 4, 3.8},
		{12, 3, 4.0},
		{13, 3, 4.3},
		{0, 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, roundRating(tc.total, tc.count), "%d/%d", tc.total, tc.count)
	}
}

func TestListRecipesPaginationAndFilter(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")

	var created []*models.Recipe
	for i := 0; i < 25; i++ {
		cat := "dinner"
		if i%5 == 0 {
			cat = "dessert"
		}
		created = append(created, f.recipe(t, owner.ID, fmt.Sprintf("Recipe %02d", i), strPtr(cat)))
	}

	page, err := f.recipes.ListRecipes(ctx, ListFilter{Page: 2, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	require.Len(t, page.Items, 10)
	assert.Equal(t, created[14].ID, page.Items[0].ID)

	page, err = f.recipes.ListRecipes(ctx, ListFilter{Category: "dessert"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, DefaultPerPage, page.PerPage)
	for _, item := range page.Items {
		require.NotNil(t, item.Category)
		assert.Equal(t, "dessert", *item.Category)
	}

	page, err = f.recipes.ListRecipes(ctx, ListFilter{Page: 0, PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, MaxPerPage, page.PerPage)

	page, err = f.recipes.ListRecipes(ctx, ListFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(25), page.Total)

	for _, sortBy := range []string{SortByDate, SortByRating} {
		filter := ListFilter{Sort: sortBy, Page: 576460752303423489, PerPage: 20}
		assert.NotPanics(t, func() {
			page, err = f.recipes.ListRecipes(ctx, filter)
		}, sortBy)
		require.NoError(t, err, sortBy)
		assert.Empty(t, page.Items, sortBy)
		assert.Equal(t, int64(25), page.Total, sortBy)
		assert.Equal(t, math.MaxInt/MaxPerPage, page.Page, sortBy)
	}

	categories, err := f.query.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dessert", "dinner"}, categories)
}

func TestListRecipesRatingSortOrdersByAverage(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	rater := f.user(t, "bob")

	stars := map[string]int{"Five": 5, "Three": 3, "Zero": 0, "Four": 4}
	for _, title := range []string{"Five", "Three", "Zero", "Four"} {
		r := f.recipe(t, owner.ID, title, nil)
		if stars[title] == 0 {
			continue
		}
		_, err := f.ratings.UpsertRating(ctx, r.ID, rater.ID, stars[title])
		require.NoError(t, err)
	}

	page, err := f.recipes.ListRecipes(ctx, ListFilter{Sort: SortByRating})
	require.NoError(t, err)

	var titles []string
	var averages []float64
	for _, item := range page.Items {
		titles = append(titles, item.Title)
		averages = append(averages, item.AverageRating)
	}
	assert.Equal(t, []string{"Five", "Four", "Three", "Zero"}, titles)
	assert.Equal(t, []float64{5, 4, 3, 0}, averages)
}

func TestListRecipesRatingSort(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	rater := f.user(t, "bob")

	a := f.recipe(t, owner.ID, "A", nil)
	b := f.recipe(t, owner.ID, "B", nil)
	c := f.recipe(t, owner.ID, "C", nil)
	d := f.recipe(t, owner.ID, "D", nil)

	for id, stars := range map[uint]int{a.ID: 3, b.ID: 5, d.ID: 5} {
		_, err := f.ratings.UpsertRating(ctx, id, rater.ID, stars)
		require.NoError(t, err)
	}

	page, err := f.recipes.ListRecipes(ctx, ListFilter{Sort: SortByRating})
	require.NoError(t, err)
	require.Len(t, page.Items, 4)

	var order []uint
	for _, item := range page.Items {
		order = append(order, item.ID)
	}
	// equal averages keep newest first
	assert.Equal(t, []uint{d.ID, b.ID, a.ID, c.ID}, order)
	assert.Equal(t, 5.0, page.Items[0].AverageRating)
	assert.Equal(t, int64(1), page.Items[0].RatingCount)

	page, err = f.recipes.ListRecipes(ctx, ListFilter{Sort: SortByRating, Page: 2, PerPage: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, c.ID, page.Items[0].ID)
}

func TestCommentsOrderAndValidation(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.user(t, "alice")
	r := f.recipe(t, owner.ID, "Pho", nil)

	_, err := f.comments.AddComment(ctx, r.ID, owner.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.comments.AddComment(ctx, r.ID+1, owner.ID, "hello")
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := f.comments.AddComment(ctx, r.ID, owner.ID, "first")
	require.NoError(t, err)
	second, err := f.comments.AddComment(ctx, r.ID, owner.ID, "second")
	require.NoError(t, err)

	comments, err := f.comments.ListComments(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second.ID, comments[0].ID)
	assert.Equal(t, first.ID, comments[1].ID)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "alice", comments[0].Author.Username)
}

func TestListRecipesByOwner(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	f.recipe(t, alice.ID, "One", nil)
	two := f.recipe(t, alice.ID, "Two", nil)
	f.recipe(t, bob.ID, "Other", nil)

	recipes, err := f.recipes.ListRecipesByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, two.ID, recipes[0].ID)
}
