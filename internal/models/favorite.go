package models

import (
	"time"
)

// Favorite marks a recipe as bookmarked by a user, at most once per pair
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorite_recipe_user" json:"recipe_id"`
	Recipe    *Recipe   `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_recipe_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
