package models

import (
	"time"
)

// Rating is a 1-5 star vote. A user holds at most one rating per recipe,
// enforced by idx_rating_recipe_user.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_rating_recipe_user" json:"recipe_id"`
	Recipe    *Recipe   `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_rating_recipe_user;index" json:"user_id"`
	Stars     int       `gorm:"not null;check:chk_rating_stars,stars >= 1 AND stars <= 5" json:"stars"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingStat holds the derived rating figures of one recipe.
type RatingStat struct {
	RecipeID uint    `json:"recipe_id"`
	Average  float64 `json:"average"`
	Count    int64   `json:"count"`
}
