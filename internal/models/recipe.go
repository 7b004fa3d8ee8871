package models

import (
	"time"
)

// Recipe represents a recipe posted by a user
type Recipe struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:140;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Ingredients string    `gorm:"type:text" json:"ingredients"`
	Steps       string    `gorm:"type:text" json:"steps"`
	Category    *string   `gorm:"size:64;index" json:"category"`
	DurationMin *int      `json:"duration_min"`
	Difficulty  string    `gorm:"size:32" json:"difficulty"`
	ImageURL    *string   `gorm:"size:255" json:"image_url"`
	CreatedBy   uint      `gorm:"not null;index" json:"created_by"`
	Author      *User     `gorm:"foreignKey:CreatedBy" json:"author,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecipeSummary is the listing projection of a recipe together with its
// derived rating figures.
type RecipeSummary struct {
	Recipe
	AverageRating float64 `json:"average_rating"`
	RatingCount   int64   `json:"rating_count"`
}
