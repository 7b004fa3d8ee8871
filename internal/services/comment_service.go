package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"gorm.io/gorm"
)

// CommentService provides methods to add and read recipe comments
type CommentService interface {
	AddComment(ctx context.Context, recipeID, userID uint, text string) (*models.Comment, error)
	// ListComments returns the comments of a recipe, newest first
	ListComments(ctx context.Context, recipeID uint) ([]models.Comment, error)
}

type commentService struct {
	db *gorm.DB
}

// NewCommentService creates a new instance of CommentService
func NewCommentService(db *gorm.DB) CommentService {
	return &commentService{db: db}
}

func (s *commentService) AddComment(ctx context.Context, recipeID, userID uint, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("text", "is required")
	}

	comment := &models.Comment{RecipeID: recipeID, UserID: userID, Text: text}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRecipe(tx, recipeID); err != nil {
			return err
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return comment, nil
}

func (s *commentService) ListComments(ctx context.Context, recipeID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := s.db.WithContext(ctx).Preload("Author").
		Where("recipe_id = ?", recipeID).
		Order("created_at DESC").Order("id DESC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list comments of recipe %d: %w", recipeID, err)
	}
	return comments, nil
}
