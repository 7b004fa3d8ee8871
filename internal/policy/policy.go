// Package policy decides whether an identity may change a recipe.
package policy

import (
	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
)

// CanModify reports whether the requester may edit or delete the recipe:
// only its author or an admin may.
func CanModify(recipe *models.Recipe, requesterID uint, requesterIsAdmin bool) bool {
	if recipe == nil {
		return false
	}
	if requesterIsAdmin {
		return true
	}
	return requesterID != 0 && recipe.CreatedBy == requesterID
}

// Allows is CanModify for a resolved identity
func Allows(recipe *models.Recipe, id models.Identity) bool {
	return CanModify(recipe, id.UserID, id.IsAdmin)
}
