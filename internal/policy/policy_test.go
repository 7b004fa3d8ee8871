package policy

import (
	"testing"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCanModify(t *testing.T) {
	recipe := &models.Recipe{ID: 1, CreatedBy: 7}

	testCases := []struct {
		name        string
		requesterID uint
		isAdmin     bool
		expected    bool
	}{
		{name: "owner may modify", requesterID: 7, expected: true},
		{name: "admin may modify", requesterID: 99, isAdmin: true, expected: true},
		{name: "admin owner may modify", requesterID: 7, isAdmin: true, expected: true},
		{name: "other user may not", requesterID: 8, expected: false},
		{name: "anonymous may not", requesterID: 0, expected: false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanModify(recipe, tt.requesterID, tt.isAdmin))
		})
	}
}

func TestCanModifyOnlyOwnerOrAdminAcrossRecipes(t *testing.T) {
	for owner := uint(1); owner <= 5; owner++ {
		recipe := &models.Recipe{ID: owner * 10, CreatedBy: owner}
		for requester := uint(1); requester <= 5; requester++ {
			assert.Equal(t, requester == owner, CanModify(recipe, requester, false),
				"owner=%d requester=%d", owner, requester)
			assert.True(t, CanModify(recipe, requester, true))
		}
	}
}

func TestCanModifyNilRecipe(t *testing.T) {
	assert.False(t, CanModify(nil, 1, true))
}

func TestAllows(t *testing.T) {
	recipe := &models.Recipe{CreatedBy: 3}
	assert.True(t, Allows(recipe, models.Identity{UserID: 3}))
	assert.False(t, Allows(recipe, models.Identity{UserID: 4}))
	assert.True(t, Allows(recipe, models.Identity{UserID: 4, IsAdmin: true}))
}
