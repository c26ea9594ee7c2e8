package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mewilker/jwt-pizza-service/internal/models"
)

func TestContextRoles(t *testing.T) {
	ac := Context{
		UserID: 3,
		Roles:  []models.UserRole{{Role: models.RoleDiner}, {Role: models.RoleAdmin}},
	}
	assert.True(t, ac.Authenticated())
	assert.True(t, ac.HasRole(models.RoleAdmin))
	assert.True(t, ac.HasRole(models.RoleDiner))
	assert.False(t, ac.HasRole(models.RoleFranchisee))
}

func TestZeroContextIsUnauthenticated(t *testing.T) {
	var ac Context
	assert.False(t, ac.Authenticated())
	assert.False(t, ac.HasRole(models.RoleAdmin))
}

func TestContextCarriedInRequestContext(t *testing.T) {
	ac := Context{UserID: 9, Name: "n", Email: "e@jwt.com"}
	ctx := WithContext(context.Background(), ac)
	assert.Equal(t, ac, FromContext(ctx))
	assert.Equal(t, Context{}, FromContext(context.Background()))
}
