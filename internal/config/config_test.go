package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PIZZA_DATABASE_URL", "postgres://pizza:pw@localhost:5432/pizza")
	t.Setenv("PIZZA_JWT_SECRET", "supersecret")
	t.Setenv("PIZZA_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://pizza:pw@localhost:5432/pizza", cfg.Database.URL)
	assert.Equal(t, "supersecret", cfg.JWT.Secret)
	assert.Equal(t, ":9090", cfg.HTTPAddress())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PIZZA_DATABASE_URL", "postgres://localhost/pizza")
	t.Setenv("PIZZA_JWT_SECRET", "supersecret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.List.PerPage)
	assert.Equal(t, "a@jwt.com", cfg.Admin.Email)
	assert.Equal(t, "jwt-pizza-service", cfg.JWT.Issuer)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("PIZZA_DATABASE_URL", "")
	t.Setenv("PIZZA_JWT_SECRET", "supersecret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("PIZZA_DATABASE_URL", "postgres://localhost/pizza")
	t.Setenv("PIZZA_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}
