package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tabula.db", cfg.StoreURI)
	assert.Equal(t, 5000, cfg.Port)
	assert.Empty(t, cfg.EditableFields)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.Debug)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TABULA_STORE_URI", "mongodb://localhost:27017/tabula")
	t.Setenv("TABULA_PORT", "8080")
	t.Setenv("TABULA_DEBUG", "true")
	t.Setenv("TABULA_EDITABLE_FIELDS", "Status Duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017/tabula", cfg.StoreURI)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"Status", "Duration"}, cfg.EditableFields)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("TABULA_PORT", "-1")
	_, err := Load()
	assert.Error(t, err)
}
