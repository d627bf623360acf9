package database_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punktepass/punktepass/internal/database"
)

func TestConfig_ConnectionString(t *testing.T) {
	cfg := database.Config{
		Host:     "db",
		Port:     5433,
		User:     "pp",
		Password: "secret",
		Database: "loyalty",
		SSLMode:  "require",
	}
	assert.Equal(t, "postgres://pp:secret@db:5433/loyalty?sslmode=require", cfg.ConnectionString())

	cfg.URL = "postgres://override/db"
	assert.Equal(t, "postgres://override/db", cfg.ConnectionString())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DATABASE_URL", "")

	cfg := database.ConfigFromEnv()
	assert.Equal(t, "pg.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "punktepass", cfg.Database)
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	assert.True(t, database.IsUniqueViolation(unique))
	assert.True(t, database.IsUniqueViolation(fmt.Errorf("insert: %w", unique)))
	assert.False(t, database.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, database.IsUniqueViolation(errors.New("boom")))
	assert.False(t, database.IsUniqueViolation(nil))
}

func TestMigrationNames(t *testing.T) {
	names, err := database.MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
}
