package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/richxcame/geoippro/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestNewPostgresPool_InvalidConfig(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), &config.DatabaseConfig{Host: "localhost", Port: "not-a-port", SSLMode: "disable"})
	assert.Error(t, err)
}

func TestMigrate_MissingDirectory(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "127.0.0.1", Port: "1", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}

	err := Migrate(cfg, fstest.MapFS{}, "migrations")
	assert.Error(t, err)
}

func TestClose_NilPool(t *testing.T) {
	assert.NotPanics(t, func() { Close(nil) })
}
