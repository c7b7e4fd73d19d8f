package db

import (
	"testing"

	"TrackFM/config"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBUser:     "fm",
		DBPassword: "secret",
		DBHost:     "db.internal",
		DBPort:     "3307",
		DBName:     "trackfm",
	}

	dsn := DSN(cfg)

	assert.Contains(t, dsn, "fm:secret@tcp(db.internal:3307)/trackfm?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "clientFoundRows=true")
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, gormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, gormLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel("anything"))
}
