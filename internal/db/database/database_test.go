package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoPowerDNS-Admin/go-settings/internal/config"
	"github.com/GoPowerDNS-Admin/go-settings/internal/db/models"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		engine  string
		name    string
		wantErr error
	}{
		{engine: config.EngineMySQL, name: "mysql"},
		{engine: "", name: "mysql"},
		{engine: config.EnginePostgres, name: "postgres"},
		{engine: config.EngineSQLite, name: "sqlite"},
		{engine: "oracle", wantErr: config.ErrUnknownGormEngine},
	}

	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			d, err := Dialector(&config.Config{DB: config.DB{GormEngine: tt.engine}})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.name, d.Name())
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	cfg := &config.Config{DB: config.DB{
		GormEngine: config.EngineSQLite,
		Name:       filepath.Join(t.TempDir(), "var", "settings.db"),
		LogLevel:   "silent",
	}}

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Setting{}))
	assert.True(t, db.Migrator().HasTable("settings"))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, parseLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, parseLogLevel("error"))
	assert.Equal(t, gormlogger.Info, parseLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, parseLogLevel(""))
}
