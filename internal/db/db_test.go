package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/celestiaorg/vidbatch/internal/db/models"
)

func TestDSNDefaults(t *testing.T) {
	assert.Equal(t,
		"host=localhost user=postgres password=postgres dbname=vidbatch port=5432 sslmode=disable",
		DSN(Options{}))

	ssl := true
	assert.Equal(t,
		"postgres://app:secret@db:6543/videos?sslmode=require",
		URL(Options{Host: "db", Port: 6543, User: "app", Password: "secret", DBName: "videos", SSLEnabled: &ssl}))
}

func TestMigrate(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared&_json=1"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, Migrate(gdb))
	for _, model := range []interface{}{&models.Project{}, &models.DataFile{}, &models.PromptTemplate{}, &models.VideoJob{}} {
		assert.True(t, gdb.Migrator().HasTable(model))
	}
	assert.True(t, gdb.Migrator().HasIndex(&models.VideoJob{}, "idx_video_jobs_project_row"))
}
