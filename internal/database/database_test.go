package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/minpic/core/internal/config"
	"github.com/minpic/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMinioPathIsUnique(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)

	first := models.File{Filename: "a.png", MinioPath: "up/a.png", MimeType: "image/png", FileType: models.FileImage}
	require.NoError(t, db.Create(&first).Error)

	dup := models.File{Filename: "copy.png", MinioPath: "up/a.png", MimeType: "image/png", FileType: models.FileImage}
	err = db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	var count int64
	require.NoError(t, db.Model(&models.File{}).Where("minio_path = ?", "up/a.png").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsDuplicateKey(errors.New("boom")))
	assert.True(t, IsDuplicateKey(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKey(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicateKey(&mysqldriver.MySQLError{Number: 1045}))
}

func TestOpenMemoryIsolated(t *testing.T) {
	a, err := OpenMemory()
	require.NoError(t, err)
	b, err := OpenMemory()
	require.NoError(t, err)

	require.NoError(t, a.Create(&models.OptionModel{Name: "k", Value: "v"}).Error)

	var count int64
	require.NoError(t, b.Model(&models.OptionModel{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestConnectSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "minpic.db")
	cfg := &config.AppConfig{Database: config.DatabaseConfig{Driver: config.DriverSQLite, DSN: path}}

	db, err := Connect(cfg, true)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	assert.True(t, db.Migrator().HasTable(&models.File{}))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
