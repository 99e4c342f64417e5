package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage backend kinds accepted by OpenBackend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type collectionBlob struct {
	Name      string `gorm:"primaryKey"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (collectionBlob) TableName() string { return "collections" }

// SQLiteBackend keeps one row per collection in the collections table.
type SQLiteBackend struct {
	db *gorm.DB
}

func NewSQLiteBackend(db *gorm.DB) (*SQLiteBackend, error) {
	if err := db.AutoMigrate(&collectionBlob{}); err != nil {
		return nil, fmt.Errorf("migrate collections: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Read(name string) ([]byte, error) {
	var row collectionBlob
	err := b.db.Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoBlob
	}
	if err != nil {
		return nil, err
	}
	return row.Data, nil
}

func (b *SQLiteBackend) Write(name string, data []byte) error {
	row := collectionBlob{Name: name, Data: data, UpdatedAt: time.Now().UTC()}
	return b.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// OpenSQLite opens (creating if needed) the database file at path and migrates models.
func OpenSQLite(path string, models ...interface{}) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return openSQLite(path, models...)
}

func openSQLite(dsn string, models ...interface{}) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OpenBackend builds the storage backend named by kind. The returned close
// function releases any resources held by the backend.
func OpenBackend(kind, dataDir, sqlitePath string) (Backend, func() error, error) {
	noop := func() error { return nil }
	switch kind {
	case "", BackendFile:
		b, err := NewFileBackend(dataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open file backend: %w", err)
		}
		return b, noop, nil
	case BackendSQLite:
		db, err := OpenSQLite(sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		b, err := NewSQLiteBackend(db)
		if err != nil {
			Close(db)
			return nil, nil, err
		}
		return b, func() error { return Close(db) }, nil
	case BackendMemory:
		return NewMemoryBackend(), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", kind)
}
