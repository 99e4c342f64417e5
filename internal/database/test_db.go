package database

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InitTestDB opens a private in-memory SQLite database and migrates models.
func InitTestDB(models ...interface{}) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	return openSQLite(dsn, models...)
}

func CleanTestDB(db *gorm.DB) {
	_ = Close(db)
}
