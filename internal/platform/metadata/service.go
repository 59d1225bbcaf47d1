package metadata

import (
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMissing is returned by the typed helpers when a key has never been written.
var ErrMissing = errors.New("metadata key not set")

// --- Generic Accessors ---

// GetValue retrieves a value for a given key from the metadata table.
// The boolean result reports whether the key exists.
func GetValue(db *gorm.DB, key string) (string, bool, error) {
	var meta Metadata
	err := db.Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return meta.Value, true, nil
}

// SetValue creates or updates a value for a given key.
func SetValue(db *gorm.DB, key, value string) error {
	// Use GORM's OnConflict clause for an efficient and atomic "upsert" operation.
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// --- Specific Helpers for Type Conversion ---

// GetInt retrieves and parses an integer value.
func GetInt(db *gorm.DB, key string) (int, error) {
	valueStr, ok, err := GetValue(db, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissing, key)
	}
	n, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("无法解析元数据 '%s' 的值: %w", key, err)
	}
	return n, nil
}

// SetInt formats and sets an integer value.
func SetInt(db *gorm.DB, key string, n int) error {
	return SetValue(db, key, strconv.Itoa(n))
}
