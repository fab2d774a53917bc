// Package setting keeps small named values in the settings table.
package setting

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/assetdesk/assetdesk/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"

	// KeyAuthProvider records the authentication provider the service last booted with.
	KeyAuthProvider = "auth.provider"
	// KeySeeded marks that the bootstrap administrator was created.
	KeySeeded = "bootstrap.seeded"
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when attempting to read or write a setting with an empty name.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a setting value by its name.
func Get(ctx context.Context, db *gorm.DB, name string) ([]byte, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var s models.Setting

	err := db.WithContext(ctx).Where(nameQueryPattern, name).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSettingNotFound
	}

	if err != nil {
		return nil, err
	}

	return s.Value, nil
}

// Set creates or updates a setting by name.
func Set(ctx context.Context, db *gorm.DB, name string, value []byte) error {
	if db == nil {
		return ErrDBNil
	}

	if name == "" {
		return ErrSettingNameEmpty
	}

	var s models.Setting

	err := db.WithContext(ctx).Where(nameQueryPattern, name).First(&s).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.WithContext(ctx).Create(&models.Setting{Name: name, Value: value}).Error
	case err != nil:
		return err
	}

	s.Value = value

	return db.WithContext(ctx).Save(&s).Error
}
