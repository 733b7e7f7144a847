package config

import (
	"github.com/cardfolio/cardfolio-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg Config) (*gorm.DB, error) {
	// TranslateError turns driver duplicate-key failures into
	// gorm.ErrDuplicatedKey so handlers can report unique violations.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.User{}, &models.Set{}, &models.Card{}); err != nil {
		return nil, err
	}

	return db, nil
}
