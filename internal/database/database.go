package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wikiport/internal/entities"
)

// defaultWorkspace seeds a usable import target on first start, so an
// archive can be imported without any prior setup: the target resolver's
// last fallback picks this workspace's space.
var defaultWorkspace = entities.Workspace{
	Name: "Default Workspace",
	Spaces: []entities.Space{
		{Key: "MAIN", Name: "Main Space", Description: "Default space for imported content"},
	},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Workspace{},
		&entities.Space{},
		&entities.Page{},
		&entities.Attachment{},
		&entities.ImportJob{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedDefaultWorkspace(); err != nil {
		return nil, fmt.Errorf("failed to seed default workspace: %w", err)
	}

	return database, nil
}

func (d *Database) seedDefaultWorkspace() error {
	var count int64
	if err := d.DB.Model(&entities.Workspace{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	ws := defaultWorkspace
	return d.DB.Create(&ws).Error
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
