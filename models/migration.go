package models

import (
	"gorm.io/gorm"
)

// MigrateModels runs gorm AutoMigrate for every table the service owns.
// Used by dev boots (AUTO_MIGRATE=true) and the seed command.
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Product{},
		&Factory{},
		&FactoryCategory{},
		&Branch{},
		&Outlet{},
		&Order{},
		&SubOrder{},
		&SubOrderDetail{},
		&SubOrderTransition{},
		&OrderEventRecord{},
	)
}
