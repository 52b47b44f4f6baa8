package config

import (
	"os"
	"strings"
)

// AutoMigrateOnBoot runs gorm AutoMigrate during server startup.
// Meant for dev environments; production schemas are migrated out-of-band.
//
// Set via env:
// - AUTO_MIGRATE=true
func AutoMigrateOnBoot() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("AUTO_MIGRATE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// RestockOnCancel returns stock to the shelf when a pending sub-order is cancelled.
// Disable only for businesses that reconcile stock manually.
//
// Set via env:
// - RESTOCK_ON_CANCEL=false (default true)
func RestockOnCancel() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RESTOCK_ON_CANCEL")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
