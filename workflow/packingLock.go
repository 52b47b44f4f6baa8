package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireSubOrderPackingLock serializes packing work per sub-order across
// instances using MySQL advisory locks. Redis locks are best-effort only;
// this is the fallback that must hold.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the packing transaction.
func AcquireSubOrderPackingLock(tx *gorm.DB, businessId string, subOrderId int) error {
	lockName := fmt.Sprintf("packing:%s:%d", businessId, subOrderId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire packing lock for sub_order_id=%d", subOrderId)
	}
	return nil
}

func ReleaseSubOrderPackingLock(tx *gorm.DB, businessId string, subOrderId int) {
	lockName := fmt.Sprintf("packing:%s:%d", businessId, subOrderId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
