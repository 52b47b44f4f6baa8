package workflow

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
)

// AdvanceSubOrderStatus wraps the status change in a MySQL advisory lock so
// that two factory clients clicking "packed" at the same moment are
// serialized across instances even when Redis is down. The conditional
// UPDATE inside models.UpdateSubOrderStatus stays the final authority.
func AdvanceSubOrderStatus(ctx context.Context, id int, input *models.UpdateSubOrderStatusInput) (*models.SubOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	// A dedicated transaction pins GET_LOCK and RELEASE_LOCK to one connection.
	lockTx := db.WithContext(ctx).Begin()
	if lockTx.Error != nil {
		return nil, lockTx.Error
	}
	if err := AcquireSubOrderPackingLock(lockTx, businessId, id); err != nil {
		lockTx.Rollback()
		return nil, err
	}
	defer func() {
		ReleaseSubOrderPackingLock(lockTx, businessId, id)
		lockTx.Commit()
	}()

	return models.UpdateSubOrderStatus(ctx, id, input)
}
