package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"gorm.io/gorm"
)

// SubOrderTransition is the append-only audit trail of a sub-order's
// lifecycle. Rows are only ever inserted.
type SubOrderTransition struct {
	ID         int            `gorm:"primary_key" json:"id"`
	BusinessId string         `gorm:"index;not null" json:"business_id"`
	SubOrderId int            `gorm:"index;not null" json:"sub_order_id"`
	FromStatus SubOrderStatus `gorm:"type:enum('pending','packed','shipped','delivered','cancelled');default:null" json:"from_status"`
	ToStatus   SubOrderStatus `gorm:"type:enum('pending','packed','shipped','delivered','cancelled');not null" json:"to_status"`
	UserId     int            `json:"user_id"`
	UserName   string         `gorm:"size:100" json:"user_name"`
	Note       string         `gorm:"size:255" json:"note"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// createSubOrderTransitionTx appends an audit row inside the caller's tx.
// fromStatus is empty for the initial pending row.
func createSubOrderTransitionTx(tx *gorm.DB, ctx context.Context, businessId string,
	subOrderId int, fromStatus SubOrderStatus, toStatus SubOrderStatus, note string) error {

	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	transition := SubOrderTransition{
		BusinessId: businessId,
		SubOrderId: subOrderId,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		UserId:     userId,
		UserName:   userName,
		Note:       note,
	}
	return tx.WithContext(ctx).Create(&transition).Error
}

func GetSubOrderTransitions(ctx context.Context, subOrderId int) ([]*SubOrderTransition, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*SubOrderTransition
	err := db.WithContext(ctx).
		Where("business_id = ? AND sub_order_id = ?", businessId, subOrderId).
		Order("id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
