package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
)

// SubOrder is one factory's share of an order and the unit the fulfilment
// workflow tracks. TotalAmount is derived from the details; it is recomputed
// on every write and never treated as authoritative.
type SubOrder struct {
	ID             int                  `gorm:"primary_key" json:"id"`
	BusinessId     string               `gorm:"index;not null" json:"business_id"`
	OrderId        int                  `gorm:"index;not null" json:"order_id"`
	OrderNumber    string               `gorm:"size:255;not null" json:"order_number"`
	SubOrderNumber string               `gorm:"size:255;not null" json:"sub_order_number"`
	FactoryId      int                  `gorm:"index;not null" json:"factory_id"`
	BranchId       int                  `gorm:"index;not null" json:"branch_id"`
	OutletId       int                  `gorm:"index;not null" json:"outlet_id"`
	Category       ProductCategory      `gorm:"type:enum('Chocolate','Biscuits','Cakes','Namkeen','Sweets','Gift Hampers');not null" json:"category"`
	OrderDate      time.Time            `gorm:"index;not null" json:"order_date"`
	CurrentStatus  SubOrderStatus       `gorm:"type:enum('pending','packed','shipped','delivered','cancelled');not null" json:"current_status"`
	Notes          string               `gorm:"type:text" json:"notes"`
	TotalAmount    decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PackedAt       *time.Time           `json:"packed_at"`
	ShippedAt      *time.Time           `json:"shipped_at"`
	DeliveredAt    *time.Time           `json:"delivered_at"`
	CancelledAt    *time.Time           `json:"cancelled_at"`
	CreatedAt      time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
	Details        []SubOrderDetail     `gorm:"foreignKey:SubOrderId" json:"details"`
	Transitions    []SubOrderTransition `gorm:"foreignKey:SubOrderId" json:"transitions"`
}

type SubOrderDetail struct {
	ID         int             `gorm:"primary_key" json:"id"`
	SubOrderId int             `gorm:"index;not null" json:"sub_order_id"`
	ProductId  int             `gorm:"index;not null" json:"product_id"`
	Name       string          `gorm:"size:100" json:"name"`
	Category   ProductCategory `gorm:"type:enum('Chocolate','Biscuits','Cakes','Namkeen','Sweets','Gift Hampers');not null" json:"category"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitRate   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_rate"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
}

type UpdateSubOrderStatusInput struct {
	Status SubOrderStatus `json:"status" binding:"required"`
	Note   string         `json:"note"`
}

func (obj SubOrder) GetId() int {
	return obj.ID
}

func (obj SubOrder) GetBusinessId() string {
	return obj.BusinessId
}

// SubOrderFilter narrows GetSubOrders. Zero values mean "no filter".
type SubOrderFilter struct {
	FactoryId int
	BranchId  int
	OutletId  int
	Status    *SubOrderStatus
	DateFrom  *time.Time
	DateTo    *time.Time
}

func GetSubOrder(ctx context.Context, id int) (*SubOrder, error) {
	return GetResource[SubOrder](ctx, id, "Details", "Transitions")
}

func GetSubOrders(ctx context.Context, filter SubOrderFilter) ([]*SubOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*SubOrder

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("Details")
	if filter.FactoryId > 0 {
		dbCtx = dbCtx.Where("factory_id = ?", filter.FactoryId)
	}
	if filter.BranchId > 0 {
		dbCtx = dbCtx.Where("branch_id = ?", filter.BranchId)
	}
	if filter.OutletId > 0 {
		dbCtx = dbCtx.Where("outlet_id = ?", filter.OutletId)
	}
	if filter.Status != nil {
		dbCtx = dbCtx.Where("current_status = ?", *filter.Status)
	}
	if filter.DateFrom != nil {
		dbCtx = dbCtx.Where("order_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		dbCtx = dbCtx.Where("order_date <= ?", *filter.DateTo)
	}
	// db query
	err := dbCtx.Order("order_date DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// advanceStatus runs one guarded transition. swap must atomically move the
// stored status to next only while it still equals from, and report whether
// this caller won. Of several concurrent callers racing the same step exactly
// one wins; the rest get ErrInvalidTransition with the stored state untouched.
func advanceStatus(current SubOrderStatus, next SubOrderStatus, swap func(from, to SubOrderStatus) (bool, error)) error {
	if !current.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	won, err := swap(current, next)
	if err != nil {
		return err
	}
	if !won {
		return ErrInvalidTransition
	}
	return nil
}

// UpdateSubOrderStatus advances a sub-order one step along
// pending -> packed -> shipped -> delivered, or cancels it while pending.
//
// A redis lock keeps concurrent factory clients from doing the same work
// twice, but the authority is the conditional UPDATE below: whichever request
// loses the race matches zero rows and gets ErrInvalidTransition, with the
// stored state unchanged.
func UpdateSubOrderStatus(ctx context.Context, id int, input *UpdateSubOrderStatusInput) (*SubOrder, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	subOrder, err := utils.FetchModel[SubOrder](ctx, businessId, id, "Details")
	if err != nil {
		return nil, err
	}

	next := input.Status
	if !subOrder.CurrentStatus.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	// best-effort serialization per sub-order
	if err := utils.BusinessLock(ctx, fmt.Sprintf("%s:%d", businessId, id),
		"subOrderStatus", "subOrder.go", "UpdateSubOrderStatus"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"current_status": next,
	}
	switch next {
	case SubOrderStatusPacked:
		updates["packed_at"] = &now
	case SubOrderStatusShipped:
		updates["shipped_at"] = &now
	case SubOrderStatusDelivered:
		updates["delivered_at"] = &now
	case SubOrderStatusCancelled:
		updates["cancelled_at"] = &now
	}

	fromStatus := subOrder.CurrentStatus

	tx := db.Begin()
	err = advanceStatus(fromStatus, next, func(from, to SubOrderStatus) (bool, error) {
		result := tx.WithContext(ctx).Model(&SubOrder{}).
			Where("id = ? AND business_id = ? AND current_status = ?", id, businessId, from).
			Updates(updates)
		if result.Error != nil {
			return false, result.Error
		}
		// zero rows means another request moved the status first
		return result.RowsAffected > 0, nil
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := createSubOrderTransitionTx(tx, ctx, businessId, id, fromStatus, next, input.Note); err != nil {
		tx.Rollback()
		return nil, err
	}

	// cancelling a pending sub-order puts its stock back
	if next == SubOrderStatusCancelled && config.RestockOnCancel() {
		for _, detail := range subOrder.Details {
			if err := restoreStockTx(tx.WithContext(ctx), businessId, detail.ProductId, detail.Qty); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	statusChange := map[string]any{
		"sub_order_number": subOrder.SubOrderNumber,
		"order_number":     subOrder.OrderNumber,
		"factory_id":       subOrder.FactoryId,
		"from_status":      fromStatus,
		"to_status":        next,
	}
	if err := publishOrderEventTx(tx, ctx, businessId,
		OrderEventRefTypeSubOrder, id, OrderEventActionStatusChanged, statusChange); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	subOrder.CurrentStatus = next
	switch next {
	case SubOrderStatusPacked:
		subOrder.PackedAt = &now
	case SubOrderStatusShipped:
		subOrder.ShippedAt = &now
	case SubOrderStatusDelivered:
		subOrder.DeliveredAt = &now
	case SubOrderStatusCancelled:
		subOrder.CancelledAt = &now
		if config.RestockOnCancel() {
			for _, detail := range subOrder.Details {
				if err := utils.RemoveRedisItem[Product](detail.ProductId); err != nil {
					return nil, err
				}
			}
			if err := utils.RemoveRedisList[Product](businessId); err != nil {
				return nil, err
			}
		}
	}
	if err := utils.RemoveRedisItem[SubOrder](id); err != nil {
		return nil, err
	}

	return subOrder, nil
}
