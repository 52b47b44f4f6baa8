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

// Order is the outlet's cart as placed. It exists for traceability; the units
// of work the factories see are the SubOrder children.
type Order struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	OutletId    int             `gorm:"index;not null" json:"outlet_id"`
	BranchId    int             `gorm:"index;not null" json:"branch_id"`
	OrderNumber string          `gorm:"size:255;not null" json:"order_number"`
	SequenceNo  decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`
	OrderDate   time.Time       `gorm:"index;not null" json:"order_date"`
	Notes       string          `gorm:"type:text" json:"notes"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	SubOrders   []SubOrder      `gorm:"foreignKey:OrderId" json:"sub_orders"`
}

type NewOrder struct {
	OutletId int `json:"outlet_id" binding:"required"`
	// BranchId may be omitted; it then defaults to the caller's branch.
	BranchId int            `json:"branch_id"`
	Notes    string         `json:"notes"`
	Lines    []NewOrderLine `json:"lines" binding:"dive"`
}

func (obj Order) GetId() int {
	return obj.ID
}

func (obj Order) GetBusinessId() string {
	return obj.BusinessId
}

func (input *NewOrder) validate(ctx context.Context, businessId string) error {
	// exists outlet
	if err := utils.ValidateResourceId[Outlet](ctx, businessId, input.OutletId); err != nil {
		return errors.New("outlet not found")
	}
	// exists pickup branch
	if err := utils.ValidateResourceId[Branch](ctx, businessId, input.BranchId); err != nil {
		return errors.New("branch not found")
	}
	return nil
}

// CreateOrder places an order: decompose the cart against a catalog snapshot,
// then persist the order, its sub-orders, their initial transitions, the
// stock decrements and one outbox event per sub-order in a single
// transaction. Any failure leaves nothing behind.
func CreateOrder(ctx context.Context, input *NewOrder) (*Order, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if len(input.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if input.BranchId == 0 {
		if branchId, ok := utils.GetBranchIdFromContext(ctx); ok {
			input.BranchId = branchId
		}
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	snapshot, err := BuildCatalogSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	drafts, err := DecomposeCart(snapshot, input.Lines)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := Order{
		BusinessId:  businessId,
		OutletId:    input.OutletId,
		BranchId:    input.BranchId,
		OrderDate:   now,
		Notes:       input.Notes,
		TotalAmount: CartTotal(drafts),
	}

	tx := db.Begin()
	seqNo, err := utils.GetSequence[Order](ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	order.SequenceNo = decimal.NewFromInt(seqNo)
	order.OrderNumber = "ORD-" + fmt.Sprint(seqNo)

	if err := tx.WithContext(ctx).Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for i, draft := range drafts {
		details := make([]SubOrderDetail, 0, len(draft.Lines))
		for _, line := range draft.Lines {
			details = append(details, SubOrderDetail{
				ProductId: line.ProductId,
				Name:      line.Name,
				Category:  line.Category,
				Qty:       line.Qty,
				UnitRate:  line.UnitRate,
				Amount:    line.Amount,
			})
		}
		subOrder := SubOrder{
			BusinessId:     businessId,
			OrderId:        order.ID,
			OrderNumber:    order.OrderNumber,
			SubOrderNumber: fmt.Sprintf("%s-%d", order.OrderNumber, i+1),
			FactoryId:      draft.FactoryId,
			BranchId:       input.BranchId,
			OutletId:       input.OutletId,
			Category:       draft.Category,
			OrderDate:      now,
			CurrentStatus:  SubOrderStatusPending,
			Notes:          input.Notes,
			TotalAmount:    draft.TotalAmount,
			Details:        details,
		}
		if err := tx.WithContext(ctx).Create(&subOrder).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		if err := createSubOrderTransitionTx(tx, ctx, businessId,
			subOrder.ID, "", SubOrderStatusPending, "order placed"); err != nil {
			tx.Rollback()
			return nil, err
		}

		// all-or-nothing stock reservation
		for _, line := range draft.Lines {
			if err := decrementStockTx(tx.WithContext(ctx), businessId, line.ProductId, line.Qty); err != nil {
				tx.Rollback()
				return nil, err
			}
		}

		if err := publishOrderEventTx(tx, ctx, businessId,
			OrderEventRefTypeSubOrder, subOrder.ID, OrderEventActionCreated, subOrder); err != nil {
			tx.Rollback()
			return nil, err
		}

		order.SubOrders = append(order.SubOrders, subOrder)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// stock changed; drop cached products
	for _, line := range input.Lines {
		if err := utils.RemoveRedisItem[Product](line.ProductId); err != nil {
			return nil, err
		}
	}
	if err := utils.RemoveRedisList[Product](businessId); err != nil {
		return nil, err
	}

	return &order, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Order](ctx, businessId, id, "SubOrders", "SubOrders.Details")
}

func GetOrders(ctx context.Context, outletId *int, dateFrom *time.Time, dateTo *time.Time) ([]*Order, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Order

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("SubOrders")
	if outletId != nil && *outletId > 0 {
		dbCtx = dbCtx.Where("outlet_id = ?", *outletId)
	}
	if dateFrom != nil {
		dbCtx = dbCtx.Where("order_date >= ?", *dateFrom)
	}
	if dateTo != nil {
		dbCtx = dbCtx.Where("order_date <= ?", *dateTo)
	}
	err := dbCtx.Order("order_date DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
