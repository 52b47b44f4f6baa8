package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportPackingList builds the XLSX packing list a factory manager works
// from: every unshipped sub-order for the factory in the date range, one row
// per product line.
func ExportPackingList(ctx context.Context, factoryId int, dateFrom *time.Time, dateTo *time.Time) (*excelize.File, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := utils.ValidateResourceId[Factory](ctx, businessId, factoryId); err != nil {
		return nil, errors.New("factory not found")
	}

	pending := SubOrderStatusPending
	subOrders, err := GetSubOrders(ctx, SubOrderFilter{
		FactoryId: factoryId,
		Status:    &pending,
		DateFrom:  dateFrom,
		DateTo:    dateTo,
	})
	if err != nil {
		return nil, err
	}
	packed := SubOrderStatusPacked
	packedOrders, err := GetSubOrders(ctx, SubOrderFilter{
		FactoryId: factoryId,
		Status:    &packed,
		DateFrom:  dateFrom,
		DateTo:    dateTo,
	})
	if err != nil {
		return nil, err
	}
	subOrders = append(subOrders, packedOrders...)

	return buildPackingList(subOrders)
}

// buildPackingList renders the sheet: one row per product line, then a
// totals row with the sub-order count and the summed amount.
func buildPackingList(subOrders []*SubOrder) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Packing List"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Sub-Order", "Order Date", "Status", "Category", "Product", "Qty", "Unit Rate", "Amount"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, subOrder := range subOrders {
		for _, detail := range subOrder.Details {
			values := []interface{}{
				subOrder.SubOrderNumber,
				subOrder.OrderDate.Format("2006-01-02"),
				string(subOrder.CurrentStatus),
				string(detail.Category),
				detail.Name,
				detail.Qty.String(),
				detail.UnitRate.String(),
				detail.Amount.String(),
			}
			for i, value := range values {
				cell, err := excelize.CoordinatesToCellName(i+1, row)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					return nil, err
				}
			}
			row++
		}
	}

	// totals row
	if row > 2 {
		var total decimal.Decimal
		for _, subOrder := range subOrders {
			total = total.Add(subOrder.TotalAmount)
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, fmt.Sprintf("%d sub-orders", len(subOrders))); err != nil {
			return nil, err
		}
		cell, err = excelize.CoordinatesToCellName(len(headers), row)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, total.String()); err != nil {
			return nil, err
		}
	}

	return f, nil
}
