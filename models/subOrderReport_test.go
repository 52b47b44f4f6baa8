package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBuildPackingList(t *testing.T) {
	orderDate := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	subOrders := []*SubOrder{
		{
			SubOrderNumber: "ORD-7-1",
			OrderDate:      orderDate,
			CurrentStatus:  SubOrderStatusPending,
			Category:       ProductCategoryBiscuits,
			TotalAmount:    decimal.NewFromInt(1350),
			Details: []SubOrderDetail{
				{Name: "Fruit Biscuits", Category: ProductCategoryBiscuits,
					Qty: decimal.NewFromInt(3), UnitRate: decimal.NewFromInt(450), Amount: decimal.NewFromInt(1350)},
			},
		},
		{
			SubOrderNumber: "ORD-7-2",
			OrderDate:      orderDate,
			CurrentStatus:  SubOrderStatusPacked,
			Category:       ProductCategoryChocolate,
			TotalAmount:    decimal.NewFromInt(250),
			Details: []SubOrderDetail{
				{Name: "Dark Chocolate Bar", Category: ProductCategoryChocolate,
					Qty: decimal.NewFromInt(1), UnitRate: decimal.NewFromInt(250), Amount: decimal.NewFromInt(250)},
			},
		},
	}

	f, err := buildPackingList(subOrders)
	if err != nil {
		t.Fatal(err)
	}
	sheet := "Packing List"

	header, err := f.GetCellValue(sheet, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if header != "Sub-Order" {
		t.Errorf("A1 = %q, want Sub-Order", header)
	}

	// one row per detail line
	first, _ := f.GetCellValue(sheet, "A2")
	second, _ := f.GetCellValue(sheet, "A3")
	if first != "ORD-7-1" || second != "ORD-7-2" {
		t.Errorf("detail rows = [%q %q], want [ORD-7-1 ORD-7-2]", first, second)
	}
	amount, _ := f.GetCellValue(sheet, "H2")
	if amount != "1350" {
		t.Errorf("H2 = %q, want 1350", amount)
	}

	// totals row: sub-order count and summed amount
	label, _ := f.GetCellValue(sheet, "A4")
	if label != "2 sub-orders" {
		t.Errorf("A4 = %q, want \"2 sub-orders\"", label)
	}
	total, _ := f.GetCellValue(sheet, "H4")
	if total != "1600" {
		t.Errorf("H4 = %q, want 1600", total)
	}
}

func TestBuildPackingListEmpty(t *testing.T) {
	f, err := buildPackingList(nil)
	if err != nil {
		t.Fatal(err)
	}
	// headers only, no totals row
	value, _ := f.GetCellValue("Packing List", "A2")
	if value != "" {
		t.Errorf("A2 = %q, want empty", value)
	}
}
