package models

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// fixtureSnapshot mirrors a small live catalog: chocolate and cakes are each
// made by a single factory, biscuits by two competing factories.
func fixtureSnapshot() *CatalogSnapshot {
	return &CatalogSnapshot{
		Products: map[int]CatalogProduct{
			1: {ID: 1, Name: "Dark Chocolate Bar", Category: ProductCategoryChocolate, UnitPrice: decimal.NewFromInt(250)},
			2: {ID: 2, Name: "Fruit Biscuits", Category: ProductCategoryBiscuits, UnitPrice: decimal.NewFromInt(450)},
			3: {ID: 3, Name: "Butter Cookies", Category: ProductCategoryBiscuits, UnitPrice: decimal.NewFromInt(380)},
			4: {ID: 4, Name: "Coconut Cookies", Category: ProductCategoryBiscuits, UnitPrice: decimal.NewFromInt(160)},
			5: {ID: 5, Name: "Chocolate Truffle Cake", Category: ProductCategoryCakes, UnitPrice: decimal.NewFromInt(850)},
			6: {ID: 6, Name: "Masala Namkeen Mix", Category: ProductCategoryNamkeen, UnitPrice: decimal.NewFromInt(120)},
		},
		Routes: map[ProductCategory][]int{
			ProductCategoryChocolate: {10},
			ProductCategoryBiscuits:  {20, 30},
			ProductCategoryCakes:     {10},
			// Namkeen has no route on purpose.
		},
	}
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestDecomposeCartSplitsByCategoryAndFactory(t *testing.T) {
	snapshot := fixtureSnapshot()
	lines := []NewOrderLine{
		{ProductId: 2, Qty: qty(3), FactoryId: 20}, // 1350 biscuits @ factory 20
		{ProductId: 4, Qty: qty(4), FactoryId: 30}, // 640 biscuits @ factory 30
		{ProductId: 1, Qty: qty(1)},                // 250 chocolate, auto-assigned
	}

	drafts, err := DecomposeCart(snapshot, lines)
	if err != nil {
		t.Fatalf("DecomposeCart returned error: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}

	// Groups appear in first-seen cart order.
	wantFactories := []int{20, 30, 10}
	wantTotals := []int64{1350, 640, 250}
	for i, draft := range drafts {
		if draft.FactoryId != wantFactories[i] {
			t.Errorf("draft %d: factory = %d, want %d", i, draft.FactoryId, wantFactories[i])
		}
		if !draft.TotalAmount.Equal(decimal.NewFromInt(wantTotals[i])) {
			t.Errorf("draft %d: total = %s, want %d", i, draft.TotalAmount, wantTotals[i])
		}
	}

	if total := CartTotal(drafts); !total.Equal(decimal.NewFromInt(2240)) {
		t.Errorf("cart total = %s, want 2240", total)
	}
}

func TestDecomposeCartMergesSameGroup(t *testing.T) {
	snapshot := fixtureSnapshot()
	lines := []NewOrderLine{
		{ProductId: 2, Qty: qty(1), FactoryId: 20},
		{ProductId: 1, Qty: qty(1)},
		{ProductId: 3, Qty: qty(2), FactoryId: 20},
	}

	drafts, err := DecomposeCart(snapshot, lines)
	if err != nil {
		t.Fatalf("DecomposeCart returned error: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	biscuits := drafts[0]
	if biscuits.FactoryId != 20 || len(biscuits.Lines) != 2 {
		t.Fatalf("biscuits draft: factory=%d lines=%d, want factory=20 lines=2", biscuits.FactoryId, len(biscuits.Lines))
	}
	// Cart order inside the group.
	if biscuits.Lines[0].ProductId != 2 || biscuits.Lines[1].ProductId != 3 {
		t.Errorf("line order = [%d %d], want [2 3]", biscuits.Lines[0].ProductId, biscuits.Lines[1].ProductId)
	}
	if !biscuits.TotalAmount.Equal(decimal.NewFromInt(1210)) {
		t.Errorf("biscuits total = %s, want 1210", biscuits.TotalAmount)
	}
}

func TestDecomposeCartConservesTotals(t *testing.T) {
	snapshot := fixtureSnapshot()
	lines := []NewOrderLine{
		{ProductId: 1, Qty: qty(2)},
		{ProductId: 2, Qty: qty(5), FactoryId: 30},
		{ProductId: 5, Qty: qty(1)},
		{ProductId: 4, Qty: qty(10), FactoryId: 20},
	}

	var want decimal.Decimal
	for _, line := range lines {
		want = want.Add(line.Qty.Mul(snapshot.Products[line.ProductId].UnitPrice))
	}

	drafts, err := DecomposeCart(snapshot, lines)
	if err != nil {
		t.Fatalf("DecomposeCart returned error: %v", err)
	}

	var lineCount int
	var got decimal.Decimal
	for _, draft := range drafts {
		var draftSum decimal.Decimal
		for _, l := range draft.Lines {
			draftSum = draftSum.Add(l.Amount)
			lineCount++
		}
		if !draftSum.Equal(draft.TotalAmount) {
			t.Errorf("draft factory=%d: line sum %s != total %s", draft.FactoryId, draftSum, draft.TotalAmount)
		}
		got = got.Add(draft.TotalAmount)
	}
	if lineCount != len(lines) {
		t.Errorf("line count = %d, want %d", lineCount, len(lines))
	}
	if !got.Equal(want) {
		t.Errorf("drafts total = %s, want %s", got, want)
	}
}

func TestDecomposeCartErrors(t *testing.T) {
	snapshot := fixtureSnapshot()

	tests := []struct {
		name  string
		lines []NewOrderLine
		check func(t *testing.T, err error)
	}{
		{
			name:  "empty cart",
			lines: nil,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrEmptyCart) {
					t.Errorf("err = %v, want ErrEmptyCart", err)
				}
			},
		},
		{
			name:  "zero qty",
			lines: []NewOrderLine{{ProductId: 1, Qty: qty(0)}},
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Error("expected error for zero qty")
				}
			},
		},
		{
			name:  "negative qty",
			lines: []NewOrderLine{{ProductId: 1, Qty: qty(-1)}},
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Error("expected error for negative qty")
				}
			},
		},
		{
			name:  "unknown product",
			lines: []NewOrderLine{{ProductId: 99, Qty: qty(1)}},
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Error("expected error for unknown product")
				}
			},
		},
		{
			name:  "category with no factory",
			lines: []NewOrderLine{{ProductId: 6, Qty: qty(1)}},
			check: func(t *testing.T, err error) {
				var unroutable *UnroutableCategoryError
				if !errors.As(err, &unroutable) {
					t.Fatalf("err = %v, want UnroutableCategoryError", err)
				}
				if unroutable.Category != ProductCategoryNamkeen {
					t.Errorf("category = %s, want Namkeen", unroutable.Category)
				}
			},
		},
		{
			name:  "multi-factory category without choice",
			lines: []NewOrderLine{{ProductId: 2, Qty: qty(1)}},
			check: func(t *testing.T, err error) {
				var missing *MissingFactorySelectionError
				if !errors.As(err, &missing) {
					t.Fatalf("err = %v, want MissingFactorySelectionError", err)
				}
				if missing.FactoryId != 0 {
					t.Errorf("factory id = %d, want 0", missing.FactoryId)
				}
			},
		},
		{
			name:  "multi-factory category with ineligible choice",
			lines: []NewOrderLine{{ProductId: 2, Qty: qty(1), FactoryId: 10}},
			check: func(t *testing.T, err error) {
				var missing *MissingFactorySelectionError
				if !errors.As(err, &missing) {
					t.Fatalf("err = %v, want MissingFactorySelectionError", err)
				}
				if missing.FactoryId != 10 {
					t.Errorf("factory id = %d, want 10", missing.FactoryId)
				}
			},
		},
		{
			name:  "single-factory category with contradicting choice",
			lines: []NewOrderLine{{ProductId: 1, Qty: qty(1), FactoryId: 20}},
			check: func(t *testing.T, err error) {
				var missing *MissingFactorySelectionError
				if !errors.As(err, &missing) {
					t.Fatalf("err = %v, want MissingFactorySelectionError", err)
				}
			},
		},
		{
			name: "bad line after good lines fails the whole cart",
			lines: []NewOrderLine{
				{ProductId: 1, Qty: qty(1)},
				{ProductId: 2, Qty: qty(1)},
			},
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Error("expected error, got drafts")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := DecomposeCart(snapshot, tt.lines)
			if err != nil && drafts != nil {
				t.Errorf("drafts should be nil on error, got %d", len(drafts))
			}
			tt.check(t, err)
		})
	}
}

func TestDecomposeCartAutoAssignsSingleFactory(t *testing.T) {
	snapshot := fixtureSnapshot()

	// Explicitly choosing the only eligible factory is also fine.
	for _, factoryId := range []int{0, 10} {
		drafts, err := DecomposeCart(snapshot, []NewOrderLine{{ProductId: 5, Qty: qty(2), FactoryId: factoryId}})
		if err != nil {
			t.Fatalf("factory_id=%d: %v", factoryId, err)
		}
		if len(drafts) != 1 || drafts[0].FactoryId != 10 {
			t.Fatalf("factory_id=%d: drafts=%v, want one draft at factory 10", factoryId, drafts)
		}
	}
}

// Decomposition over the same snapshot must be deterministic, also under
// concurrent callers sharing the snapshot.
func TestDecomposeCartDeterministic(t *testing.T) {
	snapshot := fixtureSnapshot()
	lines := []NewOrderLine{
		{ProductId: 2, Qty: qty(3), FactoryId: 20},
		{ProductId: 4, Qty: qty(4), FactoryId: 30},
		{ProductId: 1, Qty: qty(1)},
		{ProductId: 3, Qty: qty(2), FactoryId: 20},
		{ProductId: 5, Qty: qty(1)},
	}

	reference, err := DecomposeCart(snapshot, lines)
	if err != nil {
		t.Fatalf("DecomposeCart returned error: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				drafts, err := DecomposeCart(snapshot, lines)
				if err != nil {
					errCh <- err
					return
				}
				if len(drafts) != len(reference) {
					errCh <- errors.New("draft count differs between runs")
					return
				}
				for j := range drafts {
					if drafts[j].FactoryId != reference[j].FactoryId ||
						!drafts[j].TotalAmount.Equal(reference[j].TotalAmount) {
						errCh <- errors.New("draft order or totals differ between runs")
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}
}
