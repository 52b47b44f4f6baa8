package models

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
)

// CatalogProduct is the slice of a product the router needs: identity,
// category and the unit price frozen at decomposition time.
type CatalogProduct struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Category  ProductCategory `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CatalogSnapshot is an immutable view of the catalog and the factory
// directory. DecomposeCart works only against a snapshot, so routing stays a
// pure function and two calls over the same snapshot give the same result.
type CatalogSnapshot struct {
	Products map[int]CatalogProduct
	// Eligible factory ids per category, ordered by factory id.
	Routes map[ProductCategory][]int
}

type NewOrderLine struct {
	ProductId int             `json:"product_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	// FactoryId is mandatory when more than one factory serves the
	// product's category, otherwise optional.
	FactoryId int `json:"factory_id"`
}

type SubOrderDraftLine struct {
	ProductId int             `json:"product_id"`
	Name      string          `json:"name"`
	Category  ProductCategory `json:"category"`
	Qty       decimal.Decimal `json:"qty"`
	UnitRate  decimal.Decimal `json:"unit_rate"`
	Amount    decimal.Decimal `json:"amount"`
}

// SubOrderDraft is one factory's share of a decomposed cart, not yet persisted.
type SubOrderDraft struct {
	Category    ProductCategory     `json:"category"`
	FactoryId   int                 `json:"factory_id"`
	Lines       []SubOrderDraftLine `json:"lines"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
}

// DecomposeCart splits a cart into per-factory drafts.
//
// Lines are grouped by (category, resolved factory); groups appear in the
// order their first line appears in the cart, and lines keep their cart order
// inside each group. Every line lands in exactly one draft and the draft
// totals add up to the cart total.
//
// No draft is returned alongside an error: the first bad line fails the
// whole cart.
func DecomposeCart(snapshot *CatalogSnapshot, lines []NewOrderLine) ([]SubOrderDraft, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	type groupKey struct {
		category  ProductCategory
		factoryId int
	}

	var keys []groupKey
	groups := make(map[groupKey]*SubOrderDraft)

	for _, line := range lines {
		if !line.Qty.IsPositive() {
			return nil, fmt.Errorf("qty must be positive for product %d", line.ProductId)
		}
		product, ok := snapshot.Products[line.ProductId]
		if !ok {
			return nil, fmt.Errorf("product %d not found in catalog", line.ProductId)
		}

		eligible := snapshot.Routes[product.Category]
		if len(eligible) == 0 {
			return nil, &UnroutableCategoryError{Category: product.Category}
		}

		factoryId, err := resolveFactory(product, line.FactoryId, eligible)
		if err != nil {
			return nil, err
		}

		amount := line.Qty.Mul(product.UnitPrice)
		draftLine := SubOrderDraftLine{
			ProductId: product.ID,
			Name:      product.Name,
			Category:  product.Category,
			Qty:       line.Qty,
			UnitRate:  product.UnitPrice,
			Amount:    amount,
		}

		key := groupKey{category: product.Category, factoryId: factoryId}
		draft, ok := groups[key]
		if !ok {
			draft = &SubOrderDraft{
				Category:  product.Category,
				FactoryId: factoryId,
			}
			groups[key] = draft
			keys = append(keys, key)
		}
		draft.Lines = append(draft.Lines, draftLine)
		draft.TotalAmount = draft.TotalAmount.Add(amount)
	}

	drafts := make([]SubOrderDraft, 0, len(keys))
	for _, key := range keys {
		drafts = append(drafts, *groups[key])
	}
	return drafts, nil
}

// resolveFactory applies the routing rule for one line:
// single eligible factory => auto-assign (an explicit contradicting choice is
// rejected); several eligible factories => the line must name one of them.
func resolveFactory(product CatalogProduct, chosen int, eligible []int) (int, error) {
	if len(eligible) == 1 {
		if chosen > 0 && chosen != eligible[0] {
			return 0, &MissingFactorySelectionError{
				ProductName: product.Name,
				Category:    product.Category,
				FactoryId:   chosen,
			}
		}
		return eligible[0], nil
	}
	if chosen <= 0 {
		return 0, &MissingFactorySelectionError{
			ProductName: product.Name,
			Category:    product.Category,
		}
	}
	for _, id := range eligible {
		if id == chosen {
			return chosen, nil
		}
	}
	return 0, &MissingFactorySelectionError{
		ProductName: product.Name,
		Category:    product.Category,
		FactoryId:   chosen,
	}
}

// CartTotal sums the drafts. Callers use it for the order header amount.
func CartTotal(drafts []SubOrderDraft) decimal.Decimal {
	var total decimal.Decimal
	for _, draft := range drafts {
		total = total.Add(draft.TotalAmount)
	}
	return total
}

// BuildCatalogSnapshot loads active products and the factory directory into a
// snapshot for one decomposition run.
func BuildCatalogSnapshot(ctx context.Context) (*CatalogSnapshot, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, fmt.Errorf("business id is required")
	}

	db := config.GetDB()

	var products []Product
	if err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = true", businessId).
		Find(&products).Error; err != nil {
		return nil, err
	}

	type routeRow struct {
		Category  ProductCategory
		FactoryId int
	}
	var routes []routeRow
	if err := db.WithContext(ctx).Model(&FactoryCategory{}).
		Select("factory_categories.category, factory_categories.factory_id").
		Joins("JOIN factories ON factories.id = factory_categories.factory_id").
		Where("factory_categories.business_id = ? AND factories.is_active = true", businessId).
		Order("factory_categories.factory_id ASC").
		Scan(&routes).Error; err != nil {
		return nil, err
	}

	snapshot := &CatalogSnapshot{
		Products: make(map[int]CatalogProduct, len(products)),
		Routes:   make(map[ProductCategory][]int),
	}
	for _, p := range products {
		snapshot.Products[p.ID] = CatalogProduct{
			ID:        p.ID,
			Name:      p.Name,
			Category:  p.Category,
			UnitPrice: p.UnitPrice,
		}
	}
	for _, r := range routes {
		snapshot.Routes[r.Category] = append(snapshot.Routes[r.Category], r.FactoryId)
	}
	return snapshot, nil
}
