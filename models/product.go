package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Product struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	Name        string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Description string          `gorm:"size:255" json:"description"`
	Category    ProductCategory `gorm:"type:enum('Chocolate','Biscuits','Cakes','Namkeen','Sweets','Gift Hampers');not null" json:"category" binding:"required"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price" binding:"required"`
	StockQty    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_qty"`
	SoldQty     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sold_qty"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Category    ProductCategory `json:"category" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	StockQty    decimal.Decimal `json:"stock_qty"`
}

func (obj Product) GetId() int {
	return obj.ID
}

func (obj Product) GetBusinessId() string {
	return obj.BusinessId
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Product](ctx, businessId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[Product](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if !input.UnitPrice.IsPositive() {
		return errors.New("unit price must be positive")
	}
	if input.StockQty.IsNegative() {
		return errors.New("stock qty cannot be negative")
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	product := Product{
		BusinessId:  businessId,
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		UnitPrice:   input.UnitPrice,
		StockQty:    input.StockQty,
		IsActive:    utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&product).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Product](businessId); err != nil {
		return nil, err
	}

	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// db action (stock is never written here; use RestockProduct / order placement)
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&product).Updates(map[string]interface{}{
		"Name":        input.Name,
		"Description": input.Description,
		"Category":    input.Category,
		"UnitPrice":   input.UnitPrice,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Product](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Product](businessId); err != nil {
		return nil, err
	}

	return product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// products referenced by any sub-order are part of history and stay
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&SubOrderDetail{}).
		Where("product_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("product has sub-orders")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Product](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Product](businessId); err != nil {
		return nil, err
	}

	return result, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {

	return GetResource[Product](ctx, id)
}

func GetProducts(ctx context.Context, name *string, category *ProductCategory) ([]*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// unfiltered catalog listing is served from the redis list cache
	if (name == nil || len(*name) == 0) && category == nil {
		return ListAllResource[Product](ctx, "name")
	}

	db := config.GetDB()
	var results []*Product

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if category != nil {
		dbCtx = dbCtx.Where("category = ?", *category)
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveProduct(ctx context.Context, id int, isActive bool) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ToggleActiveModel[Product](ctx, businessId, id, isActive)
}

// RestockProduct adds finished goods to the shelf.
func RestockProduct(ctx context.Context, id int, qty decimal.Decimal) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if !qty.IsPositive() {
		return nil, errors.New("restock qty must be positive")
	}

	product, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&Product{}).
		Where("business_id = ? AND id = ?", businessId, id).
		Update("stock_qty", gorm.Expr("stock_qty + ?", qty)).Error
	if err != nil {
		return nil, err
	}
	product.StockQty = product.StockQty.Add(qty)

	if err := utils.RemoveRedisItem[Product](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Product](businessId); err != nil {
		return nil, err
	}

	return product, nil
}

// decrementStockTx locks the product row and takes qty off the shelf.
// The caller's transaction is rolled back entirely on InsufficientStockError,
// so a cart either reserves all of its stock or none of it.
func decrementStockTx(tx *gorm.DB, businessId string, productId int, qty decimal.Decimal) error {
	var product Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, productId).
		First(&product).Error; err != nil {
		return err
	}
	if product.StockQty.LessThan(qty) {
		return &InsufficientStockError{
			ProductName: product.Name,
			Requested:   qty,
			Available:   product.StockQty,
		}
	}
	return tx.Model(&Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"stock_qty": gorm.Expr("stock_qty - ?", qty),
			"sold_qty":  gorm.Expr("sold_qty + ?", qty),
		}).Error
}

// restoreStockTx puts a cancelled sub-order's qty back on the shelf.
func restoreStockTx(tx *gorm.DB, businessId string, productId int, qty decimal.Decimal) error {
	return tx.Model(&Product{}).
		Where("business_id = ? AND id = ?", businessId, productId).
		Updates(map[string]interface{}{
			"stock_qty": gorm.Expr("stock_qty + ?", qty),
			"sold_qty":  gorm.Expr("sold_qty - ?", qty),
		}).Error
}
