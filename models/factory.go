package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
)

type Factory struct {
	ID         int               `gorm:"primary_key" json:"id"`
	BusinessId string            `gorm:"index;not null" json:"business_id"`
	Name       string            `gorm:"index;size:100;not null" json:"name" binding:"required"`
	City       string            `gorm:"size:100" json:"city"`
	Address    string            `gorm:"type:text" json:"address"`
	Phone      string            `gorm:"size:20" json:"phone"`
	IsActive   *bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	Categories []FactoryCategory `gorm:"foreignKey:FactoryId" json:"categories"`
	Branches   []Branch          `gorm:"foreignKey:FactoryId" json:"branches"`
}

// FactoryCategory links a factory to one product category it can make.
type FactoryCategory struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	FactoryId  int             `gorm:"index;not null" json:"factory_id"`
	Category   ProductCategory `gorm:"type:enum('Chocolate','Biscuits','Cakes','Namkeen','Sweets','Gift Hampers');not null" json:"category"`
}

type NewFactory struct {
	Name       string            `json:"name" binding:"required"`
	City       string            `json:"city"`
	Address    string            `json:"address"`
	Phone      string            `json:"phone"`
	Categories []ProductCategory `json:"categories" binding:"required,min=1"`
}

func (obj Factory) GetId() int {
	return obj.ID
}

func (obj Factory) GetBusinessId() string {
	return obj.BusinessId
}

// validate input for both create & update. (id = 0 for create)
func (input *NewFactory) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Factory](ctx, businessId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[Factory](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	// phone
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	// categories must be unique within the factory
	if len(utils.UniqueSlice(input.Categories)) != len(input.Categories) {
		return errors.New("duplicate category")
	}
	return nil
}

func CreateFactory(ctx context.Context, input *NewFactory) (*Factory, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	categories := make([]FactoryCategory, 0, len(input.Categories))
	for _, category := range input.Categories {
		categories = append(categories, FactoryCategory{
			BusinessId: businessId,
			Category:   category,
		})
	}

	factory := Factory{
		BusinessId: businessId,
		Name:       input.Name,
		City:       input.City,
		Address:    input.Address,
		Phone:      input.Phone,
		IsActive:   utils.NewTrue(),
		Categories: categories,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&factory).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Factory](businessId); err != nil {
		return nil, err
	}

	return &factory, nil
}

func UpdateFactory(ctx context.Context, id int, input *NewFactory) (*Factory, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	factory, err := utils.FetchModel[Factory](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&factory).Updates(map[string]interface{}{
		"Name":    input.Name,
		"City":    input.City,
		"Address": input.Address,
		"Phone":   input.Phone,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// replace category rows
	if err := tx.WithContext(ctx).
		Where("business_id = ? AND factory_id = ?", businessId, id).
		Delete(&FactoryCategory{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	categories := make([]FactoryCategory, 0, len(input.Categories))
	for _, category := range input.Categories {
		categories = append(categories, FactoryCategory{
			BusinessId: businessId,
			FactoryId:  id,
			Category:   category,
		})
	}
	if err := tx.WithContext(ctx).Create(&categories).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	factory.Categories = categories

	if err := utils.RemoveRedisItem[Factory](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Factory](businessId); err != nil {
		return nil, err
	}

	return factory, nil
}

func GetFactory(ctx context.Context, id int) (*Factory, error) {

	return GetResource[Factory](ctx, id, "Categories", "Branches")
}

func GetFactories(ctx context.Context, name *string) ([]*Factory, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// unfiltered directory listing is served from the redis list cache
	if name == nil || len(*name) == 0 {
		return ListAllResource[Factory](ctx, "name", "Categories", "Branches")
	}

	db := config.GetDB()
	var results []*Factory

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).
		Preload("Categories").Preload("Branches").
		Where("name LIKE ?", "%"+*name+"%")
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveFactory(ctx context.Context, id int, isActive bool) (*Factory, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if !isActive {
		// a factory with open sub-orders keeps serving them; only block new routing
		db := config.GetDB()
		var count int64
		if err := db.WithContext(ctx).Model(&SubOrder{}).
			Where("business_id = ? AND factory_id = ? AND current_status IN ?", businessId, id,
				[]SubOrderStatus{SubOrderStatusPending, SubOrderStatusPacked}).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, errors.New("factory has unshipped sub-orders")
		}
	}
	return ToggleActiveModel[Factory](ctx, businessId, id, isActive)
}

// FactoriesForCategory returns the active factories serving a category,
// ordered by id. An empty result is a directory integrity error.
func FactoriesForCategory(ctx context.Context, category ProductCategory) ([]*Factory, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Factory
	err := db.WithContext(ctx).
		Joins("JOIN factory_categories ON factory_categories.factory_id = factories.id").
		Where("factories.business_id = ? AND factories.is_active = true AND factory_categories.category = ?",
			businessId, category).
		Order("factories.id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		err := &UnroutableCategoryError{Category: category}
		config.LogError(config.GetLogger(), "factory.go", "FactoriesForCategory",
			"no active factory for category", category, err)
		return nil, err
	}
	return results, nil
}

// DefaultFactoryForCategory resolves a category to its single serving
// factory. Categories with several factories have no default: the caller must
// surface the choice to the user.
func DefaultFactoryForCategory(ctx context.Context, category ProductCategory) (*Factory, error) {
	factories, err := FactoriesForCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(factories) > 1 {
		return nil, ErrAmbiguousFactoryChoice
	}
	return factories[0], nil
}

func BranchesForFactory(ctx context.Context, factoryId int) ([]*Branch, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := utils.ValidateResourceId[Factory](ctx, businessId, factoryId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Branch
	err := db.WithContext(ctx).
		Where("business_id = ? AND factory_id = ?", businessId, factoryId).
		Order("name").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
