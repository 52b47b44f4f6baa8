package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
)

// Branch is a retail branch attached to a factory. Outlets pick their orders
// up from a branch, and factory managers filter sub-orders by branch.
type Branch struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	FactoryId  int       `gorm:"index;not null" json:"factory_id"`
	Name       string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Code       string    `gorm:"size:20" json:"code"`
	City       string    `gorm:"size:100" json:"city"`
	Address    string    `gorm:"type:text" json:"address"`
	Phone      string    `gorm:"size:20" json:"phone"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBranch struct {
	FactoryId int    `json:"factory_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Code      string `json:"code"`
	City      string `json:"city"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
}

func (obj Branch) GetId() int {
	return obj.ID
}

func (obj Branch) GetBusinessId() string {
	return obj.BusinessId
}

// validate input for both create & update. (id = 0 for create)
func (input *NewBranch) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Branch](ctx, businessId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[Branch](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	// phone
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Factory](ctx, businessId, input.FactoryId); err != nil {
		return errors.New("factory not found")
	}
	return nil
}

func CreateBranch(ctx context.Context, input *NewBranch) (*Branch, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	branch := Branch{
		BusinessId: businessId,
		FactoryId:  input.FactoryId,
		Name:       input.Name,
		Code:       input.Code,
		City:       input.City,
		Address:    input.Address,
		Phone:      input.Phone,
		IsActive:   utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&branch).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Branch](businessId); err != nil {
		return nil, err
	}

	return &branch, nil
}

func UpdateBranch(ctx context.Context, id int, input *NewBranch) (*Branch, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	branch, err := utils.FetchModel[Branch](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&branch).Updates(map[string]interface{}{
		"FactoryId": input.FactoryId,
		"Name":      input.Name,
		"Code":      input.Code,
		"City":      input.City,
		"Address":   input.Address,
		"Phone":     input.Phone,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Branch](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Branch](businessId); err != nil {
		return nil, err
	}

	return branch, nil
}

func DeleteBranch(ctx context.Context, id int) (*Branch, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[Branch](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// check if the branch is used
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&SubOrder{}).
		Where("branch_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("branch has sub-orders")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Branch](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Branch](businessId); err != nil {
		return nil, err
	}

	return result, nil
}

func GetBranch(ctx context.Context, id int) (*Branch, error) {

	return GetResource[Branch](ctx, id)
}

func GetBranches(ctx context.Context, name *string) ([]*Branch, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// unfiltered directory listing is served from the redis list cache
	if name == nil || len(*name) == 0 {
		return ListAllResource[Branch](ctx, "name")
	}

	db := config.GetDB()
	var results []*Branch

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).
		Where("name LIKE ?", "%"+*name+"%")
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveBranch(ctx context.Context, id int, isActive bool) (*Branch, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ToggleActiveModel[Branch](ctx, businessId, id, isActive)
}
