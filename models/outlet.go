package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
)

// Outlet is a franchise shop that places orders against the factories.
type Outlet struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	OwnerName  string    `gorm:"size:100" json:"owner_name"`
	City       string    `gorm:"size:100" json:"city"`
	Address    string    `gorm:"type:text" json:"address"`
	Phone      string    `gorm:"size:20" json:"phone"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOutlet struct {
	Name      string `json:"name" binding:"required"`
	OwnerName string `json:"owner_name"`
	City      string `json:"city"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
}

func (obj Outlet) GetId() int {
	return obj.ID
}

func (obj Outlet) GetBusinessId() string {
	return obj.BusinessId
}

func (input *NewOutlet) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Outlet](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Outlet](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateOutlet(ctx context.Context, input *NewOutlet) (*Outlet, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	outlet := Outlet{
		BusinessId: businessId,
		Name:       input.Name,
		OwnerName:  input.OwnerName,
		City:       input.City,
		Address:    input.Address,
		Phone:      input.Phone,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&outlet).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Outlet](businessId); err != nil {
		return nil, err
	}

	return &outlet, nil
}

func UpdateOutlet(ctx context.Context, id int, input *NewOutlet) (*Outlet, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	outlet, err := utils.FetchModel[Outlet](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&outlet).Updates(map[string]interface{}{
		"Name":      input.Name,
		"OwnerName": input.OwnerName,
		"City":      input.City,
		"Address":   input.Address,
		"Phone":     input.Phone,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Outlet](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Outlet](businessId); err != nil {
		return nil, err
	}

	return outlet, nil
}

func GetOutlet(ctx context.Context, id int) (*Outlet, error) {

	return GetResource[Outlet](ctx, id)
}

func GetOutlets(ctx context.Context, name *string) ([]*Outlet, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// unfiltered listing is served from the redis list cache
	if name == nil || len(*name) == 0 {
		return ListAllResource[Outlet](ctx, "name")
	}

	db := config.GetDB()
	var results []*Outlet

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).
		Where("name LIKE ?", "%"+*name+"%")
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveOutlet(ctx context.Context, id int, isActive bool) (*Outlet, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ToggleActiveModel[Outlet](ctx, businessId, id, isActive)
}
