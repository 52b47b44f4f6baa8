package models

import (
	"encoding/json"
	"errors"
	"strconv"
)

type ProductCategory string

const (
	ProductCategoryChocolate   ProductCategory = "Chocolate"
	ProductCategoryBiscuits    ProductCategory = "Biscuits"
	ProductCategoryCakes       ProductCategory = "Cakes"
	ProductCategoryNamkeen     ProductCategory = "Namkeen"
	ProductCategorySweets      ProductCategory = "Sweets"
	ProductCategoryGiftHampers ProductCategory = "Gift Hampers"
)

// convert enum to send response
func (t ProductCategory) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

// convert input to enum type
func (t *ProductCategory) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("product category must be string")
	}
	productCategories := map[string]ProductCategory{
		"Chocolate":    ProductCategoryChocolate,
		"Biscuits":     ProductCategoryBiscuits,
		"Cakes":        ProductCategoryCakes,
		"Namkeen":      ProductCategoryNamkeen,
		"Sweets":       ProductCategorySweets,
		"Gift Hampers": ProductCategoryGiftHampers,
	}
	var ok bool
	*t, ok = productCategories[str]
	if !ok {
		return errors.New("invalid product category")
	}
	return nil
}

type SubOrderStatus string

const (
	SubOrderStatusPending   SubOrderStatus = "pending"
	SubOrderStatusPacked    SubOrderStatus = "packed"
	SubOrderStatusShipped   SubOrderStatus = "shipped"
	SubOrderStatusDelivered SubOrderStatus = "delivered"
	SubOrderStatusCancelled SubOrderStatus = "cancelled"
)

// Rank gives the position of a status in the fulfilment chain
// pending < packed < shipped < delivered. Cancelled sits outside the chain.
func (s SubOrderStatus) Rank() int {
	switch s {
	case SubOrderStatusPending:
		return 0
	case SubOrderStatusPacked:
		return 1
	case SubOrderStatusShipped:
		return 2
	case SubOrderStatusDelivered:
		return 3
	}
	return -1
}

// CanTransitionTo reports whether next is a legal single step from s.
// Statuses only move forward one step at a time; cancellation is only
// possible while the sub-order is still pending.
func (s SubOrderStatus) CanTransitionTo(next SubOrderStatus) bool {
	if s == SubOrderStatusCancelled || s == SubOrderStatusDelivered {
		return false
	}
	if next == SubOrderStatusCancelled {
		return s == SubOrderStatusPending
	}
	if next.Rank() < 0 || s.Rank() < 0 {
		return false
	}
	return next.Rank() == s.Rank()+1
}

func (s SubOrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(s))), nil
}

func (s *SubOrderStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("sub-order status must be string")
	}
	subOrderStatuses := map[string]SubOrderStatus{
		"pending":   SubOrderStatusPending,
		"packed":    SubOrderStatusPacked,
		"shipped":   SubOrderStatusShipped,
		"delivered": SubOrderStatusDelivered,
		"cancelled": SubOrderStatusCancelled,
	}
	var ok bool
	*s, ok = subOrderStatuses[str]
	if !ok {
		return errors.New("invalid sub-order status")
	}
	return nil
}

type OrderEventRefType string

const (
	OrderEventRefTypeSubOrder OrderEventRefType = "SO"
)

type OrderEventAction string

const (
	OrderEventActionCreated       OrderEventAction = "C"
	OrderEventActionStatusChanged OrderEventAction = "S"
)
