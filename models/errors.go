package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyCart is returned when an order is placed with no lines.
	ErrEmptyCart = errors.New("cart has no lines")

	// ErrAmbiguousFactoryChoice is returned when a category is served by more
	// than one factory and no single default can be picked for the caller.
	ErrAmbiguousFactoryChoice = errors.New("multiple factories serve this category; an explicit factory choice is required")

	// ErrInvalidTransition is returned when a status change request does not
	// match the fulfilment chain, including lost concurrent updates.
	ErrInvalidTransition = errors.New("invalid sub-order status transition")
)

// UnroutableCategoryError means no active factory serves a category that a
// cart line needs. This is a catalog integrity problem, not a user mistake.
type UnroutableCategoryError struct {
	Category ProductCategory
}

func (e *UnroutableCategoryError) Error() string {
	return fmt.Sprintf("no factory serves category %q", string(e.Category))
}

// MissingFactorySelectionError means a cart line needed an explicit factory
// choice and either did not carry one or carried one outside the eligible set.
type MissingFactorySelectionError struct {
	ProductName string
	Category    ProductCategory
	FactoryId   int
}

func (e *MissingFactorySelectionError) Error() string {
	if e.FactoryId > 0 {
		return fmt.Sprintf("factory %d cannot make %q (category %s)", e.FactoryId, e.ProductName, string(e.Category))
	}
	return fmt.Sprintf("a factory must be chosen for %q (category %s)", e.ProductName, string(e.Category))
}

// InsufficientStockError aborts a whole order placement when any line cannot
// be covered by current stock.
type InsufficientStockError struct {
	ProductName string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %s, available %s",
		e.ProductName, e.Requested.String(), e.Available.String())
}
