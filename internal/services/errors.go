package services

import (
	"errors"
	"fmt"
)

var (
	ErrBadCreds         = errors.New("invalid email or password")
	ErrOAuthOnly        = errors.New("this account signs in with a social provider")
	ErrUserNotFound     = errors.New("user not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrOrderNotFound    = errors.New("order not found")

	ErrInvalid         = errors.New("invalid input")
	ErrSlugTaken       = errors.New("slug already in use")
	ErrSKUTaken        = errors.New("sku already in use")
	ErrCategoryMissing = errors.New("category does not exist")
	ErrParentMissing   = errors.New("parent category does not exist")
	ErrCategoryInUse   = errors.New("category still has products")
)

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalid, msg) }

// StockError reports a request exceeding what is on hand.
type StockError struct {
	Variant   bool
	Available int
}

func (e *StockError) Error() string {
	if e.Variant {
		return "insufficient variant inventory"
	}
	return "insufficient inventory"
}
