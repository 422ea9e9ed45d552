package cart

import "errors"

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidItem     = errors.New("invalid cart item")
	ErrOutOfStock      = errors.New("product is out of stock")
)
