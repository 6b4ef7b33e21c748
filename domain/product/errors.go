package product

import (
	"errors"
	"fmt"
)

// ErrNoRecord is returned by a Store when no row matches a lookup.
// The Service turns it into a NotFoundError carrying the requested id.
var ErrNoRecord = errors.New("product record not found")

// ErrSomeNotFound is returned when a bulk validation request references ids
// that do not exist. The whole batch is rejected.
var ErrSomeNotFound = errors.New("Some products were not found")

// ErrInvalidPagination is returned when page or limit is not positive.
var ErrInvalidPagination = errors.New("page and limit must be positive")

// NotFoundError is returned when no active product has the requested id.
type NotFoundError struct {
	ID uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Product with id #%d not found", e.ID)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
