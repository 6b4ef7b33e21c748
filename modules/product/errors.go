package product

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	domain "github.com/example/product-catalog/domain/product"
	"github.com/go-playground/validator/v10"
)

// RPCError is the error returned to RPC callers for client faults.
type RPCError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// toRPCError encodes domain and validation errors as client faults.
// Anything else is returned unchanged.
func toRPCError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	switch {
	case domain.IsNotFound(err),
		errors.Is(err, domain.ErrSomeNotFound),
		errors.Is(err, domain.ErrInvalidPagination):
		return &RPCError{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.As(err, &verrs):
		return &RPCError{Status: http.StatusBadRequest, Message: validationMessage(verrs)}
	}
	return err
}

func validationMessage(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed on the '%s=%s' rule", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
