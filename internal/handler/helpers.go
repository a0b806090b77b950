package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"easypos/internal/apierror"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, &apierror.APIError{Kind: apierror.KindInvalidInput, Detail: "invalid JSON: " + err.Error()})
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// statusFor maps fault kinds to HTTP status codes. Unknown errors are 500s
// handled by the middleware, so handlers never leak internals.
func statusFor(kind apierror.Kind) int {
	switch kind {
	case apierror.KindInvalidOpeningAmount,
		apierror.KindInsufficientWithdrawal,
		apierror.KindReasonTooShort,
		apierror.KindInvalidCountLine,
		apierror.KindInvalidInput:
		return http.StatusBadRequest
	case apierror.KindRegisterAlreadyOpen,
		apierror.KindSessionNotOpen,
		apierror.KindSessionMustBeClosed:
		return http.StatusConflict
	case apierror.KindSessionNotFound,
		apierror.KindRegisterNotFound,
		apierror.KindDocumentNotFound:
		return http.StatusNotFound
	case apierror.KindCollaboratorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the envelope for a service error. Typed faults keep
// their kind and mapped status; anything else is deferred to the error
// handler middleware as an opaque 500.
func respondError(c *gin.Context, err error) {
	var fault *apierror.Fault
	if errors.As(err, &fault) {
		c.JSON(statusFor(fault.Kind), apierror.Envelope(fault))
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, apierror.Internal())
}
