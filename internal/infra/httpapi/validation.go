package httpapi

import (
	"fmt"
	"reflect"
	"strings"

	"utility_billing_bot/internal/domain/bill"
	"utility_billing_bot/internal/domain/provider"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator registers the custom tags on gin's validator and reports
// field names by their json tag.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("frequency", func(fl validator.FieldLevel) bool {
		return provider.Frequency(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("billstatus", func(fl validator.FieldLevel) bool {
		return bill.Status(fl.Field().String()).IsValid()
	})
}

func validationDetails(err error) []ValidationError {
	var details []ValidationError
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			details = append(details, ValidationError{Field: e.Field(), Message: validationMessage(e)})
		}
	}
	return details
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "frequency":
		return fmt.Sprintf("must be one of %v", provider.Frequencies())
	case "billstatus":
		return "must be one of NOT_ARRIVED, DRAFT, PENDING, PAID, OVERDUE"
	default:
		return fmt.Sprintf("failed on %s", e.Tag())
	}
}
