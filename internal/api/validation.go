package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"rentals/server/internal/dates"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// registerValidators adds the custom binding tags used by request structs.
// Registration runs once per process; later calls return the first result.
func registerValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
			return
		}
		if err := v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			_, err := dates.Parse(fl.Field().String())
			return err == nil
		}); err != nil {
			registerErr = fmt.Errorf("register date validator: %w", err)
		}
	})
	return registerErr
}

// bindingMessage turns binding errors into a short client message.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request: " + err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "date":
			parts = append(parts, field+" must be a date in YYYY-MM-DD format")
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
