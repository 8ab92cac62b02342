// Package validation wraps go-playground/validator with the custom rules the
// request structs use.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fdg312/plateplan/internal/storage"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		// Registration only fails for empty tags or nil funcs.
		_ = v.RegisterValidation("meal_slot", validateMealSlot)
		_ = v.RegisterValidation("ymd", validateYMD)
		validate = v
	})
	return validate
}

// Struct validates s and returns a single readable error naming the first
// offending field by its JSON name.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return errors.New(describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "meal_slot":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(storage.MealSlots, ", "))
	case "ymd":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s characters or entries", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func validateMealSlot(fl validator.FieldLevel) bool {
	return storage.IsValidMealSlot(fl.Field().String())
}

func validateYMD(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight. It rejects
// out-of-range days such as 2024-02-30.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(storage.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return d.UTC(), nil
}
