// Package validation validates service requests with validator/v10 and
// converts failures into domain validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/crateapp/crate-server/internal/colortag"
	"github.com/crateapp/crate-server/internal/domain"
	domainerrors "github.com/crateapp/crate-server/internal/errors"
	"github.com/crateapp/crate-server/internal/tracksort"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the library's custom tags registered:
// nodekind (folder or playlist), colortag (a color cycle entry, empty
// allowed) and sortcolumn (a track table column).
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("nodekind", func(fl validator.FieldLevel) bool {
		return domain.NodeKind(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("colortag", func(fl validator.FieldLevel) bool {
		return colortag.Valid(fl.Field().String())
	})
	_ = v.RegisterValidation("sortcolumn", func(fl validator.FieldLevel) bool {
		return tracksort.Column(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed: "+fieldList(fieldErrors), fieldErrors)
}

func fieldList(fieldErrors map[string]string) string {
	names := make([]string, 0, len(fieldErrors))
	for name := range fieldErrors {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must not contain more than %s items", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "nodekind":
		return "must be folder or playlist"
	case "colortag":
		return "must be one of: " + strings.Join(colortag.Cycle[1:], ", ") + " (or empty to clear)"
	case "sortcolumn":
		return "must be a sortable column"
	default:
		return "is invalid"
	}
}
