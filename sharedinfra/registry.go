/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package sharedinfra

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angryss/idpstore/errors"
)

// Configuration is implemented by every shared-infrastructure configuration
// variant. The discriminator returned by ConfigurationType selects the
// variant's schema and is carried verbatim in the wire format's "type" field.
type Configuration interface {
	ConfigurationType() string
}

// Factory produces a zero value of one configuration variant, ready to be
// decoded into.
type Factory func() Configuration

// variantRegistry maps a discriminator to its variant factory. The set is
// established during init and read-only afterwards.
var variantRegistry = make(map[string]Factory)

var validate = newValidator()

// Register adds a configuration variant under the given discriminator.
// Call it from an init function; registering the same discriminator twice
// panics to prevent accidental overrides.
func Register(discriminator string, fn Factory) {
	if discriminator == "" {
		panic("sharedinfra: empty discriminator")
	}
	if _, exists := variantRegistry[discriminator]; exists {
		panic(fmt.Sprintf("sharedinfra: variant %q already registered", discriminator))
	}
	variantRegistry[discriminator] = fn
}

// Resolve returns the factory registered for the discriminator, or
// UnknownVariant if no variant carries it. Resolution never falls back to
// a default variant.
func Resolve(discriminator string) (Factory, error) {
	fn, ok := variantRegistry[discriminator]
	if !ok {
		return nil, errors.NewUnknownVariantError(discriminator)
	}
	return fn, nil
}

// Discriminators lists the registered discriminators in sorted order.
func Discriminators() []string {
	out := make([]string, 0, len(variantRegistry))
	for d := range variantRegistry {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Validate checks a configuration value against its variant's declared field
// rules. Violations are reported per field; an unregistered discriminator
// yields UnknownVariant.
func Validate(cfg Configuration) error {
	if cfg == nil {
		return errors.NewValidationError("configuration", "must not be nil")
	}
	if _, err := Resolve(cfg.ConfigurationType()); err != nil {
		return err
	}
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewValidationError("configuration", err.Error())
	}
	violations := make([]errors.FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, errors.FieldViolation{
			Field:   fe.Field(),
			Message: violationMessage(fe),
		})
	}
	return errors.NewValidationErrors(violations)
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required and must not be blank"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report violations under the wire-format field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}
