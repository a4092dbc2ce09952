// Package validator wraps go-playground/validator with English
// translations so payload failures surface as a field → message map
// keyed by JSON field name, matching the server's error envelope.
package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Validator validates structs against their `validate` tags.
type Validator struct {
	validate *govalidator.Validate
	trans    ut.Translator
}

// New builds a Validator with JSON tag names and English translations
// registered. Call once during application startup.
func New() *Validator {
	v := govalidator.New()

	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	en_translations.RegisterDefaultTranslations(v, trans)

	return &Validator{validate: v, trans: trans}
}

// Check validates dst and returns nil on success, or a map of field
// name → human-readable error message on failure.
func (v *Validator) Check(dst interface{}) map[string]string {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	fields := make(map[string]string)
	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(v.trans)
		}
		return fields
	}

	// Not a validation error (e.g., an unsupported type).
	fields["detail"] = err.Error()
	return fields
}
