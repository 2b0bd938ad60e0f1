// Package validate checks decoded request bodies with go-playground/validator
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldError describes one invalid field of a request body
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error is returned by Struct when validation fails
type Error struct {
	Fields []FieldError `json:"fields"`
}

func (e *Error) Error() string {
	reasons := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		reasons[i] = f.Reason
	}
	return strings.Join(reasons, "; ")
}

// Validator validates structs using their "validate" tags.
// Field names in messages are taken from json tags.
type Validator struct {
	core  *validator.Validate
	trans ut.Translator
}

// New creates a Validator with English messages
func New() *Validator {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		core:  v,
		trans: trans,
	}
}

// Struct validates s and returns *Error listing every invalid field
func (v *Validator) Struct(s any) error {
	err := v.core.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:  fe.Field(),
			Reason: fe.Translate(v.trans),
		})
	}
	return out
}
