package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/shaharia-lab/angelia/internal/channel"
)

// errTranslatorNotFound indicates the English translator is unavailable.
var errTranslatorNotFound = errors.New("translator not found")

// fieldErrors maps JSON field names to human-readable messages.
type fieldErrors map[string]string

func (fe fieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for k, v := range fe {
		parts = append(parts, k+": "+v)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// requestValidator validates decoded request bodies.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() (*requestValidator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	trans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, errTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("registering validator translations: %w", err)
	}

	if err := validate.RegisterValidation("recipient", func(fl validator.FieldLevel) bool {
		_, _, err := channel.SplitRecipient(fl.Field().String())
		return err == nil
	}); err != nil {
		return nil, fmt.Errorf("registering recipient rule: %w", err)
	}
	if err := validate.RegisterTranslation("recipient", trans,
		func(t ut.Translator) error {
			return t.Add("recipient", "{0} must look like scheme://address", false)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(fe.Tag(), fe.Field())
			return msg
		},
	); err != nil {
		return nil, fmt.Errorf("registering recipient translation: %w", err)
	}

	return &requestValidator{validate: validate, translator: trans}, nil
}

// Validate returns fieldErrors when v fails its validate tags.
func (v *requestValidator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(fieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}
