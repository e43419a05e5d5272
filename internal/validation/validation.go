// Package validation checks inputs at the mutation boundary using struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"fintrack/internal/core"
)

// Error lists human readable messages keyed by JSON field name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *Error) Unwrap() error {
	return core.ErrInvalidInput
}

// Validator wraps a configured validator with English messages.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if m, ok := field.Interface().(core.Money); ok {
			return m.Cents
		}
		return nil
	}, core.Money{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(core.Date); ok {
			return d.Time
		}
		return time.Time{}
	}, core.Date{})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(fmt.Sprintf("register validator translations: %v", err))
	}

	return &Validator{validate: v, trans: trans}
}

// Struct validates s and returns *Error on rule violations.
func (v *Validator) Struct(s any) error {
	return v.translate(v.validate.Struct(s))
}

// StructExcept validates s skipping the named Go struct fields.
func (v *Validator) StructExcept(s any, fields ...string) error {
	return v.translate(v.validate.StructExcept(s, fields...))
}

func (v *Validator) translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fe.Translate(v.trans)
	}
	return out
}

// Field returns a single-field validation error.
func Field(name, msg string) error {
	return &Error{Fields: map[string]string{name: msg}}
}
