// Package validator wraps go-playground/validator with the rules and field
// naming used by request payloads.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"
)

// FieldError describes one rule a field failed. Field is the JSON name.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (f FieldError) String() string {
	if f.Param == "" {
		return f.Field + ": " + f.Rule
	}
	return f.Field + ": " + f.Rule + "=" + f.Param
}

// FieldErrors is returned by Struct when one or more rules fail.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	for i, f := range fe {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.String())
	}
	return b.String()
}

var engine = sync.OnceValue(func() *playground.Validate {
	v := playground.New(playground.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(err)
	}
	return v
})

// Struct runs the `validate` tags of s. Rule failures come back as
// FieldErrors; anything else (a non-struct argument, say) is returned as is.
func Struct(s any) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}

	var failures playground.ValidationErrors
	if !errors.As(err, &failures) {
		return err
	}

	out := make(FieldErrors, len(failures))
	for i, f := range failures {
		out[i] = FieldError{Field: f.Field(), Rule: f.Tag(), Param: f.Param()}
	}
	return out
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func notBlank(fl playground.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}
