package validator

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// locale accepts an empty value or a bare lowercase language subtag.
	_ = validate.RegisterValidation("locale", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if v == "" {
			return true
		}
		if len(v) < 2 || len(v) > 3 {
			return false
		}
		for _, c := range v {
			if c < 'a' || c > 'z' {
				return false
			}
		}
		return true
	})
}

// Validate struct fields, returning field -> failed tag.
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// FieldErrors is Validate's result as an error.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+f[k])
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// Struct validates v and returns FieldErrors, or nil.
func Struct(v interface{}) error {
	if errs := Validate(v); errs != nil {
		return FieldErrors(errs)
	}
	return nil
}
