package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report fields by their query/json name
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json", "yaml"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// Validate applies struct defaults and validation rules to v.
func Validate(v interface{}) error {
	if err := defaults.Set(v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// ReadAndValidateRequest binds path, query and body into req, applies defaults and validates.
// It returns nil when the request is valid.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return validatorDefaultRules(err)
	}
	if err := defaults.Set(req); err != nil {
		return validatorDefaultRules(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validatorDefaultRules(err)
	}
	return nil
}

// ValidationErrors converts a validator error into field errors.
func ValidationErrors(err error) []ValidationError { return validatorDefaultRules(err) }

func validatorDefaultRules(err error) []ValidationError {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errs := make([]ValidationError, 0, len(validationErrors))
		for _, e := range validationErrors {
			code := "ERR_" + strings.ToUpper(e.Tag())
			errs = append(errs, ValidationError{
				Code:    code,
				Field:   e.Field(),
				Message: getErrorMessage(e),
				Params:  getErrorParams(e),
			})
		}
		return errs
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{
			Code:    "ERR_BIND",
			Message: fmt.Sprintf("%v", he.Message),
		}}
	}

	return []ValidationError{{
		Code:    "ERR_UNKNOWN",
		Message: err.Error(),
	}}
}

// ruleMessages maps a validator tag to its message format and the name of its param, if any.
var ruleMessages = map[string]struct {
	format string
	param  string
}{
	"required":    {"%s is required", ""},
	"required_if": {"%s is required when %s", "when"},
	"gt":          {"%s must be greater than %s", "value"},
	"gte":         {"%s must be greater than or equal to %s", "min"},
	"lt":          {"%s must be less than %s", "value"},
	"lte":         {"%s must be less than or equal to %s", "max"},
	"min":         {"%s must be at least %s", "min"},
	"max":         {"%s must be at most %s", "max"},
}

func getErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	if fe.Tag() == "oneof" {
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	rule, ok := ruleMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
	msg := rule.format
	if (fe.Tag() == "min" || fe.Tag() == "max") && fe.Type().Kind() == reflect.String {
		msg += " characters"
	}
	if rule.param == "" {
		return fmt.Sprintf(msg, field)
	}
	return fmt.Sprintf(msg, field, fe.Param())
}

func getErrorParams(fe validator.FieldError) map[string]interface{} {
	params := make(map[string]interface{})
	if fe.Tag() == "oneof" {
		params["options"] = strings.Split(fe.Param(), " ")
	} else if rule, ok := ruleMessages[fe.Tag()]; ok && rule.param != "" {
		params[rule.param] = fe.Param()
	}
	return params
}
