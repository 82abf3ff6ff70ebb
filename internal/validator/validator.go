package validator

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validates against `validate` tags, naming fields after their json or mapstructure key
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

func Create() CustomValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(fieldName)

	// registration only fails for an empty tag or a nil func
	_ = validate.RegisterValidation("location", isLocation)

	return CustomValidator{validator: validate}
}

func fieldName(field reflect.StructField) string {
	jsonName := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch jsonName {
	case "-":
		return ""
	case "-,":
		return "-"
	case "":
		return strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
	default:
		return jsonName
	}
}

// scheme://bucket[/key], as object storage locations are written
func isLocation(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != "" && u.Opaque == ""
}
